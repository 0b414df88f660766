package realtime

import (
	"os"

	"github.com/rs/zerolog"
)

// newLogger builds a zerolog.Logger at the given level, matching
// old_ws/config.go's *zerolog.Logger-as-dependency idiom: the library
// accepts a logger (or builds a sane default) rather than reaching for a
// global.
func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stdout).Level(lvl).With().Timestamp().Logger()
}

// component returns a child logger tagged with its owning component,
// mirroring old_ws/config.go's chained Str(...)/Msg(...) call style.
func component(l zerolog.Logger, name string) zerolog.Logger {
	return l.With().Str("component", name).Logger()
}
