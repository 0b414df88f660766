package main

import (
	"log"
	"os"

	"github.com/rs/zerolog"
)

// newBootLogger mirrors the teacher's startup-only plain logger (created
// before configuration, and therefore before the structured logger, is
// available).
func newBootLogger() *log.Logger {
	return log.New(os.Stdout, "[realtime-demo] ", log.LstdFlags)
}

func newStructuredLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}
