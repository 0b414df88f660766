package realtime

import (
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"
)

// defaultResourceSampleInterval paces the background resourceSampler
// goroutine when Options.SampleResourceUsage is enabled.
const defaultResourceSampleInterval = 5 * time.Second

// Stats is a point-in-time snapshot combining queue/serial accounting
// with (optionally sampled) host resource usage. SPEC_FULL.md §3.
type Stats struct {
	State              State
	PendingQueueDepth  int
	OutgoingQueueDepth int
	SerialCounter      int64
	// ReconnectAttempts counts failed reconnect retries (from Disconnected
	// or Suspended) since the last Connected.
	ReconnectAttempts int64

	// Host resource usage, populated only when resource sampling is
	// enabled (Options.SampleResourceUsage).
	CPUPercent float64
	MemoryMB   float64
}

// resourceSampler periodically samples this process's CPU/memory usage,
// grounded directly on go-server-2/server.go's collectMetrics method:
// same gopsutil calls (cpu.Percent, process.NewProcess, mem.VirtualMemory),
// same fallback-to-VirtualMemory structure, repointed at the client's own
// process (DESIGN.md).
type resourceSampler struct {
	mu         sync.RWMutex
	cpuPercent float64
	memoryMB   float64

	proc *process.Process
}

func newResourceSampler() *resourceSampler {
	rs := &resourceSampler{}
	if p, err := process.NewProcess(int32(os.Getpid())); err == nil {
		rs.proc = p
	}
	return rs
}

// run samples on ticker until stop is closed. Intended to run on its own
// goroutine, reporting only through the mutex-guarded fields (not the
// loop goroutine's command channel), since Stats() reads are a diagnostic
// side-channel, not part of the state machine.
func (rs *resourceSampler) run(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			rs.sampleOnce()
		}
	}
}

func (rs *resourceSampler) sampleOnce() {
	if percents, err := cpu.Percent(0, false); err == nil && len(percents) > 0 {
		rs.mu.Lock()
		rs.cpuPercent = percents[0]
		rs.mu.Unlock()
	}

	if rs.proc != nil {
		if info, err := rs.proc.MemoryInfo(); err == nil {
			rs.mu.Lock()
			rs.memoryMB = float64(info.RSS) / 1024 / 1024
			rs.mu.Unlock()
			return
		}
	}

	if vmem, err := mem.VirtualMemory(); err == nil {
		rs.mu.Lock()
		rs.memoryMB = float64(vmem.Used) / 1024 / 1024
		rs.mu.Unlock()
	}
}

func (rs *resourceSampler) snapshot() (cpuPercent, memoryMB float64) {
	rs.mu.RLock()
	defer rs.mu.RUnlock()
	return rs.cpuPercent, rs.memoryMB
}
