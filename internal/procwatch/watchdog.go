// Package procwatch observes the resource usage of the scanner child
// process while a scan runs.
package procwatch

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/process"

	"github.com/secretlens/secretlens/internal/config"
)

// Usage is one sample of the watched process's consumption.
type Usage struct {
	PID           int32
	MemoryMB      float64
	CPUPercent    float64
	SystemUsedPct float64
	SampledAt     time.Time
}

// Watchdog samples one scanner process on a fixed interval and logs a
// warning when it grows past the configured memory ceiling. It only
// observes; a scan is killed by cancelling its context, never by the
// watchdog.
type Watchdog struct {
	cfg    config.WatchdogConfig
	logger zerolog.Logger

	mu       sync.Mutex
	stopChan chan struct{}
	wg       sync.WaitGroup
	last     Usage
	hasLast  bool
	onSample func(Usage)
}

// NewWatchdog creates a Watchdog. It does nothing until Watch is
// called.
func NewWatchdog(cfg config.WatchdogConfig, logger zerolog.Logger) *Watchdog {
	return &Watchdog{
		cfg:    cfg,
		logger: logger.With().Str("component", "ProcessWatchdog").Logger(),
	}
}

// SetOnSample registers a callback receiving every sample, outside the
// watchdog's lock.
func (w *Watchdog) SetOnSample(fn func(Usage)) {
	w.mu.Lock()
	w.onSample = fn
	w.mu.Unlock()
}

// Watch starts sampling pid until Stop is called or the process goes
// away. Watching a new pid supersedes the previous watch; a disabled
// config makes Watch a no-op.
func (w *Watchdog) Watch(pid int) {
	if !w.cfg.Enabled {
		return
	}

	w.mu.Lock()
	w.stopLocked()
	stopChan := make(chan struct{})
	w.stopChan = stopChan
	w.wg.Add(1)
	w.mu.Unlock()

	go w.run(int32(pid), stopChan)
}

// Stop ends sampling and waits for the sampling loop to exit.
func (w *Watchdog) Stop() {
	w.mu.Lock()
	w.stopLocked()
	w.mu.Unlock()
	w.wg.Wait()
}

// LastUsage returns the most recent sample, if any was taken.
func (w *Watchdog) LastUsage() (Usage, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.last, w.hasLast
}

func (w *Watchdog) stopLocked() {
	if w.stopChan != nil {
		close(w.stopChan)
		w.stopChan = nil
	}
}

func (w *Watchdog) run(pid int32, stopChan chan struct{}) {
	defer w.wg.Done()

	proc, err := process.NewProcess(pid)
	if err != nil {
		w.logger.Debug().Err(err).Int32("pid", pid).Msg("Process gone before first sample")
		return
	}

	// One immediate sample so callers get a reading before the first
	// full interval elapses.
	if !w.sample(proc) {
		return
	}

	ticker := time.NewTicker(w.interval())
	defer ticker.Stop()

	for {
		select {
		case <-stopChan:
			return
		case <-ticker.C:
			if !w.sample(proc) {
				return
			}
		}
	}
}

// sample records one usage reading. Returns false once the process has
// exited.
func (w *Watchdog) sample(proc *process.Process) bool {
	memInfo, err := proc.MemoryInfo()
	if err != nil {
		w.logger.Debug().Int32("pid", proc.Pid).Msg("Scanner process exited, stopping watchdog")
		return false
	}

	usage := Usage{
		PID:       proc.Pid,
		MemoryMB:  float64(memInfo.RSS) / (1024 * 1024),
		SampledAt: time.Now(),
	}
	if cpuPct, err := proc.CPUPercent(); err == nil {
		usage.CPUPercent = cpuPct
	}
	if vm, err := mem.VirtualMemory(); err == nil {
		usage.SystemUsedPct = vm.UsedPercent
	}

	maxMemoryMB := w.cfg.MaxScannerMemoryMB
	if maxMemoryMB <= 0 {
		maxMemoryMB = config.DefaultWatchdogMaxMemoryMB
	}
	if usage.MemoryMB > float64(maxMemoryMB) {
		w.logger.Warn().
			Int32("pid", usage.PID).
			Float64("memory_mb", usage.MemoryMB).
			Int64("limit_mb", maxMemoryMB).
			Msg("Scanner process exceeds memory ceiling")
	} else {
		w.logger.Debug().
			Int32("pid", usage.PID).
			Float64("memory_mb", usage.MemoryMB).
			Float64("cpu_percent", usage.CPUPercent).
			Msg("Scanner process usage")
	}

	w.mu.Lock()
	w.last = usage
	w.hasLast = true
	fn := w.onSample
	w.mu.Unlock()
	if fn != nil {
		fn(usage)
	}
	return true
}

func (w *Watchdog) interval() time.Duration {
	intervalSeconds := w.cfg.CheckIntervalSeconds
	if intervalSeconds <= 0 {
		intervalSeconds = config.DefaultWatchdogIntervalSeconds
	}
	return time.Duration(intervalSeconds) * time.Second
}
