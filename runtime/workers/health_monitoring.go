package workers

import (
	"chat-relay/domain"
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/shirou/gopsutil/process"
)

// HealthMonitoringWorker samples the relay process (cpu, ram, threads) on a
// fixed interval and publishes the result to GlobalMonitoring.
type HealthMonitoringWorker struct {
	log            *slog.Logger
	monitoring     *domain.GlobalMonitoring
	metricInterval time.Duration
	pid            int32
}

func NewHealthMonitoringWorker(
	log *slog.Logger,
	monitoring *domain.GlobalMonitoring,
	metricInterval time.Duration,
) *HealthMonitoringWorker {
	return &HealthMonitoringWorker{
		log:            log,
		monitoring:     monitoring,
		metricInterval: metricInterval,
		pid:            int32(os.Getpid()),
	}
}

func (w *HealthMonitoringWorker) Run(ctx context.Context) error {
	p, err := process.NewProcess(w.pid)
	if err != nil {
		// Restarted by the supervisor
		return err
	}

	w.sample(p)
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping health monitoring")
			return nil
		case <-ticker.C:
			w.sample(p)
		}
	}
}

func (w *HealthMonitoringWorker) sample(p *process.Process) {
	cpu, err := p.CPUPercent()
	if err != nil {
		w.log.Error("Error while finding process cpu usage", "err", err)
		return
	}
	ram, err := p.MemoryPercent()
	if err != nil {
		w.log.Error("Error while finding process ram usage", "err", err)
		return
	}
	health := domain.ProcessHealth{PID: w.pid, CPU: cpu, RAM: ram}
	if info, err := p.MemoryInfo(); err == nil {
		health.RSS = info.RSS
	}
	if threads, err := p.NumThreads(); err == nil {
		health.Threads = threads
	}
	w.monitoring.Update(health)
	w.log.Debug("Process sampled", "pid", w.pid, "cpu", cpu, "ram", ram)
}
