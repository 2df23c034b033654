package observability

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/runtime"
	"context"
	"log/slog"
	goruntime "runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/samber/lo"
)

// RouterStatsSource is implemented by runtime.Router.
type RouterStatsSource interface {
	Stats() runtime.RouterStats
}

// MonitoringStats aggregates every metric exposed on /stats and by the
// gRPC Stats call.
type MonitoringStats struct {
	// --- RELAY ---
	Connections int                 `json:"connections"`
	Identities  int                 `json:"identities"`
	OpenGroups  []string            `json:"open_groups"`
	Router      runtime.RouterStats `json:"router"`

	// --- TRAFFIC ---
	ConnectionsOpened uint64  `json:"connections_opened"`
	ConnectionsClosed uint64  `json:"connections_closed"`
	FramesIn          uint64  `json:"frames_in"`
	FramesOut         uint64  `json:"frames_out"`
	InboundRate       float64 `json:"inbound_rate"`  // frames/s
	OutboundRate      float64 `json:"outbound_rate"` // frames/s

	// --- SYSTEM ---
	Process    domain.ProcessHealth `json:"process"`
	AllocMemMb uint64               `json:"alloc_mem_mb"`
	NumGC      uint32               `json:"num_gc"`
	Goroutines int                  `json:"goroutines"`
	Uptime     string               `json:"uptime"`
}

// MonitoringManager counts transport traffic and assembles MonitoringStats.
// Counters are atomic, rates are refreshed by Run on every tick.
type MonitoringManager struct {
	log        *slog.Logger
	interval   time.Duration
	registry   contract.IConnectionRegistry
	membership contract.IGroupMembership
	router     RouterStatsSource
	monitoring *domain.GlobalMonitoring

	opened    atomic.Uint64
	closed    atomic.Uint64
	framesIn  atomic.Uint64
	framesOut atomic.Uint64

	mu          sync.RWMutex
	lastCheck   time.Time
	lastIn      uint64
	lastOut     uint64
	inRate      float64
	outRate     float64
	allocMemMb  uint64
	numGC       uint32
	initialized bool
}

func NewMonitoringManager(
	log *slog.Logger,
	interval time.Duration,
	registry contract.IConnectionRegistry,
	membership contract.IGroupMembership,
	router RouterStatsSource,
	monitoring *domain.GlobalMonitoring,
) *MonitoringManager {
	return &MonitoringManager{
		log:        log,
		interval:   interval,
		registry:   registry,
		membership: membership,
		router:     router,
		monitoring: monitoring,
		lastCheck:  time.Now(),
	}
}

func (mm *MonitoringManager) ConnectionOpened() { mm.opened.Add(1) }
func (mm *MonitoringManager) ConnectionClosed() { mm.closed.Add(1) }
func (mm *MonitoringManager) FrameIn()          { mm.framesIn.Add(1) }
func (mm *MonitoringManager) FrameOut()         { mm.framesOut.Add(1) }

// Run refreshes rates and memory figures until ctx is done.
func (mm *MonitoringManager) Run(ctx context.Context) error {
	ticker := time.NewTicker(mm.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			mm.log.Debug("Context done, stopping monitoring manager")
			return nil
		case <-ticker.C:
			mm.updateStats(time.Now())
		}
	}
}

func (mm *MonitoringManager) updateStats(now time.Time) {
	in, out := mm.framesIn.Load(), mm.framesOut.Load()

	var m goruntime.MemStats
	goruntime.ReadMemStats(&m)

	mm.mu.Lock()
	defer mm.mu.Unlock()
	if duration := now.Sub(mm.lastCheck).Seconds(); duration > 0 {
		mm.inRate = float64(in-mm.lastIn) / duration
		mm.outRate = float64(out-mm.lastOut) / duration
	}
	mm.lastCheck, mm.lastIn, mm.lastOut = now, in, out
	mm.allocMemMb = m.Alloc / 1024 / 1024
	mm.numGC = m.NumGC
	mm.initialized = true

	mm.log.Debug("Stats updated",
		"inbound_rate", mm.inRate,
		"outbound_rate", mm.outRate,
		"mem_mb", mm.allocMemMb)
}

// GetLatest reads the live relay state and the last computed rates.
func (mm *MonitoringManager) GetLatest() MonitoringStats {
	connections, identities := mm.registry.Count()
	stats := MonitoringStats{
		Connections: connections,
		Identities:  identities,
		OpenGroups: lo.Map(mm.membership.OpenGroups(), func(g domain.GroupName, _ int) string {
			return g.String()
		}),
		Router:            mm.router.Stats(),
		ConnectionsOpened: mm.opened.Load(),
		ConnectionsClosed: mm.closed.Load(),
		FramesIn:          mm.framesIn.Load(),
		FramesOut:         mm.framesOut.Load(),
		Process:           mm.monitoring.GetSnapshot(),
		Goroutines:        goruntime.NumGoroutine(),
		Uptime:            mm.monitoring.Uptime().Round(time.Second).String(),
	}

	mm.mu.RLock()
	defer mm.mu.RUnlock()
	stats.InboundRate = mm.inRate
	stats.OutboundRate = mm.outRate
	stats.AllocMemMb = mm.allocMemMb
	stats.NumGC = mm.numGC
	if !mm.initialized {
		var m goruntime.MemStats
		goruntime.ReadMemStats(&m)
		stats.AllocMemMb = m.Alloc / 1024 / 1024
		stats.NumGC = m.NumGC
	}
	return stats
}
