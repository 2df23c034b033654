package observability

import (
	"chat-relay/domain"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

type conn struct{ id domain.ConnectionID }

func (c conn) ID() domain.ConnectionID                     { return c.id }
func (c conn) Deliver(context.Context, domain.Event) error { return nil }

func newManager(t *testing.T) (*MonitoringManager, *runtime.ConnectionRegistry, *runtime.GroupMembership) {
	t.Helper()
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := runtime.NewConnectionRegistry()
	membership := runtime.NewGroupMembership(registry)
	router := runtime.NewRouter(log, registry, membership)
	mm := NewMonitoringManager(log, 10*time.Millisecond, registry, membership, router, domain.NewGlobalMonitoring(time.Minute))
	return mm, registry, membership
}

func TestMonitoringManager_GetLatest(t *testing.T) {
	req := require.New(t)
	mm, registry, membership := newManager(t)

	alice := conn{id: "a-1"}
	req.NoError(registry.Bind(alice, "alice"))
	req.NoError(registry.Bind(conn{id: "a-2"}, "alice"))
	_, err := membership.Join("general", alice)
	req.NoError(err)

	mm.ConnectionOpened()
	mm.ConnectionOpened()
	mm.ConnectionClosed()
	mm.FrameIn()
	mm.FrameOut()
	mm.FrameOut()

	stats := mm.GetLatest()
	req.Equal(2, stats.Connections)
	req.Equal(1, stats.Identities)
	req.Equal([]string{"general"}, stats.OpenGroups)
	req.Equal(uint64(2), stats.ConnectionsOpened)
	req.Equal(uint64(1), stats.ConnectionsClosed)
	req.Equal(uint64(1), stats.FramesIn)
	req.Equal(uint64(2), stats.FramesOut)
	req.Equal(domain.GHOST, stats.Process.Status)
	req.Positive(stats.Goroutines)
	req.NotEmpty(stats.Uptime)
}

func TestMonitoringManager_Rates(t *testing.T) {
	req := require.New(t)
	mm, _, _ := newManager(t)
	start := time.Now()
	mm.lastCheck = start

	for range 20 {
		mm.FrameIn()
	}
	mm.FrameOut()
	mm.updateStats(start.Add(2 * time.Second))

	stats := mm.GetLatest()
	req.InDelta(10.0, stats.InboundRate, 0.001)
	req.InDelta(0.5, stats.OutboundRate, 0.001)
}

func TestMonitoringManager_Run_Stops(t *testing.T) {
	req := require.New(t)
	mm, _, _ := newManager(t)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	req.NoError(mm.Run(ctx))
}
