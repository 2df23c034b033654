package workers

import (
	"chat-relay/contract"
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Backlogged is a connection exposing its outbound queue.
type Backlogged interface {
	Pending() int
	Capacity() int
}

// ChannelCapacityWorker periodically samples the outbox of every bound
// connection. Reading a channel length never blocks, a stale sample is fine.
// A connection close to full is about to drop deliveries: it is reported.
type ChannelCapacityWorker struct {
	log                  *slog.Logger
	registry             contract.IConnectionRegistry
	metricInterval       time.Duration
	lowCapacityThreshold int
}

func NewChannelCapacityWorker(log *slog.Logger, registry contract.IConnectionRegistry,
	metricInterval time.Duration, lowCapacityThreshold int) *ChannelCapacityWorker {
	return &ChannelCapacityWorker{
		log:                  log,
		registry:             registry,
		metricInterval:       metricInterval,
		lowCapacityThreshold: lowCapacityThreshold,
	}
}

func (w *ChannelCapacityWorker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.metricInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Debug("Context done, stopping outbox sampling")
			return nil
		case <-ticker.C:
			w.sample()
		}
	}
}

// sample returns how many connections are low on capacity.
func (w *ChannelCapacityWorker) sample() int {
	low := 0
	for _, conn := range w.registry.Connections() {
		b, ok := conn.(Backlogged)
		if !ok || b.Capacity() <= 0 {
			continue
		}
		capacityLeft := b.Capacity() - b.Pending()
		if capacityLeft <= w.lowCapacityThreshold {
			low++
			identity, _ := w.registry.IdentityOf(conn.ID())
			w.log.Warn(fmt.Sprintf("Outbox capacity left : %d", capacityLeft),
				"connection_id", conn.ID(),
				"user", identity)
		}
	}
	return low
}
