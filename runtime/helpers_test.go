package runtime

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/mama165/sdk-go/logs"
)

// recorder is an in-memory connection keeping every delivered event.
type recorder struct {
	id     domain.ConnectionID
	mu     sync.Mutex
	events []domain.Event
	fail   bool
}

func newRecorder(name string) *recorder {
	return &recorder{id: domain.ConnectionID(name)}
}

func (r *recorder) ID() domain.ConnectionID {
	return r.id
}

func (r *recorder) Deliver(_ context.Context, e domain.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("connection %s is gone", r.id)
	}
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) Events() []domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.Event(nil), r.events...)
}

// Named returns the events of one kind, positional args flattened.
func (r *recorder) Named(name domain.EventName) [][]any {
	var out [][]any
	for _, e := range r.Events() {
		if e.Name == name {
			out = append(out, e.Positional())
		}
	}
	return out
}

// SystemTexts returns the texts of every system message received.
func (r *recorder) SystemTexts() []string {
	var out []string
	for _, args := range r.Named(domain.ReceiveSystemMessage) {
		out = append(out, args[0].(string))
	}
	return out
}

func (r *recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

type relay struct {
	log        *slog.Logger
	registry   *ConnectionRegistry
	membership *GroupMembership
	router     *Router
}

func newRelay() relay {
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := NewConnectionRegistry()
	membership := NewGroupMembership(registry)
	return relay{
		log:        log,
		registry:   registry,
		membership: membership,
		router:     NewRouter(log, registry, membership),
	}
}
