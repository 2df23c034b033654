package plugins

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/runtime/workers"
	"context"
	goerrors "errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/samber/lo"
)

// Registry maps a plugin id to its constructor.
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
}

func NewRegistry() *Registry {
	return &Registry{constructors: make(map[string]Constructor)}
}

// DefaultRegistry knows every plugin shipped with the relay.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(ModerationID, NewModerationPlugin)
	r.Register(CommandsID, NewCommandsPlugin)
	return r
}

func (r *Registry) Register(id string, c Constructor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.constructors[strings.ToLower(id)] = c
}

// IDs lists the registered plugin ids, sorted.
func (r *Registry) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := lo.Keys(r.constructors)
	slices.Sort(ids)
	return ids
}

// Load builds and initializes the plugins named by ids, in order.
// Blank and repeated ids are skipped, an unknown id fails the whole load.
func (r *Registry) Load(ctx context.Context, ids []string, deps Deps) (*Manager, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := &Manager{}
	seen := make(map[string]struct{})
	for _, raw := range ids {
		id := strings.ToLower(strings.TrimSpace(raw))
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}

		construct, ok := r.constructors[id]
		if !ok {
			return nil, fmt.Errorf("%w: %s", errors.ErrUnknownPlugin, id)
		}
		p, err := construct(deps)
		if err != nil {
			return nil, fmt.Errorf("plugin %s: %w", id, err)
		}
		if err := p.Initialize(ctx); err != nil {
			return nil, fmt.Errorf("plugin %s: %w", id, err)
		}
		m.loaded = append(m.loaded, loaded{id: id, plugin: p})
		if deps.Log != nil {
			deps.Log.Info("Plugin loaded", "plugin", p.Name(), "id", id)
		}
	}
	return m, nil
}

type loaded struct {
	id     string
	plugin Plugin
}

// Manager holds the loaded plugins. It is read only once built.
type Manager struct {
	loaded []loaded
}

// ProcessMessage chains every MessageProcessor in load order.
func (m *Manager) ProcessMessage(text string) string {
	if m == nil {
		return text
	}
	for _, l := range m.loaded {
		if p, ok := l.plugin.(MessageProcessor); ok {
			text = p.ProcessMessage(text)
		}
	}
	return text
}

// Infos describes the loaded plugins in load order.
func (m *Manager) Infos() []domain.PluginInfo {
	if m == nil {
		return []domain.PluginInfo{}
	}
	return lo.Map(m.loaded, func(l loaded, _ int) domain.PluginInfo {
		if d, ok := l.plugin.(Describer); ok {
			info := d.Info()
			info.ID = l.id
			return info
		}
		return domain.PluginInfo{ID: l.id, Name: l.plugin.Name()}
	})
}

// Workers wraps each plugin's Execute so the supervisor can run it.
func (m *Manager) Workers() []contract.Worker {
	if m == nil {
		return nil
	}
	return lo.Map(m.loaded, func(l loaded, _ int) contract.Worker {
		return workers.Named("plugin:"+l.id, l.plugin.Execute)
	})
}

// Shutdown stops plugins in reverse load order and joins their errors.
func (m *Manager) Shutdown(ctx context.Context) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, l := range slices.Backward(m.loaded) {
		if s, ok := l.plugin.(Shutdowner); ok {
			if err := s.Shutdown(ctx); err != nil {
				errs = append(errs, fmt.Errorf("plugin %s: %w", l.id, err))
			}
		}
	}
	return goerrors.Join(errs...)
}
