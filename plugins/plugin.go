package plugins

import (
	"chat-relay/domain"
	"chat-relay/runtime"
	"context"
	"log/slog"
)

// Plugin is a server side extension. Execute runs for the whole life of the
// relay under supervision; plugins with nothing to do in the background
// return nil immediately.
type Plugin interface {
	Name() string
	Initialize(ctx context.Context) error
	Execute(ctx context.Context) error
}

// Describer exposes the metadata returned by GetPlugins.
type Describer interface {
	Info() domain.PluginInfo
}

// MessageProcessor rewrites outgoing chat text before it is routed.
type MessageProcessor interface {
	ProcessMessage(text string) string
}

// Shutdowner releases what Initialize acquired.
type Shutdowner interface {
	Shutdown(ctx context.Context) error
}

// Deps is what a plugin constructor may use.
type Deps struct {
	Log          *slog.Logger
	Censored     *runtime.CensoredData
	CensoredChar rune
}

// Constructor builds a plugin from its dependencies.
type Constructor func(deps Deps) (Plugin, error)
