package plugins

import (
	"chat-relay/domain"
	"chat-relay/errors"
	"chat-relay/moderation"
	"context"
	"fmt"
	"log/slog"
	"strings"
)

const ModerationID = "moderation"

// ModerationPlugin masks censored words in outgoing text.
type ModerationPlugin struct {
	log       *slog.Logger
	moderator *moderation.LanguageModerator
}

func NewModerationPlugin(deps Deps) (Plugin, error) {
	if deps.Censored == nil || len(deps.Censored.ByLanguage) == 0 {
		return nil, errors.ErrEmptyWords
	}
	m, err := moderation.NewLanguageModerator(deps.Censored.ByLanguage, deps.CensoredChar, deps.Log)
	if err != nil {
		return nil, err
	}
	return &ModerationPlugin{log: deps.Log, moderator: m}, nil
}

func (p *ModerationPlugin) Name() string { return "Moderation" }

func (p *ModerationPlugin) Initialize(context.Context) error {
	if p.log != nil {
		p.log.Info("Censored dictionaries loaded", "languages", strings.Join(p.moderator.Languages(), ","))
	}
	return nil
}

func (p *ModerationPlugin) Execute(context.Context) error { return nil }

func (p *ModerationPlugin) Info() domain.PluginInfo {
	return domain.PluginInfo{
		Name:        p.Name(),
		Version:     "1.0.0",
		Description: fmt.Sprintf("Masks insults (%d languages)", len(p.moderator.Languages())),
	}
}

func (p *ModerationPlugin) ProcessMessage(text string) string {
	censored, _ := p.moderator.Censor(text)
	return censored
}
