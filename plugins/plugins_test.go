package plugins

import (
	"chat-relay/errors"
	"chat-relay/runtime"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
)

func testDeps() Deps {
	return Deps{
		Log: logs.GetLoggerFromLevel(slog.LevelDebug),
		Censored: &runtime.CensoredData{
			Words:      []string{"idiot", "dumm"},
			Languages:  []string{"de", "en"},
			ByLanguage: map[string][]string{"en": {"idiot"}, "de": {"dumm", "idiot"}},
		},
		CensoredChar: '*',
	}
}

func TestCommandsPlugin_ProcessMessage(t *testing.T) {
	p := &CommandsPlugin{
		now:  func() time.Time { return time.Date(2024, 5, 1, 13, 4, 5, 0, time.UTC) },
		roll: func() int { return 4 },
	}

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Plain text", input: "hello there", expected: "hello there"},
		{name: "Roll", input: "/roll", expected: "You rolled: 4"},
		{name: "Roll ignores arguments", input: "/ROLL 2d6", expected: "You rolled: 4"},
		{name: "Shrug", input: "/shrug", expected: `¯\_(ツ)_/¯`},
		{name: "Time", input: "/time", expected: "Current time: 13:04:05"},
		{name: "Help", input: "/help", expected: helpText},
		{name: "Unknown", input: "/dance", expected: "Unknown command. Type /help for available commands."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expected, p.ProcessMessage(tt.input))
		})
	}
}

func TestCommandsPlugin_Roll_Range(t *testing.T) {
	req := require.New(t)
	p, err := NewCommandsPlugin(Deps{})
	req.NoError(err)
	for range 50 {
		req.Regexp(`^You rolled: [1-6]$`, p.(MessageProcessor).ProcessMessage("/roll"))
	}
}

func TestRegistry_Load_Chains_In_Order(t *testing.T) {
	req := require.New(t)
	ctx := context.Background()

	// Given both shipped plugins, with noise in the list
	m, err := DefaultRegistry().Load(ctx, []string{" Moderation", "", "commands", "moderation"}, testDeps())
	req.NoError(err)

	// Then each plugin is loaded once, in order
	infos := m.Infos()
	req.Len(infos, 2)
	req.Equal(ModerationID, infos[0].ID)
	req.Equal(CommandsID, infos[1].ID)
	req.Equal("ChatCommands", infos[1].Name)
	req.Len(m.Workers(), 2)

	// Then text goes through every processor
	req.Equal("you ***** !", m.ProcessMessage("you idiot !"))
	req.Equal(`¯\_(ツ)_/¯`, m.ProcessMessage("/shrug"))
	req.NoError(m.Shutdown(ctx))
}

func TestRegistry_Load_Unknown_Plugin(t *testing.T) {
	req := require.New(t)
	_, err := DefaultRegistry().Load(context.Background(), []string{"commands", "weather"}, testDeps())
	req.ErrorIs(err, errors.ErrUnknownPlugin)
}

func TestRegistry_Moderation_Needs_Words(t *testing.T) {
	req := require.New(t)
	_, err := DefaultRegistry().Load(context.Background(), []string{"moderation"}, Deps{CensoredChar: '*'})
	req.ErrorIs(err, errors.ErrEmptyWords)
}

func TestManager_Nil_Is_Passthrough(t *testing.T) {
	req := require.New(t)
	var m *Manager
	req.Equal("text", m.ProcessMessage("text"))
	req.Empty(m.Infos())
	req.Empty(m.Workers())
	req.NoError(m.Shutdown(context.Background()))
}

func TestRegistry_IDs(t *testing.T) {
	require.Equal(t, []string{CommandsID, ModerationID}, DefaultRegistry().IDs())
}
