package plugins

import (
	"chat-relay/domain"
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const CommandsID = "commands"

const helpText = "Available commands:\n" +
	"/roll - Roll a dice\n" +
	"/shrug - Get a shrug emoticon\n" +
	"/time - Show current time\n" +
	"/help - Show this help message"

// CommandsPlugin answers slash commands in place of the typed text.
type CommandsPlugin struct {
	now  func() time.Time
	roll func() int
}

func NewCommandsPlugin(_ Deps) (Plugin, error) {
	return &CommandsPlugin{
		now:  time.Now,
		roll: func() int { return rand.IntN(6) + 1 },
	}, nil
}

func (c *CommandsPlugin) Name() string { return "ChatCommands" }

func (c *CommandsPlugin) Initialize(context.Context) error { return nil }

func (c *CommandsPlugin) Execute(context.Context) error { return nil }

func (c *CommandsPlugin) Info() domain.PluginInfo {
	return domain.PluginInfo{
		Name:        c.Name(),
		Version:     "1.0.0",
		Description: "Answers /roll, /shrug, /time and /help",
	}
}

// ProcessMessage leaves plain text untouched.
func (c *CommandsPlugin) ProcessMessage(text string) string {
	if !strings.HasPrefix(text, "/") {
		return text
	}
	command, _, _ := strings.Cut(text, " ")
	switch strings.ToLower(command) {
	case "/roll":
		return fmt.Sprintf("You rolled: %d", c.roll())
	case "/shrug":
		return `¯\_(ツ)_/¯`
	case "/time":
		return "Current time: " + c.now().Format("15:04:05")
	case "/help":
		return helpText
	default:
		return "Unknown command. Type /help for available commands."
	}
}
