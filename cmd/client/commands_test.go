package main

import (
	"chat-relay/protocol"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected command
	}{
		{
			name:     "Login",
			line:     "login alice password123",
			expected: command{name: "login", method: protocol.Login, args: []any{"alice", "password123"}},
		},
		{
			name:     "Group message keeps inner spacing",
			line:     "say golang  hello   gophers ",
			expected: command{name: "say", method: protocol.SendGroupMessage, args: []any{"golang", "hello   gophers"}},
		},
		{
			name:     "Private message",
			line:     "MSG bob /roll",
			expected: command{name: "msg", method: protocol.SendPrivateMessage, args: []any{"bob", "/roll"}},
		},
		{
			name:     "Search query",
			line:     "search meeting notes",
			expected: command{name: "search", method: protocol.SearchDocuments, args: []any{"meeting notes"}},
		},
		{
			name:     "Upload without metadata",
			line:     "upload ./notes.txt",
			expected: command{name: "upload", args: []any{"./notes.txt", ""}},
		},
		{
			name:     "Upload with metadata",
			line:     `upload ./notes.txt {"project": "relay"}`,
			expected: command{name: "upload", args: []any{"./notes.txt", `{"project": "relay"}`}},
		},
		{
			name:     "Local command",
			line:     "stats",
			expected: command{name: "stats"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseLine(tt.line)
			require.NoError(t, err)
			require.Equal(t, tt.expected, got)
		})
	}
}

func TestParseLine_Errors(t *testing.T) {
	req := require.New(t)
	for _, line := range []string{"", "   ", "say golang", "login alice", "dance"} {
		_, err := parseLine(line)
		req.Error(err, line)
	}
}
