package main

import (
	"chat-relay/protocol"
	"fmt"
	"strings"
)

// command is one parsed input line. Local commands (stats, upload, help,
// quit) have no protocol method.
type command struct {
	name   string
	method protocol.Method
	args   []any
}

const usage = `register <user> <password>   create an account
login <user> <password>      log in
logout                       log out and leave
join <group> / leave <group>
say <group> <text>           message a group
msg <user> <text>            private message
groups                       list open groups
plugins                      list server plugins
search <query>               search documents
upload <path> [metadata]     upload a file, metadata is a JSON object
download <id> <path>         save a document
stats                        relay statistics
quit`

// parseLine turns "say golang hello there" into a SendGroupMessage with
// the text kept whole.
func parseLine(line string) (command, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return command{}, fmt.Errorf("empty command")
	}
	name := strings.ToLower(fields[0])
	rest := fields[1:]

	need := func(n int) error {
		if len(rest) < n {
			return fmt.Errorf("%s expects %d argument(s), see help", name, n)
		}
		return nil
	}
	// tail returns the text after the first skip arguments, spacing kept
	tail := func(skip int) string {
		s := strings.TrimSpace(line)
		for range skip + 1 {
			s = strings.TrimSpace(s[len(strings.Fields(s)[0]):])
		}
		return s
	}

	switch name {
	case "register", "login":
		if err := need(2); err != nil {
			return command{}, err
		}
		method := protocol.Register
		if name == "login" {
			method = protocol.Login
		}
		return command{name: name, method: method, args: []any{rest[0], rest[1]}}, nil
	case "logout":
		return command{name: name, method: protocol.Logout}, nil
	case "join", "leave":
		if err := need(1); err != nil {
			return command{}, err
		}
		method := protocol.JoinGroup
		if name == "leave" {
			method = protocol.LeaveGroup
		}
		return command{name: name, method: method, args: []any{rest[0]}}, nil
	case "say", "msg":
		if err := need(2); err != nil {
			return command{}, err
		}
		method := protocol.SendGroupMessage
		if name == "msg" {
			method = protocol.SendPrivateMessage
		}
		return command{name: name, method: method, args: []any{rest[0], tail(1)}}, nil
	case "groups":
		return command{name: name, method: protocol.GetOpenGroups}, nil
	case "plugins":
		return command{name: name, method: protocol.GetPlugins}, nil
	case "search":
		if err := need(1); err != nil {
			return command{}, err
		}
		return command{name: name, method: protocol.SearchDocuments, args: []any{tail(0)}}, nil
	case "upload":
		if err := need(1); err != nil {
			return command{}, err
		}
		return command{name: name, args: []any{rest[0], tail(1)}}, nil
	case "download":
		if err := need(2); err != nil {
			return command{}, err
		}
		return command{name: name, method: protocol.DownloadDocument, args: []any{rest[0], rest[1]}}, nil
	case "stats", "help", "quit":
		return command{name: name}, nil
	default:
		return command{}, fmt.Errorf("unknown command %q, see help", name)
	}
}
