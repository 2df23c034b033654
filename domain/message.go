// Package domain contains core concepts of the chat relay.
// This file defines the events pushed to connected clients.
// Events are immutable once built by the router.
package domain

import (
	"time"

	"github.com/rs/xid"
)

type EventName string

const (
	ReceivePrivateMessage          EventName = "ReceivePrivateMessage"
	ReceiveGroupMessage            EventName = "ReceiveGroupMessage"
	ReceiveSystemMessage           EventName = "ReceiveSystemMessage"
	ReceiveGroupList               EventName = "ReceiveGroupList"
	ReceiveWhiteboardPluginRequest EventName = "ReceiveWhiteboardPluginRequest"
	ReceivePluginFileRequest       EventName = "ReceivePluginFileRequest"
	ReceivePluginFile              EventName = "ReceivePluginFile"
	ReceiveWhiteboardLine          EventName = "ReceiveWhiteboardLine"
	ReceiveSessionToken            EventName = "ReceiveSessionToken"
)

// Event is what a connection receives. Sender is empty for system events,
// otherwise it is sent as the first positional argument.
type Event struct {
	ID     string
	Name   EventName
	Sender Username
	Args   []any
	At     time.Time
}

func NewEvent(name EventName, sender Username, args ...any) Event {
	return Event{
		ID:     xid.New().String(),
		Name:   name,
		Sender: sender,
		Args:   args,
		At:     time.Now().UTC(),
	}
}

// Positional returns the arguments in wire order.
func (e Event) Positional() []any {
	if e.Sender == "" {
		return e.Args
	}
	return append([]any{e.Sender}, e.Args...)
}

// System announcements
func LoggedInMessage(u Username) string {
	return u.String() + " has logged in."
}

func LoggedOutMessage(u Username) string {
	return u.String() + " has logged out."
}

func JoinedGroupMessage(u Username, g GroupName) string {
	return u.String() + " has joined the group " + g.String() + "."
}

func LeftGroupMessage(u Username, g GroupName) string {
	return u.String() + " has left the group " + g.String() + "."
}
