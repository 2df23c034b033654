package domain

import "strings"

// GroupName identifies a chat group. Case-sensitive.
// A group exists only while it has at least one member.
type GroupName string

func (g GroupName) String() string {
	return string(g)
}

func (g GroupName) IsValid() bool {
	return strings.TrimSpace(string(g)) != ""
}

// JoinResult tells the caller whether a notification is due.
// Joined is false on a duplicate join.
type JoinResult struct {
	Joined  bool
	Created bool
}

// LeaveResult reports whether the connection was a member and whether
// the group disappeared as a consequence.
type LeaveResult struct {
	Left    bool
	Removed bool
}

// GroupChange is produced when a connection is removed from every group at once.
type GroupChange struct {
	Group   GroupName
	Removed bool
}
