//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"chat-relay/domain"
	"context"
	"reflect"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// Named workers (see Named) take precedence.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	if n, ok := w.(interface{ Name() string }); ok {
		return n.Name()
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// Connection is the transport-owned handle of a live client.
// The core only keeps non-owning references to it.
type Connection interface {
	ID() domain.ConnectionID
	Deliver(ctx context.Context, e domain.Event) error
}

// AuthStore verifies and creates credentials.
// A false result is a regular outcome, errors mean the store is unavailable.
type AuthStore interface {
	Authenticate(ctx context.Context, username domain.Username, password string) (bool, error)
	Register(ctx context.Context, username domain.Username, password string) (bool, error)
}

// DocumentStore persists uploaded documents.
type DocumentStore interface {
	Save(ctx context.Context, doc domain.Document) (domain.Document, error)
	Load(ctx context.Context, id string) (domain.Document, error)
}

// DocumentIndex makes stored documents searchable.
type DocumentIndex interface {
	Index(doc domain.Document) error
	Search(ctx context.Context, query string, limit int) ([]domain.DocumentSummary, error)
}

type IConnectionRegistry interface {
	Bind(conn Connection, identity domain.Username) error
	Unbind(id domain.ConnectionID) (domain.Username, bool)
	IdentityOf(id domain.ConnectionID) (domain.Username, bool)
	ConnectionsOf(identity domain.Username) []Connection
	Connections() []Connection
	Count() (connections int, identities int)
}

type IGroupMembership interface {
	Join(group domain.GroupName, conn Connection) (domain.JoinResult, error)
	Leave(group domain.GroupName, id domain.ConnectionID) domain.LeaveResult
	Members(group domain.GroupName) []Connection
	OpenGroups() []domain.GroupName
	RemoveConnectionFromAllGroups(id domain.ConnectionID) []domain.GroupChange
}

type IRouter interface {
	SendPrivate(ctx context.Context, from domain.ConnectionID, target domain.Username, name domain.EventName, args ...any) (int, error)
	SendGroup(ctx context.Context, from domain.ConnectionID, group domain.GroupName, name domain.EventName, args ...any) (int, error)
	SendGroupSystem(ctx context.Context, group domain.GroupName, text string) int
	BroadcastSystem(ctx context.Context, name domain.EventName, args ...any) int
	BroadcastGroupList(ctx context.Context) int
}
