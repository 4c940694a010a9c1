//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"chatroom/domain"
)

// Event is a server-to-client frame: a tag from the closed event set plus
// its JSON-serializable payload.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// EventSink is the delivery end of one live connection.
// Send must never block indefinitely; delivery is best-effort, at-most-once.
type EventSink interface {
	Send(e Event) error
	Close() error
}

type IRegistry interface {
	Register(identity domain.Identity, sink EventSink) (session *domain.Session, evicted EventSink)
	Unregister(userID string) *domain.Session
	Lookup(userID string) (*domain.Session, bool)
	IsOnline(userID string) bool
	FindByUsername(username string) (*domain.Session, bool)
	SinkFor(userID string) (EventSink, bool)
	Subscribe(roomID, userID string)
	Unsubscribe(roomID, userID string)
	SinksForRoom(roomID string, excludeUserID string) []EventSink
	AllSinks(excludeUserID string) []EventSink
	SetStatus(userID string, status domain.Status) bool
	SetCurrentRoom(userID, roomID string)
}

type WorkerName string

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// ISupervisor owns a set of workers and keeps them alive until its
// context is canceled or every worker has finished.
type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Stop()
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker
// lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}
