package session

import (
	"context"
	"errors"
	"fmt"
)

// Sentinel errors for lobby operations.
var (
	// ErrNoBackend means no session backend is available. Fatal for the client.
	ErrNoBackend = errors.New("no session backend available")
	// ErrAlreadyInProgress means an operation of the same kind is still pending.
	ErrAlreadyInProgress = errors.New("operation already in progress")
	// ErrDispatchFailed means the backend refused the request synchronously.
	ErrDispatchFailed = errors.New("backend refused request")
	// ErrStaleRecord means the record belongs to a superseded search.
	ErrStaleRecord = errors.New("session record is stale")
	// ErrTimedOut means the backend did not complete within the configured timeout.
	ErrTimedOut = errors.New("operation timed out")
	// ErrBackendFailure means the backend completed the operation with a failure.
	ErrBackendFailure = errors.New("backend reported failure")

	ErrNotFound = errors.New("session not found")
)

// FindReply is delivered once per Find dispatch.
type FindReply struct {
	OK      bool
	Records []Record
	Err     error // optional detail when OK is false
}

// CreateReply is delivered once per Create dispatch.
type CreateReply struct {
	OK        bool
	SessionID string
	Err       error
}

// JoinResult is the outcome code of a join attempt.
type JoinResult int

const (
	JoinOK JoinResult = iota
	JoinFull
	JoinNotFound
	JoinBadPassword
	JoinUnknownError
)

func (r JoinResult) String() string {
	switch r {
	case JoinOK:
		return "ok"
	case JoinFull:
		return "full"
	case JoinNotFound:
		return "not_found"
	case JoinBadPassword:
		return "bad_password"
	default:
		return "unknown_error"
	}
}

// ParseJoinResult maps a wire name back to a JoinResult.
func ParseJoinResult(s string) JoinResult {
	switch s {
	case "ok":
		return JoinOK
	case "full":
		return JoinFull
	case "not_found":
		return JoinNotFound
	case "bad_password":
		return JoinBadPassword
	default:
		return JoinUnknownError
	}
}

// Err converts a non-OK result into an error wrapping ErrBackendFailure.
func (r JoinResult) Err() error {
	if r == JoinOK {
		return nil
	}
	return fmt.Errorf("%w: join %s", ErrBackendFailure, r)
}

// JoinReply is delivered once per Join dispatch.
type JoinReply struct {
	Result        JoinResult
	ConnectString string
}

// Backend is the capability a session backend must expose. Each method
// returns an error only when the request is refused at dispatch; otherwise
// the callback is invoked exactly once, from any goroutine.
type Backend interface {
	Find(ctx context.Context, q Query, done func(FindReply)) error
	Create(ctx context.Context, cfg Config, done func(CreateReply)) error
	Join(ctx context.Context, req JoinRequest, done func(JoinReply)) error
}

// Store defines persistence operations for hosted sessions.
type Store interface {
	// List returns all hosted sessions in creation order.
	List(ctx context.Context) ([]Hosted, error)
	// Get returns a hosted session by ID. Returns ErrNotFound if not found.
	Get(ctx context.Context, id string) (Hosted, error)
	// Save creates or updates a hosted session.
	Save(ctx context.Context, h Hosted) error
	// Delete removes a hosted session by ID. Returns ErrNotFound if not found.
	Delete(ctx context.Context, id string) error
}
