package doctor

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/lobby"
)

const defaultBackendTimeout = 5 * time.Second

// BackendCheck runs one search through a lobby client to prove the backend
// answers.
type BackendCheck struct {
	backend session.Backend
	kind    string
	timeout time.Duration
}

// NewBackendCheck creates a backend round trip check. A zero timeout uses
// five seconds.
func NewBackendCheck(backend session.Backend, kind string, timeout time.Duration) *BackendCheck {
	if timeout <= 0 {
		timeout = defaultBackendTimeout
	}
	return &BackendCheck{backend: backend, kind: kind, timeout: timeout}
}

func (c *BackendCheck) Name() string {
	return "Backend"
}

func (c *BackendCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}
	result.add(pass("Kind", c.kind))

	client := lobby.New(c.backend, zerolog.Nop(), lobby.Options{
		Timeouts: lobby.Timeouts{Find: c.timeout},
	})
	defer client.Close()

	var (
		res   lobby.FindResult
		start = time.Now()
	)
	h, err := client.FindSessions(session.Query{MaxResults: 1}, func(r lobby.FindResult) { res = r })
	if err != nil {
		result.add(fail("Search", err.Error()))
		return result
	}
	if err := client.Await(ctx, h); err != nil {
		result.add(fail("Search", err.Error()))
		return result
	}
	if res.Err != nil {
		result.add(fail("Search", res.Err.Error()))
		return result
	}

	elapsed := time.Since(start).Round(time.Millisecond)
	if len(res.Records) == 0 {
		result.add(warn("Search", fmt.Sprintf("answered in %s with no public sessions", elapsed)))
		return result
	}

	result.add(pass("Search", fmt.Sprintf("answered in %s", elapsed)))
	return result
}
