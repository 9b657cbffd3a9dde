package doctor

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hay-kot/lobby/internal/core/session"
)

// SessionFile is the part of the server's session store the stale check
// needs.
type SessionFile interface {
	Path() string
	List(ctx context.Context) ([]session.Hosted, error)
	Prune(ctx context.Context, cutoff time.Time) (int, error)
}

// StaleCheck finds hosted sessions idle for longer than the server TTL.
type StaleCheck struct {
	store SessionFile
	ttl   time.Duration
	fix   bool
	now   func() time.Time
}

// NewStaleCheck creates a stale session check.
// If fix is true, stale sessions are pruned.
func NewStaleCheck(store SessionFile, ttl time.Duration, fix bool) *StaleCheck {
	return &StaleCheck{
		store: store,
		ttl:   ttl,
		fix:   fix,
		now:   time.Now,
	}
}

func (c *StaleCheck) Name() string {
	return "Hosted Sessions"
}

func (c *StaleCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	if _, err := os.Stat(c.store.Path()); os.IsNotExist(err) {
		result.add(pass("Session file", "no sessions file yet"))
		return result
	}

	hosted, err := c.store.List(ctx)
	if err != nil {
		result.add(fail("List sessions", err.Error()))
		return result
	}

	if c.ttl <= 0 {
		result.add(pass("Sessions", fmt.Sprintf("%d hosted, pruning disabled", len(hosted))))
		return result
	}

	cutoff := c.now().Add(-c.ttl)

	var stale []session.Hosted
	for _, h := range hosted {
		if h.UpdatedAt.Before(cutoff) {
			stale = append(stale, h)
		}
	}

	if len(stale) == 0 {
		result.add(pass("No stale sessions", fmt.Sprintf("%d hosted", len(hosted))))
		return result
	}

	if c.fix {
		removed, err := c.store.Prune(ctx, cutoff)
		if err != nil {
			result.add(fail("Prune", fmt.Sprintf("failed to prune: %v", err)))
		} else {
			result.add(pass("Prune", fmt.Sprintf("removed %d stale session(s)", removed)))
		}
		return result
	}

	for _, h := range stale {
		item := warn(h.Config.DisplayName, fmt.Sprintf("idle since %s (%s)", h.UpdatedAt.Format(time.RFC3339), h.ID))
		item.Fixable = true
		result.add(item)
	}

	return result
}
