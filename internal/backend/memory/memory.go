// Package memory provides an in-process session backend. It backs the demo
// mode of the menu and the client's integration tests.
package memory

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/pkg/randid"
	"github.com/rs/zerolog"
)

// ErrRefused is returned at dispatch while refusal is switched on.
var ErrRefused = errors.New("memory backend refusing requests")

// Options configures the backend.
type Options struct {
	Latency  time.Duration // delay before each reply
	HostAddr string        // address used in connect strings
}

// Backend is a session backend holding hosted sessions in memory.
type Backend struct {
	log      zerolog.Logger
	latency  time.Duration
	hostAddr string

	mu       sync.Mutex
	sessions []session.Hosted
	failNext map[session.Kind]error
	refuse   bool
	hold     bool
	held     []func()
	now      func() time.Time
}

var _ session.Backend = (*Backend)(nil)

// New creates an empty Backend.
func New(log zerolog.Logger, opts Options) *Backend {
	addr := opts.HostAddr
	if addr == "" {
		addr = "127.0.0.1:7777"
	}
	return &Backend{
		log:      log,
		latency:  opts.Latency,
		hostAddr: addr,
		failNext: make(map[session.Kind]error),
		now:      time.Now,
	}
}

// Seed hosts sessions directly, bypassing validation. Each session starts
// with a single "host" player.
func (b *Backend) Seed(cfgs ...session.Config) []session.Hosted {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]session.Hosted, 0, len(cfgs))
	for _, cfg := range cfgs {
		out = append(out, b.host(cfg))
	}
	return out
}

// SeedDemo hosts a fixed set of public sessions.
func (b *Backend) SeedDemo() {
	b.Seed(
		session.Config{DisplayName: "Alpha Squad", MapName: "de_dust2", GameMode: "defuse", MaxPlayers: 10, IsPublic: true},
		session.Config{DisplayName: "Beta Testers", MapName: "cs_office", GameMode: "hostage", MaxPlayers: 8, IsPublic: true},
		session.Config{DisplayName: "Gamma Ray", MapName: "de_inferno", GameMode: "defuse", MaxPlayers: 1, IsPublic: true},
		session.Config{DisplayName: "Late Night Casuals", MapName: "ar_shoots", GameMode: "arms_race", MaxPlayers: 16, IsPublic: true},
	)
}

// FailNext makes the next reply of kind k a failure carrying err.
func (b *Backend) FailNext(k session.Kind, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failNext[k] = err
}

// Refuse toggles synchronous refusal of every request.
func (b *Backend) Refuse(on bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.refuse = on
}

// Hold queues replies instead of sending them until Release is called.
func (b *Backend) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hold = true
}

// Release sends every held reply in dispatch order and stops holding.
func (b *Backend) Release() int {
	b.mu.Lock()
	held := b.held
	b.held = nil
	b.hold = false
	b.mu.Unlock()

	for _, fn := range held {
		fn()
	}
	return len(held)
}

// Sessions returns a copy of every hosted session.
func (b *Backend) Sessions() []session.Hosted {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]session.Hosted, len(b.sessions))
	copy(out, b.sessions)
	return out
}

// Find answers with the public sessions matching q, in hosting order.
func (b *Backend) Find(ctx context.Context, q session.Query, done func(session.FindReply)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refuse {
		return ErrRefused
	}

	var reply session.FindReply
	if failed, err := b.takeFailure(session.KindFind); failed {
		reply = session.FindReply{OK: false, Err: err}
	} else {
		records := make([]session.Record, 0, len(b.sessions))
		for _, h := range b.sessions {
			rec := h.Record()
			rec.PingMs = simulatedPing(h.ID)
			if !q.Matches(rec) {
				continue
			}
			records = append(records, rec)
			if q.MaxResults > 0 && len(records) == q.MaxResults {
				break
			}
		}
		reply = session.FindReply{OK: true, Records: records}
	}

	b.schedule(ctx, func() { done(reply) })
	return nil
}

// Create hosts a new session.
func (b *Backend) Create(ctx context.Context, cfg session.Config, done func(session.CreateReply)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refuse {
		return ErrRefused
	}

	var reply session.CreateReply
	if failed, err := b.takeFailure(session.KindCreate); failed {
		reply = session.CreateReply{OK: false, Err: err}
	} else {
		h := b.host(cfg)
		reply = session.CreateReply{OK: true, SessionID: h.ID}
	}

	b.schedule(ctx, func() { done(reply) })
	return nil
}

// Join seats the player in the session identified by the record's join handle.
func (b *Backend) Join(ctx context.Context, req session.JoinRequest, done func(session.JoinReply)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refuse {
		return ErrRefused
	}

	reply := session.JoinReply{Result: session.JoinNotFound}
	if failed, _ := b.takeFailure(session.KindJoin); failed {
		reply.Result = session.JoinUnknownError
	} else {
		for i := range b.sessions {
			h := &b.sessions[i]
			if h.JoinToken != req.Record.JoinHandle {
				continue
			}
			player := req.PlayerName
			if player == "" {
				player = "player"
			}
			reply.Result = h.Admit(player, req.Password, b.now())
			if reply.Result == session.JoinOK {
				reply.ConnectString = h.ConnectString()
			}
			break
		}
	}

	b.schedule(ctx, func() { done(reply) })
	return nil
}

// host stores a new session. Callers hold b.mu.
func (b *Backend) host(cfg session.Config) session.Hosted {
	now := b.now()
	h := session.Hosted{
		ID:           randid.Generate(randid.SessionIDLength),
		Config:       cfg,
		PasswordHash: session.HashPassword(cfg.Password),
		HostAddr:     b.hostAddr,
		JoinToken:    uuid.NewString(),
		Players:      []string{"host"},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	h.Config.Password = ""
	b.sessions = append(b.sessions, h)

	b.log.Debug().Str("session_id", h.ID).Str("name", cfg.DisplayName).Msg("hosted session")
	return h
}

// takeFailure consumes an injected failure. Callers hold b.mu.
func (b *Backend) takeFailure(k session.Kind) (bool, error) {
	err, ok := b.failNext[k]
	if ok {
		delete(b.failNext, k)
	}
	return ok, err
}

// schedule delivers a reply asynchronously. Callers hold b.mu.
func (b *Backend) schedule(ctx context.Context, deliver func()) {
	if b.hold {
		b.held = append(b.held, deliver)
		return
	}

	go func() {
		if b.latency > 0 {
			t := time.NewTimer(b.latency)
			defer t.Stop()
			select {
			case <-t.C:
			case <-ctx.Done():
				return
			}
		}
		deliver()
	}()
}

// simulatedPing derives a stable fake latency from the session ID.
func simulatedPing(id string) uint {
	h := fnv.New32a()
	_, _ = h.Write([]byte(id))
	return uint(10 + h.Sum32()%140)
}
