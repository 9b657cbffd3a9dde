// Package lobby provides the session client that coordinates create, find and
// join operations against a session backend.
package lobby

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/hay-kot/lobby/internal/core/session"
	"github.com/hay-kot/lobby/internal/core/validate"
	"github.com/rs/zerolog"
)

// DefaultMaxResults is used when a query does not set MaxResults.
const DefaultMaxResults = 20

const defaultInboxSize = 32

// Timeouts bounds each operation kind. A zero duration disables the timeout.
type Timeouts struct {
	Create time.Duration
	Find   time.Duration
	Join   time.Duration
}

func (t Timeouts) forKind(k session.Kind) time.Duration {
	switch k {
	case session.KindCreate:
		return t.Create
	case session.KindFind:
		return t.Find
	case session.KindJoin:
		return t.Join
	default:
		return 0
	}
}

// Options configures a Client.
type Options struct {
	Timeouts  Timeouts
	InboxSize int
}

// Handle identifies a dispatched operation.
type Handle struct {
	Kind       session.Kind
	RequestID  uint64
	Generation uint64 // search generation, set for find operations only
}

// CreateResult is passed to the CreateSession callback.
type CreateResult struct {
	Handle    Handle
	SessionID string
	Err       error
}

// FindResult is passed to the FindSessions callback.
type FindResult struct {
	Handle  Handle
	Records []session.Record
	Err     error
}

// JoinResult is passed to the JoinSession callback.
type JoinResult struct {
	Handle        Handle
	Record        session.Record
	ConnectString string
	Err           error
}

// Completion carries a backend reply or a timeout back to the goroutine that
// owns the Client. Obtain them from Completions and apply them with Deliver.
type Completion struct {
	kind       session.Kind
	requestID  uint64
	generation uint64
	timeout    bool

	find   session.FindReply
	create session.CreateReply
	join   session.JoinReply
}

// Kind returns the operation kind the completion belongs to.
func (c Completion) Kind() session.Kind { return c.kind }

// RequestID returns the request the completion belongs to.
func (c Completion) RequestID() uint64 { return c.requestID }

type operation struct {
	handle Handle
	timer  *time.Timer
	query  session.Query
	record session.Record

	onCreate func(CreateResult)
	onFind   func(FindResult)
	onJoin   func(JoinResult)
}

// Client is the single point of contact between menu code and a session
// backend. It owns at most one pending operation per kind.
//
// Client is not safe for concurrent use. All methods must be called from one
// goroutine, the owner; backend callbacks only enqueue completions, which the
// owner applies through Deliver, Drain or Await.
type Client struct {
	backend  session.Backend
	log      zerolog.Logger
	timeouts Timeouts

	ctx    context.Context
	cancel context.CancelFunc
	inbox  chan Completion

	nextID     uint64
	generation uint64
	search     SearchState
	pending    map[session.Kind]*operation
}

// New creates a Client. A nil backend yields a client whose operations all
// fail with session.ErrNoBackend.
func New(backend session.Backend, log zerolog.Logger, opts Options) *Client {
	size := opts.InboxSize
	if size <= 0 {
		size = defaultInboxSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Client{
		backend:  backend,
		log:      log,
		timeouts: opts.Timeouts,
		ctx:      ctx,
		cancel:   cancel,
		inbox:    make(chan Completion, size),
		pending:  make(map[session.Kind]*operation, len(session.Kinds)),
	}
}

// CreateSession asks the backend to host a new session. The callback runs on
// the owner goroutine once the backend replies or the create times out.
func (c *Client) CreateSession(cfg session.Config, done func(CreateResult)) (Handle, error) {
	if c.backend == nil {
		return Handle{}, session.ErrNoBackend
	}
	if err := validate.SessionConfig(cfg); err != nil {
		return Handle{}, fmt.Errorf("invalid session config: %w", err)
	}
	if c.pending[session.KindCreate] != nil {
		return Handle{}, session.ErrAlreadyInProgress
	}

	op := c.begin(session.KindCreate, 0)
	op.onCreate = done

	c.log.Info().
		Uint64("request_id", op.handle.RequestID).
		Str("name", cfg.DisplayName).
		Str("map", cfg.MapName).
		Msg("creating session")

	err := c.backend.Create(c.ctx, cfg, func(r session.CreateReply) {
		c.post(Completion{kind: session.KindCreate, requestID: op.handle.RequestID, create: r})
	})
	if err != nil {
		c.release(op)
		return Handle{}, fmt.Errorf("%w: %w", session.ErrDispatchFailed, err)
	}

	c.arm(op)
	return op.handle, nil
}

// FindSessions starts a new search generation. A search still in flight is
// superseded and its reply will be dropped, unless q.IfIdle is set, in which
// case the call fails with session.ErrAlreadyInProgress.
func (c *Client) FindSessions(q session.Query, done func(FindResult)) (Handle, error) {
	if c.backend == nil {
		return Handle{}, session.ErrNoBackend
	}
	if cur := c.pending[session.KindFind]; cur != nil {
		if q.IfIdle {
			return Handle{}, session.ErrAlreadyInProgress
		}
		c.log.Debug().Uint64("generation", cur.handle.Generation).Msg("superseding search")
		c.release(cur)
	}
	if q.MaxResults <= 0 {
		q.MaxResults = DefaultMaxResults
	}

	c.generation++
	gen := c.generation
	c.search = SearchState{
		Status:     SearchSearching,
		Generation: gen,
		FilterText: c.search.FilterText,
	}

	op := c.begin(session.KindFind, gen)
	op.query = q
	op.onFind = done

	c.log.Debug().Uint64("generation", gen).Int("max_results", q.MaxResults).Msg("finding sessions")

	err := c.backend.Find(c.ctx, q, func(r session.FindReply) {
		c.post(Completion{kind: session.KindFind, requestID: op.handle.RequestID, generation: gen, find: r})
	})
	if err != nil {
		c.release(op)
		err = fmt.Errorf("%w: %w", session.ErrDispatchFailed, err)
		c.search.Status = SearchFailed
		c.search.Err = err
		return Handle{}, err
	}

	c.arm(op)
	return op.handle, nil
}

// JoinSession joins the session described by req.Record. The record must come
// from the current search generation.
func (c *Client) JoinSession(req session.JoinRequest, done func(JoinResult)) (Handle, error) {
	if c.backend == nil {
		return Handle{}, session.ErrNoBackend
	}
	if !c.IsCurrent(req.Record) {
		c.log.Debug().
			Uint64("record_generation", req.Record.Generation).
			Uint64("generation", c.search.Generation).
			Msg("rejecting stale record")
		return Handle{}, session.ErrStaleRecord
	}
	if c.pending[session.KindJoin] != nil {
		return Handle{}, session.ErrAlreadyInProgress
	}

	op := c.begin(session.KindJoin, 0)
	op.record = req.Record
	op.onJoin = done

	c.log.Info().
		Uint64("request_id", op.handle.RequestID).
		Str("session_id", req.Record.ID).
		Msg("joining session")

	err := c.backend.Join(c.ctx, req, func(r session.JoinReply) {
		c.post(Completion{kind: session.KindJoin, requestID: op.handle.RequestID, join: r})
	})
	if err != nil {
		c.release(op)
		return Handle{}, fmt.Errorf("%w: %w", session.ErrDispatchFailed, err)
	}

	c.arm(op)
	return op.handle, nil
}

// CancelSearch supersedes the search in flight, if any. Its reply is dropped
// when it arrives; backend work is not aborted. Calling it with no search in
// flight is a no-op.
func (c *Client) CancelSearch() {
	op := c.pending[session.KindFind]
	if op == nil {
		return
	}

	c.release(op)
	c.generation++
	c.search = SearchState{
		Status:     SearchIdle,
		Generation: c.generation,
		FilterText: c.search.FilterText,
	}

	c.log.Debug().Uint64("generation", op.handle.Generation).Msg("search cancelled")
}

// SetFilter changes the filter applied by SearchState.Visible.
func (c *Client) SetFilter(text string) {
	c.search.FilterText = text
}

// Search returns a snapshot of the current search generation.
func (c *Client) Search() SearchState {
	s := c.search
	s.Results = slices.Clone(s.Results)
	return s
}

// IsCurrent reports whether rec was produced by the current search generation.
func (c *Client) IsCurrent(rec session.Record) bool {
	return rec.Generation != 0 && rec.Generation == c.search.Generation
}

// Pending reports whether the operation identified by h is still in flight.
func (c *Client) Pending(h Handle) bool {
	op := c.pending[h.Kind]
	return op != nil && op.handle.RequestID == h.RequestID
}

// Busy reports whether any operation of kind k is in flight.
func (c *Client) Busy(k session.Kind) bool {
	return c.pending[k] != nil
}

// Completions returns the inbox backend replies are posted to.
func (c *Client) Completions() <-chan Completion {
	return c.inbox
}

// Deliver applies a completion and runs the matching callback. Completions
// for superseded, cancelled or already resolved operations are dropped and
// Deliver returns false.
func (c *Client) Deliver(comp Completion) bool {
	op := c.pending[comp.kind]
	if op == nil || op.handle.RequestID != comp.requestID {
		c.log.Debug().
			Stringer("kind", comp.kind).
			Uint64("request_id", comp.requestID).
			Bool("timeout", comp.timeout).
			Msg("dropping stale completion")
		return false
	}
	if comp.kind == session.KindFind && comp.generation != c.search.Generation {
		c.log.Debug().Uint64("generation", comp.generation).Msg("dropping superseded search reply")
		return false
	}

	c.release(op)

	switch comp.kind {
	case session.KindCreate:
		c.completeCreate(op, comp)
	case session.KindFind:
		c.completeFind(op, comp)
	case session.KindJoin:
		c.completeJoin(op, comp)
	}

	return true
}

// Drain applies every completion already queued without blocking and
// returns how many were applied.
func (c *Client) Drain() int {
	applied := 0
	for {
		select {
		case comp := <-c.inbox:
			if c.Deliver(comp) {
				applied++
			}
		default:
			return applied
		}
	}
}

// Await applies completions on the calling goroutine until the operation
// identified by h resolves or ctx is done.
func (c *Client) Await(ctx context.Context, h Handle) error {
	for c.Pending(h) {
		select {
		case comp := <-c.inbox:
			c.Deliver(comp)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops all timers, forgets pending operations and cancels the context
// handed to the backend. Callbacks of pending operations are not invoked.
func (c *Client) Close() {
	for _, op := range c.pending {
		c.release(op)
	}
	c.cancel()
}

func (c *Client) completeCreate(op *operation, comp Completion) {
	res := CreateResult{Handle: op.handle}

	switch {
	case comp.timeout:
		res.Err = session.ErrTimedOut
	case !comp.create.OK:
		res.Err = backendFailure(comp.create.Err)
	default:
		res.SessionID = comp.create.SessionID
	}

	if res.Err != nil {
		c.log.Warn().Err(res.Err).Uint64("request_id", op.handle.RequestID).Msg("create failed")
	} else {
		c.log.Info().Str("session_id", res.SessionID).Msg("session created")
	}

	if op.onCreate != nil {
		op.onCreate(res)
	}
}

func (c *Client) completeFind(op *operation, comp Completion) {
	res := FindResult{Handle: op.handle}

	switch {
	case comp.timeout:
		res.Err = session.ErrTimedOut
	case !comp.find.OK:
		res.Err = backendFailure(comp.find.Err)
	default:
		records := comp.find.Records
		if len(records) > op.query.MaxResults {
			records = records[:op.query.MaxResults]
		}
		stamped := make([]session.Record, len(records))
		for i, r := range records {
			r.Generation = op.handle.Generation
			stamped[i] = r
		}
		res.Records = stamped
	}

	if res.Err != nil {
		c.search.Status = SearchFailed
		c.search.Results = nil
		c.search.Err = res.Err
		c.log.Warn().Err(res.Err).Uint64("generation", op.handle.Generation).Msg("search failed")
	} else {
		c.search.Status = SearchCompleted
		c.search.Results = res.Records
		c.search.Err = nil
		c.log.Debug().Int("count", len(res.Records)).Uint64("generation", op.handle.Generation).Msg("search complete")
	}

	if op.onFind != nil {
		op.onFind(res)
	}
}

func (c *Client) completeJoin(op *operation, comp Completion) {
	res := JoinResult{Handle: op.handle, Record: op.record}

	switch {
	case comp.timeout:
		res.Err = session.ErrTimedOut
	case comp.join.Result != session.JoinOK:
		res.Err = comp.join.Result.Err()
	default:
		res.ConnectString = comp.join.ConnectString
	}

	if res.Err != nil {
		c.log.Warn().Err(res.Err).Str("session_id", op.record.ID).Msg("join failed")
	} else {
		c.log.Info().Str("session_id", op.record.ID).Str("connect", res.ConnectString).Msg("joined session")
	}

	if op.onJoin != nil {
		op.onJoin(res)
	}
}

// begin allocates a request id and claims the pending slot for kind.
func (c *Client) begin(kind session.Kind, generation uint64) *operation {
	c.nextID++
	op := &operation{
		handle: Handle{Kind: kind, RequestID: c.nextID, Generation: generation},
	}
	c.pending[kind] = op
	return op
}

// release stops the timer and frees the slot if op still holds it.
func (c *Client) release(op *operation) {
	if op.timer != nil {
		op.timer.Stop()
		op.timer = nil
	}
	if c.pending[op.handle.Kind] == op {
		delete(c.pending, op.handle.Kind)
	}
}

// arm starts the timeout for op, if one is configured.
func (c *Client) arm(op *operation) {
	d := c.timeouts.forKind(op.handle.Kind)
	if d <= 0 {
		return
	}
	h := op.handle
	op.timer = time.AfterFunc(d, func() {
		c.post(Completion{kind: h.Kind, requestID: h.RequestID, generation: h.Generation, timeout: true})
	})
}

// post enqueues a completion. It may be called from any goroutine.
func (c *Client) post(comp Completion) {
	select {
	case c.inbox <- comp:
	case <-c.ctx.Done():
	}
}

func backendFailure(detail error) error {
	if detail == nil {
		return session.ErrBackendFailure
	}
	return fmt.Errorf("%w: %w", session.ErrBackendFailure, detail)
}
