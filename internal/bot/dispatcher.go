package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"shadowbot/internal/models"
)

const convQueueSize = 16

// UserStore is the slice of the user repository the dispatcher needs for
// first-contact upserts and post-commit bookkeeping.
type UserStore interface {
	UserFinder
	Upsert(ctx context.Context, identity string) (*models.User, error)
	TouchActivity(ctx context.Context, identity, command string) error
	IncrementMessages(ctx context.Context, identity string) error
}

// JoinFunc greets a membership-join event; it bypasses the command pipeline.
type JoinFunc func(ctx context.Context, ev Event) (*Result, error)

// ScanRule is a passive keyword trigger applied to non-command messages.
type ScanRule struct {
	Keyword string
	Reply   string
}

// Replies are the canned user-visible notices for pipeline short-circuits.
type Replies struct {
	RateLimited string
	Denied      string
	Banned      string
	Failure     string
}

func defaultReplies() Replies {
	return Replies{
		RateLimited: "Too many requests, give it a minute.",
		Denied:      "Only admins can use this command.",
		Banned:      "You are banned from using this bot.",
		Failure:     "Something went wrong while processing your command.",
	}
}

type Options struct {
	Prefix          string
	Workers         int
	ShutdownTimeout time.Duration
	IdleTimeout     time.Duration
	Replies         Replies
	ScanRules       []ScanRule
}

// Dispatcher routes inbound events through the parse / rate-limit / authz
// pipeline to registered handlers. Events for one conversation are processed
// strictly in arrival order; different conversations run concurrently up to
// the worker bound.
type Dispatcher struct {
	opts      Options
	registry  *Registry
	limiter   *RateLimiter
	gate      *Gate
	transport Transport
	applier   StateApplier
	users     UserStore
	onJoin    JoinFunc
	defaultFn HandlerFunc
	log       *zap.Logger

	baseCtx context.Context
	sem     chan struct{}

	mu     sync.Mutex
	queues map[string]chan Event
	wg     sync.WaitGroup
	closed bool
}

func NewDispatcher(
	opts Options,
	registry *Registry,
	limiter *RateLimiter,
	gate *Gate,
	transport Transport,
	applier StateApplier,
	users UserStore,
	onJoin JoinFunc,
	defaultFn HandlerFunc,
	log *zap.Logger,
) *Dispatcher {
	if opts.Prefix == "" {
		opts.Prefix = "#"
	}
	if opts.Workers <= 0 {
		opts.Workers = 8
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 5 * time.Second
	}
	if opts.IdleTimeout <= 0 {
		opts.IdleTimeout = 5 * time.Minute
	}
	empty := Replies{}
	if opts.Replies == empty {
		opts.Replies = defaultReplies()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{
		opts:      opts,
		registry:  registry,
		limiter:   limiter,
		gate:      gate,
		transport: transport,
		applier:   applier,
		users:     users,
		onJoin:    onJoin,
		defaultFn: defaultFn,
		log:       log,
		baseCtx:   context.Background(),
		sem:       make(chan struct{}, opts.Workers),
		queues:    make(map[string]chan Event),
	}
}

// Start binds the dispatcher to its lifetime context. Must be called before
// HandleEvent.
func (d *Dispatcher) Start(ctx context.Context) {
	d.baseCtx = ctx
}

// HandleEvent enqueues one inbound event onto its conversation's queue.
// Returns an error when the dispatcher is shut down or the queue is full;
// the transport may drop or retry at its discretion.
func (d *Dispatcher) HandleEvent(ev Event) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("dispatcher is shut down")
	}
	q, ok := d.queues[ev.ConversationID]
	if !ok {
		q = make(chan Event, convQueueSize)
		d.queues[ev.ConversationID] = q
		d.wg.Add(1)
		go d.convWorker(ev.ConversationID, q)
	}

	// the enqueue stays under the lock so Shutdown cannot close the queue
	// between the closed check and the send; it never blocks
	select {
	case q <- ev:
		return nil
	default:
		d.log.Warn("conversation queue full, dropping event",
			zap.String("conversation_id", ev.ConversationID),
			zap.String("event_id", ev.ID))
		return fmt.Errorf("queue full for conversation %s", ev.ConversationID)
	}
}

// convWorker drains one conversation's queue, one event at a time. The
// semaphore bounds how many conversations execute their pipeline at once.
// A worker that sits idle past the timeout removes its queue and exits, so
// the queue map does not grow without bound across distinct conversations.
func (d *Dispatcher) convWorker(conversationID string, q chan Event) {
	defer d.wg.Done()
	idle := time.NewTimer(d.opts.IdleTimeout)
	defer idle.Stop()
	for {
		select {
		case ev, ok := <-q:
			if !ok {
				return
			}
			d.sem <- struct{}{}
			d.process(d.baseCtx, ev)
			<-d.sem
			if !idle.Stop() {
				select {
				case <-idle.C:
				default:
				}
			}
			idle.Reset(d.opts.IdleTimeout)
		case <-idle.C:
			d.mu.Lock()
			// during shutdown the queue is about to be closed; take the
			// receive path instead of unmapping it
			if !d.closed && len(q) == 0 {
				delete(d.queues, conversationID)
				d.mu.Unlock()
				return
			}
			d.mu.Unlock()
			idle.Reset(d.opts.IdleTimeout)
		}
	}
}

// Shutdown stops intake, lets in-flight pipelines finish up to the configured
// timeout, and returns. Safe to call once.
func (d *Dispatcher) Shutdown() error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	for _, q := range d.queues {
		close(q)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(d.opts.ShutdownTimeout):
		return fmt.Errorf("shutdown timed out after %s", d.opts.ShutdownTimeout)
	}
}

// process runs the ordered pipeline for a single event. Stages short-circuit;
// a handler failure terminates this event only.
func (d *Dispatcher) process(ctx context.Context, ev Event) {
	// 1. never react to ourselves
	if ev.FromSelf {
		return
	}

	// 2. join events skip command handling entirely
	if ev.Kind == KindJoin {
		d.handleJoin(ctx, ev)
		return
	}

	// 3. parse; non-commands only get the passive scan
	inv := Parse(d.opts.Prefix, ev.Text)
	if inv == nil {
		d.passiveScan(ctx, ev)
		return
	}
	inv.Identity = ev.Identity
	inv.ConversationID = ev.ConversationID
	inv.IsGroup = ev.IsGroup
	inv.Media = ev.Media
	inv.MediaMIME = ev.MediaMIME

	// 4. rate limit before anything else can be probed
	if !d.limiter.Allow(ev.Identity) {
		d.log.Debug("rate limited",
			zap.String("identity", ev.Identity),
			zap.String("command", inv.Command))
		d.reply(ctx, ev.ConversationID, Outgoing{Text: d.opts.Replies.RateLimited})
		return
	}

	// first contact creates the user record
	user, err := d.users.Upsert(ctx, ev.Identity)
	if err != nil {
		d.failEvent(ctx, ev, inv.Command, err)
		return
	}
	if user.IsBanned {
		d.reply(ctx, ev.ConversationID, Outgoing{Text: d.opts.Replies.Banned})
		return
	}

	// 5. route; unknown commands go to the default handler without authz
	spec, ok := d.registry.Lookup(inv.Command)
	if !ok {
		d.invoke(ctx, ev, inv, d.defaultFn)
		return
	}
	if !d.gate.IsAuthorized(ctx, ev.Identity, ev.ConversationID, spec.Level) {
		d.log.Info("authorization denied",
			zap.String("identity", ev.Identity),
			zap.String("command", inv.Command),
			zap.String("conversation_id", ev.ConversationID))
		d.reply(ctx, ev.ConversationID, Outgoing{Text: d.opts.Replies.Denied})
		return
	}

	// 6-8. handler, reply, bookkeeping
	d.invoke(ctx, ev, inv, spec.Fn)
}

func (d *Dispatcher) invoke(ctx context.Context, ev Event, inv *Invocation, fn HandlerFunc) {
	if fn == nil {
		return
	}
	res, err := d.safeCall(ctx, inv, fn)
	if err != nil {
		d.failEvent(ctx, ev, inv.Command, err)
		return
	}
	if res != nil && (res.Text != "" || res.Media != nil) {
		d.reply(ctx, ev.ConversationID, Outgoing{
			Text:     res.Text,
			Media:    res.Media,
			Mentions: res.Mentions,
		})
	}
	d.postCommit(ctx, ev, inv, res)
}

// safeCall contains handler failures, panics included, to this one event.
func (d *Dispatcher) safeCall(ctx context.Context, inv *Invocation, fn HandlerFunc) (res *Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return fn(ctx, inv)
}

func (d *Dispatcher) failEvent(ctx context.Context, ev Event, command string, err error) {
	d.log.Error("handler failed",
		zap.String("command", command),
		zap.String("identity", ev.Identity),
		zap.String("conversation_id", ev.ConversationID),
		zap.Error(err))
	d.reply(ctx, ev.ConversationID, Outgoing{Text: d.opts.Replies.Failure})
}

// postCommit applies handler intents and usage bookkeeping after the reply is
// out. Failures here are logged, never surfaced.
func (d *Dispatcher) postCommit(ctx context.Context, ev Event, inv *Invocation, res *Result) {
	if res != nil && d.applier != nil {
		for _, in := range res.Intents {
			if err := d.applier.Apply(ctx, in); err != nil {
				d.log.Error("intent failed",
					zap.String("intent", in.IntentName()),
					zap.String("command", inv.Command),
					zap.String("identity", ev.Identity),
					zap.Error(err))
			}
		}
	}
	if err := d.users.TouchActivity(ctx, ev.Identity, inv.Command); err != nil {
		d.log.Warn("activity bookkeeping failed",
			zap.String("identity", ev.Identity), zap.Error(err))
	}
}

func (d *Dispatcher) handleJoin(ctx context.Context, ev Event) {
	if d.onJoin == nil {
		return
	}
	res, err := d.onJoin(ctx, ev)
	if err != nil {
		d.log.Error("join handler failed",
			zap.String("conversation_id", ev.ConversationID),
			zap.Error(err))
		return
	}
	if res != nil && res.Text != "" {
		d.reply(ctx, ev.ConversationID, Outgoing{Text: res.Text, Mentions: res.Mentions})
	}
}

func (d *Dispatcher) passiveScan(ctx context.Context, ev Event) {
	if _, err := d.users.Upsert(ctx, ev.Identity); err == nil {
		if err := d.users.IncrementMessages(ctx, ev.Identity); err != nil {
			d.log.Warn("message bookkeeping failed",
				zap.String("identity", ev.Identity), zap.Error(err))
		}
	}
	lower := strings.ToLower(ev.Text)
	for _, rule := range d.opts.ScanRules {
		if rule.Keyword != "" && strings.Contains(lower, strings.ToLower(rule.Keyword)) {
			d.reply(ctx, ev.ConversationID, Outgoing{Text: rule.Reply})
			return
		}
	}
}

func (d *Dispatcher) reply(ctx context.Context, conversationID string, out Outgoing) {
	if err := d.transport.Send(ctx, conversationID, out); err != nil {
		d.log.Error("send failed",
			zap.String("conversation_id", conversationID),
			zap.Error(err))
	}
}
