package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"shadowbot/internal/models"
)

type fakeStore struct {
	mu       sync.Mutex
	users    map[string]*models.User
	upserts  int
	touches  []string
	messages int
}

func newFakeStore() *fakeStore {
	return &fakeStore{users: make(map[string]*models.User)}
}

func (s *fakeStore) FindByIdentity(ctx context.Context, identity string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[identity], nil
}

func (s *fakeStore) Upsert(ctx context.Context, identity string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if u, ok := s.users[identity]; ok {
		return u, nil
	}
	u := &models.User{Identity: identity, Language: "en"}
	s.users[identity] = u
	return u, nil
}

func (s *fakeStore) TouchActivity(ctx context.Context, identity, command string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.touches = append(s.touches, identity+":"+command)
	return nil
}

func (s *fakeStore) IncrementMessages(ctx context.Context, identity string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages++
	return nil
}

type sentMessage struct {
	ConversationID string
	Out            Outgoing
}

type fakeTransport struct {
	mu    sync.Mutex
	sends []sentMessage
	roles map[string]Role
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{roles: make(map[string]Role)}
}

func (t *fakeTransport) Send(ctx context.Context, conversationID string, out Outgoing) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sends = append(t.sends, sentMessage{conversationID, out})
	return nil
}

func (t *fakeTransport) ConversationRole(ctx context.Context, conversationID, identity string) (Role, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.roles[identity], nil
}

func (t *fakeTransport) sent() []sentMessage {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]sentMessage, len(t.sends))
	copy(out, t.sends)
	return out
}

func (t *fakeTransport) lastText() string {
	msgs := t.sent()
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1].Out.Text
}

type fakeApplier struct {
	mu      sync.Mutex
	applied []Intent
	err     error
}

func (a *fakeApplier) Apply(ctx context.Context, in Intent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.applied = append(a.applied, in)
	return a.err
}

type testRig struct {
	d         *Dispatcher
	store     *fakeStore
	transport *fakeTransport
	applier   *fakeApplier
	registry  *Registry
}

func newTestRig(opts Options) *testRig {
	store := newFakeStore()
	transport := newFakeTransport()
	applier := &fakeApplier{}
	registry := NewRegistry()
	d := NewDispatcher(
		opts,
		registry,
		NewRateLimiter(time.Minute, 100),
		NewGate(store, transport, nil),
		transport,
		applier,
		store,
		nil,
		nil,
		nil,
	)
	return &testRig{d: d, store: store, transport: transport, applier: applier, registry: registry}
}

func msgEvent(identity, conv, text string) Event {
	return Event{
		ID:             "ev-" + text,
		Kind:           KindMessage,
		Identity:       identity,
		ConversationID: conv,
		Text:           text,
	}
}

func TestDispatchRoutesToHandler(t *testing.T) {
	rig := newTestRig(Options{})
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{Text: "pong"}, nil
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ping"))

	if got := rig.transport.lastText(); got != "pong" {
		t.Errorf("reply = %q, want %q", got, "pong")
	}
	if len(rig.store.touches) != 1 || rig.store.touches[0] != "alice:ping" {
		t.Errorf("touches = %v, want one alice:ping", rig.store.touches)
	}
}

func TestDispatchDropsOwnEvents(t *testing.T) {
	rig := newTestRig(Options{})
	called := false
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			called = true
			return nil, nil
		},
	})

	ev := msgEvent("bot", "c1", "#ping")
	ev.FromSelf = true
	rig.d.process(context.Background(), ev)

	if called {
		t.Error("handler must not run for the bot's own messages")
	}
	if len(rig.transport.sent()) != 0 {
		t.Error("no reply expected for self events")
	}
}

func TestDispatchRateLimitShortCircuits(t *testing.T) {
	rig := newTestRig(Options{})
	rig.d.limiter = NewRateLimiter(time.Minute, 5)
	calls := 0
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			calls++
			return &Result{Text: "pong"}, nil
		},
	})

	for i := 0; i < 6; i++ {
		rig.d.process(context.Background(), msgEvent("alice", "c1", "#ping"))
	}

	if calls != 5 {
		t.Errorf("handler ran %d times, want 5", calls)
	}
	if got := rig.transport.lastText(); got != rig.d.opts.Replies.RateLimited {
		t.Errorf("6th reply = %q, want rate-limit notice", got)
	}
	// the rejected event must not count as a command
	if len(rig.store.touches) != 5 {
		t.Errorf("touches = %d, want 5", len(rig.store.touches))
	}
}

func TestDispatchBannedUser(t *testing.T) {
	rig := newTestRig(Options{})
	called := false
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			called = true
			return nil, nil
		},
	})
	rig.store.users["alice"] = &models.User{Identity: "alice", IsBanned: true}

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ping"))

	if called {
		t.Error("banned users must not reach handlers")
	}
	if got := rig.transport.lastText(); got != rig.d.opts.Replies.Banned {
		t.Errorf("reply = %q, want banned notice", got)
	}
}

func TestDispatchUnauthorizedAdminCommand(t *testing.T) {
	rig := newTestRig(Options{})
	rig.registry.MustRegister(Spec{
		Name:  "ban",
		Level: LevelAdmin,
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{
				Text:    "done",
				Intents: []Intent{SetBanned{Identity: "bob", Banned: true}},
			}, nil
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ban bob"))

	if got := rig.transport.lastText(); got != rig.d.opts.Replies.Denied {
		t.Errorf("reply = %q, want denial", got)
	}
	if len(rig.applier.applied) != 0 {
		t.Errorf("denied command must not mutate state, applied %v", rig.applier.applied)
	}
}

func TestDispatchAuthorizedByTransportRole(t *testing.T) {
	rig := newTestRig(Options{})
	rig.transport.roles["alice"] = RoleModerator
	rig.registry.MustRegister(Spec{
		Name:  "ban",
		Level: LevelAdmin,
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{Text: "done"}, nil
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ban bob"))

	if got := rig.transport.lastText(); got != "done" {
		t.Errorf("reply = %q, want handler reply", got)
	}
}

func TestDispatchUnknownCommandUsesDefault(t *testing.T) {
	rig := newTestRig(Options{})
	rig.d.defaultFn = func(ctx context.Context, inv *Invocation) (*Result, error) {
		return &Result{Text: "unknown: " + inv.Command}, nil
	}

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#mystery"))

	if got := rig.transport.lastText(); got != "unknown: mystery" {
		t.Errorf("reply = %q, want default handler reply", got)
	}
}

func TestDispatchHandlerErrorContained(t *testing.T) {
	rig := newTestRig(Options{})
	rig.registry.MustRegister(Spec{
		Name: "boom",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return nil, errors.New("kaput")
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#boom"))

	if got := rig.transport.lastText(); got != rig.d.opts.Replies.Failure {
		t.Errorf("reply = %q, want failure notice", got)
	}
}

func TestDispatchHandlerPanicContained(t *testing.T) {
	rig := newTestRig(Options{})
	rig.registry.MustRegister(Spec{
		Name: "panic",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			panic("oh no")
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#panic"))

	if got := rig.transport.lastText(); got != rig.d.opts.Replies.Failure {
		t.Errorf("reply = %q, want failure notice", got)
	}

	// the dispatcher must still work afterwards
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{Text: "pong"}, nil
		},
	})
	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ping"))
	if got := rig.transport.lastText(); got != "pong" {
		t.Errorf("post-panic reply = %q, want %q", got, "pong")
	}
}

func TestDispatchIntentsAppliedAfterReply(t *testing.T) {
	rig := newTestRig(Options{})
	rig.registry.MustRegister(Spec{
		Name: "ban",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{
				Text:    "done",
				Intents: []Intent{SetBanned{Identity: "bob", Banned: true}},
			}, nil
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ban bob"))

	if len(rig.applier.applied) != 1 {
		t.Fatalf("applied %d intents, want 1", len(rig.applier.applied))
	}
	got, ok := rig.applier.applied[0].(SetBanned)
	if !ok || got.Identity != "bob" || !got.Banned {
		t.Errorf("applied intent = %+v", rig.applier.applied[0])
	}
}

func TestDispatchIntentFailureDoesNotAffectReply(t *testing.T) {
	rig := newTestRig(Options{})
	rig.applier.err = errors.New("store down")
	rig.registry.MustRegister(Spec{
		Name: "ban",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{
				Text:    "done",
				Intents: []Intent{SetBanned{Identity: "bob", Banned: true}},
			}, nil
		},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "#ban bob"))

	if got := rig.transport.lastText(); got != "done" {
		t.Errorf("reply = %q; intent failures must stay invisible to the user", got)
	}
}

func TestDispatchJoinEvent(t *testing.T) {
	rig := newTestRig(Options{})
	var joined []string
	rig.d.onJoin = func(ctx context.Context, ev Event) (*Result, error) {
		joined = append(joined, ev.Joined...)
		return &Result{Text: "welcome!"}, nil
	}

	rig.d.process(context.Background(), Event{
		ID:             "j1",
		Kind:           KindJoin,
		ConversationID: "g1",
		IsGroup:        true,
		Joined:         []string{"bob", "carol"},
	})

	if len(joined) != 2 {
		t.Errorf("join handler saw %v", joined)
	}
	if got := rig.transport.lastText(); got != "welcome!" {
		t.Errorf("reply = %q, want welcome", got)
	}
}

func TestDispatchPassiveScan(t *testing.T) {
	rig := newTestRig(Options{
		ScanRules: []ScanRule{{Keyword: "good morning", Reply: "Good morning! ☀️"}},
	})

	rig.d.process(context.Background(), msgEvent("alice", "c1", "Good Morning everyone"))

	if got := rig.transport.lastText(); got != "Good morning! ☀️" {
		t.Errorf("reply = %q, want canned scan reply", got)
	}
	if rig.store.messages != 1 {
		t.Errorf("message counter = %d, want 1", rig.store.messages)
	}
	if len(rig.store.touches) != 0 {
		t.Error("plain messages must not count as commands")
	}
}

func TestDispatchPerConversationOrder(t *testing.T) {
	rig := newTestRig(Options{Workers: 4, ShutdownTimeout: 5 * time.Second})

	var mu sync.Mutex
	var order []string
	rig.registry.MustRegister(Spec{
		Name: "echo",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			// earlier events sleep longer, so any reordering would show up
			n, _ := strconv.Atoi(inv.Args[0])
			time.Sleep(time.Duration(5-n) * 2 * time.Millisecond)
			mu.Lock()
			order = append(order, strings.Join(inv.Args, " "))
			mu.Unlock()
			return nil, nil
		},
	})

	rig.d.Start(context.Background())
	for i := 0; i < 5; i++ {
		ev := msgEvent("alice", "c1", fmt.Sprintf("#echo %d", i))
		if err := rig.d.HandleEvent(ev); err != nil {
			t.Fatalf("HandleEvent: %v", err)
		}
	}
	if err := rig.d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	want := []string{"0", "1", "2", "3", "4"}
	mu.Lock()
	defer mu.Unlock()
	if len(order) != len(want) {
		t.Fatalf("processed %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHandleEventConcurrentWithShutdown(t *testing.T) {
	rig := newTestRig(Options{Workers: 4, ShutdownTimeout: 5 * time.Second})
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return nil, nil
		},
	})
	rig.d.Start(context.Background())

	// hammer enqueues from many conversations while Shutdown closes the
	// queues; a send on a closed queue would panic and fail the test
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			conv := fmt.Sprintf("c%d", g)
			for i := 0; i < 500; i++ {
				rig.d.HandleEvent(msgEvent("alice", conv, "#ping"))
			}
		}(g)
	}
	time.Sleep(time.Millisecond)
	if err := rig.d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	wg.Wait()

	if err := rig.d.HandleEvent(msgEvent("alice", "c0", "#ping")); err == nil {
		t.Error("enqueue after Shutdown should fail, not panic")
	}
}

func TestIdleConversationWorkerRetires(t *testing.T) {
	rig := newTestRig(Options{IdleTimeout: 10 * time.Millisecond, ShutdownTimeout: 5 * time.Second})
	rig.registry.MustRegister(Spec{
		Name: "ping",
		Fn: func(ctx context.Context, inv *Invocation) (*Result, error) {
			return &Result{Text: "pong"}, nil
		},
	})
	rig.d.Start(context.Background())

	if err := rig.d.HandleEvent(msgEvent("alice", "c1", "#ping")); err != nil {
		t.Fatalf("HandleEvent: %v", err)
	}

	queueCount := func() int {
		rig.d.mu.Lock()
		defer rig.d.mu.Unlock()
		return len(rig.d.queues)
	}
	deadline := time.Now().Add(2 * time.Second)
	for queueCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("idle worker never retired its queue")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// a retired conversation comes back on the next event
	if err := rig.d.HandleEvent(msgEvent("alice", "c1", "#ping")); err != nil {
		t.Fatalf("HandleEvent after retirement: %v", err)
	}
	if err := rig.d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if len(rig.transport.sent()) != 2 {
		t.Errorf("sends = %d, want 2", len(rig.transport.sent()))
	}
}

func TestHandleEventAfterShutdown(t *testing.T) {
	rig := newTestRig(Options{})
	rig.d.Start(context.Background())
	if err := rig.d.Shutdown(); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := rig.d.HandleEvent(msgEvent("alice", "c1", "#ping")); err == nil {
		t.Error("HandleEvent after Shutdown should fail")
	}
}
