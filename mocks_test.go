package access_test

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/goliatone/go-router"
	"github.com/introvera/go-access"
)

// fakeSource implements access.SessionSource with test-controlled publishing.
type fakeSource struct {
	mu           sync.Mutex
	callback     access.SessionCallback
	current      *access.Identity
	reloadErr    error
	subscribeErr error
	unsubscribed bool
	signOuts     int
}

func (f *fakeSource) Subscribe(fn access.SessionCallback) (func(), error) {
	if f.subscribeErr != nil {
		return nil, f.subscribeErr
	}
	f.mu.Lock()
	f.callback = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		f.unsubscribed = true
		f.mu.Unlock()
	}, nil
}

// Publish delivers an authoritative session value to the subscriber, the way
// the identity provider would on sign-in, sign-out, or token refresh.
func (f *fakeSource) Publish(identity *access.Identity) {
	f.mu.Lock()
	f.current = identity
	cb := f.callback
	f.mu.Unlock()
	if cb != nil {
		cb(identity)
	}
}

// SetCurrent changes the provider-side session without notifying, so a later
// Reload observes a fresher value than the subscription delivered.
func (f *fakeSource) SetCurrent(identity *access.Identity) {
	f.mu.Lock()
	f.current = identity
	f.mu.Unlock()
}

func (f *fakeSource) Reload(ctx context.Context) (*access.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.reloadErr != nil {
		return nil, f.reloadErr
	}
	return f.current, nil
}

func (f *fakeSource) SignOut(ctx context.Context) error {
	f.mu.Lock()
	f.signOuts++
	f.mu.Unlock()
	f.Publish(nil)
	return nil
}

func (f *fakeSource) Unsubscribed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.unsubscribed
}

// stubProfiles implements access.ProfileService with per-test closures.
type stubProfiles struct {
	syncFn    func(context.Context) error
	meFn      func(context.Context) (*access.Profile, error)
	syncCalls int32
	meCalls   int32
}

func (s *stubProfiles) Sync(ctx context.Context) error {
	atomic.AddInt32(&s.syncCalls, 1)
	if s.syncFn != nil {
		return s.syncFn(ctx)
	}
	return nil
}

func (s *stubProfiles) Me(ctx context.Context) (*access.Profile, error) {
	atomic.AddInt32(&s.meCalls, 1)
	if s.meFn != nil {
		return s.meFn(ctx)
	}
	return nil, nil
}

func (s *stubProfiles) MeCalls() int32 {
	return atomic.LoadInt32(&s.meCalls)
}

// routerContext aliases router.Context so it can be embedded without the
// field name colliding with the Context() method below.
type routerContext = router.Context

// fakeRouterContext records the navigation the guard middleware performs.
// Only the methods the guards touch are implemented; anything else panics.
type fakeRouterContext struct {
	routerContext
	path           string
	method         string
	ctx            context.Context
	status         int
	redirectedTo   string
	redirectStatus int
	body           string
}

func (f *fakeRouterContext) Path() string {
	return f.path
}

func (f *fakeRouterContext) Method() string {
	if f.method == "" {
		return string(router.GET)
	}
	return f.method
}

func (f *fakeRouterContext) Context() context.Context {
	if f.ctx == nil {
		return context.Background()
	}
	return f.ctx
}

func (f *fakeRouterContext) SetContext(ctx context.Context) {
	f.ctx = ctx
}

func (f *fakeRouterContext) Status(code int) router.Context {
	f.status = code
	return f
}

func (f *fakeRouterContext) SendString(s string) error {
	f.body = s
	return nil
}

func (f *fakeRouterContext) Redirect(path string, status ...int) error {
	f.redirectedTo = path
	if len(status) > 0 {
		f.redirectStatus = status[0]
	}
	return nil
}
