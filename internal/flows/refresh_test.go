package flows

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mvassor/authkit/session"
	"github.com/mvassor/authkit/token"
)

type fakeStore struct {
	mu       sync.Mutex
	sessions map[string]*session.Session
	touchErr error
	invalErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{sessions: make(map[string]*session.Session)}
}

func (f *fakeStore) Create(_ context.Context, sess *session.Session, _ time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions[sess.SessionID] = sess
	return nil
}

func (f *fakeStore) Get(_ context.Context, sessionID string) (*session.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sess, ok := f.sessions[sessionID]
	if !ok {
		return nil, session.ErrNotFound
	}
	return sess, nil
}

func (f *fakeStore) Touch(_ context.Context, _ string, _ time.Time) error {
	return f.touchErr
}

func (f *fakeStore) Invalidate(_ context.Context, sessionID string) error {
	if f.invalErr != nil {
		return f.invalErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.sessions, sessionID)
	return nil
}

func (f *fakeStore) InvalidateAllForSubject(_ context.Context, subjectID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	removed := 0
	for id, sess := range f.sessions {
		if sess.SubjectID == subjectID {
			delete(f.sessions, id)
			removed++
		}
	}
	return removed, nil
}

type fakeRegistry struct {
	mu      sync.Mutex
	entries map[string]string
	err     error
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{entries: make(map[string]string)}
}

func (f *fakeRegistry) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	if f.err != nil {
		return true, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.entries[tokenID]
	return ok, nil
}

func (f *fakeRegistry) ConsumeOnce(_ context.Context, tokenID, reason string, _ time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[tokenID]; ok {
		return false, nil
	}
	f.entries[tokenID] = reason
	return true, nil
}

func (f *fakeRegistry) Record(_ context.Context, tokenID, reason string, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.entries[tokenID]; !ok {
		f.entries[tokenID] = reason
	}
	return nil
}

type admitAll struct{}

func (admitAll) Admit(context.Context, string) ([]string, error) { return nil, nil }

func testDeps(t *testing.T, store *fakeStore, reg *fakeRegistry) Deps {
	t.Helper()
	codec, err := token.NewCodec(token.Config{
		SigningMethod: token.MethodHS256,
		PrivateKey:    []byte("flows-test-secret-0123456789abcd"),
		AccessTTL:     time.Hour,
		RefreshTTL:    24 * time.Hour,
	})
	if err != nil {
		t.Fatalf("NewCodec: %v", err)
	}
	return Deps{
		Codec:           codec,
		Validator:       &token.Validator{},
		Sessions:        store,
		Limiter:         admitAll{},
		Revocations:     reg,
		SessionLifetime: time.Hour,
	}
}

func loginPair(t *testing.T, deps Deps, subjectID string) LoginResult {
	t.Helper()
	res := RunLogin(context.Background(), LoginInput{SubjectID: subjectID}, deps)
	if res.Failure != FailureNone {
		t.Fatalf("RunLogin failed: %v (%v)", res.Failure, res.Err)
	}
	return res
}

func TestRunRefreshConsumesExactlyOnce(t *testing.T) {
	store, reg := newFakeStore(), newFakeRegistry()
	deps := testDeps(t, store, reg)
	login := loginPair(t, deps, "user-1")
	ctx := context.Background()

	first := RunRefresh(ctx, login.RefreshToken, deps)
	if first.Failure != FailureNone {
		t.Fatalf("first refresh failed: %v (%v)", first.Failure, first.Err)
	}

	second := RunRefresh(ctx, login.RefreshToken, deps)
	if second.Failure != FailureReuse {
		t.Fatalf("expected FailureReuse, got %v (%v)", second.Failure, second.Err)
	}

	if _, err := store.Get(ctx, login.SessionID); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("reuse must invalidate the owning session, got %v", err)
	}
}

func TestRunRefreshReuseFailsEvenWhenInvalidationDoes(t *testing.T) {
	store, reg := newFakeStore(), newFakeRegistry()
	deps := testDeps(t, store, reg)
	login := loginPair(t, deps, "user-1")
	ctx := context.Background()

	if res := RunRefresh(ctx, login.RefreshToken, deps); res.Failure != FailureNone {
		t.Fatalf("first refresh failed: %v", res.Err)
	}

	var warned bool
	deps.Warn = func(string, ...any) { warned = true }
	store.invalErr = errors.New("redis down")

	res := RunRefresh(ctx, login.RefreshToken, deps)
	if res.Failure != FailureReuse {
		t.Fatalf("reuse must be reported even when cleanup fails, got %v (%v)", res.Failure, res.Err)
	}
	if !warned {
		t.Fatal("failed invalidation must be surfaced to the warn hook")
	}
}

func TestRunRefreshRejectsForeignSessionOwner(t *testing.T) {
	store, reg := newFakeStore(), newFakeRegistry()
	deps := testDeps(t, store, reg)
	login := loginPair(t, deps, "user-1")
	ctx := context.Background()

	// The session record now belongs to someone else.
	store.mu.Lock()
	store.sessions[login.SessionID].SubjectID = "user-2"
	store.mu.Unlock()

	res := RunRefresh(ctx, login.RefreshToken, deps)
	if res.Failure != FailureSessionExpired {
		t.Fatalf("expected FailureSessionExpired, got %v (%v)", res.Failure, res.Err)
	}
}

func TestRunRefreshStoreErrorIsDefinitiveDeny(t *testing.T) {
	store, reg := newFakeStore(), newFakeRegistry()
	deps := testDeps(t, store, reg)
	login := loginPair(t, deps, "user-1")

	reg.err = errors.New("registry unreachable")

	res := RunRefresh(context.Background(), login.RefreshToken, deps)
	if res.Failure != FailureStore {
		t.Fatalf("expected FailureStore, got %v (%v)", res.Failure, res.Err)
	}
	if res.AccessToken != "" || res.RefreshToken != "" {
		t.Fatal("a failed refresh must not leak tokens")
	}
}

func TestRunValidateTouchFailureDoesNotDeny(t *testing.T) {
	store, reg := newFakeStore(), newFakeRegistry()
	deps := testDeps(t, store, reg)
	login := loginPair(t, deps, "user-1")

	var warned bool
	deps.Warn = func(string, ...any) { warned = true }
	store.touchErr = errors.New("touch failed")

	res := RunValidate(context.Background(), login.AccessToken, "", deps)
	if res.Failure != FailureNone {
		t.Fatalf("liveness tracking failure must not deny, got %v (%v)", res.Failure, res.Err)
	}
	if !warned {
		t.Fatal("failed touch must be surfaced to the warn hook")
	}
}

func TestRunLoginRejectsEmptySubject(t *testing.T) {
	store, reg := newFakeStore(), newFakeRegistry()
	deps := testDeps(t, store, reg)

	res := RunLogin(context.Background(), LoginInput{}, deps)
	if res.Failure != FailureInternal {
		t.Fatalf("expected FailureInternal for an empty subject, got %v", res.Failure)
	}

	if len(store.sessions) != 0 {
		t.Fatalf("no session may survive a failed login, got %d", len(store.sessions))
	}
}
