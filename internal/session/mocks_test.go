package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	authmodel "github.com/formflow/backend/internal/auth/model"
)

// fakeAuthProvider records the order of calls and can hold GetSession open.
type fakeAuthProvider struct {
	mu           sync.Mutex
	calls        []string
	handler      AuthStateHandler
	unsubscribed bool

	session    *Session
	sessionErr error
	user       *User
	userErr    error

	// release, when set, blocks GetSession until it is closed.
	release  chan struct{}
	returned chan struct{}
}

type fakeSubscription struct {
	provider *fakeAuthProvider
}

func (s fakeSubscription) Unsubscribe() {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	s.provider.unsubscribed = true
}

func (f *fakeAuthProvider) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeAuthProvider) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAuthProvider) OnAuthStateChange(handler AuthStateHandler) Subscription {
	f.record("OnAuthStateChange")
	f.mu.Lock()
	f.handler = handler
	f.mu.Unlock()
	return fakeSubscription{provider: f}
}

func (f *fakeAuthProvider) GetSession(ctx context.Context) (*Session, error) {
	f.record("GetSession")
	if f.returned != nil {
		defer close(f.returned)
	}
	if f.release != nil {
		<-f.release
	}
	return f.session, f.sessionErr
}

func (f *fakeAuthProvider) GetUser(ctx context.Context) (*User, error) {
	f.record("GetUser")
	return f.user, f.userErr
}

func (f *fakeAuthProvider) emit(event AuthEvent, sess *Session) {
	f.mu.Lock()
	handler := f.handler
	f.mu.Unlock()
	handler(event, sess)
}

func signedIn(user User) *fakeAuthProvider {
	return &fakeAuthProvider{
		session: &Session{
			AccessToken: "token",
			ExpiresAt:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			User:        user,
		},
		user: &user,
	}
}

type MockProfileStore struct {
	mock.Mock
}

func (m *MockProfileStore) GetProfile(ctx context.Context, userID uuid.UUID) (*authmodel.Profile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*authmodel.Profile), args.Error(1)
}

func (m *MockProfileStore) CreateProfile(ctx context.Context, profile *authmodel.Profile) error {
	args := m.Called(ctx, profile)
	return args.Error(0)
}

type MockAuthorizer struct {
	mock.Mock
}

func (m *MockAuthorizer) IsGlobalAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizer) IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID, projectID)
	return args.Bool(0), args.Error(1)
}

func (m *MockAuthorizer) IsAdminOfAnyProject(ctx context.Context, userID uuid.UUID) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

type recordingObserver struct {
	mu      sync.Mutex
	results []string
}

func (o *recordingObserver) ObserveBootstrap(result string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.results = append(o.results, result)
}

func (o *recordingObserver) Results() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.results...)
}
