package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/formflow/backend/internal/session"
)

// ErrNotAuthenticated is returned by GetUser when the request carries no valid token.
var ErrNotAuthenticated = errors.New("not authenticated")

// Provider adapts the auth context of one request to the session bootstrapper.
// A request without a verified token behaves as a signed out session.
type Provider struct {
	authCtx *AuthContext

	mu       sync.Mutex
	nextID   int
	handlers map[int]session.AuthStateHandler
}

// NewProvider returns a provider for the request context ctx.
func NewProvider(ctx context.Context) *Provider {
	return &Provider{
		authCtx:  GetAuthContext(ctx),
		handlers: make(map[int]session.AuthStateHandler),
	}
}

type providerSubscription struct {
	provider *Provider
	id       int
}

func (s providerSubscription) Unsubscribe() {
	s.provider.mu.Lock()
	defer s.provider.mu.Unlock()
	delete(s.provider.handlers, s.id)
}

func (p *Provider) OnAuthStateChange(handler session.AuthStateHandler) session.Subscription {
	p.mu.Lock()
	defer p.mu.Unlock()
	id := p.nextID
	p.nextID++
	p.handlers[id] = handler
	return providerSubscription{provider: p, id: id}
}

// GetSession returns the session of the request and delivers it to the
// registered listeners as the initial session event.
func (p *Provider) GetSession(ctx context.Context) (*session.Session, error) {
	sess := p.session()
	p.emit(session.EventInitialSession, sess)
	return sess, nil
}

func (p *Provider) GetUser(ctx context.Context) (*session.User, error) {
	if p.authCtx == nil {
		return nil, ErrNotAuthenticated
	}
	user := p.user()
	return &user, nil
}

func (p *Provider) session() *session.Session {
	if p.authCtx == nil {
		return nil
	}
	return &session.Session{
		AccessToken: p.authCtx.Token,
		ExpiresAt:   p.authCtx.ExpiresAt,
		User:        p.user(),
	}
}

func (p *Provider) user() session.User {
	return session.User{
		ID:             p.authCtx.UserID,
		Email:          p.authCtx.Email,
		EmailConfirmed: p.authCtx.EmailConfirmed,
	}
}

func (p *Provider) emit(event session.AuthEvent, sess *session.Session) {
	p.mu.Lock()
	handlers := make([]session.AuthStateHandler, 0, len(p.handlers))
	for _, h := range p.handlers {
		handlers = append(handlers, h)
	}
	p.mu.Unlock()

	for _, h := range handlers {
		h(event, sess)
	}
}
