package session

import (
	"context"
	"time"

	"github.com/google/uuid"

	authmodel "github.com/formflow/backend/internal/auth/model"
)

// AuthEvent names an auth state change delivered to listeners.
type AuthEvent string

const (
	EventInitialSession AuthEvent = "INITIAL_SESSION"
	EventSignedIn       AuthEvent = "SIGNED_IN"
	EventSignedOut      AuthEvent = "SIGNED_OUT"
	EventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
)

type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"emailConfirmed"`
}

type Session struct {
	AccessToken string    `json:"-"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        User      `json:"user"`
}

// AuthStateHandler is invoked for every auth state change. sess is nil on sign out.
type AuthStateHandler func(event AuthEvent, sess *Session)

type Subscription interface {
	Unsubscribe()
}

// AuthProvider is the auth SDK contract consumed by the bootstrapper.
type AuthProvider interface {
	OnAuthStateChange(handler AuthStateHandler) Subscription
	// GetSession returns nil without error when nobody is signed in.
	GetSession(ctx context.Context) (*Session, error)
	GetUser(ctx context.Context) (*User, error)
}

// ProfileStore reads and creates profiles. GetProfile returns
// authmodel.ErrProfileNotFound for users without a profile row.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*authmodel.Profile, error)
	CreateProfile(ctx context.Context, profile *authmodel.Profile) error
}

// Authorizer evaluates admin predicates server side.
type Authorizer interface {
	IsGlobalAdmin(ctx context.Context, userID uuid.UUID) (bool, error)
	IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
	IsAdminOfAnyProject(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Observer receives the result label of every finished bootstrap.
type Observer interface {
	ObserveBootstrap(result string)
}
