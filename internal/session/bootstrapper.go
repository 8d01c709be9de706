package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authmodel "github.com/formflow/backend/internal/auth/model"
)

const DefaultTimeout = 30 * time.Second

var (
	// ErrTimeout is recorded when the bootstrap did not finish in time.
	ErrTimeout = errors.New("session bootstrap timed out")
	// ErrAlreadyStarted is returned when a state is bootstrapped twice.
	ErrAlreadyStarted = errors.New("session bootstrap already started")
)

const (
	ResultComplete = "complete"
	ResultError    = "error"
	ResultTimeout  = "timeout"
)

// Outcome summarizes a finished bootstrap attempt.
type Outcome struct {
	Stage    Stage
	Err      error
	TimedOut bool
}

// Result returns the metrics label of the outcome.
func (o Outcome) Result() string {
	switch {
	case o.TimedOut:
		return ResultTimeout
	case o.Stage == StageComplete:
		return ResultComplete
	default:
		return ResultError
	}
}

type Option func(*Bootstrapper)

func WithTimeout(d time.Duration) Option {
	return func(b *Bootstrapper) {
		if d > 0 {
			b.timeout = d
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(b *Bootstrapper) {
		b.observer = observer
	}
}

// Bootstrapper resolves the session, profile and admin flags of a user once
// per application load.
type Bootstrapper struct {
	auth     AuthProvider
	profiles ProfileStore
	authz    Authorizer
	timeout  time.Duration
	observer Observer
}

func NewBootstrapper(auth AuthProvider, profiles ProfileStore, authz Authorizer, opts ...Option) *Bootstrapper {
	b := &Bootstrapper{
		auth:     auth,
		profiles: profiles,
		authz:    authz,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Run bootstraps state. The auth listener is registered before the current
// session is queried. The flow races a timer; whichever finishes first
// decides the outcome. In-flight calls are not cancelled by the timeout,
// their late writes are ignored. state is finished exactly once on every path.
func (b *Bootstrapper) Run(ctx context.Context, state *State, currentProject *uuid.UUID) Outcome {
	if ok, _ := state.advance(StageStarting, nil); !ok {
		return Outcome{Stage: state.Snapshot().Stage, Err: ErrAlreadyStarted}
	}

	state.setSubscription(b.auth.OnAuthStateChange(state.handleAuthEvent))

	finished := make(chan Outcome, 1)
	go func() {
		finished <- b.bootstrap(context.WithoutCancel(ctx), state, currentProject)
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	var outcome Outcome
	select {
	case outcome = <-finished:
	case <-timer.C:
		if state.finish(StageException, ErrTimeout, nil) {
			slog.WarnContext(ctx, "session bootstrap timed out", "timeout", b.timeout)
			outcome = Outcome{Stage: StageException, Err: ErrTimeout, TimedOut: true}
		} else {
			outcome = <-finished
		}
	case <-ctx.Done():
		err := fmt.Errorf("session bootstrap aborted: %w", ctx.Err())
		if state.finish(StageException, err, nil) {
			outcome = Outcome{Stage: StageException, Err: err}
		} else {
			outcome = <-finished
		}
	}

	if b.observer != nil {
		b.observer.ObserveBootstrap(outcome.Result())
	}
	return outcome
}

func (b *Bootstrapper) bootstrap(ctx context.Context, state *State, currentProject *uuid.UUID) Outcome {
	fail := func(err error) Outcome {
		slog.ErrorContext(ctx, "session bootstrap failed", "stage", state.Snapshot().Stage, "error", err)
		if state.finish(StageException, err, nil) {
			return Outcome{Stage: StageException, Err: err}
		}
		return b.lost(state)
	}

	sess, err := b.auth.GetSession(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to get session: %w", err))
	}
	if sess == nil {
		if state.finish(StageComplete, nil, func(s *Snapshot) {
			s.Session = nil
			s.User = nil
		}) {
			return Outcome{Stage: StageComplete}
		}
		return b.lost(state)
	}
	if !state.update(func(s *Snapshot) {
		copied := *sess
		s.Session = &copied
	}) {
		return b.lost(state)
	}

	user, err := b.auth.GetUser(ctx)
	if err != nil {
		return fail(fmt.Errorf("failed to get user: %w", err))
	}
	if !state.update(func(s *Snapshot) {
		copied := *user
		s.User = &copied
	}) {
		return b.lost(state)
	}

	if ok, err := state.advance(StageCheckingGlobalAdmin, nil); !ok {
		return b.abort(state, err, fail)
	}
	isGlobalAdmin, err := b.authz.IsGlobalAdmin(ctx, user.ID)
	next := StageGlobalAdminCheckComplete
	if err != nil {
		slog.WarnContext(ctx, "global admin check failed, continuing as non-admin", "user_id", user.ID, "error", err)
		next = StageGlobalAdminCheckError
		isGlobalAdmin = false
	}
	if ok, err := state.advance(next, func(s *Snapshot) { s.IsGlobalAdmin = isGlobalAdmin }); !ok {
		return b.abort(state, err, fail)
	}

	if ok, err := state.advance(StageFetchingProfile, nil); !ok {
		return b.abort(state, err, fail)
	}
	profile, err := b.profiles.GetProfile(ctx, user.ID)
	switch {
	case err == nil:
		if ok, err := state.advance(StageProfileFound, func(s *Snapshot) { s.Profile = profile }); !ok {
			return b.abort(state, err, fail)
		}
	case errors.Is(err, authmodel.ErrProfileNotFound):
		if outcome, ok := b.createProfile(ctx, state, user, fail); !ok {
			return outcome
		}
	default:
		return fail(fmt.Errorf("failed to fetch profile: %w", err))
	}

	if ok, err := state.advance(StageCheckingProjectAdmin, nil); !ok {
		return b.abort(state, err, fail)
	}
	var isProjectAdmin bool
	if currentProject != nil && *currentProject != uuid.Nil {
		if ok, err := state.advance(StageCheckingCurrentProjectAdmin, nil); !ok {
			return b.abort(state, err, fail)
		}
		isProjectAdmin, err = b.authz.IsProjectAdmin(ctx, user.ID, *currentProject)
	} else {
		if ok, err := state.advance(StageCheckingAllProjectsAdmin, nil); !ok {
			return b.abort(state, err, fail)
		}
		isProjectAdmin, err = b.authz.IsAdminOfAnyProject(ctx, user.ID)
	}
	if err != nil {
		return fail(fmt.Errorf("project admin check failed: %w", err))
	}

	if state.finish(StageComplete, nil, func(s *Snapshot) { s.IsProjectAdmin = isProjectAdmin }) {
		return Outcome{Stage: StageComplete}
	}
	return b.lost(state)
}

// createProfile synthesizes and stores a default profile. A failed insert
// still leaves the synthesized profile in the state.
func (b *Bootstrapper) createProfile(ctx context.Context, state *State, user *User, fail func(error) Outcome) (Outcome, bool) {
	if ok, err := state.advance(StageNoProfileFound, nil); !ok {
		return b.abort(state, err, fail), false
	}
	if ok, err := state.advance(StageCreatingNewProfile, nil); !ok {
		return b.abort(state, err, fail), false
	}

	profile := authmodel.NewDefaultProfile(user.ID, user.Email)
	next := StageNewProfileCreated
	if err := b.profiles.CreateProfile(ctx, profile); err != nil {
		slog.WarnContext(ctx, "failed to create default profile, using synthesized profile", "user_id", user.ID, "error", err)
		next = StageNewProfileCreationError
	}
	if ok, err := state.advance(next, func(s *Snapshot) { s.Profile = profile }); !ok {
		return b.abort(state, err, fail), false
	}
	return Outcome{}, true
}

// abort handles a failed advance: a sealed state means the race was lost,
// anything else is an invalid transition.
func (b *Bootstrapper) abort(state *State, err error, fail func(error) Outcome) Outcome {
	if err != nil {
		return fail(err)
	}
	return b.lost(state)
}

// lost reports the outcome decided by whoever finished the state first.
func (b *Bootstrapper) lost(state *State) Outcome {
	snap := state.Snapshot()
	outcome := Outcome{Stage: snap.Stage}
	if snap.Error != "" {
		outcome.Err = errors.New(snap.Error)
	}
	return outcome
}
