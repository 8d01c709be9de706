package session

import (
	"sync"

	authmodel "github.com/formflow/backend/internal/auth/model"
)

// Snapshot is a point-in-time copy of a session state.
type Snapshot struct {
	Session        *Session           `json:"session"`
	User           *User              `json:"user"`
	Profile        *authmodel.Profile `json:"userProfile"`
	IsGlobalAdmin  bool               `json:"isGlobalAdmin"`
	IsProjectAdmin bool               `json:"isProjectAdmin"`
	Loading        bool               `json:"loading"`
	FetchComplete  bool               `json:"fetchComplete"`
	Stage          Stage              `json:"profileFetchStage"`
	Error          string             `json:"error,omitempty"`
}

// State holds the session of one application load. The bootstrapper is its
// only writer until it finishes; auth listener updates are applied at any time.
type State struct {
	mu           sync.RWMutex
	snap         Snapshot
	sealed       bool
	completions  int
	once         sync.Once
	done         chan struct{}
	subscription Subscription
	closeOnce    sync.Once
}

// NewState returns a state in the loading, not started stage.
func NewState() *State {
	return &State{
		snap: Snapshot{
			Loading: true,
			Stage:   StageNotStarted,
		},
		done: make(chan struct{}),
	}
}

// Snapshot returns a copy of the current state.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap
}

// Done is closed once the bootstrap attempt has finished on any path.
func (s *State) Done() <-chan struct{} {
	return s.done
}

// Completions returns how many times the attempt was finished. It is at most one.
func (s *State) Completions() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.completions
}

// Close releases the auth listener subscription.
func (s *State) Close() {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		sub := s.subscription
		s.subscription = nil
		s.mu.Unlock()
		if sub != nil {
			sub.Unsubscribe()
		}
	})
}

func (s *State) setSubscription(sub Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscription = sub
}

// advance moves the bootstrap to next and applies mutate. It returns false
// when the attempt already finished, in which case nothing is written.
func (s *State) advance(next Stage, mutate func(*Snapshot)) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false, nil
	}
	if !s.snap.Stage.CanTransition(next) {
		return false, &InvalidTransitionError{From: s.snap.Stage, To: next}
	}
	s.snap.Stage = next
	if mutate != nil {
		mutate(&s.snap)
	}
	return true, nil
}

// update applies bootstrap writes that do not change the stage.
func (s *State) update(mutate func(*Snapshot)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sealed {
		return false
	}
	mutate(&s.snap)
	return true
}

// finish ends the attempt in a terminal stage. Only the first call has an
// effect; it reports whether this call won.
func (s *State) finish(stage Stage, err error, mutate func(*Snapshot)) bool {
	won := false
	s.once.Do(func() {
		s.mu.Lock()
		if mutate != nil {
			mutate(&s.snap)
		}
		if !s.snap.Stage.CanTransition(stage) {
			stage = StageException
		}
		s.snap.Stage = stage
		if err != nil {
			s.snap.Error = err.Error()
		}
		s.snap.Loading = false
		s.snap.FetchComplete = true
		s.sealed = true
		s.completions++
		s.mu.Unlock()

		close(s.done)
		won = true
	})
	return won
}

// handleAuthEvent applies auth listener notifications.
func (s *State) handleAuthEvent(event AuthEvent, sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if event == EventSignedOut || sess == nil {
		s.snap.Session = nil
		s.snap.User = nil
		s.snap.Profile = nil
		s.snap.IsGlobalAdmin = false
		s.snap.IsProjectAdmin = false
		return
	}
	if s.snap.User != nil && s.snap.User.ID != sess.User.ID {
		// authorization state belongs to the previous user
		s.snap.Profile = nil
		s.snap.IsGlobalAdmin = false
		s.snap.IsProjectAdmin = false
	}
	copied := *sess
	user := sess.User
	s.snap.Session = &copied
	s.snap.User = &user
}
