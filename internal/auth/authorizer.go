package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/formflow/backend/internal/auth/model"
)

// MembershipChecker answers project role questions from active memberships.
type MembershipChecker interface {
	IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error)
	IsAdminOfAnyProject(ctx context.Context, userID uuid.UUID) (bool, error)
}

// Authorizer evaluates the global and project admin predicates.
type Authorizer struct {
	profiles    *ProfileService
	memberships MembershipChecker
}

func NewAuthorizer(profiles *ProfileService, memberships MembershipChecker) *Authorizer {
	return &Authorizer{profiles: profiles, memberships: memberships}
}

// IsGlobalAdmin reports whether the profile of userID has the admin role.
// A user without a profile is not an admin.
func (a *Authorizer) IsGlobalAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	profile, err := a.profiles.GetProfile(ctx, userID)
	if err != nil {
		if errors.Is(err, model.ErrProfileNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("global admin check failed: %w", err)
	}
	return profile.Role == model.RoleAdmin, nil
}

// IsProjectAdmin reports whether userID holds an active admin membership of projectID.
func (a *Authorizer) IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	ok, err := a.memberships.IsProjectAdmin(ctx, userID, projectID)
	if err != nil {
		return false, fmt.Errorf("project admin check failed: %w", err)
	}
	return ok, nil
}

// IsAdminOfAnyProject reports whether userID is admin of at least one active membership.
func (a *Authorizer) IsAdminOfAnyProject(ctx context.Context, userID uuid.UUID) (bool, error) {
	ok, err := a.memberships.IsAdminOfAnyProject(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("project admin check failed: %w", err)
	}
	return ok, nil
}
