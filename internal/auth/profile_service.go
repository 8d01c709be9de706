package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/auth/model"
)

// ProfileService provides database access to user profiles. It also serves
// as the user directory for email based task assignment.
type ProfileService struct {
	db *gorm.DB
}

// NewProfileService creates a new ProfileService instance
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{
		db: db,
	}
}

// GetProfile retrieves the profile of userID.
// Returns model.ErrProfileNotFound when the user has no profile row.
func (ps *ProfileService) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("user ID is empty")
	}

	var profile model.Profile
	result := ps.db.WithContext(ctx).Where("id = ?", userID).First(&profile)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			slog.DebugContext(ctx, "profile not found", "user_id", userID)
			return nil, model.ErrProfileNotFound
		}
		slog.ErrorContext(ctx, "failed to fetch profile from database",
			"user_id", userID,
			"error", result.Error,
		)
		return nil, fmt.Errorf("failed to fetch profile: %w", result.Error)
	}

	return &profile, nil
}

// CreateProfile inserts a new profile.
func (ps *ProfileService) CreateProfile(ctx context.Context, profile *model.Profile) error {
	if profile == nil || profile.ID == uuid.Nil {
		return fmt.Errorf("profile ID is empty")
	}
	if profile.Role == "" {
		profile.Role = model.RoleUser
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	if err := ps.db.WithContext(ctx).Create(profile).Error; err != nil {
		slog.ErrorContext(ctx, "failed to create profile",
			"user_id", profile.ID,
			"error", err,
		)
		return fmt.Errorf("failed to create profile: %w", err)
	}

	slog.InfoContext(ctx, "profile created", "user_id", profile.ID)
	return nil
}

// UpdateRole changes the global role of a user.
func (ps *ProfileService) UpdateRole(ctx context.Context, userID uuid.UUID, role model.Role) error {
	if role != model.RoleUser && role != model.RoleAdmin {
		return fmt.Errorf("unsupported role: %s", role)
	}

	result := ps.db.WithContext(ctx).Model(&model.Profile{}).
		Where("id = ?", userID).
		Update("role", role)
	if result.Error != nil {
		return fmt.Errorf("failed to update profile role: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return model.ErrProfileNotFound
	}
	return nil
}

// LookupUserByEmail finds exactly one user by exact email match.
func (ps *ProfileService) LookupUserByEmail(ctx context.Context, email string) (uuid.UUID, bool, error) {
	if email == "" {
		return uuid.Nil, false, nil
	}

	var profiles []model.Profile
	result := ps.db.WithContext(ctx).Where("email = ?", email).Limit(2).Find(&profiles)
	if result.Error != nil {
		return uuid.Nil, false, fmt.Errorf("failed to look up user by email: %w", result.Error)
	}
	switch len(profiles) {
	case 0:
		return uuid.Nil, false, nil
	case 1:
		return profiles[0].ID, true, nil
	default:
		slog.WarnContext(ctx, "email matches more than one profile, ignoring", "matches", len(profiles))
		return uuid.Nil, false, nil
	}
}
