package project

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/project/model"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// ProjectService manages projects and their memberships.
type ProjectService struct {
	db *gorm.DB
}

func NewProjectService(db *gorm.DB) *ProjectService {
	return &ProjectService{db: db}
}

// CreateProject stores a project and makes the creator its admin in one transaction.
func (s *ProjectService) CreateProject(ctx context.Context, name, description string, creatorID uuid.UUID) (*model.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: project name is required", ErrInvalidInput)
	}
	if creatorID == uuid.Nil {
		return nil, fmt.Errorf("%w: creator is required", ErrInvalidInput)
	}

	project := &model.Project{
		BaseModel:   model.BaseModel{ID: uuid.New()},
		Name:        name,
		Description: description,
		Active:      true,
		CreatedBy:   creatorID,
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(project).Error; err != nil {
			return fmt.Errorf("failed to create project: %w", err)
		}
		member := &model.ProjectMember{
			BaseModel: model.BaseModel{ID: uuid.New()},
			ProjectID: project.ID,
			UserID:    creatorID,
			Role:      model.MemberRoleAdmin,
			Active:    true,
		}
		if err := tx.Create(member).Error; err != nil {
			return fmt.Errorf("failed to add project creator: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.InfoContext(ctx, "project created", "project_id", project.ID, "created_by", creatorID)
	return project, nil
}

func (s *ProjectService) GetProject(ctx context.Context, projectID uuid.UUID) (*model.Project, error) {
	var project model.Project
	result := s.db.WithContext(ctx).First(&project, "id = ?", projectID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to retrieve project: %w", result.Error)
	}
	return &project, nil
}

// ListProjectsForUser returns the active projects userID is an active member of.
func (s *ProjectService) ListProjectsForUser(ctx context.Context, userID uuid.UUID) ([]model.Project, error) {
	var projects []model.Project
	result := s.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ? AND project_members.active = ? AND projects.active = ?", userID, true, true).
		Order("projects.name ASC").
		Find(&projects)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list projects: %w", result.Error)
	}
	return projects, nil
}

// AddMember grants role to userID, reactivating a previous membership.
func (s *ProjectService) AddMember(ctx context.Context, projectID, userID uuid.UUID, role model.MemberRole) (*model.ProjectMember, error) {
	if !role.IsValid() {
		return nil, fmt.Errorf("%w: unsupported role %q", ErrInvalidInput, role)
	}
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: user is required", ErrInvalidInput)
	}
	if _, err := s.GetProject(ctx, projectID); err != nil {
		return nil, err
	}

	var member model.ProjectMember
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Where("project_id = ? AND user_id = ?", projectID, userID).Limit(1).Find(&member)
		if result.Error != nil {
			return fmt.Errorf("failed to look up membership: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			member = model.ProjectMember{
				BaseModel: model.BaseModel{ID: uuid.New()},
				ProjectID: projectID,
				UserID:    userID,
				Role:      role,
				Active:    true,
			}
			if err := tx.Create(&member).Error; err != nil {
				return fmt.Errorf("failed to add member: %w", err)
			}
			return nil
		}
		member.Role = role
		member.Active = true
		if err := tx.Save(&member).Error; err != nil {
			return fmt.Errorf("failed to update member: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// RemoveMember deactivates a membership.
func (s *ProjectService) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	result := s.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("project_id = ? AND user_id = ? AND active = ?", projectID, userID, true).
		Update("active", false)
	if result.Error != nil {
		return fmt.Errorf("failed to remove member: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("membership: %w", ErrNotFound)
	}
	return nil
}

// ListMembers returns the active members of a project.
func (s *ProjectService) ListMembers(ctx context.Context, projectID uuid.UUID) ([]model.ProjectMember, error) {
	var members []model.ProjectMember
	result := s.db.WithContext(ctx).
		Where("project_id = ? AND active = ?", projectID, true).
		Order("created_at ASC").
		Find(&members)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list members: %w", result.Error)
	}
	return members, nil
}

func (s *ProjectService) IsProjectAdmin(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	return s.exists(ctx, s.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("user_id = ? AND project_id = ? AND role = ? AND active = ?", userID, projectID, model.MemberRoleAdmin, true))
}

func (s *ProjectService) IsAdminOfAnyProject(ctx context.Context, userID uuid.UUID) (bool, error) {
	return s.exists(ctx, s.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("user_id = ? AND role = ? AND active = ?", userID, model.MemberRoleAdmin, true))
}

// IsMember reports whether userID holds any active role in projectID.
func (s *ProjectService) IsMember(ctx context.Context, userID, projectID uuid.UUID) (bool, error) {
	return s.exists(ctx, s.db.WithContext(ctx).Model(&model.ProjectMember{}).
		Where("user_id = ? AND project_id = ? AND active = ?", userID, projectID, true))
}

func (s *ProjectService) exists(ctx context.Context, query *gorm.DB) (bool, error) {
	var count int64
	if err := query.Count(&count).Error; err != nil {
		slog.ErrorContext(ctx, "membership query failed", "error", err)
		return false, fmt.Errorf("failed to query memberships: %w", err)
	}
	return count > 0, nil
}
