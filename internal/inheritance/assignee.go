package inheritance

import (
	"context"
	"errors"
	"log/slog"

	"github.com/formflow/backend/internal/workflow/model"
	"github.com/google/uuid"
)

// ErrUnresolvedAssignee is returned when no assignee could be determined for a template.
var ErrUnresolvedAssignee = errors.New("no assignee could be resolved")

// AssignmentSource records which resolution step produced an assignee.
type AssignmentSource string

const (
	AssignmentSourceDynamic   AssignmentSource = "dynamic"
	AssignmentSourceStatic    AssignmentSource = "static"
	AssignmentSourceSubmitter AssignmentSource = "submitter"
)

type Assignment struct {
	UserID uuid.UUID
	Source AssignmentSource
}

// AssigneeResolver determines who a spawned task is assigned to.
type AssigneeResolver struct {
	directory UserDirectory
}

func NewAssigneeResolver(directory UserDirectory) *AssigneeResolver {
	return &AssigneeResolver{directory: directory}
}

// Resolve picks the assignee for tmpl. The first match wins:
//  1. dynamic assignment with a directory user matching the email in the dynamic field
//  2. the static assignee of the template
//  3. the submitter of the triggering response
//
// A directory lookup error is logged and treated as a miss.
func (r *AssigneeResolver) Resolve(ctx context.Context, tmpl *model.TaskTemplate, data Payload, submitterID *uuid.UUID) (Assignment, error) {
	if tmpl.AssignmentType == model.AssignmentTypeDynamic {
		if userID, ok := r.lookupDynamic(ctx, tmpl, data); ok {
			return Assignment{UserID: userID, Source: AssignmentSourceDynamic}, nil
		}
	}

	if tmpl.AssigneeStatic != nil && *tmpl.AssigneeStatic != uuid.Nil {
		return Assignment{UserID: *tmpl.AssigneeStatic, Source: AssignmentSourceStatic}, nil
	}

	if submitterID != nil && *submitterID != uuid.Nil {
		return Assignment{UserID: *submitterID, Source: AssignmentSourceSubmitter}, nil
	}

	return Assignment{}, ErrUnresolvedAssignee
}

func (r *AssigneeResolver) lookupDynamic(ctx context.Context, tmpl *model.TaskTemplate, data Payload) (uuid.UUID, bool) {
	if tmpl.AssigneeDynamicField == nil || *tmpl.AssigneeDynamicField == "" || r.directory == nil {
		return uuid.Nil, false
	}

	value, ok := data.Lookup(*tmpl.AssigneeDynamicField)
	if !ok || value.IsNull() {
		return uuid.Nil, false
	}
	email, ok := value.String()
	if !ok || email == "" {
		return uuid.Nil, false
	}

	userID, found, err := r.directory.LookupUserByEmail(ctx, email)
	if err != nil {
		slog.WarnContext(ctx, "assignee lookup by email failed, falling back",
			"templateID", tmpl.ID,
			"field", *tmpl.AssigneeDynamicField,
			"error", err,
		)
		return uuid.Nil, false
	}
	if !found {
		slog.DebugContext(ctx, "no user found for dynamic assignee email",
			"templateID", tmpl.ID,
			"field", *tmpl.AssigneeDynamicField,
		)
		return uuid.Nil, false
	}
	return userID, true
}
