package main

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/auth"
	"github.com/formflow/backend/internal/config"
	"github.com/formflow/backend/internal/form"
	"github.com/formflow/backend/internal/inheritance"
	"github.com/formflow/backend/internal/project"
	"github.com/formflow/backend/internal/workflow"
)

func inheritCmd(e *env) *cobra.Command {
	var responseID string
	cmd := &cobra.Command{
		Use:   "inherit",
		Short: "Run task inheritance for a stored form response",
		Long: `Run task inheritance for a stored form response, as if it had just been submitted.
Tasks are spawned again on every run; previously spawned tasks are not detected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(responseID)
			if err != nil {
				return fmt.Errorf("invalid response id: %w", err)
			}
			return e.withDB(cmd.Context(), func(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
				forms := form.NewFormService(db, nil)
				response, err := forms.GetResponse(ctx, id)
				if err != nil {
					return err
				}

				profiles := auth.NewProfileService(db)
				projects := project.NewProjectService(db)
				manager := workflow.NewManager(db, workflow.Dependencies{
					Directory:   profiles,
					Admins:      auth.NewAuthorizer(profiles, projects),
					Members:     projects,
					Concurrency: cfg.Inheritance.Concurrency,
				})

				projectID := response.ProjectID
				result, err := manager.Orchestrator().Run(ctx, inheritance.Trigger{
					SourceFormID:   response.FormID,
					FormResponseID: response.ID,
					ResponseData:   response.ResponseData,
					ProjectID:      &projectID,
					SubmitterID:    response.UserID,
				})
				if err != nil {
					return err
				}
				renderResult(cmd.OutOrStdout(), result)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&responseID, "response", "", "form response id")
	_ = cmd.MarkFlagRequired("response")
	return cmd
}

func renderResult(w io.Writer, result *inheritance.Result) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetTitle(fmt.Sprintf("Response %s: %d template(s) matched", result.FormResponseID, result.Matched))
	tw.AppendHeader(table.Row{"Outcome", "Template / Task", "Detail"})
	for _, id := range result.Created {
		tw.AppendRow(table.Row{"created", id, ""})
	}
	for _, s := range result.Skipped {
		tw.AppendRow(table.Row{"skipped", s.TemplateID, s.Reason})
	}
	for _, f := range result.Failed {
		tw.AppendRow(table.Row{"failed", f.TemplateID, f.Err})
	}
	for _, f := range result.NotificationFailures {
		tw.AppendRow(table.Row{"notification failed", f.TemplateID, f.Err})
	}
	tw.Render()
}
