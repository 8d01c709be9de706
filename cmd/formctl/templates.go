package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/formflow/backend/internal/config"
	"github.com/formflow/backend/internal/workflow/model"
	"github.com/formflow/backend/internal/workflow/seed"
	"github.com/formflow/backend/internal/workflow/service"
)

func templatesCmd(e *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage task templates",
	}
	cmd.AddCommand(templatesImportCmd(e))
	cmd.AddCommand(templatesListCmd(e))
	return cmd
}

func templatesImportCmd(e *env) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import task templates from a YAML seed file",
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("failed to open seed file: %w", err)
			}
			defer f.Close()

			templates, err := seed.Parse(f)
			if err != nil {
				return err
			}
			return e.withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				n, err := seed.Import(ctx, service.NewTemplateService(db), templates)
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d of %d templates\n", n, len(templates))
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "seed file path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func templatesListCmd(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List task templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return e.withDB(cmd.Context(), func(ctx context.Context, _ *config.Config, db *gorm.DB) error {
				templates, err := service.NewTemplateService(db).ListTemplates(ctx)
				if err != nil {
					return err
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(cmd.OutOrStdout())
				tw.AppendHeader(table.Row{"ID", "Name", "Source Form", "Target Form", "Assignment", "Active"})
				for _, t := range templates {
					tw.AppendRow(table.Row{t.ID, t.Name, t.SourceFormID, t.TargetFormID, assignment(&t), t.IsActive})
				}
				tw.AppendFooter(table.Row{"", "", "", "", "Total", len(templates)})
				tw.Render()
				return nil
			})
		},
	}
}

func assignment(t *model.TaskTemplate) string {
	switch {
	case t.AssignmentType == model.AssignmentTypeDynamic && t.AssigneeDynamicField != nil:
		return fmt.Sprintf("dynamic(%s)", *t.AssigneeDynamicField)
	case t.AssigneeStatic != nil:
		return fmt.Sprintf("%s(%s)", t.AssignmentType, t.AssigneeStatic)
	default:
		return string(t.AssignmentType)
	}
}
