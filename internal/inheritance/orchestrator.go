package inheritance

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Trigger is the input of an orchestrator run, issued after a form response
// has been durably persisted.
type Trigger struct {
	SourceFormID   uuid.UUID
	FormResponseID uuid.UUID
	ResponseData   []byte // raw JSON object of the response
	ProjectID      *uuid.UUID
	SubmitterID    *uuid.UUID
}

// Skip describes a template that did not produce a task.
type Skip struct {
	TemplateID uuid.UUID
	Reason     error
}

// Failure describes a template whose task could not be persisted.
type Failure struct {
	TemplateID uuid.UUID
	Err        error
}

// Result aggregates the outcomes of one orchestrator run.
type Result struct {
	FormResponseID       uuid.UUID
	Matched              int
	Created              []uuid.UUID // ids of created tasks
	Skipped              []Skip
	Failed               []Failure
	NotificationFailures []Failure
}

// NoTemplates reports whether no template matched the trigger.
func (r *Result) NoTemplates() bool {
	return r.Matched == 0
}

type Option func(*Orchestrator)

// WithConcurrency bounds the number of templates processed in parallel.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

func WithObserver(observer Observer) Option {
	return func(o *Orchestrator) {
		o.observer = observer
	}
}

// Orchestrator runs the inheritance workflow for a submitted response.
type Orchestrator struct {
	matcher     TemplateMatcher
	spawner     *Spawner
	concurrency int
	observer    Observer
}

func NewOrchestrator(matcher TemplateMatcher, spawner *Spawner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		matcher:     matcher,
		spawner:     spawner,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run matches templates for the trigger and spawns a task for each one.
// Only a failure to fetch templates is returned as an error. Failures of
// individual templates are reported in the result and never stop siblings.
// Running twice for the same response spawns the tasks twice.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) (*Result, error) {
	result := &Result{FormResponseID: trigger.FormResponseID}

	templates, err := o.matcher.SelectActiveTemplates(ctx, trigger.SourceFormID, trigger.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch task templates: %w", err)
	}
	result.Matched = len(templates)
	if len(templates) == 0 {
		slog.DebugContext(ctx, "no task templates matched",
			"sourceFormID", trigger.SourceFormID,
			"formResponseID", trigger.FormResponseID,
		)
		o.observe(result)
		return result, nil
	}

	data, err := ParsePayload(trigger.ResponseData)
	if err != nil {
		slog.WarnContext(ctx, "response data is not an object, spawning without field values",
			"formResponseID", trigger.FormResponseID,
			"error", err,
		)
	}
	req := SpawnRequest{
		SourceFormID:   trigger.SourceFormID,
		FormResponseID: trigger.FormResponseID,
		Data:           data,
		ProjectID:      trigger.ProjectID,
		SubmitterID:    trigger.SubmitterID,
	}

	outcomes := make([]TemplateOutcome, len(templates))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.concurrency)
	for i := range templates {
		i := i
		g.Go(func() error {
			outcomes[i] = o.spawner.Spawn(gctx, &templates[i], req)
			return nil
		})
	}
	// Spawn never returns an error to the group.
	_ = g.Wait()

	for _, outcome := range outcomes {
		switch outcome.Status {
		case OutcomeCreated:
			result.Created = append(result.Created, outcome.Task.ID)
			if outcome.NotificationErr != nil {
				result.NotificationFailures = append(result.NotificationFailures, Failure{TemplateID: outcome.TemplateID, Err: outcome.NotificationErr})
			}
		case OutcomeSkipped:
			result.Skipped = append(result.Skipped, Skip{TemplateID: outcome.TemplateID, Reason: outcome.Reason})
		case OutcomeFailed:
			result.Failed = append(result.Failed, Failure{TemplateID: outcome.TemplateID, Err: outcome.Err})
		}
	}

	slog.InfoContext(ctx, "form inheritance completed",
		"sourceFormID", trigger.SourceFormID,
		"formResponseID", trigger.FormResponseID,
		"matched", result.Matched,
		"created", len(result.Created),
		"skipped", len(result.Skipped),
		"failed", len(result.Failed),
	)
	o.observe(result)
	return result, nil
}

func (o *Orchestrator) observe(result *Result) {
	if o.observer != nil {
		o.observer.ObserveInheritance(result)
	}
}
