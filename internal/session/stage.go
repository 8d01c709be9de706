package session

import "fmt"

// Stage is the progress of a bootstrap attempt. Complete and Exception are terminal.
type Stage string

const (
	StageNotStarted                  Stage = "not_started"
	StageStarting                    Stage = "starting"
	StageCheckingGlobalAdmin         Stage = "checking_global_admin"
	StageGlobalAdminCheckComplete    Stage = "global_admin_check_complete"
	StageGlobalAdminCheckError       Stage = "global_admin_check_error"
	StageFetchingProfile             Stage = "fetching_profile"
	StageProfileFound                Stage = "profile_found"
	StageNoProfileFound              Stage = "no_profile_found"
	StageCreatingNewProfile          Stage = "creating_new_profile"
	StageNewProfileCreated           Stage = "new_profile_created"
	StageNewProfileCreationError     Stage = "new_profile_creation_error"
	StageCheckingProjectAdmin        Stage = "checking_project_admin"
	StageCheckingCurrentProjectAdmin Stage = "checking_current_project_admin"
	StageCheckingAllProjectsAdmin    Stage = "checking_all_projects_admin"
	StageComplete                    Stage = "complete"
	StageException                   Stage = "exception"
)

// transitions lists the successors of each stage. Exception is reachable
// from every non-terminal stage and is not repeated here.
var transitions = map[Stage][]Stage{
	StageNotStarted:                  {StageStarting},
	StageStarting:                    {StageCheckingGlobalAdmin, StageComplete},
	StageCheckingGlobalAdmin:         {StageGlobalAdminCheckComplete, StageGlobalAdminCheckError},
	StageGlobalAdminCheckComplete:    {StageFetchingProfile},
	StageGlobalAdminCheckError:       {StageFetchingProfile},
	StageFetchingProfile:             {StageProfileFound, StageNoProfileFound},
	StageNoProfileFound:              {StageCreatingNewProfile},
	StageCreatingNewProfile:          {StageNewProfileCreated, StageNewProfileCreationError},
	StageProfileFound:                {StageCheckingProjectAdmin},
	StageNewProfileCreated:           {StageCheckingProjectAdmin},
	StageNewProfileCreationError:     {StageCheckingProjectAdmin},
	StageCheckingProjectAdmin:        {StageCheckingCurrentProjectAdmin, StageCheckingAllProjectsAdmin},
	StageCheckingCurrentProjectAdmin: {StageComplete},
	StageCheckingAllProjectsAdmin:    {StageComplete},
}

func (s Stage) IsTerminal() bool {
	return s == StageComplete || s == StageException
}

// CanTransition reports whether a bootstrap may move from s to next.
func (s Stage) CanTransition(next Stage) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StageException {
		return true
	}
	for _, candidate := range transitions[s] {
		if candidate == next {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned for a transition outside the table.
type InvalidTransitionError struct {
	From Stage
	To   Stage
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid bootstrap transition from %s to %s", e.From, e.To)
}
