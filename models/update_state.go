package models

import (
	"fmt"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
)

// UpdateState is the raw content of update-state.yml. Exactly one of
// Publish and ReleaseMigrated must be set:
//
//	publish: major
//
// or
//
//	releaseMigrated: '2021-05-01'
type UpdateState struct {
	Publish         string `yaml:"publish"`
	ReleaseMigrated string `yaml:"releaseMigrated"`
}

// LifecycleAction is what happens to the dataset version after all
// edits are applied. The only implementations are PublishAction and
// ReleaseMigratedAction, and the only way to get one is
// ParseLifecycleAction.
type LifecycleAction interface {
	fmt.Stringer
	lifecycleAction()
}

// PublishAction publishes the draft as a new major or minor version.
type PublishAction struct {
	VersionType string
}

func (action *PublishAction) lifecycleAction() {}

func (action *PublishAction) String() string {
	return "publish-" + action.VersionType
}

// ReleaseMigratedAction marks migrated content as released on
// ReleaseDate, bypassing the normal publish workflow.
type ReleaseMigratedAction struct {
	ReleaseDate time.Time
}

func (action *ReleaseMigratedAction) lifecycleAction() {}

func (action *ReleaseMigratedAction) String() string {
	return "release-migrated " + action.ReleaseDate.Format(constants.DateFormat)
}

// ParseLifecycleAction validates doc and returns the action it
// describes. A document that sets both or neither of its fields, or an
// unknown version type or malformed date, is rejected.
func ParseLifecycleAction(doc *UpdateState) (LifecycleAction, error) {
	if doc == nil {
		return nil, invalidUpdateState("document is empty")
	}
	if doc.Publish != "" && doc.ReleaseMigrated != "" {
		return nil, invalidUpdateState("publish and releaseMigrated are mutually exclusive")
	}
	if doc.Publish != "" {
		if doc.Publish != constants.VersionTypeMajor && doc.Publish != constants.VersionTypeMinor {
			return nil, invalidUpdateState(fmt.Sprintf("unknown version type '%s'", doc.Publish))
		}
		return &PublishAction{VersionType: doc.Publish}, nil
	}
	if doc.ReleaseMigrated != "" {
		releaseDate, err := time.Parse(constants.DateFormat, doc.ReleaseMigrated)
		if err != nil {
			return nil, invalidUpdateState(fmt.Sprintf("releaseMigrated '%s' is not a %s date",
				doc.ReleaseMigrated, constants.DateFormat))
		}
		return &ReleaseMigratedAction{ReleaseDate: releaseDate}, nil
	}
	return nil, invalidUpdateState("one of publish or releaseMigrated is required")
}

func invalidUpdateState(problem string) error {
	return &InvalidInstructionsError{Document: constants.UpdateStateYml, Problems: []string{problem}}
}
