package storage

import (
	"fmt"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
)

// TaskLogStore keeps task logs durably. Save must not return before
// the log is on disk: a restarted process trusts what Load returns to
// decide which remote effects have already happened.
type TaskLogStore interface {
	// Load returns the stored task log for the bag, or a new empty
	// one if nothing was stored yet.
	Load(depositId, bagPath string) (*models.TaskLog, error)
	Save(taskLog *models.TaskLog) error
	Close() error
}

// NewTaskLogStore returns the store that config.TaskLogStorage names.
func NewTaskLogStore(config *models.Config) (TaskLogStore, error) {
	switch config.TaskLogStorage {
	case constants.TaskLogStorageBolt, "":
		return NewBoltTaskLogStore(config.TaskLogDBPath)
	case constants.TaskLogStorageYaml:
		return NewYamlTaskLogStore(), nil
	}
	return nil, fmt.Errorf("Unknown task log storage '%s'", config.TaskLogStorage)
}
