package ingest

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
)

// DatasetTarget says which dataset a bag applies to. An empty
// PersistentId means the bag creates a new dataset.
type DatasetTarget struct {
	PersistentId string
}

func (target DatasetTarget) IsNew() bool {
	return target.PersistentId == ""
}

// DatasetVersionStep creates the dataset, or updates the metadata of
// the existing one.
type DatasetVersionStep struct {
	env     *StepEnv
	dataset *models.Dataset
	task    *models.CreateDatasetTask
}

func NewDatasetVersionStep(env *StepEnv, dataset *models.Dataset, task *models.CreateDatasetTask) *DatasetVersionStep {
	return &DatasetVersionStep{
		env:     env,
		dataset: dataset,
		task:    task,
	}
}

// Run returns the persistent id that all later steps work on. A
// dataset created by an earlier, interrupted run is found in the task
// log and not created again.
//
// After creating a dataset the metadata is updated as well, because
// Dataverse ignores some fields on create.
func (step *DatasetVersionStep) Run(target DatasetTarget) (string, error) {
	if step.task.Completed {
		step.env.skip("createDataset")
		if step.task.PersistentId != "" {
			return step.task.PersistentId, nil
		}
		return target.PersistentId, nil
	}
	pid := target.PersistentId
	if step.task.PersistentId != "" {
		pid = step.task.PersistentId
	}
	if pid == "" {
		if step.dataset == nil {
			return "", ErrMissingMetadata
		}
		step.env.Log.Info("Creating new dataset")
		createdPid, err := step.env.API.CreateDataset(step.dataset)
		if err != nil {
			return "", errors.Wrap(err, "create dataset")
		}
		pid = createdPid
		step.env.Log.Infof("Created dataset %s", pid)
		step.task.PersistentId = pid
		if err = step.env.Checkpoint(); err != nil {
			return "", err
		}
	}
	if step.dataset != nil {
		step.env.Log.Infof("Updating metadata of %s", pid)
		if err := step.env.API.UpdateMetadata(pid, step.dataset.DatasetVersion); err != nil {
			return "", errors.Wrapf(err, "update metadata of %s", pid)
		}
	}
	step.task.PersistentId = pid
	step.task.Completed = true
	if err := step.env.Checkpoint(); err != nil {
		return "", err
	}
	return pid, nil
}
