package ingest

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
)

// MetadataStep applies edit-metadata.yml: field values are added, then
// replaced, then deleted.
type MetadataStep struct {
	env          *StepEnv
	editMetadata *models.EditMetadata
	tasks        *models.EditMetadataLog
}

func NewMetadataStep(env *StepEnv, editMetadata *models.EditMetadata, tasks *models.EditMetadataLog) *MetadataStep {
	if editMetadata == nil {
		editMetadata = &models.EditMetadata{}
	}
	return &MetadataStep{
		env:          env,
		editMetadata: editMetadata,
		tasks:        tasks,
	}
}

func (step *MetadataStep) Run(pid string) error {
	if step.tasks.Completed {
		step.env.skip("editMetadata")
		return nil
	}
	subSteps := []struct {
		name   string
		task   *models.Task
		fields []*models.MetadataField
		call   func([]*models.MetadataField) error
	}{
		{"addFieldValues", &step.tasks.AddFieldValues, step.editMetadata.AddFieldValues,
			func(fields []*models.MetadataField) error { return step.env.API.EditMetadata(pid, fields, false) }},
		{"replaceFieldValues", &step.tasks.ReplaceFieldValues, step.editMetadata.ReplaceFieldValues,
			func(fields []*models.MetadataField) error { return step.env.API.EditMetadata(pid, fields, true) }},
		{"deleteFieldValues", &step.tasks.DeleteFieldValues, step.editMetadata.DeleteFieldValues,
			func(fields []*models.MetadataField) error { return step.env.API.DeleteMetadata(pid, fields) }},
	}
	for _, subStep := range subSteps {
		if subStep.task.Completed {
			step.env.skip(subStep.name)
			continue
		}
		if len(subStep.fields) > 0 {
			step.env.Log.Infof("%s: %d fields on %s", subStep.name, len(subStep.fields), pid)
			if err := subStep.call(subStep.fields); err != nil {
				return errors.Wrapf(err, "%s on %s", subStep.name, pid)
			}
		}
		subStep.task.Completed = true
		if err := step.env.Checkpoint(); err != nil {
			return err
		}
	}
	step.tasks.Completed = true
	return step.env.Checkpoint()
}
