package ingest_test

import (
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/testutil"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetVersionStepCreates(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	env, checkpoints := newEnv(dv)
	task := &models.CreateDatasetTask{}
	dataset := testutil.MakeDataset()

	pid, err := ingest.NewDatasetVersionStep(env, dataset, task).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	assert.NotEmpty(t, pid)
	assert.Equal(t, pid, task.PersistentId)
	assert.True(t, task.Completed)
	assert.Equal(t, 1, dv.CallCount("CreateDataset"))
	assert.Equal(t, 1, dv.CallCount("UpdateMetadata"))
	assert.Equal(t, dataset.DatasetVersion, dv.Dataset(pid).Version)
	assert.Equal(t, 2, checkpoints.count)
}

func TestDatasetVersionStepUpdatesExisting(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset()
	env, _ := newEnv(dv)
	task := &models.CreateDatasetTask{}

	result, err := ingest.NewDatasetVersionStep(env, testutil.MakeDataset(), task).Run(ingest.DatasetTarget{PersistentId: pid})
	require.Nil(t, err)
	assert.Equal(t, pid, result)
	assert.Equal(t, 0, dv.CallCount("CreateDataset"))
	assert.Equal(t, 1, dv.CallCount("UpdateMetadata"))
}

func TestDatasetVersionStepWithoutMetadataOnExisting(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset()
	env, _ := newEnv(dv)
	result, err := ingest.NewDatasetVersionStep(env, nil, &models.CreateDatasetTask{}).Run(ingest.DatasetTarget{PersistentId: pid})
	require.Nil(t, err)
	assert.Equal(t, pid, result)
	assert.Empty(t, dv.Calls)
}

func TestDatasetVersionStepMissingMetadata(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	env, _ := newEnv(dv)
	_, err := ingest.NewDatasetVersionStep(env, nil, &models.CreateDatasetTask{}).Run(ingest.DatasetTarget{})
	assert.Equal(t, ingest.ErrMissingMetadata, err)
	assert.True(t, ingest.IsRejection(err))
	assert.Empty(t, dv.Calls)
}

func TestDatasetVersionStepDoesNotCreateTwice(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	dv.FailOn("UpdateMetadata", 1, errors.New("timeout"))
	env, _ := newEnv(dv)
	task := &models.CreateDatasetTask{}
	dataset := testutil.MakeDataset()

	_, err := ingest.NewDatasetVersionStep(env, dataset, task).Run(ingest.DatasetTarget{})
	require.NotNil(t, err)
	assert.False(t, task.Completed)
	created := task.PersistentId
	require.NotEmpty(t, created)

	pid, err := ingest.NewDatasetVersionStep(env, dataset, task).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	assert.Equal(t, created, pid)
	assert.Equal(t, 1, dv.CallCount("CreateDataset"))
	assert.Equal(t, 2, dv.CallCount("UpdateMetadata"))
}

func TestDatasetVersionStepSkippedWhenCompleted(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	env, _ := newEnv(dv)
	task := &models.CreateDatasetTask{Completed: true, PersistentId: "doi:10.5072/FK2/DONE"}
	pid, err := ingest.NewDatasetVersionStep(env, testutil.MakeDataset(), task).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	assert.Equal(t, "doi:10.5072/FK2/DONE", pid)
	assert.Empty(t, dv.Calls)
}
