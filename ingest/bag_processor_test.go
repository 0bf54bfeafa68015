package ingest_test

import (
	"testing"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/testhelper"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/logger"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/testutil"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const datasetYml = `datasetVersion:
  termsOfAccess: N/a
  metadataBlocks:
    citation:
      displayName: Citation Metadata
      fields:
        - typeName: title
          typeClass: primitive
          multiple: false
          value: Excavation report
`

func newPipeline(t *testing.T, dv *testutil.FakeDataverse, store storage.TaskLogStore) *ingest.Pipeline {
	return &ingest.Pipeline{
		API:   dv,
		Store: store,
		Settings: &ingest.Settings{
			TempDirectory:       t.TempDir(),
			MaxFilesPerUpload:   1,
			MaxUploadBytes:      1000000,
			PublishPollInterval: time.Second,
			PublishMaxRetries:   3,
		},
		Clock: clock.NewMock(),
		Log:   logger.DiscardLogger("ingest_test"),
	}
}

func newDatasetFixture() testhelper.BagFixture {
	return testhelper.BagFixture{
		Name:  "bag-1",
		Files: map[string]string{"a.txt": "a", "b/c.txt": "c"},
		Docs: map[string]string{
			constants.DatasetYml:      datasetYml,
			constants.EditFilesYml:    "addUnrestrictedFiles:\n  - a.txt\n  - b/c.txt\n",
			constants.UpdateStateYml:  "publish: major\n",
			constants.EditMetadataYml: "addFieldValues:\n  - typeName: subtitle\n    typeClass: primitive\n    value: Trench 4\n",
		},
	}
}

func TestBagProcessorNewDataset(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	store := storage.NewYamlTaskLogStore()
	bag := readBag(t, newDatasetFixture())

	pid, err := ingest.NewBagProcessor(newPipeline(t, dv, store), "dep-1", bag).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	require.NotEmpty(t, pid)
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, dv.FilePaths(pid))
	assert.Equal(t, constants.StateReleased, dv.Dataset(pid).State)
	assert.Len(t, dv.Dataset(pid).AddedFields, 1)

	taskLog, err := store.Load("dep-1", bag.Path)
	require.Nil(t, err)
	assert.True(t, taskLog.Completed)
	assert.Equal(t, pid, taskLog.CreateDataset.PersistentId)
	assert.True(t, taskLog.EditFiles.Completed)
	assert.True(t, taskLog.UpdateState.Completed)
}

func TestBagProcessorResumesAfterFailure(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	dv.FailOn("AddFiles", 2, errors.New("connection reset by peer"))
	store := storage.NewYamlTaskLogStore()
	bag := readBag(t, newDatasetFixture())
	pipeline := newPipeline(t, dv, store)

	pid, err := ingest.NewBagProcessor(pipeline, "dep-1", bag).Run(ingest.DatasetTarget{})
	require.NotNil(t, err)
	require.NotEmpty(t, pid, "the created dataset is reported on failure")
	assert.False(t, ingest.IsFatal(err))

	taskLog, err := store.Load("dep-1", bag.Path)
	require.Nil(t, err)
	assert.True(t, taskLog.CreateDataset.Completed)
	assert.Equal(t, 1, taskLog.EditFiles.AddUnrestrictedFiles.NumberCompleted)

	resumedPid, err := ingest.NewBagProcessor(pipeline, "dep-1", bag).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	assert.Equal(t, pid, resumedPid)
	assert.Equal(t, 1, dv.CallCount("CreateDataset"))
	assert.Equal(t, 1, dv.CallCount("UpdateMetadata"))
	assert.Equal(t, 3, dv.CallCount("AddFiles"))
	assert.Equal(t, []string{"a.txt", "b/c.txt"}, dv.FilePaths(pid))
}

func TestBagProcessorSkipsCompletedBag(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	store := storage.NewYamlTaskLogStore()
	bag := readBag(t, newDatasetFixture())
	pipeline := newPipeline(t, dv, store)

	pid, err := ingest.NewBagProcessor(pipeline, "dep-1", bag).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	callsAfterFirstRun := len(dv.Calls)

	again, err := ingest.NewBagProcessor(pipeline, "dep-1", bag).Run(ingest.DatasetTarget{})
	require.Nil(t, err)
	assert.Equal(t, pid, again)
	assert.Equal(t, callsAfterFirstRun, len(dv.Calls))
}

func TestBagProcessorUpdatesExistingDataset(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset("old.txt")
	bag := readBag(t, testhelper.BagFixture{
		Name:  "bag-2",
		Files: map[string]string{"new.txt": "n"},
		Docs: map[string]string{
			constants.EditFilesYml:       "deleteFiles: [old.txt]\naddRestrictedIndividually: [new.txt]\n",
			constants.EditPermissionsYml: "addRoleAssignments:\n  - assignee: '@jdoe'\n    role: contributor\n",
		},
	})
	result, err := ingest.NewBagProcessor(newPipeline(t, dv, storage.NewYamlTaskLogStore()), "dep-2", bag).
		Run(ingest.DatasetTarget{PersistentId: pid})
	require.Nil(t, err)
	assert.Equal(t, pid, result)
	assert.Equal(t, []string{"new.txt"}, dv.FilePaths(pid))
	assert.Equal(t, "@jdoe", dv.Dataset(pid).RoleAssignments[0].Assignee)
	assert.Equal(t, constants.StateDraft, dv.Dataset(pid).State)
	assert.Equal(t, 0, dv.CallCount("CreateDataset"))
	assert.Equal(t, 0, dv.CallCount("Publish"))
}
