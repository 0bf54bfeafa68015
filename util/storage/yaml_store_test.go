package storage_test

import (
	"io/ioutil"
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYamlTaskLogStore(t *testing.T) {
	bagPath := t.TempDir()
	store := storage.NewYamlTaskLogStore()
	defer store.Close()

	taskLog, err := store.Load("deposit-1", bagPath)
	require.Nil(t, err)
	assert.False(t, taskLog.EditFiles.DeleteFiles.Completed)

	taskLog.EditFiles.DeleteFiles.Completed = true
	taskLog.EditFiles.ReplaceFiles.NumberCompleted = 2
	taskLog.EditFiles.ReplaceFiles.Fingerprint = models.Fingerprint([]string{"a", "b", "c"})
	require.Nil(t, store.Save(taskLog))

	data, err := ioutil.ReadFile(storage.TaskFile(bagPath))
	require.Nil(t, err)
	assert.Contains(t, string(data), "numberCompleted: 2")

	loaded, err := store.Load("deposit-1", bagPath)
	require.Nil(t, err)
	assert.True(t, loaded.EditFiles.DeleteFiles.Completed)
	assert.Equal(t, 2, loaded.EditFiles.ReplaceFiles.NumberCompleted)
	start, err := loaded.EditFiles.ReplaceFiles.ResumeAt("replaceFiles", []string{"a", "b", "c"})
	require.Nil(t, err)
	assert.Equal(t, 2, start)

	// Only the task file is left in the bag root
	entries, err := ioutil.ReadDir(bagPath)
	require.Nil(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, constants.TasksYml, entries[0].Name())
}

func TestNewTaskLogStore(t *testing.T) {
	config := &models.Config{TaskLogStorage: constants.TaskLogStorageYaml}
	store, err := storage.NewTaskLogStore(config)
	require.Nil(t, err)
	_, isYaml := store.(*storage.YamlTaskLogStore)
	assert.True(t, isYaml)

	config = &models.Config{
		TaskLogStorage: constants.TaskLogStorageBolt,
		TaskLogDBPath:  t.TempDir() + "/tasklogs.db",
	}
	store, err = storage.NewTaskLogStore(config)
	require.Nil(t, err)
	defer store.Close()
	_, isBolt := store.(*storage.BoltTaskLogStore)
	assert.True(t, isBolt)

	_, err = storage.NewTaskLogStore(&models.Config{TaskLogStorage: "sqlite"})
	assert.NotNil(t, err)
}
