package storage_test

import (
	"path/filepath"
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltTaskLogStore(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasklogs.db")
	store, err := storage.NewBoltTaskLogStore(dbPath)
	require.Nil(t, err)
	defer store.Close()
	assert.Equal(t, dbPath, store.FilePath())

	// Nothing stored yet: a fresh log
	taskLog, err := store.Load("deposit-1", "/inbox/deposit-1/bag-a")
	require.Nil(t, err)
	assert.False(t, taskLog.CreateDataset.Completed)
	assert.Equal(t, "bag-a", taskLog.BagName)

	taskLog.CreateDataset.Completed = true
	taskLog.CreateDataset.PersistentId = "doi:10.5072/FK2/ABCDEF"
	taskLog.EditFiles.AddUnrestrictedFiles.NumberCompleted = 7
	require.Nil(t, store.Save(taskLog))
	assert.False(t, taskLog.UpdatedAt.IsZero())

	loaded, err := store.Load("deposit-1", "/new/location/bag-a")
	require.Nil(t, err)
	assert.True(t, loaded.CreateDataset.Completed)
	assert.Equal(t, "doi:10.5072/FK2/ABCDEF", loaded.CreateDataset.PersistentId)
	assert.Equal(t, 7, loaded.EditFiles.AddUnrestrictedFiles.NumberCompleted)
	assert.Equal(t, "/new/location/bag-a", loaded.BagPath)

	missing, err := store.Get("deposit-2/bag-a")
	require.Nil(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, []string{"deposit-1/bag-a"}, store.Keys())
}

func TestBoltTaskLogStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "tasklogs.db")
	store, err := storage.NewBoltTaskLogStore(dbPath)
	require.Nil(t, err)
	taskLog, err := store.Load("deposit-1", "/inbox/deposit-1/bag-a")
	require.Nil(t, err)
	taskLog.EditPermissions.Completed = true
	require.Nil(t, store.Save(taskLog))
	require.Nil(t, store.Close())

	store, err = storage.NewBoltTaskLogStore(dbPath)
	require.Nil(t, err)
	defer store.Close()
	loaded, err := store.Load("deposit-1", "/inbox/deposit-1/bag-a")
	require.Nil(t, err)
	assert.True(t, loaded.EditPermissions.Completed)
}

func TestNewBoltTaskLogStore_NoPath(t *testing.T) {
	_, err := storage.NewBoltTaskLogStore("")
	assert.NotNil(t, err)
}
