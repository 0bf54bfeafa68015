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

func TestCachePutGetRemove(t *testing.T) {
	cache := ingest.NewFilesInDatasetCache(testutil.NewFakeDataverse(), nil)
	cache.Put(&models.FileMeta{Id: 7, Label: "x.txt", DirectoryLabel: "a"})

	meta, found := cache.Get("a/x.txt")
	require.True(t, found)
	assert.EqualValues(t, 7, meta.Id)

	// Get returns a copy.
	meta.Label = "changed.txt"
	meta, _ = cache.Get("a/x.txt")
	assert.Equal(t, "x.txt", meta.Label)

	cache.Remove("a/x.txt")
	_, found = cache.Get("a/x.txt")
	assert.False(t, found)
	assert.Equal(t, 0, cache.Size())
}

func TestCacheAutoRename(t *testing.T) {
	cache := ingest.NewFilesInDatasetCache(testutil.NewFakeDataverse(),
		map[string]string{"a/b:c.txt": "a/b_c.txt"})
	cache.Put(&models.FileMeta{Id: 3, Label: "b_c.txt", DirectoryLabel: "a"})

	meta, found := cache.Get("a/b:c.txt")
	require.True(t, found)
	assert.Equal(t, "a/b_c.txt", meta.Path().String())
	assert.Empty(t, cache.Missing([]string{"a/b:c.txt"}))

	moved, err := cache.MoveTargetIdentity("a/b:c.txt", &models.FileMeta{Id: 3, Label: "old.txt"})
	require.Nil(t, err)
	assert.Equal(t, "a/b_c.txt", moved.Path().String())
	assert.EqualValues(t, 3, moved.Id)

	cache.Remove("a/b:c.txt")
	assert.Equal(t, 0, cache.Size())
}

func TestCacheLoadFromRemote(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset("a/x.txt", "b.txt")
	cache := ingest.NewFilesInDatasetCache(dv, nil)
	assert.False(t, cache.Initialized())

	require.Nil(t, cache.LoadFromRemote(pid))
	assert.True(t, cache.Initialized())
	assert.Equal(t, []string{"a/x.txt", "b.txt"}, cache.Paths())

	err := cache.LoadFromRemote(pid)
	assert.Equal(t, ingest.ErrAlreadyInitialized, err)
	assert.Equal(t, 1, dv.CallCount("ListFiles"))
}

func TestCacheLoadFromRemoteError(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	dv.FailOn("ListFiles", 1, errors.New("connection refused"))
	cache := ingest.NewFilesInDatasetCache(dv, nil)
	err := cache.LoadFromRemote("doi:10.5072/FK2/X")
	require.NotNil(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.False(t, cache.Initialized())
}

func TestCacheMissing(t *testing.T) {
	cache := ingest.NewFilesInDatasetCache(testutil.NewFakeDataverse(), nil)
	cache.Put(&models.FileMeta{Id: 1, Label: "here.txt"})
	assert.Equal(t, []string{"gone.txt", "a/gone.txt"},
		cache.Missing([]string{"gone.txt", "here.txt", "a/gone.txt"}))
}

func TestCacheMoveTargetIdentityDoesNotChangeCache(t *testing.T) {
	cache := ingest.NewFilesInDatasetCache(testutil.NewFakeDataverse(), nil)
	original := &models.FileMeta{Id: 9, Label: "x.txt", DirectoryLabel: "a", Description: "keep"}
	cache.Put(original)
	moved, err := cache.MoveTargetIdentity("b/c/y.txt", original)
	require.Nil(t, err)
	assert.Equal(t, "b/c", moved.DirectoryLabel)
	assert.Equal(t, "y.txt", moved.Label)
	assert.Equal(t, "keep", moved.Description)
	assert.Equal(t, []string{"a/x.txt"}, cache.Paths())

	_, err = cache.MoveTargetIdentity("b/", original)
	assert.IsType(t, &ingest.InvalidPathError{}, err)
}
