package models_test

import (
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToPair(t *testing.T) {
	dvPath, err := models.ToPair("a/b/c.txt")
	require.Nil(t, err)
	assert.Equal(t, "a/b", dvPath.DirectoryLabel)
	assert.Equal(t, "c.txt", dvPath.Label)

	dvPath, err = models.ToPair("c.txt")
	require.Nil(t, err)
	assert.Equal(t, "", dvPath.DirectoryLabel)
	assert.Equal(t, "c.txt", dvPath.Label)
}

func TestToPair_Empty(t *testing.T) {
	_, err := models.ToPair("")
	require.NotNil(t, err)
	_, isInvalidPath := err.(*models.InvalidPathError)
	assert.True(t, isInvalidPath)
}

func TestToPair_TrailingSeparator(t *testing.T) {
	_, err := models.ToPair("a/b/")
	require.NotNil(t, err)
	_, isInvalidPath := err.(*models.InvalidPathError)
	assert.True(t, isInvalidPath)
}

func TestNewDataversePath(t *testing.T) {
	dvPath, err := models.NewDataversePath("a/b", "c.txt")
	require.Nil(t, err)
	assert.Equal(t, "a/b/c.txt", dvPath.String())

	dvPath, err = models.NewDataversePath("", "c.txt")
	require.Nil(t, err)
	assert.Equal(t, "c.txt", dvPath.String())
}

func TestNewDataversePath_LabelWithSeparator(t *testing.T) {
	_, err := models.NewDataversePath("", "b/leaf")
	require.NotNil(t, err)
	_, isInvalidPath := err.(*models.InvalidPathError)
	assert.True(t, isInvalidPath)
}

func TestDataversePath_RoundTrip(t *testing.T) {
	paths := []string{
		"file.txt",
		"a/file.txt",
		"a/b/c/d/file with spaces.txt",
		"dir.with.dots/.hidden",
		"x",
	}
	for _, path := range paths {
		dvPath, err := models.ToPair(path)
		require.Nil(t, err, path)
		rebuilt, err := models.NewDataversePath(dvPath.DirectoryLabel, dvPath.Label)
		require.Nil(t, err, path)
		assert.Equal(t, path, rebuilt.String())
	}
}
