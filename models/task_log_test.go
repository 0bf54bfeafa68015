package models_test

import (
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestListTask_ResumeAt(t *testing.T) {
	task := &models.ListTask{}
	items := []string{"a.txt", "b.txt", "c.txt"}
	start, err := task.ResumeAt("replaceFiles", items)
	require.Nil(t, err)
	assert.Equal(t, 0, start)
	assert.NotEmpty(t, task.Fingerprint)

	require.Nil(t, task.Advance(2, len(items)))
	start, err = task.ResumeAt("replaceFiles", items)
	require.Nil(t, err)
	assert.Equal(t, 2, start)
}

func TestListTask_ResumeAt_ChangedList(t *testing.T) {
	task := &models.ListTask{}
	items := []string{"a.txt", "b.txt", "c.txt"}
	_, err := task.ResumeAt("replaceFiles", items)
	require.Nil(t, err)
	require.Nil(t, task.Advance(1, len(items)))

	_, err = task.ResumeAt("replaceFiles", []string{"b.txt", "a.txt", "c.txt"})
	require.NotNil(t, err)
	_, isMismatch := err.(*models.ResumeMismatchError)
	assert.True(t, isMismatch)

	_, err = task.ResumeAt("replaceFiles", []string{})
	require.NotNil(t, err)
}

func TestListTask_ResumeAt_NoFingerprintRecorded(t *testing.T) {
	// Logs written before fingerprints were recorded resume by position.
	task := &models.ListTask{NumberCompleted: 2}
	start, err := task.ResumeAt("addUnrestrictedIndividually", []string{"a", "b", "c"})
	require.Nil(t, err)
	assert.Equal(t, 2, start)
}

func TestListTask_Advance(t *testing.T) {
	task := &models.ListTask{}
	require.Nil(t, task.Advance(1, 3))
	require.Nil(t, task.Advance(3, 3))
	assert.NotNil(t, task.Advance(2, 3))
	assert.NotNil(t, task.Advance(4, 3))
	assert.Equal(t, 3, task.NumberCompleted)

	task.Complete(3)
	assert.True(t, task.Completed)
	assert.Equal(t, 3, task.NumberCompleted)
}

func TestFingerprint(t *testing.T) {
	assert.Equal(t, models.Fingerprint([]string{"a", "b"}), models.Fingerprint([]string{"a", "b"}))
	assert.NotEqual(t, models.Fingerprint([]string{"a", "b"}), models.Fingerprint([]string{"ab"}))
	assert.NotEqual(t, models.Fingerprint([]string{"a", "b"}), models.Fingerprint([]string{"b", "a"}))
}

func TestTaskLogKey(t *testing.T) {
	taskLog := models.NewTaskLog("deposit-1", "/inbox/deposit-1/bag-a")
	assert.Equal(t, "deposit-1/bag-a", taskLog.Key())
	assert.Equal(t, "bag-a", taskLog.BagName)
	assert.Contains(t, taskLog.String(), "deposit-1/bag-a: completed=false")
}
