package ingest_test

import (
	"testing"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return "status error"
}

func (e *statusError) Retryable() bool {
	return e.status >= 500
}

func TestIsFatal(t *testing.T) {
	assert.False(t, ingest.IsFatal(nil))
	assert.False(t, ingest.IsFatal(errors.New("connection reset")))
	assert.True(t, ingest.IsFatal(ingest.ErrMissingMetadata))
	assert.True(t, ingest.IsFatal(errors.Wrap(&ingest.FilesNotFoundError{Paths: []string{"a"}}, "delete")))
	assert.True(t, ingest.IsFatal(&ingest.InvalidPathError{Path: "a/", Reason: "bad"}))
	assert.True(t, ingest.IsFatal(&ingest.PublishTimeoutError{}))
	assert.True(t, ingest.IsFatal(errors.Wrap(&statusError{status: 400}, "add files")))
	assert.False(t, ingest.IsFatal(errors.Wrap(&statusError{status: 503}, "add files")))
}

func TestIsRejection(t *testing.T) {
	assert.True(t, ingest.IsRejection(ingest.ErrMissingMetadata))
	assert.True(t, ingest.IsRejection(&ingest.InvalidInstructionsError{Document: "edit-files.yml"}))
	assert.False(t, ingest.IsRejection(&ingest.FilesNotFoundError{Paths: []string{"a"}}))
	assert.False(t, ingest.IsRejection(errors.New("timeout")))
}

func TestErrorMessages(t *testing.T) {
	err := &ingest.FilesNotFoundError{Paths: []string{"a.txt", "b/c.txt"}}
	assert.Equal(t, "Files not found in dataset: a.txt, b/c.txt", err.Error())

	timeout := &ingest.PublishTimeoutError{
		Waiting:   "doi:x to become RELEASED",
		Elapsed:   30 * time.Second,
		Attempts:  11,
		LastState: "DRAFT",
	}
	assert.Equal(t, "Gave up waiting for doi:x to become RELEASED after 30000ms (11 checks); last observed state: DRAFT", timeout.Error())
}
