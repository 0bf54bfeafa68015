package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
)

// These are defined in models, where they are raised while reading
// instructions, and are part of the taxonomy of this package.
type InvalidPathError = models.InvalidPathError
type InvalidInstructionsError = models.InvalidInstructionsError
type ResumeMismatchError = models.ResumeMismatchError

// ErrMissingMetadata means a dataset must be created but the bag has
// no dataset.yml.
var ErrMissingMetadata = errors.New("Cannot create a dataset without dataset metadata")

// ErrAlreadyInitialized means a files cache was loaded twice.
var ErrAlreadyInitialized = errors.New("Files cache is already initialized")

// ErrCancelled means the import was stopped between two bags. The
// deposit can be imported again later; it resumes at the next bag.
var ErrCancelled = errors.New("Import cancelled")

// FilesNotFoundError lists the paths from a batch instruction that are
// not in the dataset. Nothing of the batch has been applied.
type FilesNotFoundError struct {
	Paths []string
}

func (e *FilesNotFoundError) Error() string {
	return fmt.Sprintf("Files not found in dataset: %s", strings.Join(e.Paths, ", "))
}

// FileNotFoundError is about a single file missing, locally or in the
// dataset.
type FileNotFoundError struct {
	Path  string
	Where string
}

func (e *FileNotFoundError) Error() string {
	return fmt.Sprintf("File not found in %s: %s", e.Where, e.Path)
}

// PublishTimeoutError means Dataverse did not reach the expected state
// within the polling budget.
type PublishTimeoutError struct {
	Waiting   string
	Elapsed   time.Duration
	Attempts  int
	LastState string
}

func (e *PublishTimeoutError) Error() string {
	return fmt.Sprintf("Gave up waiting for %s after %dms (%d checks); last observed state: %s",
		e.Waiting, int64(e.Elapsed/time.Millisecond), e.Attempts, e.LastState)
}

type retryable interface {
	Retryable() bool
}

// IsFatal tells whether retrying the bag can never succeed. Typed
// errors of this package and Dataverse errors that are not retryable
// are fatal. Everything else, like network failures, may go away on a
// later run, which resumes from the task log.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	cause := errors.Cause(err)
	if cause == ErrMissingMetadata || cause == ErrAlreadyInitialized {
		return true
	}
	switch typed := cause.(type) {
	case *InvalidPathError, *InvalidInstructionsError, *ResumeMismatchError,
		*FilesNotFoundError, *FileNotFoundError, *PublishTimeoutError:
		return true
	case retryable:
		return !typed.Retryable()
	}
	return false
}

// IsRejection tells whether err means the bag itself is unacceptable,
// as opposed to something going wrong while applying it.
func IsRejection(err error) bool {
	switch errors.Cause(err).(type) {
	case *InvalidPathError, *InvalidInstructionsError:
		return true
	}
	return errors.Cause(err) == ErrMissingMetadata
}
