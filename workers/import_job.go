package workers

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/context"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
	"github.com/satori/go.uuid"
)

var (
	// ErrJobAlreadyActive means a job for the same source path is
	// still pending or running.
	ErrJobAlreadyActive = errors.New("an import job for this path is already pending or running")

	// ErrRegistryClosed means the registry no longer accepts jobs.
	ErrRegistryClosed = errors.New("the import job registry is closed")

	// ErrQueueFull means every worker is busy and the queue of
	// pending jobs is full. Submit again later.
	ErrQueueFull = errors.New("the import job queue is full")
)

// ImportJob imports one deposit, or every deposit in a directory, one
// after the other.
type ImportJob struct {
	Id            string
	Path          string
	SingleDeposit bool
	Attempt       uint16
	CreatedAt     time.Time

	mutex      sync.Mutex
	status     string
	err        error
	results    []*models.DepositResult
	startedAt  time.Time
	finishedAt time.Time
	cancelled  chan struct{}
	cancelOnce sync.Once
	done       chan struct{}
}

func newImportJob(path string, singleDeposit bool, attempt uint16) *ImportJob {
	if attempt == 0 {
		attempt = 1
	}
	return &ImportJob{
		Id:            uuid.NewV4().String(),
		Path:          path,
		SingleDeposit: singleDeposit,
		Attempt:       attempt,
		CreatedAt:     time.Now().UTC(),
		status:        constants.JobPending,
		results:       make([]*models.DepositResult, 0),
		cancelled:     make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// Status returns one of the constants.Job* values.
func (job *ImportJob) Status() string {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	return job.status
}

// Err is set when the job could not run at all, for example because
// its path cannot be read.
func (job *ImportJob) Err() error {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	return job.err
}

// Results returns the results of the deposits processed so far.
func (job *ImportJob) Results() []*models.DepositResult {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	results := make([]*models.DepositResult, len(job.results))
	copy(results, job.results)
	return results
}

// RunTime is the time from start to finish, or to now if the job is
// still running.
func (job *ImportJob) RunTime() time.Duration {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	if job.startedAt.IsZero() {
		return 0
	}
	if job.finishedAt.IsZero() {
		return time.Since(job.startedAt)
	}
	return job.finishedAt.Sub(job.startedAt)
}

// Cancel asks the job to stop. A bag that is being processed runs to
// its end; the next bag or deposit is not started.
func (job *ImportJob) Cancel() {
	job.cancelOnce.Do(func() { close(job.cancelled) })
}

// Done is closed when the job has finished, whatever its status.
func (job *ImportJob) Done() <-chan struct{} {
	return job.done
}

// Wait blocks until the job has finished and returns its status.
func (job *ImportJob) Wait() string {
	<-job.done
	return job.Status()
}

// NeedsRetry returns true if a deposit failed with an error that is
// not fatal, or the job could not read its path.
func (job *ImportJob) NeedsRetry() bool {
	job.mutex.Lock()
	defer job.mutex.Unlock()
	if job.err != nil {
		return true
	}
	for _, result := range job.results {
		if result.Outcome == constants.OutcomeFailed && result.Retry {
			return true
		}
	}
	return false
}

func (job *ImportJob) isCancelled() bool {
	select {
	case <-job.cancelled:
		return true
	default:
		return false
	}
}

func (job *ImportJob) start() {
	job.mutex.Lock()
	job.status = constants.JobRunning
	job.startedAt = time.Now().UTC()
	job.mutex.Unlock()
}

func (job *ImportJob) addResult(result *models.DepositResult) {
	job.mutex.Lock()
	job.results = append(job.results, result)
	job.mutex.Unlock()
}

func (job *ImportJob) finish(status string, err error) {
	job.mutex.Lock()
	job.status = status
	job.err = err
	job.finishedAt = time.Now().UTC()
	job.mutex.Unlock()
}

// depositPaths returns the deposits of the job, in name order.
func (job *ImportJob) depositPaths() ([]string, error) {
	if job.SingleDeposit {
		return []string{job.Path}, nil
	}
	paths, err := models.ListDeposits(job.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot list deposits in %s", job.Path)
	}
	return paths, nil
}

/*
ImportJobRegistry runs import jobs on a fixed number of goroutines,
ImportWorker.Workers in the config. There is at most one pending or
running job per source path: submitting the same path again before
the first job is done fails with ErrJobAlreadyActive.

Every deposit result is written to the JSON log of the context.
*/
type ImportJobRegistry struct {
	Context   *context.Context
	processor *ingest.DepositProcessor
	queue     chan *ImportJob
	active    *models.SynchronizedMap
	jobs      map[string]*ImportJob
	mutex     sync.RWMutex
	closed    bool
	waitGroup sync.WaitGroup
}

func NewImportJobRegistry(_context *context.Context) *ImportJobRegistry {
	workers := _context.Config.ImportWorker.Workers
	if workers < 1 {
		workers = 1
	}
	registry := &ImportJobRegistry{
		Context:   _context,
		processor: ingest.NewDepositProcessor(_context.Pipeline, NewDepositReporter(_context)),
		queue:     make(chan *ImportJob, workers*10),
		active:    models.NewSynchronizedMap(),
		jobs:      make(map[string]*ImportJob),
	}
	registry.waitGroup.Add(workers)
	for i := 0; i < workers; i++ {
		go registry.work()
	}
	return registry
}

// Submit queues a job for path. When singleDeposit is true, path is
// one deposit; otherwise every directory in path is a deposit. The
// attempt number is recorded in the deposit results. Submit never
// blocks: a duplicate path fails with ErrJobAlreadyActive and a full
// queue with ErrQueueFull.
func (registry *ImportJobRegistry) Submit(path string, singleDeposit bool, attempt uint16) (*ImportJob, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	job := newImportJob(absPath, singleDeposit, attempt)

	registry.mutex.Lock()
	defer registry.mutex.Unlock()
	if registry.closed {
		return nil, ErrRegistryClosed
	}
	if existing, added := registry.active.AddIfAbsent(absPath, job.Id); !added {
		return nil, errors.Wrapf(ErrJobAlreadyActive, "%s is in job %s", absPath, existing)
	}
	// Never block while holding the mutex, or duplicates and Close
	// wait on a full queue.
	select {
	case registry.queue <- job:
	default:
		registry.active.DeleteIfValue(absPath, job.Id)
		return nil, errors.Wrapf(ErrQueueFull, "%d jobs are pending", cap(registry.queue))
	}
	registry.jobs[job.Id] = job
	registry.Context.MessageLog.Infof("Queued import job %s for %s (single deposit: %t)",
		job.Id, absPath, singleDeposit)
	return job, nil
}

// Job returns the job with the given id, or nil.
func (registry *ImportJobRegistry) Job(id string) *ImportJob {
	registry.mutex.RLock()
	defer registry.mutex.RUnlock()
	return registry.jobs[id]
}

// ActivePaths returns the paths that have a pending or running job.
func (registry *ImportJobRegistry) ActivePaths() []string {
	return registry.active.Keys()
}

// Close stops accepting jobs and waits until the queued ones are done.
func (registry *ImportJobRegistry) Close() {
	registry.mutex.Lock()
	if !registry.closed {
		registry.closed = true
		close(registry.queue)
	}
	registry.mutex.Unlock()
	registry.waitGroup.Wait()
}

func (registry *ImportJobRegistry) work() {
	defer registry.waitGroup.Done()
	for job := range registry.queue {
		registry.run(job)
	}
}

func (registry *ImportJobRegistry) run(job *ImportJob) {
	log := registry.Context.MessageLog
	defer func() {
		registry.active.DeleteIfValue(job.Path, job.Id)
		close(job.done)
	}()
	if job.isCancelled() {
		job.finish(constants.JobCancelled, nil)
		log.Infof("Import job %s was cancelled before it started", job.Id)
		return
	}
	job.start()
	depositPaths, err := job.depositPaths()
	if err != nil {
		job.finish(constants.JobFailed, err)
		log.Errorf("Import job %s failed: %v", job.Id, err)
		return
	}
	status := constants.JobDone
	for _, depositPath := range depositPaths {
		if job.isCancelled() {
			job.finish(constants.JobCancelled, nil)
			log.Infof("Import job %s cancelled after %d of %d deposits",
				job.Id, len(job.Results()), len(depositPaths))
			return
		}
		result := registry.processor.ProcessUntil(depositPath, job.Attempt, job.cancelled)
		registry.Context.LogResult(result)
		job.addResult(result)
		if !result.Succeeded() {
			status = constants.JobFailed
		}
	}
	job.finish(status, nil)
	log.Infof("Import job %s finished with status %s: %d deposits in %s",
		job.Id, status, len(depositPaths), job.RunTime())
}
