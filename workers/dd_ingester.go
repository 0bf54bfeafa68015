package workers

import (
	"encoding/json"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/context"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/network"
	"github.com/nsqio/go-nsq"
	"github.com/pkg/errors"
)

// DDIngester takes import requests from NSQ and runs them as import
// jobs. The message stays in flight while the job runs.
type DDIngester struct {
	Context  *context.Context
	Registry *ImportJobRegistry
	// TouchInterval is how often the message is touched while its job
	// runs. It must be well below the NSQ message timeout.
	TouchInterval time.Duration
	// RequeueDelay is the delay before NSQ redelivers a request whose
	// job failed with errors that may go away.
	RequeueDelay time.Duration
}

func NewDDIngester(_context *context.Context, registry *ImportJobRegistry) *DDIngester {
	touchInterval := time.Minute
	timeout, err := time.ParseDuration(_context.Config.ImportWorker.MessageTimeout)
	if err == nil && timeout > 0 && timeout/4 < touchInterval {
		touchInterval = timeout / 4
	}
	return &DDIngester{
		Context:       _context,
		Registry:      registry,
		TouchInterval: touchInterval,
		RequeueDelay:  time.Minute,
	}
}

// This is the callback that NSQ workers use to handle messages from NSQ.
func (ingester *DDIngester) HandleMessage(message *nsq.Message) error {
	log := ingester.Context.MessageLog
	request := &network.ImportRequest{}
	if err := json.Unmarshal(message.Body, request); err != nil || request.Path == "" {
		log.Errorf("Dropping NSQ message %s, it is not an import request: %s",
			string(message.ID[:]), string(message.Body))
		message.Finish()
		return nil
	}

	job, err := ingester.Registry.Submit(request.Path, request.SingleDeposit, message.Attempts)
	if errors.Cause(err) == ErrJobAlreadyActive {
		log.Infof("Marking request for %s as finished without doing any work: %v",
			request.Path, err)
		message.Finish()
		return nil
	}
	if err != nil {
		log.Warningf("Cannot start import of %s: %v", request.Path, err)
		message.Requeue(ingester.RequeueDelay)
		return nil
	}

	// We'll tell NSQ ourselves when the job is done.
	message.DisableAutoResponse()
	ticker := ingester.Context.Clock.Ticker(ingester.TouchInterval)
	go ingester.await(message, job, ticker.C, ticker.Stop)
	return nil
}

func (ingester *DDIngester) await(message *nsq.Message, job *ImportJob, ticks <-chan time.Time, stop func()) {
	defer stop()
	for {
		select {
		case <-job.Done():
			ingester.respond(message, job)
			return
		case <-ticks:
			message.Touch()
		}
	}
}

func (ingester *DDIngester) respond(message *nsq.Message, job *ImportJob) {
	log := ingester.Context.MessageLog
	maxAttempts := ingester.Context.Config.ImportWorker.MaxAttempts
	if job.NeedsRetry() && message.Attempts < maxAttempts {
		log.Infof("Requeueing import job %s for %s (attempt %d of %d), status %s",
			job.Id, job.Path, message.Attempts, maxAttempts, job.Status())
		message.Requeue(ingester.RequeueDelay)
		return
	}
	log.Infof("Import job %s for %s is done, status %s", job.Id, job.Path, job.Status())
	message.Finish()
}
