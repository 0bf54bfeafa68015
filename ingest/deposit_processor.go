package ingest

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
)

// DepositListener is told how each deposit ended. The persistent id is
// the one known when processing stopped, and may be empty.
type DepositListener interface {
	OnSuccess(deposit *models.Deposit, pid string)
	OnFailure(deposit *models.Deposit, pid string, err error)
	OnRejected(deposit *models.Deposit, pid string, err error)
}

// DepositProcessor applies all bags of a deposit, in name order, to one
// dataset. The first bag creates the dataset unless the deposit names
// one in updates-dataset; every later bag updates it.
type DepositProcessor struct {
	pipeline *Pipeline
	listener DepositListener
}

func NewDepositProcessor(pipeline *Pipeline, listener DepositListener) *DepositProcessor {
	return &DepositProcessor{
		pipeline: pipeline,
		listener: listener,
	}
}

// Process imports the deposit in depositPath. All bags are read and
// checked before the first remote call, so a malformed bag rejects the
// deposit without touching Dataverse.
func (processor *DepositProcessor) Process(depositPath string, attempt uint16) *models.DepositResult {
	return processor.ProcessUntil(depositPath, attempt, nil)
}

// ProcessUntil is Process, but stops before the next bag once cancelled
// is closed. A bag that has started always runs to its end. The first
// bag is not checked; callers check before starting the deposit.
func (processor *DepositProcessor) ProcessUntil(depositPath string, attempt uint16, cancelled <-chan struct{}) *models.DepositResult {
	log := processor.pipeline.Log
	result := models.NewDepositResult("", depositPath)
	result.AttemptNumber = attempt
	result.Start()

	deposit, err := models.ReadDeposit(depositPath)
	if err != nil {
		processor.reject(result, &models.Deposit{Path: depositPath}, err)
		return result
	}
	result.DepositId = deposit.Id
	result.DepositPath = deposit.Path
	result.PersistentId = deposit.UpdatesDataset

	bags := make([]*models.Bag, len(deposit.BagPaths))
	for i, bagPath := range deposit.BagPaths {
		bag, err := models.ReadBag(bagPath)
		if err != nil {
			processor.reject(result, deposit, err)
			return result
		}
		bags[i] = bag
	}

	log.Infof("Importing deposit %s (%d bags, attempt %d)", deposit.Id, len(bags), attempt)
	target := DatasetTarget{PersistentId: deposit.UpdatesDataset}
	for i, bag := range bags {
		if i > 0 && isClosed(cancelled) {
			err := errors.Wrapf(ErrCancelled, "stopped after %d of %d bags", i, len(bags))
			log.Infof("Deposit %s: %v", deposit.Id, err)
			processor.fail(result, deposit, err)
			return result
		}
		pid, err := NewBagProcessor(processor.pipeline, deposit.Id, bag).Run(target)
		if pid != "" {
			result.PersistentId = pid
		}
		if err != nil {
			log.Errorf("Bag %s of deposit %s failed: %v", bag.Name, deposit.Id, err)
			if IsRejection(err) {
				processor.reject(result, deposit, err)
			} else {
				processor.fail(result, deposit, err)
			}
			return result
		}
		processor.pipeline.Stats.BagProcessed(constants.OutcomeSuccess)
		result.BagsCompleted = append(result.BagsCompleted, bag.Name)
		target = DatasetTarget{PersistentId: pid}
	}

	result.Finish(constants.OutcomeSuccess)
	log.Infof("Deposit %s imported into %s in %s", deposit.Id, result.PersistentId, result.RunTime())
	if processor.listener != nil {
		processor.listener.OnSuccess(deposit, result.PersistentId)
	}
	return result
}

func (processor *DepositProcessor) reject(result *models.DepositResult, deposit *models.Deposit, err error) {
	processor.pipeline.Log.Warningf("Rejected deposit %s: %v", deposit.Path, err)
	result.AddFatalError("%v", err)
	result.Finish(constants.OutcomeRejected)
	processor.pipeline.Stats.BagProcessed(constants.OutcomeRejected)
	if processor.listener != nil {
		processor.listener.OnRejected(deposit, result.PersistentId, err)
	}
}

func (processor *DepositProcessor) fail(result *models.DepositResult, deposit *models.Deposit, err error) {
	if IsFatal(err) {
		result.AddFatalError("%v", err)
	} else {
		result.AddError("%v", err)
	}
	result.Finish(constants.OutcomeFailed)
	processor.pipeline.Stats.BagProcessed(constants.OutcomeFailed)
	if processor.listener != nil {
		processor.listener.OnFailure(deposit, result.PersistentId, err)
	}
}

func isClosed(channel <-chan struct{}) bool {
	if channel == nil {
		return false
	}
	select {
	case <-channel:
		return true
	default:
		return false
	}
}
