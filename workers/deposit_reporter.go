package workers

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/context"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
)

// DepositReporter is the deposit listener of the import jobs. It logs
// the outcome of every deposit and keeps the succeeded and failed
// counts of the context. The result itself goes to the JSON log when
// the job finishes the deposit.
type DepositReporter struct {
	Context *context.Context
}

func NewDepositReporter(_context *context.Context) *DepositReporter {
	return &DepositReporter{Context: _context}
}

func (reporter *DepositReporter) OnSuccess(deposit *models.Deposit, pid string) {
	reporter.Context.IncrementSucceeded()
	reporter.Context.MessageLog.Infof("Deposit %s (%s) is in dataset %s",
		deposit.Id, deposit.Path, pid)
}

func (reporter *DepositReporter) OnFailure(deposit *models.Deposit, pid string, err error) {
	reporter.Context.IncrementFailed()
	reporter.Context.MessageLog.Errorf("Deposit %s (%s) failed, dataset '%s': %v",
		deposit.Id, deposit.Path, pid, err)
}

func (reporter *DepositReporter) OnRejected(deposit *models.Deposit, pid string, err error) {
	reporter.Context.IncrementFailed()
	reporter.Context.MessageLog.Warningf("Deposit %s (%s) rejected, dataset '%s': %v",
		deposit.Id, deposit.Path, pid, err)
}
