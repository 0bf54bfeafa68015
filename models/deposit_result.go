package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DepositResult describes one attempt to import one deposit. One is
// written to the JSON log for every deposit that finishes, whatever
// the outcome.
type DepositResult struct {
	DepositId   string
	DepositPath string

	// Outcome is one of constants.OutcomeSuccess, OutcomeFailed or
	// OutcomeRejected. Empty while the deposit is being processed.
	Outcome string

	// PersistentId is the id of the dataset, as far as it is known.
	// It may be set on failure, when the first bag created the
	// dataset before a later step failed.
	PersistentId string

	// BagsCompleted lists the names of the bags that were fully
	// applied, in processing order.
	BagsCompleted []string

	// AttemptNumber is the number of the attempt, starting at one.
	// This is uint16 to match nsq.Message.Attempts.
	AttemptNumber uint16

	// This will be set to true if an error is fatal. In that
	// case, we should not try to reprocess the deposit.
	ErrorIsFatal bool

	Errors []string

	StartedAt  time.Time
	FinishedAt time.Time

	// Retry indicates whether a failed deposit may be retried. It
	// defaults to true and is cleared by fatal errors.
	Retry bool
}

func NewDepositResult(depositId, depositPath string) *DepositResult {
	return &DepositResult{
		DepositId:     depositId,
		DepositPath:   depositPath,
		BagsCompleted: make([]string, 0),
		Errors:        make([]string, 0),
		Retry:         true,
	}
}

func (result *DepositResult) Start() {
	result.StartedAt = time.Now().UTC()
}

func (result *DepositResult) Started() bool {
	return !result.StartedAt.IsZero()
}

func (result *DepositResult) Finish(outcome string) {
	result.Outcome = outcome
	result.FinishedAt = time.Now().UTC()
}

func (result *DepositResult) Finished() bool {
	return !result.FinishedAt.IsZero()
}

func (result *DepositResult) RunTime() time.Duration {
	startTime := result.StartedAt
	if startTime.IsZero() {
		return time.Duration(0)
	}
	endTime := result.FinishedAt
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(startTime)
}

func (result *DepositResult) Succeeded() bool {
	return result.Finished() && len(result.Errors) == 0
}

func (result *DepositResult) AddError(format string, a ...interface{}) {
	result.Errors = append(result.Errors, fmt.Sprintf(format, a...))
}

// AddFatalError records an error that retrying will not fix.
func (result *DepositResult) AddFatalError(format string, a ...interface{}) {
	result.AddError(format, a...)
	result.ErrorIsFatal = true
	result.Retry = false
}

func (result *DepositResult) HasErrors() bool {
	return len(result.Errors) > 0
}

func (result *DepositResult) FirstError() string {
	firstError := ""
	if len(result.Errors) > 0 {
		firstError = result.Errors[0]
	}
	return firstError
}

func (result *DepositResult) AllErrorsAsString() string {
	if len(result.Errors) > 0 {
		return strings.Join(result.Errors, "\n")
	}
	return ""
}

func (result *DepositResult) ToJson() (string, error) {
	bytes, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}
