package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/facebookgo/clock"
	"github.com/pkg/errors"
)

// PublishStep performs the lifecycle action of update-state.yml. A
// publish waits for the dataset to be unlocked, publishes, and polls
// until the dataset is released. A release of migrated content only
// waits for the locks.
type PublishStep struct {
	env        *StepEnv
	action     models.LifecycleAction
	task       *models.Task
	clock      clock.Clock
	interval   time.Duration
	maxRetries int
}

func NewPublishStep(env *StepEnv, action models.LifecycleAction, task *models.Task, clk clock.Clock, interval time.Duration, maxRetries int) *PublishStep {
	return &PublishStep{
		env:        env,
		action:     action,
		task:       task,
		clock:      clk,
		interval:   interval,
		maxRetries: maxRetries,
	}
}

func (step *PublishStep) Run(pid string) error {
	if step.task.Completed {
		step.env.skip("updateState")
		return nil
	}
	switch action := step.action.(type) {
	case nil:
		step.env.Log.Infof("No lifecycle action for %s; leaving it in draft", pid)
	case *models.PublishAction:
		if err := step.awaitUnlocked(pid); err != nil {
			return err
		}
		step.env.Log.Infof("Publishing %s as a %s version", pid, action.VersionType)
		if err := step.env.API.Publish(pid, action.VersionType); err != nil {
			return errors.Wrapf(err, "publish %s", pid)
		}
		if err := step.awaitState(pid, constants.StateReleased); err != nil {
			return err
		}
	case *models.ReleaseMigratedAction:
		if err := step.awaitUnlocked(pid); err != nil {
			return err
		}
		step.env.Log.Infof("Releasing migrated dataset %s with date %s", pid,
			action.ReleaseDate.Format(constants.DateFormat))
		if err := step.env.API.ReleaseMigrated(pid, action.ReleaseDate); err != nil {
			return errors.Wrapf(err, "release migrated dataset %s", pid)
		}
	default:
		return &InvalidInstructionsError{
			Document: constants.UpdateStateYml,
			Problems: []string{fmt.Sprintf("unknown lifecycle action %v", action)},
		}
	}
	step.task.Completed = true
	return step.env.Checkpoint()
}

func (step *PublishStep) awaitState(pid, wanted string) error {
	return step.poll(fmt.Sprintf("%s to become %s", pid, wanted), func() (bool, string, error) {
		state, err := step.env.API.GetVersionState(pid)
		if err != nil {
			return false, "", errors.Wrapf(err, "get state of %s", pid)
		}
		return state == wanted, state, nil
	})
}

func (step *PublishStep) awaitUnlocked(pid string) error {
	return step.poll(fmt.Sprintf("locks on %s to clear", pid), func() (bool, string, error) {
		locks, err := step.env.API.GetLocks(pid)
		if err != nil {
			return false, "", errors.Wrapf(err, "get locks of %s", pid)
		}
		if len(locks) == 0 {
			return true, "unlocked", nil
		}
		return false, "locked by " + strings.Join(locks, ", "), nil
	})
}

// poll checks once, then up to maxRetries more times with interval in
// between.
func (step *PublishStep) poll(waiting string, check func() (bool, string, error)) error {
	lastState := ""
	for attempt := 0; attempt <= step.maxRetries; attempt++ {
		if attempt > 0 {
			step.clock.Sleep(step.interval)
		}
		done, state, err := check()
		if err != nil {
			return err
		}
		lastState = state
		if done {
			return nil
		}
		step.env.Log.Debugf("Waiting for %s: check %d, state %s", waiting, attempt+1, state)
	}
	return &PublishTimeoutError{
		Waiting:   waiting,
		Elapsed:   step.interval * time.Duration(step.maxRetries),
		Attempts:  step.maxRetries + 1,
		LastState: lastState,
	}
}
