package models

import (
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// TaskLog records which steps of processing one bag have had their
// remote effects applied. It is loaded before each step and saved after
// every remote-visible unit of work, so that a restarted process can
// resume at the first incomplete step without repeating anything.
//
// A TaskLog is kept after the bag succeeds, for audit.
type TaskLog struct {
	DepositId       string             `yaml:"depositId" json:"depositId"`
	BagName         string             `yaml:"bagName" json:"bagName"`
	BagPath         string             `yaml:"bagPath" json:"bagPath"`
	Completed       bool               `yaml:"completed" json:"completed"`
	CreateDataset   CreateDatasetTask  `yaml:"createDataset" json:"createDataset"`
	EditPermissions EditPermissionsLog `yaml:"editPermissions" json:"editPermissions"`
	EditFiles       EditFilesLog       `yaml:"editFiles" json:"editFiles"`
	EditMetadata    EditMetadataLog    `yaml:"editMetadata" json:"editMetadata"`
	UpdateState     Task               `yaml:"updateState" json:"updateState"`
	UpdatedAt       time.Time          `yaml:"updatedAt" json:"updatedAt"`
}

// Task is a step that is either done or not.
type Task struct {
	Completed bool `yaml:"completed" json:"completed"`
}

// CreateDatasetTask also records the persistent id of the dataset the
// step created or updated, so a resumed run never creates a second one.
type CreateDatasetTask struct {
	Completed    bool   `yaml:"completed" json:"completed"`
	PersistentId string `yaml:"persistentId,omitempty" json:"persistentId,omitempty"`
}

// ListTask is a step that works through an ordered list. NumberCompleted
// is the number of leading items of the list already applied remotely.
// Fingerprint identifies the list the count refers to.
type ListTask struct {
	Completed       bool   `yaml:"completed" json:"completed"`
	NumberCompleted int    `yaml:"numberCompleted" json:"numberCompleted"`
	Fingerprint     string `yaml:"fingerprint,omitempty" json:"fingerprint,omitempty"`
}

type EditPermissionsLog struct {
	Completed             bool     `yaml:"completed" json:"completed"`
	DeleteRoleAssignments ListTask `yaml:"deleteRoleAssignments" json:"deleteRoleAssignments"`
	AddRoleAssignments    ListTask `yaml:"addRoleAssignments" json:"addRoleAssignments"`
}

type EditFilesLog struct {
	Completed                   bool     `yaml:"completed" json:"completed"`
	DeleteFiles                 Task     `yaml:"deleteFiles" json:"deleteFiles"`
	ReplaceFiles                ListTask `yaml:"replaceFiles" json:"replaceFiles"`
	AddRestrictedFiles          ListTask `yaml:"addRestrictedFiles" json:"addRestrictedFiles"`
	AddUnrestrictedFiles        ListTask `yaml:"addUnrestrictedFiles" json:"addUnrestrictedFiles"`
	AddRestrictedIndividually   ListTask `yaml:"addRestrictedIndividually" json:"addRestrictedIndividually"`
	AddUnrestrictedIndividually ListTask `yaml:"addUnrestrictedIndividually" json:"addUnrestrictedIndividually"`
	MoveFiles                   ListTask `yaml:"moveFiles" json:"moveFiles"`
	UpdateFileMetas             ListTask `yaml:"updateFileMetas" json:"updateFileMetas"`
	AddEmbargoes                ListTask `yaml:"addEmbargoes" json:"addEmbargoes"`
}

type EditMetadataLog struct {
	Completed          bool `yaml:"completed" json:"completed"`
	AddFieldValues     Task `yaml:"addFieldValues" json:"addFieldValues"`
	ReplaceFieldValues Task `yaml:"replaceFieldValues" json:"replaceFieldValues"`
	DeleteFieldValues  Task `yaml:"deleteFieldValues" json:"deleteFieldValues"`
}

// ResumeMismatchError means a list changed between the run that
// recorded progress on it and the current run, so the recorded count
// no longer says which items were applied.
type ResumeMismatchError struct {
	Task   string
	Reason string
}

func (e *ResumeMismatchError) Error() string {
	return fmt.Sprintf("Cannot resume %s: %s", e.Task, e.Reason)
}

// NewTaskLog returns an empty log for the bag at bagPath.
func NewTaskLog(depositId, bagPath string) *TaskLog {
	return &TaskLog{
		DepositId: depositId,
		BagName:   filepath.Base(bagPath),
		BagPath:   bagPath,
	}
}

// TaskLogKey is the key under which the task log for one bag of a
// deposit is stored.
func TaskLogKey(depositId, bagName string) string {
	return depositId + "/" + bagName
}

func (taskLog *TaskLog) Key() string {
	return TaskLogKey(taskLog.DepositId, taskLog.BagName)
}

// Touch sets UpdatedAt. Stores call this just before they save.
func (taskLog *TaskLog) Touch() {
	taskLog.UpdatedAt = time.Now().UTC()
}

// Fingerprint returns a short digest of a list's size and content.
func Fingerprint(items []string) string {
	hash := sha256.New()
	for _, item := range items {
		hash.Write([]byte(item))
		hash.Write([]byte{0})
	}
	return fmt.Sprintf("%d:%x", len(items), hash.Sum(nil)[:8])
}

// ResumeAt returns the index of the first item of items that has not
// been applied. When work on the list has already begun, items must be
// the same list that was being worked on; otherwise this returns a
// ResumeMismatchError. The fingerprint of items is recorded.
func (task *ListTask) ResumeAt(name string, items []string) (int, error) {
	fingerprint := Fingerprint(items)
	if task.NumberCompleted > len(items) {
		return 0, &ResumeMismatchError{
			Task:   name,
			Reason: fmt.Sprintf("%d items recorded as done, but the list has only %d", task.NumberCompleted, len(items)),
		}
	}
	if task.NumberCompleted > 0 && task.Fingerprint != "" && task.Fingerprint != fingerprint {
		return 0, &ResumeMismatchError{
			Task:   name,
			Reason: fmt.Sprintf("list changed since %d items were applied", task.NumberCompleted),
		}
	}
	task.Fingerprint = fingerprint
	return task.NumberCompleted, nil
}

// Advance records that the first numberCompleted of total items are
// done. The count never goes down and never passes total.
func (task *ListTask) Advance(numberCompleted, total int) error {
	if numberCompleted < task.NumberCompleted {
		return fmt.Errorf("numberCompleted cannot go down from %d to %d", task.NumberCompleted, numberCompleted)
	}
	if numberCompleted > total {
		return fmt.Errorf("numberCompleted %d is more than the %d items in the list", numberCompleted, total)
	}
	task.NumberCompleted = numberCompleted
	return nil
}

// Complete marks the whole list of total items done.
func (task *ListTask) Complete(total int) {
	task.NumberCompleted = total
	task.Completed = true
}

// String summarizes the log for status output.
func (taskLog *TaskLog) String() string {
	done := make([]string, 0)
	if taskLog.CreateDataset.Completed {
		done = append(done, "createDataset")
	}
	if taskLog.EditPermissions.Completed {
		done = append(done, "editPermissions")
	}
	if taskLog.EditFiles.Completed {
		done = append(done, "editFiles")
	}
	if taskLog.EditMetadata.Completed {
		done = append(done, "editMetadata")
	}
	if taskLog.UpdateState.Completed {
		done = append(done, "updateState")
	}
	return fmt.Sprintf("%s: completed=%t [%s]", taskLog.Key(), taskLog.Completed, strings.Join(done, ", "))
}
