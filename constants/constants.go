// Common vars and constants, shared by the ingest pipeline, the
// Dataverse client and the workers.
package constants

import (
	"regexp"
)

// Names of the instruction documents in the root of a bag. Every one
// of them is optional.
const (
	DatasetYml         = "dataset.yml"
	EditFilesYml       = "edit-files.yml"
	EditMetadataYml    = "edit-metadata.yml"
	EditPermissionsYml = "edit-permissions.yml"
	UpdateStateYml     = "update-state.yml"
	TasksYml           = "_tasks.yml"
)

// PayloadDir is the directory inside a bag that holds the files to
// upload. All file paths in the instruction documents are relative to
// this directory.
const PayloadDir = "data"

// DepositPropertiesFile is the optional properties file in the root of
// a deposit directory.
const DepositPropertiesFile = "deposit.properties"

// Keys in deposit.properties
const (
	PropDepositId      = "deposit.id"
	PropUpdatesDataset = "updates-dataset"
)

// DateFormat is the calendar format of embargo and release dates in
// the instruction documents.
const DateFormat = "2006-01-02"

// Publish version types
const (
	VersionTypeMajor = "major"
	VersionTypeMinor = "minor"
)

var VersionTypes []string = []string{
	VersionTypeMajor,
	VersionTypeMinor,
}

// Dataset version states, as reported by Dataverse.
const (
	StateDraft       = "DRAFT"
	StateReleased    = "RELEASED"
	StateDeaccession = "DEACCESSIONED"
)

// Task log storage options
const (
	TaskLogStorageBolt = "bolt"
	TaskLogStorageYaml = "yaml"
)

var TaskLogStorageOptions []string = []string{
	TaskLogStorageBolt,
	TaskLogStorageYaml,
}

// Import job statuses
const (
	JobPending   = "PENDING"
	JobRunning   = "RUNNING"
	JobDone      = "DONE"
	JobFailed    = "FAILED"
	JobCancelled = "CANCELLED"
)

// Deposit outcomes, reported to the deposit listener and the
// bags_processed_total counter.
const (
	OutcomeSuccess  = "success"
	OutcomeFailed   = "failed"
	OutcomeRejected = "rejected"
)

// ZipMimeTypes are content types that Dataverse unpacks on upload.
// Files of these types are wrapped in an outer zip before upload, so
// that Dataverse stores them as they are.
var ZipMimeTypes []string = []string{
	"application/zip",
	"application/x-zip",
	"application/x-zip-compressed",
}

// Defaults for config values that are left empty.
const (
	DefaultMaxFilesPerUpload     = 1000
	DefaultMaxUploadSize         = "1GB"
	DefaultPublishPollIntervalMs = 3000
	DefaultPublishMaxRetries     = 10
	DefaultDataverseTimeout      = 300
)

// PathSeparator separates directory label and label in the paths
// Dataverse uses. It is always a forward slash, whatever the local OS.
const PathSeparator = "/"

// UnsafePathPattern matches paths that must never appear in an
// instruction document: absolute paths and paths that climb out of
// the payload directory.
var UnsafePathPattern = regexp.MustCompile(`(^/)|(^|/)\.\.(/|$)`)
