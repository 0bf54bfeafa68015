package models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/fileutil"
	"github.com/docker/go-units"
	"github.com/op/go-logging"
)

type WorkerConfig struct {
	// This describes how often the NSQ client should ping
	// the NSQ server to let it know it's still there. The
	// setting must be formatted like so:
	//
	// "800ms" for 800 milliseconds
	// "10s" for ten seconds
	// "1m" for one minute
	HeartbeatInterval string

	// The maximum number of times NSQ may deliver an import
	// request. Fatal errors are never retried.
	MaxAttempts uint16

	// Maximum number of import requests the worker will accept
	// from the queue at one time. Importing a deposit can take
	// hours, so keep this low.
	MaxInFlight int

	// If the NSQ server does not hear from a client that a
	// job is complete in this amount of time, the server
	// considers the job to have timed out and re-queues it.
	// The worker touches the message while the import job runs.
	MessageTimeout string

	// The name of the NSQ Channel the worker should read from.
	NsqChannel string

	// The name of the NSQ Topic the worker should listen to.
	NsqTopic string

	// This describes how long the NSQ client will wait for
	// a read from the NSQ server before timing out. The format
	// is the same as for HeartbeatInterval.
	ReadTimeout string

	// Number of import jobs that may run at the same time.
	// Deposits within one job are always processed one after
	// the other.
	Workers int

	// This describes how long the NSQ client will wait for
	// a write to the NSQ server to complete before timing out.
	// The format is the same as for HeartbeatInterval.
	WriteTimeout string
}

type Config struct {
	// ActiveConfig is the configuration currently
	// in use.
	ActiveConfig string

	// DataverseURL is the base URL of the Dataverse server,
	// without the /api path. E.g. https://demo.dataverse.org
	DataverseURL string

	// DataverseCollection is the alias of the collection that
	// new datasets are created in.
	DataverseCollection string

	// DataverseTimeoutSeconds bounds connecting to Dataverse and
	// waiting for its response headers. Sending the request body is
	// not bounded, so uploads of any batch size fit in it.
	DataverseTimeoutSeconds int

	// Configuration options for the import worker.
	ImportWorker WorkerConfig

	// LogDirectory is where we'll write our log files.
	LogDirectory string

	// LogLevel is defined in github.com/op/go-logging
	// and should be one of the following:
	// 1 - CRITICAL
	// 2 - ERROR
	// 3 - WARNING
	// 4 - NOTICE
	// 5 - INFO
	// 6 - DEBUG
	LogLevel logging.Level

	// If true, processes will log to STDERR in addition
	// to their standard log file. You really only want
	// to do this in development.
	LogToStderr bool

	// MaxFilesPerUpload is the maximum number of files in one
	// zip batch.
	MaxFilesPerUpload int

	// MaxUploadSize is the size at which a zip batch is closed,
	// as a human readable size like "1GB" or "500MB". The size
	// of the last file added may push a batch past this size.
	MaxUploadSize string

	// MetricsPort is the port that serves /metrics in listen
	// mode. Zero turns the endpoint off.
	MetricsPort int

	// NsqdHttpAddress tells us where to find the NSQ server
	// where we can read from and write to topics and channels.
	// It's typically something like "http://localhost:4151"
	NsqdHttpAddress string

	// NsqLookupd is the full HTTP(S) address of the NSQ Lookup
	// daemon, which is where our worker processes look first to
	// discover where they can find topics and channels. This is
	// typically something like "localhost:4161"
	NsqLookupd string

	// PublishPollIntervalMs is the time between two checks of
	// the dataset state or locks while waiting for Dataverse.
	PublishPollIntervalMs int

	// PublishMaxRetries is the number of checks after the first
	// one before giving up.
	PublishMaxRetries int

	// TaskLogStorage is "bolt" (the default) or "yaml".
	TaskLogStorage string

	// TaskLogDBPath is the bolt database holding the task logs
	// when TaskLogStorage is "bolt".
	TaskLogDBPath string

	// TempDirectory holds the zip batches while they are being
	// uploaded. Every batch is removed after its upload.
	TempDirectory string
}

// This returns the configuration that the user requested,
// which is specified in the -config flag when we run a
// program from the command line
func LoadConfigFile(pathToConfigFile string) (*Config, error) {
	file, err := fileutil.LoadRelativeFile(pathToConfigFile)
	if err != nil {
		detailedError := fmt.Errorf("Error reading config file '%s': %v\n",
			pathToConfigFile, err)
		return nil, detailedError
	}
	config := &Config{}
	err = json.Unmarshal(file, config)
	if err != nil {
		detailedError := fmt.Errorf("Error parsing JSON from config file '%s': %v",
			pathToConfigFile, err)
		return nil, detailedError
	}
	config.ActiveConfig = pathToConfigFile
	config.SetDefaults()
	return config, nil
}

// SetDefaults fills in the settings that were left empty.
func (config *Config) SetDefaults() {
	if config.MaxFilesPerUpload <= 0 {
		config.MaxFilesPerUpload = constants.DefaultMaxFilesPerUpload
	}
	if config.MaxUploadSize == "" {
		config.MaxUploadSize = constants.DefaultMaxUploadSize
	}
	if config.PublishPollIntervalMs <= 0 {
		config.PublishPollIntervalMs = constants.DefaultPublishPollIntervalMs
	}
	if config.PublishMaxRetries <= 0 {
		config.PublishMaxRetries = constants.DefaultPublishMaxRetries
	}
	if config.DataverseTimeoutSeconds <= 0 {
		config.DataverseTimeoutSeconds = constants.DefaultDataverseTimeout
	}
	if config.TaskLogStorage == "" {
		config.TaskLogStorage = constants.TaskLogStorageBolt
	}
	if config.ImportWorker.Workers <= 0 {
		config.ImportWorker.Workers = 1
	}
	if config.LogLevel == 0 {
		config.LogLevel = logging.INFO
	}
}

// MaxUploadBytes returns MaxUploadSize in bytes.
func (config *Config) MaxUploadBytes() (int64, error) {
	size, err := units.FromHumanSize(config.MaxUploadSize)
	if err != nil {
		return 0, fmt.Errorf("MaxUploadSize '%s' is not a valid size: %v", config.MaxUploadSize, err)
	}
	if size <= 0 {
		return 0, fmt.Errorf("MaxUploadSize must be more than zero")
	}
	return size, nil
}

// PublishPollInterval returns PublishPollIntervalMs as a duration.
func (config *Config) PublishPollInterval() time.Duration {
	return time.Duration(config.PublishPollIntervalMs) * time.Millisecond
}

// DataverseTimeout returns DataverseTimeoutSeconds as a duration.
func (config *Config) DataverseTimeout() time.Duration {
	return time.Duration(config.DataverseTimeoutSeconds) * time.Second
}

// Ensures that the log, temp and task log directories exist, creating
// them if necessary. Returns the absolute path the logging directory.
func (config *Config) EnsureDirectories() (string, error) {
	config.ExpandFilePaths()
	err := config.createDirectories()
	if err != nil {
		return "", err
	}
	return config.AbsLogDirectory(), nil
}

func (config *Config) AbsLogDirectory() string {
	absLogDir, err := filepath.Abs(config.LogDirectory)
	if err != nil {
		msg := fmt.Sprintf("Cannot get absolute path to log directory. "+
			"config.LogDirectory is set to '%s'", config.LogDirectory)
		panic(msg)
	}
	return absLogDir
}

// EnsureDataverseConfig checks that we have what we need to talk to
// Dataverse. The API key comes from the environment, never from the
// config file.
func (config *Config) EnsureDataverseConfig() error {
	if config.DataverseURL == "" {
		return fmt.Errorf("DataverseURL is missing from config file")
	}
	if config.DataverseCollection == "" {
		return fmt.Errorf("DataverseCollection is missing from config file")
	}
	if os.Getenv("DATAVERSE_API_KEY") == "" {
		return fmt.Errorf("Environment variable DATAVERSE_API_KEY is not set")
	}
	return nil
}

// Validate checks the settings that have a fixed set of values.
func (config *Config) Validate() error {
	if _, err := config.MaxUploadBytes(); err != nil {
		return err
	}
	if config.TaskLogStorage != constants.TaskLogStorageBolt &&
		config.TaskLogStorage != constants.TaskLogStorageYaml {
		return fmt.Errorf("TaskLogStorage must be one of %v, not '%s'",
			constants.TaskLogStorageOptions, config.TaskLogStorage)
	}
	if config.TaskLogStorage == constants.TaskLogStorageBolt && config.TaskLogDBPath == "" {
		return fmt.Errorf("TaskLogDBPath is required when TaskLogStorage is '%s'",
			constants.TaskLogStorageBolt)
	}
	return nil
}

// Expands ~ file paths to absolute paths.
func (config *Config) ExpandFilePaths() {
	expanded, err := fileutil.ExpandTilde(config.LogDirectory)
	if err == nil {
		config.LogDirectory = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.TempDirectory)
	if err == nil {
		config.TempDirectory = expanded
	}
	expanded, err = fileutil.ExpandTilde(config.TaskLogDBPath)
	if err == nil {
		config.TaskLogDBPath = expanded
	}
}

func (config *Config) createDirectories() error {
	if config.LogDirectory == "" {
		return fmt.Errorf("You must define config.LogDirectory")
	}
	if config.TempDirectory == "" {
		return fmt.Errorf("You must define config.TempDirectory")
	}
	dirs := []string{config.LogDirectory, config.TempDirectory}
	if config.TaskLogDBPath != "" {
		dirs = append(dirs, filepath.Dir(config.TaskLogDBPath))
	}
	for _, dir := range dirs {
		if !fileutil.FileExists(dir) {
			err := os.MkdirAll(dir, 0755)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
