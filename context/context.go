package context

import (
	"fmt"
	stdlog "log"
	"os"
	"sync/atomic"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/network"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/stats"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/logger"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/facebookgo/clock"
	"github.com/op/go-logging"
	"github.com/prometheus/client_golang/prometheus"
)

/*
Context sets up the items every command of dd_ingest shares: config,
loggers, the Dataverse and NSQ clients, the task log store, the
counters and the ingest pipeline built from all of them.

This object is meant to be used as a singleton, one per process.
*/
type Context struct {
	Config          *models.Config
	MessageLog      *logging.Logger
	JsonLog         *stdlog.Logger
	NSQClient       *network.NSQClient
	DataverseClient *network.DataverseClient
	TaskLogStore    storage.TaskLogStore
	Registry        *prometheus.Registry
	Stats           *stats.IngestStats
	Clock           clock.Clock
	Pipeline        *ingest.Pipeline
	pathToLogFile   string
	pathToJsonLog   string
	succeeded       int64
	failed          int64
}

/*
NewContext creates the logs and directories named in config, opens
the task log store and connects the pipeline to Dataverse. The API key
comes from the environment variable DATAVERSE_API_KEY.

Call Close when done, so the task log store is released.
*/
func NewContext(config *models.Config) (*Context, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if err := config.EnsureDataverseConfig(); err != nil {
		return nil, err
	}
	if _, err := config.EnsureDirectories(); err != nil {
		return nil, err
	}
	messageLog, err := logger.InitLogger(config)
	if err != nil {
		return nil, err
	}
	jsonLog, err := logger.InitJsonLogger(config)
	if err != nil {
		return nil, err
	}
	context := &Context{
		Config:        config,
		MessageLog:    messageLog,
		JsonLog:       jsonLog,
		NSQClient:     network.NewNSQClient(config.NsqdHttpAddress),
		Registry:      prometheus.NewRegistry(),
		Clock:         clock.New(),
		pathToLogFile: logger.LogFilePath(config, logger.MessageLogExt),
		pathToJsonLog: logger.LogFilePath(config, logger.JsonLogExt),
	}
	if context.Stats, err = stats.NewIngestStats(context.Registry); err != nil {
		return nil, fmt.Errorf("Cannot register metrics: %v", err)
	}
	context.DataverseClient, err = network.NewDataverseClient(
		config.DataverseURL,
		config.DataverseCollection,
		os.Getenv("DATAVERSE_API_KEY"),
		config.DataverseTimeout(),
		context.MessageLog,
		context.Stats)
	if err != nil {
		return nil, fmt.Errorf("Cannot initialize Dataverse client: %v", err)
	}
	if context.TaskLogStore, err = storage.NewTaskLogStore(config); err != nil {
		return nil, fmt.Errorf("Cannot open task log store: %v", err)
	}
	settings, err := ingest.SettingsFromConfig(config)
	if err != nil {
		context.TaskLogStore.Close()
		return nil, err
	}
	context.Pipeline = &ingest.Pipeline{
		API:      context.DataverseClient,
		Store:    context.TaskLogStore,
		Settings: settings,
		Clock:    context.Clock,
		Log:      context.MessageLog,
		Stats:    context.Stats,
	}
	return context, nil
}

// Close releases the task log store.
func (context *Context) Close() error {
	if context.TaskLogStore == nil {
		return nil
	}
	return context.TaskLogStore.Close()
}

// Returns the number of deposits that succeeded.
func (context *Context) Succeeded() int64 {
	return atomic.LoadInt64(&context.succeeded)
}

// Returns the number of deposits that failed or were rejected.
func (context *Context) Failed() int64 {
	return atomic.LoadInt64(&context.failed)
}

// Increases the count of successfully processed deposits by one.
func (context *Context) IncrementSucceeded() int64 {
	return atomic.AddInt64(&context.succeeded, 1)
}

// Increases the count of unsuccessfully processed deposits by one.
func (context *Context) IncrementFailed() int64 {
	return atomic.AddInt64(&context.failed, 1)
}

// Returns the path to this process' log file
func (context *Context) PathToLogFile() string {
	return context.pathToLogFile
}

// Returns the path to this process' JSON log file
func (context *Context) PathToJsonLog() string {
	return context.pathToJsonLog
}

// LogResult writes result as one line to the JSON log.
func (context *Context) LogResult(result *models.DepositResult) {
	json, err := result.ToJson()
	if err != nil {
		context.MessageLog.Errorf("Cannot serialize result of deposit %s: %v", result.DepositId, err)
		return
	}
	context.JsonLog.Println(json)
}

// Logs info about the number of deposits that have succeeded and failed.
func (context *Context) LogStats() {
	context.MessageLog.Infof("**STATS** Succeeded: %d, Failed: %d",
		context.Succeeded(), context.Failed())
}
