package ingest

import (
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/stats"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/facebookgo/clock"
	"github.com/op/go-logging"
)

// Settings are the limits and timings of one pipeline.
type Settings struct {
	TempDirectory       string
	MaxFilesPerUpload   int
	MaxUploadBytes      int64
	PublishPollInterval time.Duration
	PublishMaxRetries   int
}

// SettingsFromConfig takes the pipeline settings from config.
func SettingsFromConfig(config *models.Config) (*Settings, error) {
	maxBytes, err := config.MaxUploadBytes()
	if err != nil {
		return nil, err
	}
	return &Settings{
		TempDirectory:       config.TempDirectory,
		MaxFilesPerUpload:   config.MaxFilesPerUpload,
		MaxUploadBytes:      maxBytes,
		PublishPollInterval: config.PublishPollInterval(),
		PublishMaxRetries:   config.PublishMaxRetries,
	}, nil
}

// Pipeline holds what all bag runs of a process share. It is safe to
// use from several goroutines as long as API and Store are; every bag
// run gets its own cache and task log.
type Pipeline struct {
	API      DataverseAPI
	Store    storage.TaskLogStore
	Settings *Settings
	Clock    clock.Clock
	Log      *logging.Logger
	Stats    *stats.IngestStats
}

// BagProcessor runs all steps for one bag, in order: dataset version,
// permissions, files, metadata and lifecycle action. The task log is
// loaded first and saved after every unit of remote work, so a run
// after a crash continues where the last one stopped.
type BagProcessor struct {
	pipeline  *Pipeline
	depositId string
	bag       *models.Bag
}

func NewBagProcessor(pipeline *Pipeline, depositId string, bag *models.Bag) *BagProcessor {
	return &BagProcessor{
		pipeline:  pipeline,
		depositId: depositId,
		bag:       bag,
	}
}

// Run applies the bag to target and returns the persistent id of the
// dataset. On error, the returned id is the one known so far, which
// may be empty.
func (processor *BagProcessor) Run(target DatasetTarget) (string, error) {
	pipeline := processor.pipeline
	taskLog, err := pipeline.Store.Load(processor.depositId, processor.bag.Path)
	if err != nil {
		return target.PersistentId, err
	}
	if taskLog.Completed {
		pipeline.Log.Infof("Bag %s of deposit %s was already processed", processor.bag.Name, processor.depositId)
		if taskLog.CreateDataset.PersistentId != "" {
			return taskLog.CreateDataset.PersistentId, nil
		}
		return target.PersistentId, nil
	}
	pipeline.Log.Infof("Processing bag %s of deposit %s", processor.bag.Name, processor.depositId)
	env := &StepEnv{
		API:   pipeline.API,
		Log:   pipeline.Log,
		Stats: pipeline.Stats,
		Checkpoint: func() error {
			return pipeline.Store.Save(taskLog)
		},
	}

	pid, err := NewDatasetVersionStep(env, processor.bag.Dataset, &taskLog.CreateDataset).Run(target)
	if err != nil {
		return taskLog.CreateDataset.PersistentId, err
	}
	if err = NewPermissionsStep(env, processor.bag.EditPermissions, &taskLog.EditPermissions).Run(pid); err != nil {
		return pid, err
	}

	settings := pipeline.Settings
	cache := NewFilesInDatasetCache(pipeline.API, processor.bag.EditFilesOrEmpty().AutoRenameMap())
	batcher := NewZipBatcher(settings.TempDirectory, settings.MaxFilesPerUpload, settings.MaxUploadBytes)
	if err = NewFilesEditor(env, processor.bag, cache, batcher, &taskLog.EditFiles).EditFiles(pid); err != nil {
		return pid, err
	}

	if err = NewMetadataStep(env, processor.bag.EditMetadata, &taskLog.EditMetadata).Run(pid); err != nil {
		return pid, err
	}
	publish := NewPublishStep(env, processor.bag.LifecycleAction, &taskLog.UpdateState,
		pipeline.Clock, settings.PublishPollInterval, settings.PublishMaxRetries)
	if err = publish.Run(pid); err != nil {
		return pid, err
	}

	taskLog.Completed = true
	if err = env.Checkpoint(); err != nil {
		return pid, err
	}
	pipeline.Log.Infof("Finished bag %s of deposit %s: %s", processor.bag.Name, processor.depositId, pid)
	return pid, nil
}
