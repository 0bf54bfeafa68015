package ingest

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/stats"
	"github.com/op/go-logging"
)

// StepEnv is what every step of one bag run shares: the Dataverse API,
// the logger, the counters and a function that durably saves the task
// log of the bag.
type StepEnv struct {
	API        DataverseAPI
	Log        *logging.Logger
	Stats      *stats.IngestStats
	Checkpoint func() error
}

func (env *StepEnv) skip(step string) {
	env.Log.Infof("Skipping %s: already completed", step)
	env.Stats.StepSkipped(step)
}
