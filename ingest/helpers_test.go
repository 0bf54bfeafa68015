package ingest_test

import (
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/testhelper"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/logger"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/testutil"
	"github.com/stretchr/testify/require"
)

type checkpointCounter struct {
	count int
}

func (counter *checkpointCounter) save() error {
	counter.count++
	return nil
}

func newEnv(dv *testutil.FakeDataverse) (*ingest.StepEnv, *checkpointCounter) {
	counter := &checkpointCounter{}
	env := &ingest.StepEnv{
		API:        dv,
		Log:        logger.DiscardLogger("ingest_test"),
		Checkpoint: counter.save,
	}
	return env, counter
}

// readBag writes fixture to a temp dir and parses it.
func readBag(t *testing.T, fixture testhelper.BagFixture) *models.Bag {
	if fixture.Name == "" {
		fixture.Name = "bag-1"
	}
	bag, err := models.ReadBag(testhelper.MakeBag(t, t.TempDir(), fixture))
	require.Nil(t, err)
	return bag
}

// newEditor returns a files editor for bag whose cache is loaded from
// the dataset pid.
func newEditor(t *testing.T, dv *testutil.FakeDataverse, bag *models.Bag, tasks *models.EditFilesLog, maxFiles int, maxBytes int64) (*ingest.FilesEditor, *ingest.FilesInDatasetCache, *checkpointCounter) {
	env, counter := newEnv(dv)
	cache := ingest.NewFilesInDatasetCache(dv, bag.EditFilesOrEmpty().AutoRenameMap())
	batcher := ingest.NewZipBatcher(t.TempDir(), maxFiles, maxBytes)
	return ingest.NewFilesEditor(env, bag, cache, batcher, tasks), cache, counter
}
