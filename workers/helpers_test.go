package workers_test

import (
	"bytes"
	stdlog "log"
	"path/filepath"
	"testing"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/context"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/testhelper"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/logger"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/storage"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/testutil"
	"github.com/facebookgo/clock"
)

const datasetYml = `datasetVersion:
  termsOfAccess: N/a
  metadataBlocks:
    citation:
      displayName: Citation Metadata
      fields:
        - typeName: title
          typeClass: primitive
          multiple: false
          value: Field survey
`

// gatedDataverse blocks every CreateDataset call until release is
// closed, and announces the call on entered first. Announcements
// beyond the buffer of entered are dropped.
type gatedDataverse struct {
	*testutil.FakeDataverse
	entered chan string
	release chan struct{}
}

func newGatedDataverse() *gatedDataverse {
	return &gatedDataverse{
		FakeDataverse: testutil.NewFakeDataverse(),
		entered:       make(chan string, 10),
		release:       make(chan struct{}),
	}
}

func (dv *gatedDataverse) CreateDataset(dataset *models.Dataset) (string, error) {
	select {
	case dv.entered <- "CreateDataset":
	default:
	}
	<-dv.release
	return dv.FakeDataverse.CreateDataset(dataset)
}

// waitForEntry fails the test if no gated call shows up in time.
func waitForEntry(t *testing.T, dv *gatedDataverse) {
	select {
	case <-dv.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for a call to CreateDataset")
	}
}

// waitFor polls condition until it holds or the test times out.
func waitFor(t *testing.T, what string, condition func() bool) {
	deadline := time.Now().Add(5 * time.Second)
	for !condition() {
		if time.Now().After(deadline) {
			t.Fatalf("Timed out waiting for %s", what)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// newTestContext returns a context wired to api, with a JSON log that
// writes to the returned buffer.
func newTestContext(t *testing.T, api ingest.DataverseAPI, workers int) (*context.Context, *bytes.Buffer, *clock.Mock) {
	jsonLog := &bytes.Buffer{}
	mockClock := clock.NewMock()
	config := &models.Config{
		ImportWorker: models.WorkerConfig{
			MaxAttempts:    3,
			MessageTimeout: "20m",
			Workers:        workers,
		},
	}
	messageLog := logger.DiscardLogger("workers_test")
	_context := &context.Context{
		Config:     config,
		MessageLog: messageLog,
		JsonLog:    stdlog.New(jsonLog, "", 0),
		Clock:      mockClock,
		Pipeline: &ingest.Pipeline{
			API:   api,
			Store: storage.NewYamlTaskLogStore(),
			Settings: &ingest.Settings{
				TempDirectory:       t.TempDir(),
				MaxFilesPerUpload:   10,
				MaxUploadBytes:      1000000,
				PublishPollInterval: time.Second,
				PublishMaxRetries:   2,
			},
			Clock: mockClock,
			Log:   messageLog,
		},
	}
	return _context, jsonLog, mockClock
}

func newDatasetBag(name string) testhelper.BagFixture {
	return testhelper.BagFixture{
		Name:  name,
		Files: map[string]string{"a.txt": "a"},
		Docs: map[string]string{
			constants.DatasetYml:     datasetYml,
			constants.EditFilesYml:   "addUnrestrictedFiles: [a.txt]\n",
			constants.UpdateStateYml: "publish: major\n",
		},
	}
}

// makeInbox creates a directory holding one deposit per name, each
// with a single bag that creates a dataset.
func makeInbox(t *testing.T, names ...string) string {
	inbox := t.TempDir()
	for _, name := range names {
		testhelper.MakeBag(t, filepath.Join(inbox, name), newDatasetBag("bag-1"))
	}
	return inbox
}
