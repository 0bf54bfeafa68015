package logger_test

import (
	"io/ioutil"
	"os"
	"path"
	"path/filepath"
	"strings"
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/fileutil"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/logger"
	"github.com/op/go-logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Get a barebones config object with just enough info to
// set up logging. Log to a temp dir.
func getLoggingTestConfig(t *testing.T) *models.Config {
	return &models.Config{
		LogDirectory: t.TempDir(),
		LogLevel:     logging.ERROR,
		LogToStderr:  false,
	}
}

func TestInitLogger(t *testing.T) {
	config := getLoggingTestConfig(t)
	log, err := logger.InitLogger(config)
	require.Nil(t, err)
	log.Info("Below the configured level")
	log.Error("Test Message")
	logFile := logger.LogFilePath(config, logger.MessageLogExt)
	require.True(t, fileutil.FileExists(logFile), "Log file does not exist at %s", logFile)
	data, err := ioutil.ReadFile(logFile)
	require.Nil(t, err)
	assert.True(t, strings.HasSuffix(string(data), "Test Message\n"))
	assert.NotContains(t, string(data), "Below the configured level")
}

func TestInitJsonLogger(t *testing.T) {
	config := getLoggingTestConfig(t)
	log, err := logger.InitJsonLogger(config)
	require.Nil(t, err)
	log.Println("{a:100}")
	logFile := logger.LogFilePath(config, logger.JsonLogExt)
	require.True(t, fileutil.FileExists(logFile), "Log file does not exist at %s", logFile)
	data, err := ioutil.ReadFile(logFile)
	require.Nil(t, err)
	assert.Equal(t, "{a:100}\n", string(data))
}

func TestInitLogger_IncludesModuleAndLevel(t *testing.T) {
	config := getLoggingTestConfig(t)
	log, err := logger.InitLogger(config)
	require.Nil(t, err)
	log.Error("Bag failed")
	data, err := ioutil.ReadFile(logger.LogFilePath(config, logger.MessageLogExt))
	require.Nil(t, err)
	assert.Contains(t, string(data), path.Base(os.Args[0])+" [ERROR] Bag failed")
}

func TestInitLogger_BadLogDirectory(t *testing.T) {
	config := getLoggingTestConfig(t)
	blocker := filepath.Join(config.LogDirectory, "not-a-dir")
	require.Nil(t, ioutil.WriteFile(blocker, []byte("x"), 0644))
	config.LogDirectory = blocker
	_, err := logger.InitLogger(config)
	require.NotNil(t, err)
	_, err = logger.InitJsonLogger(config)
	assert.NotNil(t, err)
}

func TestLogFilePath(t *testing.T) {
	config := getLoggingTestConfig(t)
	assert.Equal(t, filepath.Join(config.AbsLogDirectory(), path.Base(os.Args[0])+".json"),
		logger.LogFilePath(config, logger.JsonLogExt))
}

func TestDiscardLogger(t *testing.T) {
	log := logger.DiscardLogger("logger_test")
	require.NotNil(t, log)
	log.Info("This should not cause an error!")
	logger.DiscardJsonLogger().Println("{}")
}
