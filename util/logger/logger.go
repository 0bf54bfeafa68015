package logger

import (
	"fmt"
	"io/ioutil"
	stdlog "log"
	"os"
	"path"
	"path/filepath"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/op/go-logging"
)

// Extensions of the two log files a process writes.
const (
	MessageLogExt = ".log"
	JsonLogExt    = ".json"
)

const messageFormat = "%{time:2006-01-02T15:04:05.000} %{module} [%{level}] %{message}"

// LogFilePath returns the path of the log with the given extension in
// the configured log directory. The file is named after the running
// binary, so import and listen runs of dd_ingest share their logs.
func LogFilePath(config *models.Config, ext string) string {
	return filepath.Join(config.AbsLogDirectory(), path.Base(os.Args[0])+ext)
}

/*
InitLogger returns the message log of the ingest process. It records
every bag, step, batch upload and remote call, at or above
config.LogLevel, in <LogDirectory>/<process name>.log. With
LogToStderr set the same lines also go to stderr, colored and
prefixed with the calling source line, for running import by hand.
*/
func InitLogger(config *models.Config) (*logging.Logger, error) {
	writer, err := openLogFile(config, MessageLogExt)
	if err != nil {
		return nil, err
	}
	processName := path.Base(os.Args[0])
	log := logging.MustGetLogger(processName)
	logging.SetFormatter(logging.MustStringFormatter(messageFormat))

	backends := []logging.Backend{logging.NewLogBackend(writer, "", 0)}
	if config.LogToStderr {
		console := logging.NewLogBackend(os.Stderr, "", stdlog.Lshortfile)
		console.Color = true
		backends = append(backends, console)
	}
	logging.SetBackend(backends...)
	// SetBackend resets module levels.
	logging.SetLevel(config.LogLevel, processName)
	return log, nil
}

/*
InitJsonLogger returns the result log: one DepositResult per line in
<LogDirectory>/<process name>.json, with no prefix, so finished
deposits can be read back line by line.
*/
func InitJsonLogger(config *models.Config) (*stdlog.Logger, error) {
	writer, err := openLogFile(config, JsonLogExt)
	if err != nil {
		return nil, err
	}
	return stdlog.New(writer, "", 0), nil
}

// DiscardLogger returns a message log for module that writes nowhere.
func DiscardLogger(module string) *logging.Logger {
	log := logging.MustGetLogger(module)
	logging.SetBackend(logging.NewLogBackend(ioutil.Discard, "", 0))
	logging.SetLevel(logging.INFO, module)
	return log
}

// DiscardJsonLogger returns a result log that writes nowhere.
func DiscardJsonLogger() *stdlog.Logger {
	return stdlog.New(ioutil.Discard, "", 0)
}

func openLogFile(config *models.Config, ext string) (*os.File, error) {
	if err := os.MkdirAll(config.AbsLogDirectory(), 0755); err != nil {
		return nil, fmt.Errorf("Cannot create log directory: %v", err)
	}
	filename := LogFilePath(config, ext)
	writer, err := os.OpenFile(filename, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("Cannot open log file '%s': %v", filename, err)
	}
	return writer, nil
}
