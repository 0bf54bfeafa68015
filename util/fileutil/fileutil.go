package fileutil

import (
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// IngestHome returns the absolute path to the directory that relative
// config paths are resolved against. Set it explicitly with the
// environment variable DD_INGEST_HOME. Otherwise it is the current
// working directory.
func IngestHome() (string, error) {
	ingestHome := os.Getenv("DD_INGEST_HOME")
	if ingestHome == "" {
		return os.Getwd()
	}
	return filepath.Abs(ingestHome)
}

// LoadRelativeFile reads the file at the specified path
// relative to DD_INGEST_HOME and returns the contents as a byte array.
func LoadRelativeFile(relativePath string) ([]byte, error) {
	absPath, err := RelativeToAbsPath(relativePath)
	if err != nil {
		return nil, err
	}
	return ioutil.ReadFile(absPath)
}

// Converts a path relative to DD_INGEST_HOME to an absolute path.
// Absolute paths are returned as they are.
func RelativeToAbsPath(relativePath string) (string, error) {
	if filepath.IsAbs(relativePath) {
		return relativePath, nil
	}
	ingestHome, err := IngestHome()
	if err != nil {
		return "", err
	}
	return filepath.Join(ingestHome, relativePath), nil
}

// Returns true if the file at path exists, false if not.
func FileExists(path string) bool {
	_, err := os.Stat(path)
	if err != nil && os.IsNotExist(err) {
		return false
	}
	return true
}

// Expands the tilde in a directory path to the current
// user's home directory. For example, on Linux, ~/data
// would expand to something like /home/josie/data
func ExpandTilde(filePath string) (string, error) {
	if !strings.HasPrefix(filePath, "~") {
		return filePath, nil
	}
	usr, err := user.Current()
	if err != nil {
		return "", err
	}
	homeDir := usr.HomeDir + "/"
	expandedDir := strings.Replace(filePath, "~/", homeDir, 1)
	return expandedDir, nil
}

// FileSize returns the size in bytes of the file at path.
func FileSize(path string) (int64, error) {
	stat, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	if stat.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return stat.Size(), nil
}
