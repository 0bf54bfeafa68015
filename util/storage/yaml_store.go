package storage

import (
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"gopkg.in/yaml.v2"
)

// YamlTaskLogStore keeps the task log of each bag in _tasks.yml in
// the root of the bag. Each save writes a temp file, syncs it and
// renames it over the old one, so a crash never leaves half a log.
type YamlTaskLogStore struct{}

func NewYamlTaskLogStore() *YamlTaskLogStore {
	return &YamlTaskLogStore{}
}

// TaskFile returns the path of the task log of the bag at bagPath.
func TaskFile(bagPath string) string {
	return filepath.Join(bagPath, constants.TasksYml)
}

func (store *YamlTaskLogStore) Load(depositId, bagPath string) (*models.TaskLog, error) {
	data, err := ioutil.ReadFile(TaskFile(bagPath))
	if os.IsNotExist(err) {
		return models.NewTaskLog(depositId, bagPath), nil
	}
	if err != nil {
		return nil, err
	}
	taskLog := &models.TaskLog{}
	if err = yaml.Unmarshal(data, taskLog); err != nil {
		return nil, err
	}
	taskLog.BagPath = bagPath
	return taskLog, nil
}

func (store *YamlTaskLogStore) Save(taskLog *models.TaskLog) error {
	taskLog.Touch()
	data, err := yaml.Marshal(taskLog)
	if err != nil {
		return err
	}
	target := TaskFile(taskLog.BagPath)
	tempFile, err := ioutil.TempFile(taskLog.BagPath, constants.TasksYml+".")
	if err != nil {
		return err
	}
	defer os.Remove(tempFile.Name())
	if _, err = tempFile.Write(data); err != nil {
		tempFile.Close()
		return err
	}
	if err = tempFile.Sync(); err != nil {
		tempFile.Close()
		return err
	}
	if err = tempFile.Close(); err != nil {
		return err
	}
	return os.Rename(tempFile.Name(), target)
}

func (store *YamlTaskLogStore) Close() error {
	return nil
}
