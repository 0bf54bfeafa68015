package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/boltdb/bolt"
)

const TASK_LOG_BUCKET = "tasklogs"

// BoltTaskLogStore keeps the task logs of all bags in one bolt
// database, which is a single-file key-value store. Each log is stored
// as JSON under the key <depositId>/<bagName>. Bolt syncs the file at
// the end of every update transaction.
type BoltTaskLogStore struct {
	db       *bolt.DB
	filePath string
}

// NewBoltTaskLogStore opens a bolt database, creating the DB file if it
// doesn't already exist. Only one process can have the file open; a
// second one gives up after a few seconds.
func NewBoltTaskLogStore(filePath string) (*BoltTaskLogStore, error) {
	if filePath == "" {
		return nil, fmt.Errorf("Path to the task log database is empty")
	}
	db, err := bolt.Open(filePath, 0644, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("Cannot open task log database %s: %v", filePath, err)
	}
	store := &BoltTaskLogStore{
		db:       db,
		filePath: filePath,
	}
	if err = store.initBuckets(); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

func (store *BoltTaskLogStore) initBuckets() error {
	return store.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(TASK_LOG_BUCKET))
		if err != nil {
			return fmt.Errorf("Error creating task log bucket: %s", err)
		}
		return nil
	})
}

// FilePath returns the path to the bolt DB file.
func (store *BoltTaskLogStore) FilePath() string {
	return store.filePath
}

// Close closes the bolt database.
func (store *BoltTaskLogStore) Close() error {
	return store.db.Close()
}

func (store *BoltTaskLogStore) Load(depositId, bagPath string) (*models.TaskLog, error) {
	taskLog := models.NewTaskLog(depositId, bagPath)
	stored, err := store.Get(taskLog.Key())
	if err != nil || stored == nil {
		return taskLog, err
	}
	stored.BagPath = bagPath
	return stored, nil
}

// Save writes the task log in its own update transaction.
func (store *BoltTaskLogStore) Save(taskLog *models.TaskLog) error {
	taskLog.Touch()
	data, err := json.Marshal(taskLog)
	if err != nil {
		return err
	}
	return store.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(TASK_LOG_BUCKET))
		return bucket.Put([]byte(taskLog.Key()), data)
	})
}

// Get returns the task log stored under key. If key is not found,
// this returns nil and no error.
func (store *BoltTaskLogStore) Get(key string) (*models.TaskLog, error) {
	var taskLog *models.TaskLog
	err := store.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte(TASK_LOG_BUCKET))
		value := bucket.Get([]byte(key))
		if len(value) == 0 {
			return nil
		}
		taskLog = &models.TaskLog{}
		return json.Unmarshal(value, taskLog)
	})
	if err != nil {
		return nil, fmt.Errorf("Cannot read task log %s: %v", key, err)
	}
	return taskLog, nil
}

// Keys returns a list of all keys in the database, in byte order.
func (store *BoltTaskLogStore) Keys() []string {
	keys := make([]string, 0)
	store.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(TASK_LOG_BUCKET))
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, string(k))
		}
		return nil
	})
	return keys
}
