package models

import (
	"sort"
	"sync"
)

// SynchronizedMap is a string to string map that can be shared
// across go routines. The import job registry uses it to track which
// source paths have an active job.
type SynchronizedMap struct {
	data  map[string]string
	mutex *sync.RWMutex
}

// Creates a new empty SynchronizedMap
func NewSynchronizedMap() *SynchronizedMap {
	return &SynchronizedMap{
		data:  make(map[string]string),
		mutex: &sync.RWMutex{},
	}
}

// Returns true if the key exists in the map.
func (syncMap *SynchronizedMap) HasKey(key string) bool {
	syncMap.mutex.RLock()
	defer syncMap.mutex.RUnlock()
	_, hasKey := syncMap.data[key]
	return hasKey
}

// Adds a key/value pair to the map, replacing any existing value.
func (syncMap *SynchronizedMap) Add(key, value string) {
	syncMap.mutex.Lock()
	syncMap.data[key] = value
	syncMap.mutex.Unlock()
}

// AddIfAbsent adds the key/value pair only if key is not in the map.
// It returns the value now stored under key and whether it was added.
func (syncMap *SynchronizedMap) AddIfAbsent(key, value string) (string, bool) {
	syncMap.mutex.Lock()
	defer syncMap.mutex.Unlock()
	if existing, hasKey := syncMap.data[key]; hasKey {
		return existing, false
	}
	syncMap.data[key] = value
	return value, true
}

// Returns the value of key, or an empty string.
func (syncMap *SynchronizedMap) Get(key string) string {
	syncMap.mutex.RLock()
	defer syncMap.mutex.RUnlock()
	return syncMap.data[key]
}

// DeleteIfValue removes key only while it still maps to value, so a
// finished job never releases a path that a newer job has claimed.
func (syncMap *SynchronizedMap) DeleteIfValue(key, value string) bool {
	syncMap.mutex.Lock()
	defer syncMap.mutex.Unlock()
	if syncMap.data[key] != value {
		return false
	}
	delete(syncMap.data, key)
	return true
}

// Deletes the specified key from the map.
func (syncMap *SynchronizedMap) Delete(key string) {
	syncMap.mutex.Lock()
	delete(syncMap.data, key)
	syncMap.mutex.Unlock()
}

// Returns the keys in the map, sorted.
func (syncMap *SynchronizedMap) Keys() []string {
	syncMap.mutex.RLock()
	keys := make([]string, 0, len(syncMap.data))
	for key := range syncMap.data {
		keys = append(keys, key)
	}
	syncMap.mutex.RUnlock()
	sort.Strings(keys)
	return keys
}

// Len returns the number of entries.
func (syncMap *SynchronizedMap) Len() int {
	syncMap.mutex.RLock()
	defer syncMap.mutex.RUnlock()
	return len(syncMap.data)
}
