package models_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/stretchr/testify/assert"
)

func TestSynchronizedMapBasics(t *testing.T) {
	syncMap := models.NewSynchronizedMap()
	assert.False(t, syncMap.HasKey("/inbox/a"))
	assert.Equal(t, "", syncMap.Get("/inbox/a"))

	syncMap.Add("/inbox/b", "job-2")
	syncMap.Add("/inbox/a", "job-1")
	assert.True(t, syncMap.HasKey("/inbox/a"))
	assert.Equal(t, "job-1", syncMap.Get("/inbox/a"))
	assert.Equal(t, []string{"/inbox/a", "/inbox/b"}, syncMap.Keys())
	assert.Equal(t, 2, syncMap.Len())

	syncMap.Delete("/inbox/b")
	assert.False(t, syncMap.HasKey("/inbox/b"))
	assert.Equal(t, 1, syncMap.Len())
}

func TestSynchronizedMapAddIfAbsent(t *testing.T) {
	syncMap := models.NewSynchronizedMap()
	value, added := syncMap.AddIfAbsent("/inbox/a", "job-1")
	assert.True(t, added)
	assert.Equal(t, "job-1", value)

	value, added = syncMap.AddIfAbsent("/inbox/a", "job-2")
	assert.False(t, added)
	assert.Equal(t, "job-1", value)
}

func TestSynchronizedMapDeleteIfValue(t *testing.T) {
	syncMap := models.NewSynchronizedMap()
	syncMap.Add("/inbox/a", "job-2")
	assert.False(t, syncMap.DeleteIfValue("/inbox/a", "job-1"))
	assert.True(t, syncMap.HasKey("/inbox/a"))
	assert.True(t, syncMap.DeleteIfValue("/inbox/a", "job-2"))
	assert.False(t, syncMap.HasKey("/inbox/a"))
}

func TestSynchronizedMapConcurrentClaims(t *testing.T) {
	syncMap := models.NewSynchronizedMap()
	var wg sync.WaitGroup
	var mutex sync.Mutex
	winners := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, added := syncMap.AddIfAbsent("/inbox/a", fmt.Sprintf("job-%d", i)); added {
				mutex.Lock()
				winners++
				mutex.Unlock()
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
	assert.Equal(t, 1, syncMap.Len())
}
