package ingest

import (
	"sort"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
)

type cacheState int

const (
	cacheUninitialized cacheState = iota
	cacheInitialized
)

// FilesInDatasetCache maps the paths of the files in one dataset
// version to their metadata, as Dataverse knows them. Lookups by local
// path go through the auto-rename map first, because Dataverse
// sanitizes some file names on upload. The rename map is kept apart
// from the files map and never changes.
//
// A cache belongs to one bag run and is not safe for concurrent use.
type FilesInDatasetCache struct {
	lister     FileLister
	autoRename map[string]string
	files      map[string]*models.FileMeta
	state      cacheState
}

func NewFilesInDatasetCache(lister FileLister, autoRename map[string]string) *FilesInDatasetCache {
	renames := make(map[string]string, len(autoRename))
	for from, to := range autoRename {
		renames[from] = to
	}
	return &FilesInDatasetCache{
		lister:     lister,
		autoRename: renames,
		files:      make(map[string]*models.FileMeta),
		state:      cacheUninitialized,
	}
}

// LoadFromRemote fills the cache with the files of the dataset. The
// listing is expensive for large datasets, so it happens at most once
// per cache; a second call returns ErrAlreadyInitialized.
func (cache *FilesInDatasetCache) LoadFromRemote(pid string) error {
	if cache.state == cacheInitialized {
		return ErrAlreadyInitialized
	}
	files, err := cache.lister.ListFiles(pid)
	if err != nil {
		return errors.Wrapf(err, "list files of %s", pid)
	}
	for _, meta := range files {
		cache.Put(meta)
	}
	cache.state = cacheInitialized
	return nil
}

func (cache *FilesInDatasetCache) Initialized() bool {
	return cache.state == cacheInitialized
}

// Get returns a copy of the metadata of the file at localPath.
func (cache *FilesInDatasetCache) Get(localPath string) (*models.FileMeta, bool) {
	meta, found := cache.files[cache.resolve(localPath)]
	if !found {
		return nil, false
	}
	return meta.Copy(), true
}

// Put stores meta under its own path. That path is what Dataverse
// reports, so no auto-rename applies.
func (cache *FilesInDatasetCache) Put(meta *models.FileMeta) {
	cache.files[meta.Path().String()] = meta.Copy()
}

// Remove drops the file at localPath, if it is there.
func (cache *FilesInDatasetCache) Remove(localPath string) {
	delete(cache.files, cache.resolve(localPath))
}

// MoveTargetIdentity returns what meta becomes when the file is moved
// to newLocalPath. The cache itself is not changed.
func (cache *FilesInDatasetCache) MoveTargetIdentity(newLocalPath string, meta *models.FileMeta) (*models.FileMeta, error) {
	dvPath, err := models.ToPair(cache.resolve(newLocalPath))
	if err != nil {
		return nil, err
	}
	return meta.WithPath(dvPath), nil
}

// Missing returns the local paths that are not in the cache, in the
// order given.
func (cache *FilesInDatasetCache) Missing(localPaths []string) []string {
	missing := make([]string, 0)
	for _, path := range localPaths {
		if _, found := cache.files[cache.resolve(path)]; !found {
			missing = append(missing, path)
		}
	}
	return missing
}

func (cache *FilesInDatasetCache) Size() int {
	return len(cache.files)
}

// Paths returns the dataset paths of all cached files, sorted.
func (cache *FilesInDatasetCache) Paths() []string {
	paths := make([]string, 0, len(cache.files))
	for path := range cache.files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (cache *FilesInDatasetCache) resolve(localPath string) string {
	if renamed, ok := cache.autoRename[localPath]; ok {
		return renamed
	}
	return localPath
}
