package testutil

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ziparchive"
	"github.com/icrowley/fake"
)

// FakeDataset is the state FakeDataverse keeps for one dataset.
type FakeDataset struct {
	PersistentId    string
	Version         *models.DatasetVersion
	Files           map[int64]*models.FileMeta
	RoleAssignments []*models.RoleAssignment
	Embargoes       map[int64]string
	AddedFields     []*models.MetadataField
	ReplacedFields  []*models.MetadataField
	DeletedFields   []*models.MetadataField
	State           string
	ReleaseDate     string
}

// FakeCall is one recorded call. Count is the number of files or ids
// involved, where that applies.
type FakeCall struct {
	Op    string
	Pid   string
	Count int
}

// FakeDataverse is an in-memory Dataverse for unit tests. It records
// every call, unpacks uploaded zip files the way Dataverse does, and
// can be told to fail a given call.
type FakeDataverse struct {
	// AutoRename maps an uploaded path to the path Dataverse gives
	// the file, e.g. for characters it does not allow.
	AutoRename map[string]string
	// StateAfterPublish is what GetVersionState reports after a
	// publish. Defaults to RELEASED.
	StateAfterPublish string
	// Locks are reported by GetLocks.
	Locks []string

	Datasets map[string]*FakeDataset
	Calls    []FakeCall

	mutex      sync.Mutex
	nextFileId int64
	failures   map[string]map[int]error
	callCounts map[string]int
}

func NewFakeDataverse() *FakeDataverse {
	return &FakeDataverse{
		AutoRename:        make(map[string]string),
		StateAfterPublish: constants.StateReleased,
		Locks:             make([]string, 0),
		Datasets:          make(map[string]*FakeDataset),
		Calls:             make([]FakeCall, 0),
		nextFileId:        100,
		failures:          make(map[string]map[int]error),
		callCounts:        make(map[string]int),
	}
}

// FailOn makes call number n (starting at 1) of op return err.
func (dv *FakeDataverse) FailOn(op string, n int, err error) {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	if dv.failures[op] == nil {
		dv.failures[op] = make(map[int]error)
	}
	dv.failures[op][n] = err
}

// CallCount returns how many times op was called.
func (dv *FakeDataverse) CallCount(op string) int {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	return dv.callCounts[op]
}

// CallsTo returns the recorded calls of op, in call order.
func (dv *FakeDataverse) CallsTo(op string) []FakeCall {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	calls := make([]FakeCall, 0)
	for _, call := range dv.Calls {
		if call.Op == op {
			calls = append(calls, call)
		}
	}
	return calls
}

// AddDataset creates a draft dataset holding files at the given paths,
// and returns its persistent id.
func (dv *FakeDataverse) AddDataset(paths ...string) string {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	dataset := dv.newDataset(MakeDatasetVersion())
	for _, path := range paths {
		dvPath, err := models.ToPair(path)
		if err != nil {
			panic(err)
		}
		dv.storeFile(dataset, &models.FileMeta{Label: dvPath.Label, DirectoryLabel: dvPath.DirectoryLabel})
	}
	return dataset.PersistentId
}

// FilePaths returns the sorted paths of the files in the dataset.
func (dv *FakeDataverse) FilePaths(pid string) []string {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	paths := make([]string, 0)
	if dataset, ok := dv.Datasets[pid]; ok {
		for _, meta := range dataset.Files {
			paths = append(paths, meta.Path().String())
		}
	}
	sort.Strings(paths)
	return paths
}

// FileByPath returns a copy of the file at path in the dataset.
func (dv *FakeDataverse) FileByPath(pid, path string) *models.FileMeta {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	if dataset, ok := dv.Datasets[pid]; ok {
		for _, meta := range dataset.Files {
			if meta.Path().String() == path {
				return meta.Copy()
			}
		}
	}
	return nil
}

// Dataset returns the dataset with the given pid, or nil.
func (dv *FakeDataverse) Dataset(pid string) *FakeDataset {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	return dv.Datasets[pid]
}

func (dv *FakeDataverse) ListFiles(pid string) ([]*models.FileMeta, error) {
	dataset, err := dv.begin("ListFiles", pid, 0)
	if err != nil {
		return nil, err
	}
	defer dv.mutex.Unlock()
	ids := make([]int64, 0, len(dataset.Files))
	for id := range dataset.Files {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	files := make([]*models.FileMeta, len(ids))
	for i, id := range ids {
		files[i] = dataset.Files[id].Copy()
	}
	return files, nil
}

func (dv *FakeDataverse) CreateDataset(dataset *models.Dataset) (string, error) {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	if err := dv.record("CreateDataset", "", 0); err != nil {
		return "", err
	}
	return dv.newDataset(dataset.DatasetVersion).PersistentId, nil
}

func (dv *FakeDataverse) UpdateMetadata(pid string, version *models.DatasetVersion) error {
	dataset, err := dv.begin("UpdateMetadata", pid, 0)
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	dataset.Version = version
	dataset.State = constants.StateDraft
	return nil
}

func (dv *FakeDataverse) AddFiles(pid string, localPath string, meta *models.FileMeta) ([]*models.FileMeta, error) {
	entries, zipErr := ziparchive.List(localPath)
	count := 1
	if zipErr == nil {
		count = len(entries)
	}
	dataset, err := dv.begin("AddFiles", pid, count)
	if err != nil {
		return nil, err
	}
	defer dv.mutex.Unlock()
	added := make([]*models.FileMeta, 0, count)
	if zipErr != nil {
		added = append(added, dv.storeFile(dataset, dv.renamed(meta.Copy())))
		return added, nil
	}
	for _, entry := range entries {
		dvPath, err := models.ToPair(entry.Name)
		if err != nil {
			return nil, err
		}
		entryMeta := meta.WithPath(dvPath)
		added = append(added, dv.storeFile(dataset, dv.renamed(entryMeta)))
	}
	return added, nil
}

func (dv *FakeDataverse) ReplaceFile(fileId int64, localPath string, meta *models.FileMeta) (*models.FileMeta, error) {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	if err := dv.record("ReplaceFile", "", 1); err != nil {
		return nil, err
	}
	for _, dataset := range dv.Datasets {
		if _, ok := dataset.Files[fileId]; ok {
			delete(dataset.Files, fileId)
			return dv.storeFile(dataset, meta.Copy()), nil
		}
	}
	return nil, fmt.Errorf("No file with id %d", fileId)
}

func (dv *FakeDataverse) DeleteFiles(pid string, fileIds []int64) error {
	dataset, err := dv.begin("DeleteFiles", pid, len(fileIds))
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	for _, id := range fileIds {
		if _, ok := dataset.Files[id]; !ok {
			return fmt.Errorf("No file with id %d in %s", id, pid)
		}
	}
	for _, id := range fileIds {
		delete(dataset.Files, id)
	}
	return nil
}

func (dv *FakeDataverse) UpdateFileMetadata(fileId int64, meta *models.FileMeta) error {
	dv.mutex.Lock()
	defer dv.mutex.Unlock()
	if err := dv.record("UpdateFileMetadata", "", 1); err != nil {
		return err
	}
	for _, dataset := range dv.Datasets {
		if _, ok := dataset.Files[fileId]; ok {
			updated := meta.Copy()
			updated.Id = fileId
			dataset.Files[fileId] = updated
			return nil
		}
	}
	return fmt.Errorf("No file with id %d", fileId)
}

func (dv *FakeDataverse) SetEmbargo(pid string, embargo *models.Embargo, fileIds []int64) error {
	dataset, err := dv.begin("SetEmbargo", pid, len(fileIds))
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	for _, id := range fileIds {
		dataset.Embargoes[id] = embargo.DateAvailable
	}
	return nil
}

func (dv *FakeDataverse) AssignRole(pid string, assignment *models.RoleAssignment) error {
	dataset, err := dv.begin("AssignRole", pid, 1)
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	copied := *assignment
	dataset.RoleAssignments = append(dataset.RoleAssignments, &copied)
	return nil
}

func (dv *FakeDataverse) DeleteRoleAssignment(pid string, assignment *models.RoleAssignment) (bool, error) {
	dataset, err := dv.begin("DeleteRoleAssignment", pid, 1)
	if err != nil {
		return false, err
	}
	defer dv.mutex.Unlock()
	for i, existing := range dataset.RoleAssignments {
		if existing.Assignee == assignment.Assignee && existing.Role == assignment.Role {
			dataset.RoleAssignments = append(dataset.RoleAssignments[:i], dataset.RoleAssignments[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (dv *FakeDataverse) EditMetadata(pid string, fields []*models.MetadataField, replace bool) error {
	dataset, err := dv.begin("EditMetadata", pid, len(fields))
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	if replace {
		dataset.ReplacedFields = append(dataset.ReplacedFields, fields...)
	} else {
		dataset.AddedFields = append(dataset.AddedFields, fields...)
	}
	return nil
}

func (dv *FakeDataverse) DeleteMetadata(pid string, fields []*models.MetadataField) error {
	dataset, err := dv.begin("DeleteMetadata", pid, len(fields))
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	dataset.DeletedFields = append(dataset.DeletedFields, fields...)
	return nil
}

func (dv *FakeDataverse) Publish(pid string, versionType string) error {
	dataset, err := dv.begin("Publish", pid, 0)
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	dataset.State = dv.StateAfterPublish
	return nil
}

func (dv *FakeDataverse) ReleaseMigrated(pid string, releaseDate time.Time) error {
	dataset, err := dv.begin("ReleaseMigrated", pid, 0)
	if err != nil {
		return err
	}
	defer dv.mutex.Unlock()
	dataset.State = constants.StateReleased
	dataset.ReleaseDate = releaseDate.Format(constants.DateFormat)
	return nil
}

func (dv *FakeDataverse) GetVersionState(pid string) (string, error) {
	dataset, err := dv.begin("GetVersionState", pid, 0)
	if err != nil {
		return "", err
	}
	defer dv.mutex.Unlock()
	return dataset.State, nil
}

func (dv *FakeDataverse) GetLocks(pid string) ([]string, error) {
	_, err := dv.begin("GetLocks", pid, 0)
	if err != nil {
		return nil, err
	}
	defer dv.mutex.Unlock()
	locks := make([]string, len(dv.Locks))
	copy(locks, dv.Locks)
	return locks, nil
}

// begin locks the fake, records the call and looks up the dataset. On
// success the caller must unlock.
func (dv *FakeDataverse) begin(op, pid string, count int) (*FakeDataset, error) {
	dv.mutex.Lock()
	if err := dv.record(op, pid, count); err != nil {
		dv.mutex.Unlock()
		return nil, err
	}
	dataset, ok := dv.Datasets[pid]
	if !ok {
		dv.mutex.Unlock()
		return nil, fmt.Errorf("Dataset %s not found", pid)
	}
	return dataset, nil
}

func (dv *FakeDataverse) record(op, pid string, count int) error {
	dv.callCounts[op]++
	dv.Calls = append(dv.Calls, FakeCall{Op: op, Pid: pid, Count: count})
	if err, ok := dv.failures[op][dv.callCounts[op]]; ok {
		return err
	}
	return nil
}

func (dv *FakeDataverse) newDataset(version *models.DatasetVersion) *FakeDataset {
	pid := "doi:10.5072/FK2/" + strings.ToUpper(fake.CharactersN(6))
	dataset := &FakeDataset{
		PersistentId:    pid,
		Version:         version,
		Files:           make(map[int64]*models.FileMeta),
		RoleAssignments: make([]*models.RoleAssignment, 0),
		Embargoes:       make(map[int64]string),
		State:           constants.StateDraft,
	}
	dv.Datasets[pid] = dataset
	return dataset
}

func (dv *FakeDataverse) renamed(meta *models.FileMeta) *models.FileMeta {
	renamedPath, ok := dv.AutoRename[meta.Path().String()]
	if !ok {
		return meta
	}
	dvPath, err := models.ToPair(renamedPath)
	if err != nil {
		return meta
	}
	return meta.WithPath(dvPath)
}

func (dv *FakeDataverse) storeFile(dataset *FakeDataset, meta *models.FileMeta) *models.FileMeta {
	dv.nextFileId++
	stored := meta.Copy()
	stored.Id = dv.nextFileId
	dataset.Files[stored.Id] = stored
	return stored.Copy()
}
