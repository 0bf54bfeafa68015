package ingest

import (
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
)

// DataverseAPI is what the pipeline needs from Dataverse. Datasets are
// addressed by persistent id, files by their numeric database id.
// network.DataverseClient implements it against the native API.
type DataverseAPI interface {
	FileLister

	// CreateDataset creates a draft dataset and returns its
	// persistent id.
	CreateDataset(dataset *models.Dataset) (string, error)
	// UpdateMetadata replaces the metadata of the draft version.
	UpdateMetadata(pid string, version *models.DatasetVersion) error

	// AddFiles uploads the file at localPath. Dataverse unpacks
	// zip files, so a single call can add many files. The directory
	// label, label, description, categories and restriction in meta
	// apply to what is added. Returns the files that were added.
	AddFiles(pid string, localPath string, meta *models.FileMeta) ([]*models.FileMeta, error)
	// ReplaceFile replaces the content of a file, keeping meta.
	ReplaceFile(fileId int64, localPath string, meta *models.FileMeta) (*models.FileMeta, error)
	DeleteFiles(pid string, fileIds []int64) error
	UpdateFileMetadata(fileId int64, meta *models.FileMeta) error
	SetEmbargo(pid string, embargo *models.Embargo, fileIds []int64) error

	AssignRole(pid string, assignment *models.RoleAssignment) error
	// DeleteRoleAssignment returns false if there was no such
	// assignment.
	DeleteRoleAssignment(pid string, assignment *models.RoleAssignment) (bool, error)

	// EditMetadata adds field values, or replaces them when replace
	// is true.
	EditMetadata(pid string, fields []*models.MetadataField, replace bool) error
	DeleteMetadata(pid string, fields []*models.MetadataField) error

	Publish(pid string, versionType string) error
	ReleaseMigrated(pid string, releaseDate time.Time) error
	// GetVersionState returns the state of the latest version, one
	// of DRAFT, RELEASED or DEACCESSIONED.
	GetVersionState(pid string) (string, error)
	// GetLocks returns the types of the locks on the dataset.
	GetLocks(pid string) ([]string, error)
}

// FileLister lists the files in the latest version of a dataset.
type FileLister interface {
	ListFiles(pid string) ([]*models.FileMeta, error)
}
