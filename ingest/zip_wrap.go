package ingest

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/platform"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ziparchive"
	"github.com/satori/go.uuid"
)

// PreparedUpload is a file ready to be sent to Dataverse. When Wrapped
// is set, Path is a temporary zip holding the original file, and
// Cleanup removes it.
type PreparedUpload struct {
	Path    string
	Wrapped bool
}

// Cleanup removes the wrapper zip, if there is one.
func (upload *PreparedUpload) Cleanup() {
	if upload.Wrapped {
		os.Remove(upload.Path)
	}
}

// WrapIfZip prepares the file at localPath for an individual upload.
// Dataverse unpacks uploaded zip files, so a zip file is put, without
// compression, as the only entry entryName of a new zip in tempDir.
// Dataverse then unpacks the wrapper and stores the original as is.
// Other files are uploaded unchanged.
func WrapIfZip(localPath, entryName, tempDir string) (*PreparedUpload, error) {
	isZip, err := platform.IsOneOf(localPath, constants.ZipMimeTypes)
	if err != nil {
		return nil, err
	}
	if !isZip {
		return &PreparedUpload{Path: localPath}, nil
	}
	wrapperPath := filepath.Join(tempDir, fmt.Sprintf("wrapped-%s.zip", uuid.NewV4().String()))
	writer := ziparchive.NewWriter(wrapperPath, zip.Store)
	if err = writer.Open(); err != nil {
		return nil, err
	}
	if _, err = writer.AddToArchive(localPath, entryName); err != nil {
		writer.Close()
		os.Remove(wrapperPath)
		return nil, err
	}
	if err = writer.Close(); err != nil {
		os.Remove(wrapperPath)
		return nil, err
	}
	return &PreparedUpload{Path: wrapperPath, Wrapped: true}, nil
}
