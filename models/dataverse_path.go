package models

import (
	"fmt"
	"strings"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
)

// InvalidPathError is returned when a path cannot be expressed as a
// Dataverse directory label and label.
type InvalidPathError struct {
	Path   string
	Reason string
}

func (e *InvalidPathError) Error() string {
	return fmt.Sprintf("Invalid path '%s': %s", e.Path, e.Reason)
}

// DataversePath is the two-part address Dataverse uses for a file in a
// dataset version: an optional directory label and a label (the file
// name). The label never contains a separator.
type DataversePath struct {
	DirectoryLabel string
	Label          string
}

// ToPair splits path at its last separator into a DataversePath. A path
// without a separator has an empty directory label.
func ToPair(path string) (DataversePath, error) {
	if path == "" {
		return DataversePath{}, &InvalidPathError{Path: path, Reason: "path is empty"}
	}
	index := strings.LastIndex(path, constants.PathSeparator)
	if index < 0 {
		return DataversePath{Label: path}, nil
	}
	dvPath := DataversePath{
		DirectoryLabel: path[:index],
		Label:          path[index+1:],
	}
	if dvPath.Label == "" {
		return DataversePath{}, &InvalidPathError{Path: path, Reason: "path ends with a separator"}
	}
	return dvPath, nil
}

// NewDataversePath builds a DataversePath from its parts. The label must
// be non-empty and must not itself encode a directory.
func NewDataversePath(directoryLabel, label string) (DataversePath, error) {
	if label == "" {
		return DataversePath{}, &InvalidPathError{Path: directoryLabel + constants.PathSeparator, Reason: "label is empty"}
	}
	if strings.Contains(label, constants.PathSeparator) {
		return DataversePath{}, &InvalidPathError{Path: label, Reason: "label contains a separator"}
	}
	return DataversePath{DirectoryLabel: directoryLabel, Label: label}, nil
}

// String returns the single-string form of the path: the directory
// label and the label joined by a separator, or just the label when
// there is no directory label.
func (p DataversePath) String() string {
	if p.DirectoryLabel == "" {
		return p.Label
	}
	return p.DirectoryLabel + constants.PathSeparator + p.Label
}
