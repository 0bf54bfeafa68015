package platform

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util"
)

// DefaultMimeType is returned when the content type of a file
// cannot be determined.
const DefaultMimeType = "application/octet-stream"

// IsOneOf returns true if the content type of the file at absPath is
// in mimeTypes.
func IsOneOf(absPath string, mimeTypes []string) (bool, error) {
	mimeType, err := GuessMimeType(absPath)
	if err != nil {
		return false, err
	}
	return util.StringListContains(mimeTypes, mimeType), nil
}
