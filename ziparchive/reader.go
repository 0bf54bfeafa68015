package ziparchive

import (
	"archive/zip"
	"fmt"
)

// Entry describes one file in a zip archive.
type Entry struct {
	Name   string
	Size   int64
	Method uint16
}

// List returns the file entries of the zip archive at pathToZipFile,
// in archive order. Directory entries are skipped.
func List(pathToZipFile string) ([]Entry, error) {
	reader, err := zip.OpenReader(pathToZipFile)
	if err != nil {
		return nil, fmt.Errorf("Cannot open zip file %s: %v", pathToZipFile, err)
	}
	defer reader.Close()
	entries := make([]Entry, 0, len(reader.File))
	for _, file := range reader.File {
		if file.FileInfo().IsDir() {
			continue
		}
		entries = append(entries, Entry{
			Name:   file.Name,
			Size:   int64(file.UncompressedSize64),
			Method: file.Method,
		})
	}
	return entries, nil
}
