//go:build nomagic
// +build nomagic

// Content sniffing for builds without libmagic. This recognizes fewer
// types, but it does recognize zip files, which is what the ingest
// pipeline needs to know.
package platform

import (
	"io"
	"mime"
	"net/http"
	"os"
)

var MagicMimeEnabled = false

func GuessMimeType(absPath string) (mimeType string, err error) {
	file, err := os.Open(absPath)
	if err != nil {
		return "", err
	}
	defer file.Close()
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}
	mediaType, _, err := mime.ParseMediaType(http.DetectContentType(buffer[:n]))
	if err != nil {
		return DefaultMimeType, nil
	}
	return mediaType, nil
}
