package ziparchive

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
)

type Writer struct {
	PathToZipFile string
	// Method is zip.Deflate or zip.Store. It applies to every entry.
	Method    uint16
	file      *os.File
	zipWriter *zip.Writer
}

func NewWriter(pathToZipFile string, method uint16) *Writer {
	return &Writer{
		PathToZipFile: pathToZipFile,
		Method:        method,
	}
}

func (writer *Writer) Open() error {
	zipFile, err := os.Create(writer.PathToZipFile)
	if err != nil {
		return fmt.Errorf("Error creating zip file: %v", err)
	}
	writer.file = zipFile
	writer.zipWriter = zip.NewWriter(zipFile)
	return nil
}

// Close writes the zip directory and closes the file. It is safe to
// call more than once.
func (writer *Writer) Close() error {
	if writer.zipWriter == nil {
		return nil
	}
	err := writer.zipWriter.Close()
	closeErr := writer.file.Close()
	writer.zipWriter = nil
	writer.file = nil
	if err != nil {
		return err
	}
	return closeErr
}

// Adds a file to the zip archive under pathWithinArchive, which must
// use forward slashes. Returns the number of bytes read from the file.
func (writer *Writer) AddToArchive(filePath, pathWithinArchive string) (int64, error) {
	if writer.zipWriter == nil {
		return 0, fmt.Errorf("Underlying ZipWriter is nil. Has it been opened?")
	}
	finfo, err := os.Stat(filePath)
	if err != nil {
		return 0, fmt.Errorf("Cannot add '%s' to archive: %v", filePath, err)
	}
	if !finfo.Mode().IsRegular() {
		return 0, fmt.Errorf("Cannot add '%s' to archive: not a regular file", filePath)
	}
	header, err := zip.FileInfoHeader(finfo)
	if err != nil {
		return 0, err
	}
	header.Name = pathWithinArchive
	header.Method = writer.Method

	entryWriter, err := writer.zipWriter.CreateHeader(header)
	if err != nil {
		return 0, err
	}

	// Open the file whose data we're going to add.
	file, err := os.Open(filePath)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	bytesWritten, err := io.Copy(entryWriter, file)
	if err != nil {
		return bytesWritten, fmt.Errorf("Error copying %s into zip archive: %v",
			filePath, err)
	}
	if bytesWritten != finfo.Size() {
		return bytesWritten, fmt.Errorf("AddToArchive() copied only %d of %d bytes for file %s",
			bytesWritten, finfo.Size(), filePath)
	}
	return bytesWritten, nil
}
