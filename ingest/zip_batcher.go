package ingest

import (
	"archive/zip"
	"fmt"
	"os"
	"path/filepath"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ziparchive"
	"github.com/satori/go.uuid"
)

// ZipBatch is one zip file of a batched upload. Files holds the
// payload paths it contains, in candidate order.
type ZipBatch struct {
	Number int
	Path   string
	Files  []string
	Bytes  int64
}

// ZipBatcher packs payload files into zip files of bounded size, which
// are then uploaded one by one.
//
// A batch takes files while it has fewer than MaxFiles and fewer than
// MaxBytes bytes. The byte test uses the total before the next file,
// so a batch can end up larger than MaxBytes, and a file larger than
// MaxBytes still gets a batch of its own.
type ZipBatcher struct {
	TempDir  string
	MaxFiles int
	MaxBytes int64
}

func NewZipBatcher(tempDir string, maxFiles int, maxBytes int64) *ZipBatcher {
	return &ZipBatcher{
		TempDir:  tempDir,
		MaxFiles: maxFiles,
		MaxBytes: maxBytes,
	}
}

// Run packs candidates, which are paths relative to root, and calls
// upload for each batch in order. The zip file of a batch is removed
// after upload returns, whether it succeeded or not. Run stops at the
// first error.
func (batcher *ZipBatcher) Run(root string, candidates []string, upload func(*ZipBatch) error) error {
	if batcher.MaxFiles <= 0 || batcher.MaxBytes <= 0 {
		return fmt.Errorf("ZipBatcher needs MaxFiles and MaxBytes above zero, got %d and %d",
			batcher.MaxFiles, batcher.MaxBytes)
	}
	next := 0
	for number := 1; next < len(candidates); number++ {
		batch, err := batcher.writeBatch(root, candidates, next, number)
		if err != nil {
			return err
		}
		next += len(batch.Files)
		if err = batcher.uploadAndRemove(batch, upload); err != nil {
			return err
		}
	}
	return nil
}

func (batcher *ZipBatcher) uploadAndRemove(batch *ZipBatch, upload func(*ZipBatch) error) error {
	defer os.Remove(batch.Path)
	return upload(batch)
}

func (batcher *ZipBatcher) writeBatch(root string, candidates []string, start, number int) (*ZipBatch, error) {
	batch := &ZipBatch{
		Number: number,
		Path:   filepath.Join(batcher.TempDir, fmt.Sprintf("batch-%s.zip", uuid.NewV4().String())),
		Files:  make([]string, 0),
	}
	writer := ziparchive.NewWriter(batch.Path, zip.Deflate)
	if err := writer.Open(); err != nil {
		return nil, err
	}
	for i := start; i < len(candidates); i++ {
		if len(batch.Files) >= batcher.MaxFiles || batch.Bytes >= batcher.MaxBytes {
			break
		}
		localPath := filepath.Join(root, filepath.FromSlash(candidates[i]))
		size, err := writer.AddToArchive(localPath, candidates[i])
		if err != nil {
			writer.Close()
			os.Remove(batch.Path)
			return nil, err
		}
		batch.Files = append(batch.Files, candidates[i])
		batch.Bytes += size
	}
	if err := writer.Close(); err != nil {
		os.Remove(batch.Path)
		return nil, err
	}
	return batch, nil
}
