package ingest

import (
	"fmt"
	"strings"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/fileutil"
	"github.com/docker/go-units"
	"github.com/pkg/errors"
)

// FilesEditor applies edit-files.yml to a dataset. The sub-steps run
// in a fixed order: delete, replace, add restricted and unrestricted
// files in batches, add files individually, move, update metadata and
// embargo. Each is skipped when the task log marks it completed, and
// list-based sub-steps resume at the first item not yet applied.
type FilesEditor struct {
	env       *StepEnv
	bag       *models.Bag
	editFiles *models.EditFiles
	cache     *FilesInDatasetCache
	batcher   *ZipBatcher
	tempDir   string
	tasks     *models.EditFilesLog
}

func NewFilesEditor(env *StepEnv, bag *models.Bag, cache *FilesInDatasetCache, batcher *ZipBatcher, tasks *models.EditFilesLog) *FilesEditor {
	return &FilesEditor{
		env:       env,
		bag:       bag,
		editFiles: bag.EditFilesOrEmpty(),
		cache:     cache,
		batcher:   batcher,
		tempDir:   batcher.TempDir,
		tasks:     tasks,
	}
}

func (editor *FilesEditor) EditFiles(pid string) error {
	if editor.tasks.Completed {
		editor.env.skip("editFiles")
		return nil
	}
	if !editor.cache.Initialized() {
		if err := editor.cache.LoadFromRemote(pid); err != nil {
			return err
		}
		editor.env.Log.Debugf("%s has %d files", pid, editor.cache.Size())
	}
	subSteps := []func(string) error{
		editor.deleteFiles,
		editor.replaceFiles,
		editor.addRestrictedFiles,
		editor.addUnrestrictedFiles,
		editor.addRestrictedIndividually,
		editor.addUnrestrictedIndividually,
		editor.moveFiles,
		editor.updateFileMetas,
		editor.addEmbargoes,
	}
	for _, subStep := range subSteps {
		if err := subStep(pid); err != nil {
			return err
		}
	}
	editor.tasks.Completed = true
	return editor.env.Checkpoint()
}

func (editor *FilesEditor) deleteFiles(pid string) error {
	if editor.tasks.DeleteFiles.Completed {
		editor.env.skip("deleteFiles")
		return nil
	}
	paths := editor.editFiles.DeleteFiles
	if len(paths) > 0 {
		if missing := editor.cache.Missing(paths); len(missing) > 0 {
			return &FilesNotFoundError{Paths: missing}
		}
		ids := make([]int64, len(paths))
		for i, path := range paths {
			meta, _ := editor.cache.Get(path)
			ids[i] = meta.Id
		}
		editor.env.Log.Infof("Deleting %d files from %s", len(ids), pid)
		if err := editor.env.API.DeleteFiles(pid, ids); err != nil {
			return errors.Wrapf(err, "delete files from %s", pid)
		}
		for _, path := range paths {
			editor.cache.Remove(path)
		}
	}
	editor.tasks.DeleteFiles.Completed = true
	return editor.env.Checkpoint()
}

func (editor *FilesEditor) replaceFiles(pid string) error {
	paths := editor.editFiles.ReplaceFiles
	return editor.runList("replaceFiles", &editor.tasks.ReplaceFiles, paths, nil, func(i int) error {
		path := paths[i]
		existing, found := editor.cache.Get(path)
		if !found {
			return &FileNotFoundError{Path: path, Where: pid}
		}
		upload, err := editor.prepareUpload(path)
		if err != nil {
			return err
		}
		defer upload.Cleanup()
		editor.env.Log.Infof("Replacing %s in %s", existing, pid)
		replaced, err := editor.env.API.ReplaceFile(existing.Id, upload.Path, existing)
		if err != nil {
			return errors.Wrapf(err, "replace %s in %s", path, pid)
		}
		editor.cache.Remove(path)
		editor.cache.Put(replaced)
		editor.countUpload("replace", path)
		return nil
	})
}

func (editor *FilesEditor) addRestrictedFiles(pid string) error {
	return editor.addBatched(pid, "addRestrictedFiles", &editor.tasks.AddRestrictedFiles,
		editor.editFiles.AddRestrictedFiles, true)
}

func (editor *FilesEditor) addUnrestrictedFiles(pid string) error {
	return editor.addBatched(pid, "addUnrestrictedFiles", &editor.tasks.AddUnrestrictedFiles,
		editor.editFiles.AddUnrestrictedFiles, false)
}

// addBatched uploads the files in zip batches. NumberCompleted counts
// the candidates uploaded so far, so the candidate list must come out
// the same on every run.
func (editor *FilesEditor) addBatched(pid, name string, task *models.ListTask, paths []string, restricted bool) error {
	if task.Completed {
		editor.env.skip(name)
		return nil
	}
	candidates := util.StringListDifference(paths, editor.editFiles.BatchExclusions())
	start, err := task.ResumeAt(name, candidates)
	if err != nil {
		return err
	}
	if start > 0 {
		editor.env.Log.Infof("Resuming %s at file %d of %d", name, start+1, len(candidates))
	}
	for _, path := range candidates[start:] {
		if !fileutil.FileExists(editor.bag.LocalPath(path)) {
			return &FileNotFoundError{Path: path, Where: "bag " + editor.bag.Name}
		}
	}
	done := start
	err = editor.batcher.Run(editor.bag.PayloadPath(), candidates[start:], func(batch *ZipBatch) error {
		editor.env.Log.Infof("Uploading batch %d of %s to %s (%d files, %s)",
			batch.Number, name, pid, len(batch.Files), units.HumanSize(float64(batch.Bytes)))
		added, err := editor.env.API.AddFiles(pid, batch.Path, &models.FileMeta{Restricted: restricted})
		if err != nil {
			return errors.Wrapf(err, "upload batch %d of %s to %s", batch.Number, name, pid)
		}
		for _, meta := range added {
			editor.cache.Put(meta)
		}
		editor.env.Stats.FilesAdded("batch", len(batch.Files), batch.Bytes)
		done += len(batch.Files)
		if err := task.Advance(done, len(candidates)); err != nil {
			return err
		}
		return editor.env.Checkpoint()
	})
	if err != nil {
		return err
	}
	task.Complete(len(candidates))
	return editor.env.Checkpoint()
}

func (editor *FilesEditor) addRestrictedIndividually(pid string) error {
	return editor.addIndividually(pid, "addRestrictedIndividually", &editor.tasks.AddRestrictedIndividually,
		editor.editFiles.AddRestrictedIndividually, true)
}

func (editor *FilesEditor) addUnrestrictedIndividually(pid string) error {
	return editor.addIndividually(pid, "addUnrestrictedIndividually", &editor.tasks.AddUnrestrictedIndividually,
		editor.editFiles.AddUnrestrictedIndividually, false)
}

func (editor *FilesEditor) addIndividually(pid, name string, task *models.ListTask, paths []string, restricted bool) error {
	return editor.runList(name, task, paths, nil, func(i int) error {
		path := paths[i]
		dvPath, err := models.ToPair(path)
		if err != nil {
			return err
		}
		upload, err := editor.prepareUpload(path)
		if err != nil {
			return err
		}
		defer upload.Cleanup()
		meta := &models.FileMeta{
			Label:          dvPath.Label,
			DirectoryLabel: dvPath.DirectoryLabel,
			Restricted:     restricted,
		}
		editor.env.Log.Infof("Uploading %s to %s", path, pid)
		added, err := editor.env.API.AddFiles(pid, upload.Path, meta)
		if err != nil {
			return errors.Wrapf(err, "upload %s to %s", path, pid)
		}
		for _, addedMeta := range added {
			editor.cache.Put(addedMeta)
		}
		editor.countUpload("individual", path)
		return nil
	})
}

func (editor *FilesEditor) moveFiles(pid string) error {
	moves := editor.editFiles.MoveFiles
	keys := make([]string, len(moves))
	for i, move := range moves {
		keys[i] = move.From + " -> " + move.To
	}
	validate := func(start int) error {
		froms := make([]string, 0, len(moves)-start)
		for _, move := range moves[start:] {
			froms = append(froms, move.From)
		}
		if missing := editor.cache.Missing(froms); len(missing) > 0 {
			return &FilesNotFoundError{Paths: missing}
		}
		return nil
	}
	return editor.runList("moveFiles", &editor.tasks.MoveFiles, keys, validate, func(i int) error {
		move := moves[i]
		existing, found := editor.cache.Get(move.From)
		if !found {
			return &FileNotFoundError{Path: move.From, Where: pid}
		}
		moved, err := editor.cache.MoveTargetIdentity(move.To, existing)
		if err != nil {
			return err
		}
		editor.env.Log.Infof("Moving %s to %s in %s", existing, moved.Path(), pid)
		if err = editor.env.API.UpdateFileMetadata(moved.Id, moved); err != nil {
			return errors.Wrapf(err, "move %s to %s in %s", move.From, move.To, pid)
		}
		editor.cache.Remove(move.From)
		editor.cache.Put(moved)
		return nil
	})
}

func (editor *FilesEditor) updateFileMetas(pid string) error {
	updates := editor.editFiles.UpdateFileMetas
	keys := make([]string, len(updates))
	for i, update := range updates {
		keys[i] = update.Path()
	}
	validate := func(start int) error {
		if missing := editor.cache.Missing(keys[start:]); len(missing) > 0 {
			return &FilesNotFoundError{Paths: missing}
		}
		return nil
	}
	return editor.runList("updateFileMetas", &editor.tasks.UpdateFileMetas, keys, validate, func(i int) error {
		existing, found := editor.cache.Get(keys[i])
		if !found {
			return &FileNotFoundError{Path: keys[i], Where: pid}
		}
		updated := updates[i].ApplyTo(existing)
		editor.env.Log.Infof("Updating metadata of %s in %s", existing, pid)
		if err := editor.env.API.UpdateFileMetadata(updated.Id, updated); err != nil {
			return errors.Wrapf(err, "update metadata of %s in %s", keys[i], pid)
		}
		editor.cache.Put(updated)
		return nil
	})
}

func (editor *FilesEditor) addEmbargoes(pid string) error {
	embargoes := editor.editFiles.AddEmbargoes
	keys := make([]string, len(embargoes))
	for i, embargo := range embargoes {
		keys[i] = fmt.Sprintf("%s:%s", embargo.DateAvailable, strings.Join(embargo.FilePaths, ","))
	}
	validate := func(start int) error {
		missing := make([]string, 0)
		for _, embargo := range embargoes[start:] {
			missing = append(missing, editor.cache.Missing(embargo.FilePaths)...)
		}
		if len(missing) > 0 {
			return &FilesNotFoundError{Paths: missing}
		}
		return nil
	}
	return editor.runList("addEmbargoes", &editor.tasks.AddEmbargoes, keys, validate, func(i int) error {
		embargo := embargoes[i]
		ids := make([]int64, 0, len(embargo.FilePaths))
		for _, path := range embargo.FilePaths {
			meta, found := editor.cache.Get(path)
			if !found {
				return &FileNotFoundError{Path: path, Where: pid}
			}
			ids = append(ids, meta.Id)
		}
		editor.env.Log.Infof("Embargoing %d files in %s until %s", len(ids), pid, embargo.DateAvailable)
		if err := editor.env.API.SetEmbargo(pid, embargo, ids); err != nil {
			return errors.Wrapf(err, "embargo files in %s", pid)
		}
		return nil
	})
}

// runList applies apply to each item of a list, starting at the first
// item the task log does not have as done, and checkpoints after each
// one. When validate is set, it checks the remaining items before any
// of them is applied.
func (editor *FilesEditor) runList(name string, task *models.ListTask, keys []string, validate func(start int) error, apply func(i int) error) error {
	if task.Completed {
		editor.env.skip(name)
		return nil
	}
	start, err := task.ResumeAt(name, keys)
	if err != nil {
		return err
	}
	if start > 0 {
		editor.env.Log.Infof("Resuming %s at item %d of %d", name, start+1, len(keys))
	}
	if validate != nil {
		if err = validate(start); err != nil {
			return err
		}
	}
	for i := start; i < len(keys); i++ {
		if err = apply(i); err != nil {
			return err
		}
		if err = task.Advance(i+1, len(keys)); err != nil {
			return err
		}
		if err = editor.env.Checkpoint(); err != nil {
			return err
		}
	}
	task.Complete(len(keys))
	return editor.env.Checkpoint()
}

// prepareUpload checks that the payload file exists and wraps it if it
// is a zip file.
func (editor *FilesEditor) prepareUpload(path string) (*PreparedUpload, error) {
	localPath := editor.bag.LocalPath(path)
	if !fileutil.FileExists(localPath) {
		return nil, &FileNotFoundError{Path: path, Where: "bag " + editor.bag.Name}
	}
	upload, err := WrapIfZip(localPath, path, editor.tempDir)
	if err != nil {
		return nil, err
	}
	if upload.Wrapped {
		editor.env.Log.Debugf("Wrapped zip file %s before upload", path)
	}
	return upload, nil
}

func (editor *FilesEditor) countUpload(kind, path string) {
	size, err := fileutil.FileSize(editor.bag.LocalPath(path))
	if err != nil {
		size = 0
	}
	editor.env.Stats.FilesAdded(kind, 1, size)
}
