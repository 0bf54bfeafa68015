package models

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
	"gopkg.in/yaml.v2"
)

// Bag is one unpacked bag of a deposit: a payload directory plus the
// instruction documents found in its root. Documents that are absent
// are nil.
type Bag struct {
	Name            string
	Path            string
	Dataset         *Dataset
	EditFiles       *EditFiles
	EditMetadata    *EditMetadata
	EditPermissions *EditPermissions
	UpdateState     *UpdateState
	LifecycleAction LifecycleAction
}

// ReadBag parses and validates the instruction documents of the bag in
// dir. Any problem in any document is returned here, before anything
// is sent to Dataverse.
func ReadBag(dir string) (*Bag, error) {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	stat, err := os.Stat(absPath)
	if err != nil {
		return nil, err
	}
	if !stat.IsDir() {
		return nil, fmt.Errorf("Bag %s is not a directory", absPath)
	}
	bag := &Bag{
		Name: filepath.Base(absPath),
		Path: absPath,
	}
	docs := []struct {
		name   string
		target interface{}
	}{
		{constants.DatasetYml, &bag.Dataset},
		{constants.EditFilesYml, &bag.EditFiles},
		{constants.EditMetadataYml, &bag.EditMetadata},
		{constants.EditPermissionsYml, &bag.EditPermissions},
		{constants.UpdateStateYml, &bag.UpdateState},
	}
	present := make(map[string]bool)
	for _, doc := range docs {
		found, err := readYamlDoc(filepath.Join(absPath, doc.name), doc.target)
		if err != nil {
			return nil, err
		}
		present[doc.name] = found
	}
	if err := bag.validate(present[constants.UpdateStateYml]); err != nil {
		return nil, err
	}
	return bag, nil
}

// PayloadPath returns the absolute path of the payload directory.
func (bag *Bag) PayloadPath() string {
	return filepath.Join(bag.Path, constants.PayloadDir)
}

// LocalPath returns the absolute local path of a payload file named by
// a path from an instruction document.
func (bag *Bag) LocalPath(path string) string {
	return filepath.Join(bag.PayloadPath(), filepath.FromSlash(path))
}

// EditFilesOrEmpty returns the file edits, or an empty document if the
// bag has none.
func (bag *Bag) EditFilesOrEmpty() *EditFiles {
	if bag.EditFiles == nil {
		return &EditFiles{}
	}
	return bag.EditFiles
}

// validate checks every decoded document. An update-state.yml that is
// present must name exactly one action, even when it decodes to nothing.
func (bag *Bag) validate(hasUpdateState bool) error {
	if bag.Dataset != nil {
		if problems := bag.Dataset.Validate(); len(problems) > 0 {
			return &InvalidInstructionsError{Document: constants.DatasetYml, Problems: problems}
		}
	}
	if bag.EditFiles != nil {
		if err := bag.EditFiles.Validate(); err != nil {
			return err
		}
	}
	if bag.EditMetadata != nil {
		if err := bag.EditMetadata.Validate(); err != nil {
			return err
		}
	}
	if bag.EditPermissions != nil {
		if err := bag.EditPermissions.Validate(); err != nil {
			return err
		}
	}
	if hasUpdateState {
		action, err := ParseLifecycleAction(bag.UpdateState)
		if err != nil {
			return err
		}
		bag.LifecycleAction = action
	}
	return nil
}

// readYamlDoc decodes the file at path into target, which must be a
// pointer to a pointer, and reports whether the file exists. A missing
// file leaves target untouched.
func readYamlDoc(path string, target interface{}) (bool, error) {
	data, err := ioutil.ReadFile(path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := yaml.UnmarshalStrict(data, target); err != nil {
		return true, &InvalidInstructionsError{
			Document: filepath.Base(path),
			Problems: []string{err.Error()},
		}
	}
	return true, nil
}
