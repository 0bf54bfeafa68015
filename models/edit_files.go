package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
)

// InvalidInstructionsError describes everything wrong with one
// instruction document. It is raised while reading a bag, before any
// remote call is made.
type InvalidInstructionsError struct {
	Document string
	Problems []string
}

func (e *InvalidInstructionsError) Error() string {
	return fmt.Sprintf("%s is invalid: %s", e.Document, strings.Join(e.Problems, "; "))
}

// FromTo is one entry of a move or auto-rename list.
type FromTo struct {
	From string `yaml:"from" json:"from"`
	To   string `yaml:"to" json:"to"`
}

// FileMetaUpdate changes the metadata of one file that is already in
// the dataset. The file is identified by its directory label and
// label. Nil fields are left as they are.
type FileMetaUpdate struct {
	Label          string   `yaml:"label" json:"label"`
	DirectoryLabel string   `yaml:"directoryLabel" json:"directoryLabel"`
	Description    *string  `yaml:"description" json:"description,omitempty"`
	Categories     []string `yaml:"categories" json:"categories,omitempty"`
	Restrict       *bool    `yaml:"restrict" json:"restrict,omitempty"`
}

// Path returns the path of the file this update applies to.
func (update *FileMetaUpdate) Path() string {
	return DataversePath{DirectoryLabel: update.DirectoryLabel, Label: update.Label}.String()
}

// ApplyTo returns a copy of meta with this update applied.
func (update *FileMetaUpdate) ApplyTo(meta *FileMeta) *FileMeta {
	updated := meta.Copy()
	if update.Description != nil {
		updated.Description = *update.Description
	}
	if update.Categories != nil {
		updated.Categories = make([]string, len(update.Categories))
		copy(updated.Categories, update.Categories)
	}
	if update.Restrict != nil {
		updated.Restricted = *update.Restrict
	}
	return updated
}

// Embargo places the listed files under embargo until DateAvailable.
type Embargo struct {
	FilePaths     []string `yaml:"filePaths" json:"filePaths"`
	DateAvailable string   `yaml:"dateAvailable" json:"dateAvailable"`
	Reason        string   `yaml:"reason" json:"reason,omitempty"`
}

// EditFiles is the content of edit-files.yml. All lists are optional.
// Paths are relative to the payload directory of the bag.
type EditFiles struct {
	DeleteFiles                 []string          `yaml:"deleteFiles"`
	ReplaceFiles                []string          `yaml:"replaceFiles"`
	AddRestrictedFiles          []string          `yaml:"addRestrictedFiles"`
	AddUnrestrictedFiles        []string          `yaml:"addUnrestrictedFiles"`
	AddRestrictedIndividually   []string          `yaml:"addRestrictedIndividually"`
	AddUnrestrictedIndividually []string          `yaml:"addUnrestrictedIndividually"`
	IgnoreFiles                 []string          `yaml:"ignoreFiles"`
	MoveFiles                   []FromTo          `yaml:"moveFiles"`
	UpdateFileMetas             []*FileMetaUpdate `yaml:"updateFileMetas"`
	AddEmbargoes                []*Embargo        `yaml:"addEmbargoes"`
	AutoRenameFiles             []FromTo          `yaml:"autoRenameFiles"`
}

// AutoRenameMap returns the auto-rename list as a map from local path
// to the path Dataverse gives the file.
func (editFiles *EditFiles) AutoRenameMap() map[string]string {
	renames := make(map[string]string, len(editFiles.AutoRenameFiles))
	for _, rename := range editFiles.AutoRenameFiles {
		renames[rename.From] = rename.To
	}
	return renames
}

// SeparateUploads returns the set of paths that are uploaded one at a
// time, and so must not be put in a batch.
func (editFiles *EditFiles) SeparateUploads() map[string]bool {
	return stringSet(editFiles.AddRestrictedIndividually, editFiles.AddUnrestrictedIndividually)
}

// BatchExclusions returns the set of paths that must never be picked up
// by a batched add: deleted, replaced, ignored and individually
// uploaded files.
func (editFiles *EditFiles) BatchExclusions() map[string]bool {
	return stringSet(editFiles.DeleteFiles, editFiles.ReplaceFiles, editFiles.IgnoreFiles,
		editFiles.AddRestrictedIndividually, editFiles.AddUnrestrictedIndividually)
}

// Validate checks the document for problems that would otherwise only
// be discovered halfway through processing.
func (editFiles *EditFiles) Validate() error {
	problems := make([]string, 0)
	seenIn := make(map[string]string)
	exclusive := []struct {
		name  string
		paths []string
	}{
		{"deleteFiles", editFiles.DeleteFiles},
		{"replaceFiles", editFiles.ReplaceFiles},
		{"addRestrictedFiles", editFiles.AddRestrictedFiles},
		{"addUnrestrictedFiles", editFiles.AddUnrestrictedFiles},
	}
	for _, list := range exclusive {
		for _, path := range list.paths {
			if other, seen := seenIn[path]; seen && other != list.name {
				problems = append(problems, fmt.Sprintf("'%s' appears in both %s and %s", path, other, list.name))
			}
			seenIn[path] = list.name
		}
	}
	allLists := map[string][]string{
		"deleteFiles":                 editFiles.DeleteFiles,
		"replaceFiles":                editFiles.ReplaceFiles,
		"addRestrictedFiles":          editFiles.AddRestrictedFiles,
		"addUnrestrictedFiles":        editFiles.AddUnrestrictedFiles,
		"addRestrictedIndividually":   editFiles.AddRestrictedIndividually,
		"addUnrestrictedIndividually": editFiles.AddUnrestrictedIndividually,
		"ignoreFiles":                 editFiles.IgnoreFiles,
	}
	for _, name := range sortedKeys(allLists) {
		for _, path := range allLists[name] {
			if problem := checkPath(path); problem != "" {
				problems = append(problems, fmt.Sprintf("%s: %s", name, problem))
			}
		}
	}
	for i, move := range editFiles.MoveFiles {
		if move.From == "" || move.To == "" {
			problems = append(problems, fmt.Sprintf("moveFiles[%d] needs both from and to", i))
			continue
		}
		for _, path := range []string{move.From, move.To} {
			if problem := checkPath(path); problem != "" {
				problems = append(problems, fmt.Sprintf("moveFiles[%d]: %s", i, problem))
			}
		}
	}
	for i, update := range editFiles.UpdateFileMetas {
		if update == nil || update.Label == "" {
			problems = append(problems, fmt.Sprintf("updateFileMetas[%d] has no label", i))
		}
	}
	for i, embargo := range editFiles.AddEmbargoes {
		if embargo == nil {
			problems = append(problems, fmt.Sprintf("addEmbargoes[%d] is empty", i))
			continue
		}
		if _, err := time.Parse(constants.DateFormat, embargo.DateAvailable); err != nil {
			problems = append(problems, fmt.Sprintf("addEmbargoes[%d] has invalid dateAvailable '%s'", i, embargo.DateAvailable))
		}
		if len(embargo.FilePaths) == 0 {
			problems = append(problems, fmt.Sprintf("addEmbargoes[%d] lists no files", i))
		}
	}
	for i, rename := range editFiles.AutoRenameFiles {
		if rename.From == "" || rename.To == "" {
			problems = append(problems, fmt.Sprintf("autoRenameFiles[%d] needs both from and to", i))
		}
	}
	if len(problems) > 0 {
		return &InvalidInstructionsError{Document: constants.EditFilesYml, Problems: problems}
	}
	return nil
}

func checkPath(path string) string {
	if path == "" {
		return "empty path"
	}
	if constants.UnsafePathPattern.MatchString(path) {
		return fmt.Sprintf("'%s' is not inside the payload directory", path)
	}
	return ""
}

func stringSet(lists ...[]string) map[string]bool {
	set := make(map[string]bool)
	for _, list := range lists {
		for _, item := range list {
			set[item] = true
		}
	}
	return set
}
