package models

import (
	"fmt"
)

// FileMeta describes one file in a Dataverse dataset version, or the
// metadata to apply to one. Id is the Dataverse DataFile id; it is zero
// for files that have not been uploaded yet.
type FileMeta struct {
	Id             int64    `json:"id,omitempty" yaml:"-"`
	Label          string   `json:"label" yaml:"label"`
	DirectoryLabel string   `json:"directoryLabel,omitempty" yaml:"directoryLabel,omitempty"`
	Description    string   `json:"description,omitempty" yaml:"description,omitempty"`
	Categories     []string `json:"categories,omitempty" yaml:"categories,omitempty"`
	Restricted     bool     `json:"restrict" yaml:"restrict"`
}

// Path returns the DataversePath of this file.
func (meta *FileMeta) Path() DataversePath {
	return DataversePath{DirectoryLabel: meta.DirectoryLabel, Label: meta.Label}
}

// Copy returns a deep copy of meta, so callers can change labels or
// categories without touching a cached value.
func (meta *FileMeta) Copy() *FileMeta {
	metaCopy := *meta
	if meta.Categories != nil {
		metaCopy.Categories = make([]string, len(meta.Categories))
		copy(metaCopy.Categories, meta.Categories)
	}
	return &metaCopy
}

// WithPath returns a copy of meta addressed at dvPath.
func (meta *FileMeta) WithPath(dvPath DataversePath) *FileMeta {
	metaCopy := meta.Copy()
	metaCopy.DirectoryLabel = dvPath.DirectoryLabel
	metaCopy.Label = dvPath.Label
	return metaCopy
}

func (meta *FileMeta) String() string {
	return fmt.Sprintf("%s (id %d)", meta.Path().String(), meta.Id)
}
