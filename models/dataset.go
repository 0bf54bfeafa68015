package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Dataset is the content of dataset.yml: the dataset version metadata
// produced by the deposit conversion that runs before this pipeline.
// It is sent to Dataverse as JSON.
type Dataset struct {
	DatasetVersion *DatasetVersion `yaml:"datasetVersion" json:"datasetVersion"`
}

// DatasetVersion holds the citation metadata and terms of one version.
type DatasetVersion struct {
	License           *License                  `yaml:"license" json:"license,omitempty"`
	TermsOfAccess     string                    `yaml:"termsOfAccess" json:"termsOfAccess,omitempty"`
	FileAccessRequest *bool                     `yaml:"fileAccessRequest" json:"fileAccessRequest,omitempty"`
	MetadataBlocks    map[string]*MetadataBlock `yaml:"metadataBlocks" json:"metadataBlocks"`
}

type License struct {
	Name string `yaml:"name" json:"name"`
	Uri  string `yaml:"uri" json:"uri"`
}

type MetadataBlock struct {
	DisplayName string           `yaml:"displayName" json:"displayName,omitempty"`
	Fields      []*MetadataField `yaml:"fields" json:"fields"`
}

// MetadataField is one Dataverse metadata field. Value is a string for
// primitive fields, a list for multiple fields and a map of sub-fields
// for compound fields.
type MetadataField struct {
	TypeName  string      `yaml:"typeName" json:"typeName"`
	TypeClass string      `yaml:"typeClass" json:"typeClass"`
	Multiple  bool        `yaml:"multiple" json:"multiple"`
	Value     interface{} `yaml:"value" json:"value"`
}

// MarshalJSON converts the YAML-decoded value (which may contain
// map[interface{}]interface{}) to something encoding/json accepts.
func (field *MetadataField) MarshalJSON() ([]byte, error) {
	type plainField MetadataField
	plain := plainField(*field)
	value, err := NormalizeYamlValue(field.Value)
	if err != nil {
		return nil, fmt.Errorf("Field %s: %v", field.TypeName, err)
	}
	plain.Value = value
	return json.Marshal(&plain)
}

// Validate reports the problems that make a dataset document unusable
// for creating a dataset.
func (dataset *Dataset) Validate() []string {
	problems := make([]string, 0)
	if dataset.DatasetVersion == nil {
		return append(problems, "datasetVersion is missing")
	}
	blockNames := make([]string, 0, len(dataset.DatasetVersion.MetadataBlocks))
	for name := range dataset.DatasetVersion.MetadataBlocks {
		blockNames = append(blockNames, name)
	}
	sort.Strings(blockNames)
	for _, name := range blockNames {
		block := dataset.DatasetVersion.MetadataBlocks[name]
		if block == nil {
			problems = append(problems, fmt.Sprintf("metadata block %s is empty", name))
			continue
		}
		for i, field := range block.Fields {
			if field == nil || field.TypeName == "" {
				problems = append(problems, fmt.Sprintf("metadata block %s: field %d has no typeName", name, i))
			}
		}
	}
	return problems
}

// NormalizeYamlValue recursively converts the maps yaml.v2 produces
// into map[string]interface{}.
func NormalizeYamlValue(value interface{}) (interface{}, error) {
	switch typed := value.(type) {
	case map[interface{}]interface{}:
		normalized := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			keyString, ok := key.(string)
			if !ok {
				return nil, fmt.Errorf("map key %v is not a string", key)
			}
			normalizedItem, err := NormalizeYamlValue(item)
			if err != nil {
				return nil, err
			}
			normalized[keyString] = normalizedItem
		}
		return normalized, nil
	case map[string]interface{}:
		normalized := make(map[string]interface{}, len(typed))
		for key, item := range typed {
			normalizedItem, err := NormalizeYamlValue(item)
			if err != nil {
				return nil, err
			}
			normalized[key] = normalizedItem
		}
		return normalized, nil
	case []interface{}:
		normalized := make([]interface{}, len(typed))
		for i, item := range typed {
			normalizedItem, err := NormalizeYamlValue(item)
			if err != nil {
				return nil, err
			}
			normalized[i] = normalizedItem
		}
		return normalized, nil
	default:
		return value, nil
	}
}

func sortedKeys(lists map[string][]string) []string {
	keys := make([]string, 0, len(lists))
	for key := range lists {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
