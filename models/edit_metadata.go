package models

import (
	"fmt"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/constants"
)

// EditMetadata is the content of edit-metadata.yml. Field values are
// added, then replaced, then deleted.
type EditMetadata struct {
	AddFieldValues     []*MetadataField `yaml:"addFieldValues"`
	ReplaceFieldValues []*MetadataField `yaml:"replaceFieldValues"`
	DeleteFieldValues  []*MetadataField `yaml:"deleteFieldValues"`
}

func (editMetadata *EditMetadata) Validate() error {
	problems := make([]string, 0)
	lists := []struct {
		name   string
		fields []*MetadataField
	}{
		{"addFieldValues", editMetadata.AddFieldValues},
		{"replaceFieldValues", editMetadata.ReplaceFieldValues},
		{"deleteFieldValues", editMetadata.DeleteFieldValues},
	}
	for _, list := range lists {
		for i, field := range list.fields {
			if field == nil || field.TypeName == "" {
				problems = append(problems, fmt.Sprintf("%s[%d] has no typeName", list.name, i))
			}
		}
	}
	if len(problems) > 0 {
		return &InvalidInstructionsError{Document: constants.EditMetadataYml, Problems: problems}
	}
	return nil
}

// RoleAssignment grants Role on the dataset to Assignee, which is a
// user (@user), a group (&group) or a special (:authenticated-users).
type RoleAssignment struct {
	Assignee string `yaml:"assignee" json:"assignee"`
	Role     string `yaml:"role" json:"role"`
}

func (ra *RoleAssignment) String() string {
	return fmt.Sprintf("%s -> %s", ra.Assignee, ra.Role)
}

// EditPermissions is the content of edit-permissions.yml. Deletions are
// applied before additions, so a changed role is expressed as a delete
// plus an add.
type EditPermissions struct {
	DeleteRoleAssignments []*RoleAssignment `yaml:"deleteRoleAssignments"`
	AddRoleAssignments    []*RoleAssignment `yaml:"addRoleAssignments"`
}

func (editPermissions *EditPermissions) Validate() error {
	problems := make([]string, 0)
	lists := []struct {
		name        string
		assignments []*RoleAssignment
	}{
		{"deleteRoleAssignments", editPermissions.DeleteRoleAssignments},
		{"addRoleAssignments", editPermissions.AddRoleAssignments},
	}
	for _, list := range lists {
		for i, ra := range list.assignments {
			if ra == nil || ra.Assignee == "" || ra.Role == "" {
				problems = append(problems, fmt.Sprintf("%s[%d] needs both assignee and role", list.name, i))
			}
		}
	}
	if len(problems) > 0 {
		return &InvalidInstructionsError{Document: constants.EditPermissionsYml, Problems: problems}
	}
	return nil
}
