package ingest_test

import (
	"testing"

	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/ingest"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/util/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPermissionsStepDeletesThenAdds(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset()
	old := testutil.MakeRoleAssignment("contributor")
	require.Nil(t, dv.AssignRole(pid, old))
	newRole := &models.RoleAssignment{Assignee: old.Assignee, Role: "curator"}
	never := &models.RoleAssignment{Assignee: "&explicit/1-group", Role: "member"}
	permissions := &models.EditPermissions{
		DeleteRoleAssignments: []*models.RoleAssignment{old, never},
		AddRoleAssignments:    []*models.RoleAssignment{newRole},
	}
	env, _ := newEnv(dv)
	tasks := &models.EditPermissionsLog{}

	require.Nil(t, ingest.NewPermissionsStep(env, permissions, tasks).Run(pid))
	assignments := dv.Dataset(pid).RoleAssignments
	require.Len(t, assignments, 1)
	assert.Equal(t, "curator", assignments[0].Role)
	assert.True(t, tasks.Completed)
	assert.Equal(t, 2, tasks.DeleteRoleAssignments.NumberCompleted)
	assert.Equal(t, 1, tasks.AddRoleAssignments.NumberCompleted)

	ops := make([]string, 0)
	for _, call := range dv.Calls {
		ops = append(ops, call.Op)
	}
	assert.Equal(t, []string{"AssignRole", "DeleteRoleAssignment", "DeleteRoleAssignment", "AssignRole"}, ops)
}

func TestPermissionsStepResumes(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	pid := dv.AddDataset()
	adds := []*models.RoleAssignment{
		testutil.MakeRoleAssignment("contributor"),
		testutil.MakeRoleAssignment("curator"),
	}
	env, _ := newEnv(dv)
	tasks := &models.EditPermissionsLog{
		DeleteRoleAssignments: models.ListTask{Completed: true},
		AddRoleAssignments:    models.ListTask{NumberCompleted: 1},
	}
	require.Nil(t, ingest.NewPermissionsStep(env, &models.EditPermissions{AddRoleAssignments: adds}, tasks).Run(pid))
	assert.Equal(t, 1, dv.CallCount("AssignRole"))
	assert.Equal(t, "curator", dv.Dataset(pid).RoleAssignments[0].Role)
}

func TestPermissionsStepWithoutDocument(t *testing.T) {
	dv := testutil.NewFakeDataverse()
	env, _ := newEnv(dv)
	tasks := &models.EditPermissionsLog{}
	require.Nil(t, ingest.NewPermissionsStep(env, nil, tasks).Run("doi:10.5072/FK2/X"))
	assert.True(t, tasks.Completed)
	assert.Empty(t, dv.Calls)
}
