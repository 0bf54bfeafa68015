package ingest

import (
	"github.com/DANS-KNAW/dd-dataverse-ingest-sub000/models"
	"github.com/pkg/errors"
)

// PermissionsStep applies edit-permissions.yml: role assignments are
// deleted first, then added.
type PermissionsStep struct {
	env         *StepEnv
	permissions *models.EditPermissions
	tasks       *models.EditPermissionsLog
}

func NewPermissionsStep(env *StepEnv, permissions *models.EditPermissions, tasks *models.EditPermissionsLog) *PermissionsStep {
	if permissions == nil {
		permissions = &models.EditPermissions{}
	}
	return &PermissionsStep{
		env:         env,
		permissions: permissions,
		tasks:       tasks,
	}
}

func (step *PermissionsStep) Run(pid string) error {
	if step.tasks.Completed {
		step.env.skip("editPermissions")
		return nil
	}
	err := step.apply("deleteRoleAssignments", &step.tasks.DeleteRoleAssignments,
		step.permissions.DeleteRoleAssignments, func(ra *models.RoleAssignment) error {
			step.env.Log.Infof("Deleting role assignment %s from %s", ra, pid)
			found, err := step.env.API.DeleteRoleAssignment(pid, ra)
			if err != nil {
				return errors.Wrapf(err, "delete role assignment %s from %s", ra, pid)
			}
			if !found {
				step.env.Log.Warningf("Role assignment %s not found on %s; treating it as deleted", ra, pid)
			}
			return nil
		})
	if err != nil {
		return err
	}
	err = step.apply("addRoleAssignments", &step.tasks.AddRoleAssignments,
		step.permissions.AddRoleAssignments, func(ra *models.RoleAssignment) error {
			step.env.Log.Infof("Adding role assignment %s to %s", ra, pid)
			if err := step.env.API.AssignRole(pid, ra); err != nil {
				return errors.Wrapf(err, "assign role %s on %s", ra, pid)
			}
			return nil
		})
	if err != nil {
		return err
	}
	step.tasks.Completed = true
	return step.env.Checkpoint()
}

func (step *PermissionsStep) apply(name string, task *models.ListTask, assignments []*models.RoleAssignment, fn func(*models.RoleAssignment) error) error {
	if task.Completed {
		step.env.skip(name)
		return nil
	}
	keys := make([]string, len(assignments))
	for i, ra := range assignments {
		keys[i] = ra.String()
	}
	start, err := task.ResumeAt(name, keys)
	if err != nil {
		return err
	}
	for i := start; i < len(assignments); i++ {
		if err = fn(assignments[i]); err != nil {
			return err
		}
		if err = task.Advance(i+1, len(assignments)); err != nil {
			return err
		}
		if err = step.env.Checkpoint(); err != nil {
			return err
		}
	}
	task.Complete(len(assignments))
	return step.env.Checkpoint()
}
