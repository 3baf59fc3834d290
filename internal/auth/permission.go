package auth

import (
	"github.com/frahmantamala/muamalati/internal"
	"github.com/frahmantamala/muamalati/internal/core/user"
)

// Action is an operation on a transaction checked before the workflow engine runs.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionSubmit Action = "submit"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionList   Action = "list"
	ActionCancel Action = "cancel"
)

// Resource is the ownership view of a transaction. It is zero for Create and List.
type Resource struct {
	OwnerID string
	Status  string
}

const draftStatus = "draft"

// Authorize maps (role, action, ownership) onto allow or ErrForbidden.
func Authorize(actor user.Actor, action Action, res Resource) error {
	if allowed(actor, action, res) {
		return nil
	}
	return internal.ErrForbidden
}

func allowed(actor user.Actor, action Action, res Resource) bool {
	owner := actor.ID != "" && actor.ID == res.OwnerID

	switch actor.Role {
	case user.RoleCitizen:
		switch action {
		case ActionCreate, ActionList:
			return true
		case ActionRead, ActionSubmit:
			return owner
		case ActionDelete, ActionCancel:
			return owner && res.Status == draftStatus
		}
		return false

	case user.RoleEmployee, user.RoleSupervisor:
		switch action {
		case ActionRead, ActionList, ActionUpdate:
			return true
		}
		return false

	case user.RoleAdmin:
		switch action {
		case ActionRead, ActionList, ActionUpdate, ActionDelete, ActionCancel:
			return true
		}
		return false
	}

	return false
}
