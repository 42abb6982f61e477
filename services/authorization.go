package services

import (
	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Authorization predicates over already-fetched documents. They never touch
// the store and never return errors; callers translate false into
// ErrForbidden. A nil project or task fails closed.

// IsMember reports whether the user is the project lead or appears in the
// membership list.
func IsMember(p *models.Project, userID primitive.ObjectID) bool {
	if p == nil {
		return false
	}
	if p.Lead == userID {
		return true
	}
	for _, m := range p.Members {
		if m.User == userID {
			return true
		}
	}
	return false
}

// IsLead reports whether the user is the project's lead.
func IsLead(p *models.Project, userID primitive.ObjectID) bool {
	return p != nil && p.Lead == userID
}

// RoleOf returns the user's role for display. The "Member" fallback covers a
// membership entry that is missing its role; it is never used to grant
// access, and the gap is logged so the data problem stays visible.
func RoleOf(p *models.Project, userID primitive.ObjectID) models.MemberRole {
	if p == nil {
		return models.RoleMember
	}
	if p.Lead == userID {
		return models.RoleLead
	}
	for _, m := range p.Members {
		if m.User == userID {
			if m.Role == "" {
				logging.Logger.Warnf("Event ID: MEMBER_ROLE_MISSING, Description: member %s of project %s has no role entry", userID.Hex(), p.ID.Hex())
				return models.RoleMember
			}
			return m.Role
		}
	}
	return models.RoleMember
}

// CanInvite reports whether the user may invite members: the project lead,
// or any member whose entry carries the Lead role.
func CanInvite(p *models.Project, userID primitive.ObjectID) bool {
	return IsLead(p, userID) || RoleOf(p, userID) == models.RoleLead
}

// CanAssignTask reports whether the user may create a project task assigned
// to assignee. Leads assign anyone; everyone else only themself.
func CanAssignTask(p *models.Project, userID, assignee primitive.ObjectID) bool {
	if p == nil {
		return false
	}
	return RoleOf(p, userID) == models.RoleLead || assignee == userID
}

// CanMessageLead reports whether the user may open a personal thread. The
// recipient is always the current lead, so the lead has no one to message.
func CanMessageLead(p *models.Project, userID primitive.ObjectID) bool {
	return p != nil && p.Lead != userID
}

// CanActOnTask reports whether the user is the task's assignee or assigner.
func CanActOnTask(t *models.Task, userID primitive.ObjectID) bool {
	if t == nil {
		return false
	}
	return t.AssignedTo == userID || t.AssignedBy == userID
}
