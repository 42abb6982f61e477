package services

import (
	"testing"

	"github.com/nithinknkr/TeamSync/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testProject(lead primitive.ObjectID, members ...models.Member) *models.Project {
	return &models.Project{
		ID:      primitive.NewObjectID(),
		Name:    "Launch",
		Lead:    lead,
		Members: append([]models.Member{{User: lead, Role: models.RoleLead}}, members...),
	}
}

func TestIsMember(t *testing.T) {
	lead := primitive.NewObjectID()
	member := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	p := testProject(lead, models.Member{User: member, Role: models.RoleMember})

	if !IsMember(p, lead) {
		t.Error("lead should be a member")
	}
	if !IsMember(p, member) {
		t.Error("listed member should be a member")
	}
	if IsMember(p, stranger) {
		t.Error("stranger should not be a member")
	}
	if IsMember(nil, lead) {
		t.Error("missing project must fail closed")
	}
}

func TestIsLead(t *testing.T) {
	lead := primitive.NewObjectID()
	member := primitive.NewObjectID()
	p := testProject(lead, models.Member{User: member, Role: models.RoleMember})

	if !IsLead(p, lead) {
		t.Error("IsLead(lead) = false")
	}
	if IsLead(p, member) {
		t.Error("IsLead(member) = true")
	}
	if IsLead(nil, lead) {
		t.Error("missing project must fail closed")
	}
}

func TestRoleOf(t *testing.T) {
	lead := primitive.NewObjectID()
	member := primitive.NewObjectID()
	roleless := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	p := testProject(lead,
		models.Member{User: member, Role: models.RoleMember},
		models.Member{User: roleless},
	)

	if got := RoleOf(p, lead); got != models.RoleLead {
		t.Errorf("RoleOf(lead) = %q", got)
	}
	if got := RoleOf(p, member); got != models.RoleMember {
		t.Errorf("RoleOf(member) = %q", got)
	}
	// Display fallbacks, never used for authorization.
	if got := RoleOf(p, roleless); got != models.RoleMember {
		t.Errorf("RoleOf(member without role entry) = %q", got)
	}
	if got := RoleOf(p, stranger); got != models.RoleMember {
		t.Errorf("RoleOf(stranger) = %q", got)
	}
}

func TestCanInvite(t *testing.T) {
	lead := primitive.NewObjectID()
	coLead := primitive.NewObjectID()
	member := primitive.NewObjectID()
	stranger := primitive.NewObjectID()
	p := testProject(lead,
		models.Member{User: coLead, Role: models.RoleLead},
		models.Member{User: member, Role: models.RoleMember},
	)

	if !CanInvite(p, lead) {
		t.Error("project lead should be allowed to invite")
	}
	// A member carrying the Lead role invites even without being project.lead.
	if !CanInvite(p, coLead) {
		t.Error("member with the Lead role should be allowed to invite")
	}
	if CanInvite(p, member) {
		t.Error("plain member should be denied")
	}
	if CanInvite(p, stranger) {
		t.Error("stranger should be denied")
	}
	if CanInvite(nil, lead) {
		t.Error("missing project must fail closed")
	}
}

func TestCanAssignTask(t *testing.T) {
	lead := primitive.NewObjectID()
	member := primitive.NewObjectID()
	other := primitive.NewObjectID()
	p := testProject(lead,
		models.Member{User: member, Role: models.RoleMember},
		models.Member{User: other, Role: models.RoleMember},
	)

	if !CanAssignTask(p, lead, member) {
		t.Error("lead should assign tasks to anyone")
	}
	if !CanAssignTask(p, member, member) {
		t.Error("member should assign tasks to themself")
	}
	if CanAssignTask(p, member, other) {
		t.Error("member should not assign tasks to another member")
	}
	if CanAssignTask(nil, lead, member) {
		t.Error("missing project must fail closed")
	}
}

func TestCanMessageLead(t *testing.T) {
	lead := primitive.NewObjectID()
	member := primitive.NewObjectID()
	p := testProject(lead, models.Member{User: member, Role: models.RoleMember})

	if !CanMessageLead(p, member) {
		t.Error("member should be able to message the lead")
	}
	if CanMessageLead(p, lead) {
		t.Error("lead must not message themself")
	}
	if CanMessageLead(nil, member) {
		t.Error("missing project must fail closed")
	}
}

func TestCanActOnTask(t *testing.T) {
	assignee := primitive.NewObjectID()
	assigner := primitive.NewObjectID()
	other := primitive.NewObjectID()
	task := &models.Task{AssignedTo: assignee, AssignedBy: assigner}

	if !CanActOnTask(task, assignee) {
		t.Error("assignee should be allowed")
	}
	if !CanActOnTask(task, assigner) {
		t.Error("assigner should be allowed")
	}
	if CanActOnTask(task, other) {
		t.Error("unrelated user should be denied")
	}
	if CanActOnTask(nil, assignee) {
		t.Error("missing task must fail closed")
	}
}
