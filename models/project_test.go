package models

import (
	"regexp"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestNewProjectSeedsLeadMembership(t *testing.T) {
	lead := primitive.NewObjectID()
	p := NewProject("Launch", "release planning", lead)

	if p.Lead != lead {
		t.Fatalf("lead = %s, want %s", p.Lead.Hex(), lead.Hex())
	}
	if len(p.Members) != 1 {
		t.Fatalf("members = %d, want 1", len(p.Members))
	}
	if p.Members[0].User != lead || p.Members[0].Role != RoleLead {
		t.Errorf("lead member entry = %+v", p.Members[0])
	}
	if p.CreatedAt.IsZero() || p.LastActivity.IsZero() {
		t.Error("timestamps not set")
	}
}

func TestEnsureLeadMembership(t *testing.T) {
	lead := primitive.NewObjectID()
	created := time.Now().Add(-time.Hour)

	p := &Project{
		Lead:      lead,
		CreatedAt: created,
		Members: []Member{
			{User: primitive.NewObjectID(), Role: RoleMember, JoinedAt: created},
		},
	}

	if !p.EnsureLeadMembership() {
		t.Fatal("expected the lead entry to be inserted")
	}
	last := p.Members[len(p.Members)-1]
	if last.User != lead || last.Role != RoleLead {
		t.Errorf("inserted entry = %+v", last)
	}
	if !last.JoinedAt.Equal(created) {
		t.Errorf("joinedAt = %v, want the project's createdAt %v", last.JoinedAt, created)
	}

	if p.EnsureLeadMembership() {
		t.Error("second call must not insert a duplicate")
	}
	if len(p.Members) != 2 {
		t.Errorf("members = %d, want 2", len(p.Members))
	}
}

func TestGenerateWorkspaceCode(t *testing.T) {
	pattern := regexp.MustCompile(`^WS-[A-Z0-9]{6}$`)
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code := GenerateWorkspaceCode()
		if !pattern.MatchString(code) {
			t.Fatalf("code %q does not match WS-XXXXXX", code)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Error("expected some variety across generated codes")
	}
}
