package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/exp/rand"
)

type MemberRole string

const (
	RoleLead   MemberRole = "Lead"
	RoleMember MemberRole = "Member"
)

// Member is a membership entry embedded in a project document.
type Member struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     MemberRole         `bson:"role" json:"role"`
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

type Project struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description" json:"description"`
	WorkspaceCode string             `bson:"workspaceCode" json:"workspaceCode"`
	Lead          primitive.ObjectID `bson:"lead" json:"lead"`
	Members       []Member           `bson:"members" json:"members"`
	CreatedAt     time.Time          `bson:"createdAt" json:"createdAt"`
	LastActivity  time.Time          `bson:"lastActivity" json:"lastActivity"`
}

const workspaceCodeChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func init() {
	rand.Seed(uint64(time.Now().UnixNano()))
}

// GenerateWorkspaceCode returns a short display code in the form WS-XXXXXX.
// The code is not an access key, only a workspace identifier shown in the UI.
func GenerateWorkspaceCode() string {
	code := make([]byte, 6)
	for i := range code {
		code[i] = workspaceCodeChars[rand.Intn(len(workspaceCodeChars))]
	}
	return "WS-" + string(code)
}

// NewProject builds a project led by the given user. The lead is seeded into
// the members list immediately so the lead-is-a-member invariant holds from
// construction.
func NewProject(name, description string, lead primitive.ObjectID) *Project {
	now := time.Now()
	return &Project{
		ID:            primitive.NewObjectID(),
		Name:          name,
		Description:   description,
		WorkspaceCode: GenerateWorkspaceCode(),
		Lead:          lead,
		Members: []Member{
			{User: lead, Role: RoleLead, JoinedAt: now},
		},
		CreatedAt:    now,
		LastActivity: now,
	}
}

// EnsureLeadMembership inserts the lead into the members list if a document
// written by an older client is missing the entry. Reports whether the list
// was modified.
func (p *Project) EnsureLeadMembership() bool {
	for _, m := range p.Members {
		if m.User == p.Lead {
			return false
		}
	}
	p.Members = append(p.Members, Member{
		User:     p.Lead,
		Role:     RoleLead,
		JoinedAt: p.CreatedAt,
	})
	return true
}
