package model

import "time"

// Role is a member's role inside a team. The values are persisted as-is.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember:
		return true
	}
	return false
}

// CanManageTeam reports whether the role may update the team, manage its
// members, or regenerate its invite code.
func (r Role) CanManageTeam() bool {
	return r == RoleOwner || r == RoleAdmin
}

// Member is one entry of Team.Members.
type Member struct {
	UserID   string    `json:"userId"   bson:"userId"`
	Role     Role      `json:"role"     bson:"role"`
	JoinedAt time.Time `json:"joinedAt" bson:"joinedAt"`
}

// Team groups users that work on projects together.
//
// INVARIANTS:
//   - Owner is also present in Members with RoleOwner
//   - a user appears at most once in Members
//   - InviteCode is unique across all teams (enforced by a unique index)
type Team struct {
	ID          string    `json:"id"          bson:"_id"`
	Name        string    `json:"name"        bson:"name"`
	Description string    `json:"description" bson:"description"`
	Owner       string    `json:"owner"       bson:"owner"`
	Members     []Member  `json:"members"     bson:"members"`
	Projects    []string  `json:"projects"    bson:"projects"`
	InviteCode  string    `json:"inviteCode"  bson:"inviteCode"`
	CreatedAt   time.Time `json:"createdAt"   bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"   bson:"updatedAt"`
	Version     int64     `json:"-"           bson:"version"`
}

// HasProject reports whether projectID is linked to the team.
func (t *Team) HasProject(projectID string) bool {
	for _, id := range t.Projects {
		if id == projectID {
			return true
		}
	}
	return false
}
