package access

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sakif/hackhub/internal/model"
)

func testTeam() *model.Team {
	return &model.Team{
		ID:    "team1",
		Owner: "u-owner",
		Members: []model.Member{
			{UserID: "u-owner", Role: model.RoleOwner},
			{UserID: "u-admin", Role: model.RoleAdmin},
			{UserID: "u-member", Role: model.RoleMember},
		},
	}
}

func testProject() *model.Project {
	return &model.Project{
		ID:            "proj1",
		TeamID:        "team1",
		Owner:         "u-owner",
		Collaborators: []string{"u-owner", "u-collab"},
	}
}

// =========================================================================
// MEMBERSHIP TESTS
// =========================================================================

func TestIsMember(t *testing.T) {
	team := testTeam()

	tests := []struct {
		name string
		who  Subject
		want bool
	}{
		{"raw owner id", ID("u-owner"), true},
		{"raw member id", ID("u-member"), true},
		{"populated user object", &model.User{ID: "u-admin"}, true},
		{"id with different case and spaces", ID("  U-Member "), true},
		{"stranger", ID("u-stranger"), false},
		{"empty id", ID(""), false},
		{"nil subject", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsMember(team, tt.who))
		})
	}
}

func TestIsMember_NilTeam(t *testing.T) {
	assert.False(t, IsMember(nil, ID("u-owner")))
}

func TestRoleOf(t *testing.T) {
	team := testTeam()

	role, ok := RoleOf(team, ID("u-admin"))
	assert.True(t, ok)
	assert.Equal(t, model.RoleAdmin, role)

	_, ok = RoleOf(team, ID("u-stranger"))
	assert.False(t, ok)
}

func TestRoleOf_MembersListIsAuthoritative(t *testing.T) {
	// Owner field points at u-admin, but the members list says u-admin is an admin.
	team := testTeam()
	team.Owner = "u-admin"

	role, ok := RoleOf(team, ID("u-admin"))
	assert.True(t, ok)
	assert.Equal(t, model.RoleAdmin, role)
	assert.False(t, IsTeamOwner(team, ID("u-admin")))
	assert.True(t, IsTeamOwner(team, ID("u-owner")))
}

func TestCanManageTeam(t *testing.T) {
	team := testTeam()

	assert.True(t, CanManageTeam(team, ID("u-owner")))
	assert.True(t, CanManageTeam(team, ID("u-admin")))
	assert.False(t, CanManageTeam(team, ID("u-member")))
	assert.False(t, CanManageTeam(team, ID("u-stranger")))
}

// =========================================================================
// PROJECT ACCESS TESTS
// =========================================================================

func TestCanAccessProject(t *testing.T) {
	team := testTeam()
	project := testProject()

	tests := []struct {
		name string
		who  string
		want bool
	}{
		{"owner", "u-owner", true},
		{"collaborator outside the team", "u-collab", true},
		{"team member", "u-member", true},
		{"team admin", "u-admin", true},
		{"stranger", "u-stranger", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanAccessProject(project, team, ID(tt.who)))
		})
	}
}

func TestCanAccessProject_OwnerAlwaysAllowed(t *testing.T) {
	project := testProject()
	project.Collaborators = nil

	assert.True(t, CanAccessProject(project, nil, ID(project.Owner)))
}

func TestCanAccessProject_IgnoresUnrelatedTeam(t *testing.T) {
	project := testProject()
	other := testTeam()
	other.ID = "team2"

	assert.False(t, CanAccessProject(project, other, ID("u-member")))
}

func TestProjectMutationRules(t *testing.T) {
	project := testProject()

	assert.True(t, IsProjectOwner(project, ID("u-owner")))
	assert.False(t, IsProjectOwner(project, ID("u-collab")))

	assert.True(t, CanEditProject(project, ID("u-owner")))
	assert.True(t, CanEditProject(project, ID("u-collab")))
	assert.False(t, CanEditProject(project, ID("u-member")))
}

// =========================================================================
// TASK TESTS
// =========================================================================

func TestCanDeleteTask(t *testing.T) {
	project := testProject()
	task := &model.Task{ProjectID: project.ID, CreatedBy: "u-member", AssignedTo: "u-assignee"}

	assert.True(t, CanDeleteTask(task, project, ID("u-member")), "creator")
	assert.True(t, CanDeleteTask(task, project, ID("u-owner")), "project owner")
	assert.False(t, CanDeleteTask(task, project, ID("u-collab")), "collaborator")
	assert.False(t, CanDeleteTask(task, project, ID("u-assignee")), "assignee")
}

func TestTaskEditFor(t *testing.T) {
	project := testProject()
	task := &model.Task{ProjectID: project.ID, CreatedBy: "u-member", AssignedTo: "u-assignee"}

	tests := []struct {
		who  string
		want TaskEdit
	}{
		{"u-owner", TaskEditFull},
		{"u-collab", TaskEditFull},
		{"u-member", TaskEditFull},
		{"u-assignee", TaskEditStatus},
		{"u-stranger", TaskEditNone},
	}

	for _, tt := range tests {
		t.Run(tt.who, func(t *testing.T) {
			assert.Equal(t, tt.want, TaskEditFor(task, project, ID(tt.who)))
		})
	}
}

func TestEndToEnd_CollaboratorCannotToggleShowcase(t *testing.T) {
	team := &model.Team{ID: "t", Owner: "u1", Members: []model.Member{{UserID: "u1", Role: model.RoleOwner}}}
	project := &model.Project{ID: "p", TeamID: "t", Owner: "u1", Collaborators: []string{"u1"}}

	project.Collaborators = append(project.Collaborators, "u2")

	assert.True(t, CanAccessProject(project, team, ID("u2")))
	assert.False(t, IsProjectOwner(project, ID("u2")))
	assert.True(t, IsProjectOwner(project, ID("u1")))
}
