// Package access holds the pure decision functions that gate every team,
// project and task operation.
//
// Nothing here touches storage or HTTP. Callers load the aggregates, ask a
// question, and turn a "no" into apperror.Forbidden. A "no" is never a
// not-found: the resource exists, the caller just may not use it.
//
// IDENTITY COMPARISON:
// Callers identify people in different shapes: a raw id from a token, a
// loaded *model.User, an id pulled out of another document. Every function
// takes a Subject and compares by the normalized stable id, never by pointer.
package access

import (
	"strings"

	"github.com/sakif/hackhub/internal/model"
)

// Subject is anything that carries a stable user identifier.
// *model.User implements it, and so does ID.
type Subject interface {
	SubjectID() string
}

// ID adapts a raw identifier string to Subject.
type ID string

func (id ID) SubjectID() string { return string(id) }

// normalize trims and lower-cases an identifier. xid ids are lower-case
// already; ids that came through URLs or older documents may not be.
func normalize(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}

// Same reports whether two raw identifiers refer to the same entity.
// Empty identifiers never match anything.
func Same(a, b string) bool {
	na, nb := normalize(a), normalize(b)
	return na != "" && na == nb
}

func subjectID(who Subject) string {
	if who == nil {
		return ""
	}
	return who.SubjectID()
}

func contains(ids []string, who Subject) bool {
	id := subjectID(who)
	for _, candidate := range ids {
		if Same(candidate, id) {
			return true
		}
	}
	return false
}

// =========================================================================
// TEAM MEMBERSHIP
// =========================================================================

// findMember returns the members-list entry for who, or nil.
func findMember(team *model.Team, who Subject) *model.Member {
	if team == nil {
		return nil
	}
	id := subjectID(who)
	for i := range team.Members {
		if Same(team.Members[i].UserID, id) {
			return &team.Members[i]
		}
	}
	return nil
}

// IsMember reports whether who appears in team.Members.
func IsMember(team *model.Team, who Subject) bool {
	return findMember(team, who) != nil
}

// RoleOf returns who's role in team. The members list is authoritative: if
// team.Owner disagrees with the "owner" entry in Members, the entry wins.
func RoleOf(team *model.Team, who Subject) (model.Role, bool) {
	m := findMember(team, who)
	if m == nil {
		return "", false
	}
	return m.Role, true
}

// CanManageTeam reports whether who may update the team, add or remove
// members, or regenerate the invite code. Only owner and admin roles may.
func CanManageTeam(team *model.Team, who Subject) bool {
	role, ok := RoleOf(team, who)
	return ok && role.CanManageTeam()
}

// IsTeamOwner reports whether who holds the owner role in team.
// Team deletion and project submission require it.
func IsTeamOwner(team *model.Team, who Subject) bool {
	role, ok := RoleOf(team, who)
	return ok && role == model.RoleOwner
}

// =========================================================================
// PROJECTS
// =========================================================================

// CanAccessProject grants read access when who is the project owner, a
// collaborator, or a member of the project's team. team may be nil when the
// owning team no longer exists; the first two rules still apply.
func CanAccessProject(project *model.Project, team *model.Team, who Subject) bool {
	if project == nil {
		return false
	}
	if IsProjectOwner(project, who) {
		return true
	}
	if contains(project.Collaborators, who) {
		return true
	}
	if team != nil && Same(team.ID, project.TeamID) && IsMember(team, who) {
		return true
	}
	return false
}

// IsProjectOwner gates collaborator management, showcase toggling and
// project deletion.
func IsProjectOwner(project *model.Project, who Subject) bool {
	return project != nil && Same(project.Owner, subjectID(who))
}

// CanEditProject reports whether who may update the project's fields.
func CanEditProject(project *model.Project, who Subject) bool {
	return IsProjectOwner(project, who) || (project != nil && contains(project.Collaborators, who))
}

// =========================================================================
// TASKS
// =========================================================================

// CanAccessTask delegates to the parent project.
func CanAccessTask(project *model.Project, team *model.Team, who Subject) bool {
	return CanAccessProject(project, team, who)
}

// CanDeleteTask allows the task's creator or the parent project's owner.
// Collaborators and assignees cannot delete tasks they did not create.
func CanDeleteTask(task *model.Task, project *model.Project, who Subject) bool {
	if task == nil {
		return false
	}
	return Same(task.CreatedBy, subjectID(who)) || IsProjectOwner(project, who)
}

// TaskEdit is the extent to which a caller may change a task.
type TaskEdit int

const (
	TaskEditNone   TaskEdit = iota
	TaskEditStatus          // self-service: only the status field
	TaskEditFull
)

// TaskEditFor resolves how much of task who may change. The project owner,
// project collaborators and the task's creator manage every field. The
// assignee may only move the status.
func TaskEditFor(task *model.Task, project *model.Project, who Subject) TaskEdit {
	if task == nil || project == nil {
		return TaskEditNone
	}
	id := subjectID(who)
	switch {
	case CanEditProject(project, who), Same(task.CreatedBy, id):
		return TaskEditFull
	case Same(task.AssignedTo, id):
		return TaskEditStatus
	}
	return TaskEditNone
}
