package model

import (
	"math"
	"time"
)

// ProjectStatus is the lifecycle state a team sets on its project.
type ProjectStatus string

const (
	ProjectPlanning   ProjectStatus = "planning"
	ProjectInProgress ProjectStatus = "in-progress"
	ProjectTesting    ProjectStatus = "testing"
	ProjectCompleted  ProjectStatus = "completed"
	ProjectPaused     ProjectStatus = "paused"
)

// Valid reports whether s is a known project status.
func (s ProjectStatus) Valid() bool {
	switch s {
	case ProjectPlanning, ProjectInProgress, ProjectTesting, ProjectCompleted, ProjectPaused:
		return true
	}
	return false
}

// Category classifies a project for the showcase.
type Category string

const (
	CategoryWeb        Category = "web"
	CategoryMobile     Category = "mobile"
	CategoryAI         Category = "ai"
	CategoryBlockchain Category = "blockchain"
	CategoryIoT        Category = "iot"
	CategoryGame       Category = "game"
	CategoryOther      Category = "other"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	switch c {
	case CategoryWeb, CategoryMobile, CategoryAI, CategoryBlockchain, CategoryIoT, CategoryGame, CategoryOther:
		return true
	}
	return false
}

// Priority is shared by projects and tasks.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Links are the external URLs attached to a project. LiveDemo and Repository
// are filled in when the project is submitted for judging.
type Links struct {
	GitHub        string `json:"github,omitempty"        bson:"github,omitempty"`
	Demo          string `json:"demo,omitempty"          bson:"demo,omitempty"`
	Design        string `json:"design,omitempty"        bson:"design,omitempty"`
	Documentation string `json:"documentation,omitempty" bson:"documentation,omitempty"`
	LiveDemo      string `json:"liveDemo,omitempty"      bson:"liveDemo,omitempty"`
	Repository    string `json:"repository,omitempty"    bson:"repository,omitempty"`
}

// Like records one user's like on a showcased project.
type Like struct {
	UserID    string    `json:"userId"    bson:"userId"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Comment is used both for showcase comments and task comments.
type Comment struct {
	ID        string    `json:"id"        bson:"id"`
	UserID    string    `json:"userId"    bson:"userId"`
	Text      string    `json:"text"      bson:"text"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Showcase holds the public-gallery state of a project.
type Showcase struct {
	IsPublic bool      `json:"isPublic" bson:"isPublic"`
	Views    int       `json:"views"    bson:"views"`
	Likes    []Like    `json:"likes"    bson:"likes"`
	Comments []Comment `json:"comments" bson:"comments"`
}

// LikedBy reports whether userID has liked the project.
func (s *Showcase) LikedBy(userID string) bool {
	for _, l := range s.Likes {
		if l.UserID == userID {
			return true
		}
	}
	return false
}

// ProjectMetrics are the task counters derived alongside Progress.
type ProjectMetrics struct {
	TotalTasks     int `json:"totalTasks"     bson:"totalTasks"`
	CompletedTasks int `json:"completedTasks" bson:"completedTasks"`
}

// Project is a unit of work owned by a team.
//
// Progress and Metrics are derived from the project's tasks and are never set
// from client input; see ApplyProgress.
type Project struct {
	ID               string         `json:"id"                         bson:"_id"`
	Title            string         `json:"title"                      bson:"title"`
	Description      string         `json:"description"                bson:"description"`
	ShortDescription string         `json:"shortDescription,omitempty" bson:"shortDescription,omitempty"`
	Tags             []string       `json:"tags"                       bson:"tags"`
	Category         Category       `json:"category"                   bson:"category"`
	TeamID           string         `json:"team"                       bson:"team"`
	Owner            string         `json:"owner"                      bson:"owner"`
	Collaborators    []string       `json:"collaborators"              bson:"collaborators"`
	Status           ProjectStatus  `json:"status"                     bson:"status"`
	Priority         Priority       `json:"priority"                   bson:"priority"`
	Progress         int            `json:"progress"                   bson:"progress"`
	DueDate          *time.Time     `json:"dueDate,omitempty"          bson:"dueDate,omitempty"`
	Links            Links          `json:"links"                      bson:"links"`
	IsSubmitted      bool           `json:"isSubmitted"                bson:"isSubmitted"`
	SubmissionID     string         `json:"submissionId,omitempty"     bson:"submissionId,omitempty"`
	Showcase         Showcase       `json:"showcase"                   bson:"showcase"`
	Tasks            []string       `json:"tasks"                      bson:"tasks"`
	Metrics          ProjectMetrics `json:"metrics"                    bson:"metrics"`
	CreatedAt        time.Time      `json:"createdAt"                  bson:"createdAt"`
	UpdatedAt        time.Time      `json:"updatedAt"                  bson:"updatedAt"`
	Version          int64          `json:"-"                          bson:"version"`
}

// IsCollaborator reports whether userID is listed as a collaborator.
func (p *Project) IsCollaborator(userID string) bool {
	for _, id := range p.Collaborators {
		if id == userID {
			return true
		}
	}
	return false
}

// HasTask reports whether taskID is linked to the project.
func (p *Project) HasTask(taskID string) bool {
	for _, id := range p.Tasks {
		if id == taskID {
			return true
		}
	}
	return false
}

// ApplyProgress recomputes Progress and Metrics from the project's tasks.
// Progress is round(completed/total*100), and 0 for a project without tasks.
func (p *Project) ApplyProgress(tasks []Task) {
	total, completed := len(tasks), 0
	for _, t := range tasks {
		if t.Status == TaskCompleted {
			completed++
		}
	}
	p.Metrics = ProjectMetrics{TotalTasks: total, CompletedTasks: completed}
	if total == 0 {
		p.Progress = 0
		return
	}
	p.Progress = int(math.Round(float64(completed) / float64(total) * 100))
}
