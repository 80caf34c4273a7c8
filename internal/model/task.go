package model

import "time"

// TaskStatus is the workflow state of a task.
type TaskStatus string

const (
	TaskTodo       TaskStatus = "todo"
	TaskInProgress TaskStatus = "in-progress"
	TaskReview     TaskStatus = "review"
	TaskCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a known task status.
func (s TaskStatus) Valid() bool {
	switch s {
	case TaskTodo, TaskInProgress, TaskReview, TaskCompleted:
		return true
	}
	return false
}

// Task is an actionable item inside a project.
type Task struct {
	ID             string     `json:"id"                   bson:"_id"`
	Title          string     `json:"title"                bson:"title"`
	Description    string     `json:"description"          bson:"description"`
	Status         TaskStatus `json:"status"               bson:"status"`
	Priority       Priority   `json:"priority"             bson:"priority"`
	ProjectID      string     `json:"project"              bson:"project"`
	AssignedTo     string     `json:"assignedTo,omitempty" bson:"assignedTo,omitempty"`
	CreatedBy      string     `json:"createdBy"            bson:"createdBy"`
	DueDate        *time.Time `json:"dueDate,omitempty"    bson:"dueDate,omitempty"`
	EstimatedHours float64    `json:"estimatedHours"       bson:"estimatedHours"`
	ActualHours    float64    `json:"actualHours"          bson:"actualHours"`
	Tags           []string   `json:"tags"                 bson:"tags"`
	Comments       []Comment  `json:"comments"             bson:"comments"`
	CreatedAt      time.Time  `json:"createdAt"            bson:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"            bson:"updatedAt"`
	Version        int64      `json:"-"                    bson:"version"`
}
