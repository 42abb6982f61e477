package models

import (
	"math"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type TaskStatus string

const (
	StatusToDo       TaskStatus = "To Do"
	StatusInProgress TaskStatus = "In Progress"
	StatusBlocked    TaskStatus = "Blocked"
	StatusCompleted  TaskStatus = "Completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "Low"
	PriorityMedium TaskPriority = "Medium"
	PriorityHigh   TaskPriority = "High"
)

// ValidTaskStatus reports whether s is one of the four task statuses.
func ValidTaskStatus(s TaskStatus) bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusBlocked, StatusCompleted:
		return true
	}
	return false
}

// ValidSubtaskStatus reports whether s is allowed on a subtask. Subtasks have
// no Blocked state.
func ValidSubtaskStatus(s TaskStatus) bool {
	switch s {
	case StatusToDo, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

func ValidTaskPriority(p TaskPriority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Subtask is embedded in its parent task and carries its own generated id.
type Subtask struct {
	ID         primitive.ObjectID  `bson:"_id" json:"id"`
	Title      string              `bson:"title" json:"title"`
	Status     TaskStatus          `bson:"status" json:"status"`
	AssignedTo *primitive.ObjectID `bson:"assignedTo,omitempty" json:"assignedTo,omitempty"`
	DueDate    *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	CreatedAt  time.Time           `bson:"createdAt" json:"createdAt"`
}

type Task struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	Title       string              `bson:"title" json:"title"`
	Description string              `bson:"description" json:"description"`
	Status      TaskStatus          `bson:"status" json:"status"`
	Priority    TaskPriority        `bson:"priority" json:"priority"`
	DueDate     *time.Time          `bson:"dueDate,omitempty" json:"dueDate,omitempty"`
	Progress    int                 `bson:"progress" json:"progress"`
	IsPersonal  bool                `bson:"isPersonal" json:"isPersonal"`
	Project     *primitive.ObjectID `bson:"project,omitempty" json:"project,omitempty"`
	AssignedTo  primitive.ObjectID  `bson:"assignedTo" json:"assignedTo"`
	AssignedBy  primitive.ObjectID  `bson:"assignedBy" json:"assignedBy"`
	Subtasks    []Subtask           `bson:"subtasks" json:"subtasks"`
	Tags        []string            `bson:"tags" json:"tags"`
	CreatedAt   time.Time           `bson:"createdAt" json:"createdAt"`
}

// ApplyDefaults fills the enum fields the client may omit.
func (t *Task) ApplyDefaults() {
	if t.Status == "" {
		t.Status = StatusToDo
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
}

// RecalculateProgress recomputes the subtask-derived progress percentage.
// Tasks without subtasks keep whatever progress they have (0 for new tasks);
// progress is never driven by the task's own status.
func (t *Task) RecalculateProgress() {
	if len(t.Subtasks) == 0 {
		return
	}
	completed := 0
	for _, s := range t.Subtasks {
		if s.Status == StatusCompleted {
			completed++
		}
	}
	t.Progress = int(math.Round(float64(completed) / float64(len(t.Subtasks)) * 100))
}

// Subtask returns a pointer into the embedded subtask list, or nil when no
// entry matches the id.
func (t *Task) Subtask(id primitive.ObjectID) *Subtask {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			return &t.Subtasks[i]
		}
	}
	return nil
}

// RemoveSubtask deletes the matching entry, reporting whether it was found.
func (t *Task) RemoveSubtask(id primitive.ObjectID) bool {
	for i := range t.Subtasks {
		if t.Subtasks[i].ID == id {
			t.Subtasks = append(t.Subtasks[:i], t.Subtasks[i+1:]...)
			return true
		}
	}
	return false
}
