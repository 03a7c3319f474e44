package models

import "github.com/joescharf/pulse/internal/timeutil"

// TaskStatus is the board column a task sits in.
type TaskStatus string

const (
	TaskToDo       TaskStatus = "To Do"
	TaskInProgress TaskStatus = "In Progress"
	TaskReview     TaskStatus = "Review"
	TaskBlocked    TaskStatus = "Blocked"
	TaskDone       TaskStatus = "Done"
)

var taskStatuses = []TaskStatus{TaskToDo, TaskInProgress, TaskReview, TaskBlocked, TaskDone}

// ParseTaskStatus resolves s case-insensitively. "Open" and "Todo" map to To Do;
// empty defaults to To Do.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch normalizeEnum(s) {
	case "", "open", "todo":
		return TaskToDo, nil
	case "completed":
		return TaskDone, nil
	}
	return parseEnum("task status", s, taskStatuses)
}

func (s TaskStatus) IsValid() bool { return isOneOf(s, taskStatuses) }

// Task is a unit of work within a project.
type Task struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"projectId"`
	Title       string          `json:"title"`
	IsCompleted bool            `json:"isCompleted"`
	Status      TaskStatus      `json:"status"`
	Priority    Priority        `json:"priority"`
	DueDate     timeutil.Millis `json:"dueDate"`
	CreatedAt   timeutil.Millis `json:"createdAt"`
}
