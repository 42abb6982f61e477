package models

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestRecalculateProgress(t *testing.T) {
	tests := []struct {
		name     string
		statuses []TaskStatus
		initial  int
		want     int
	}{
		{"no subtasks leaves progress untouched", nil, 40, 40},
		{"none completed", []TaskStatus{StatusToDo, StatusInProgress}, 0, 0},
		{"one of three rounds to 33", []TaskStatus{StatusCompleted, StatusToDo, StatusToDo}, 0, 33},
		{"two of three rounds to 67", []TaskStatus{StatusCompleted, StatusCompleted, StatusToDo}, 0, 67},
		{"all completed", []TaskStatus{StatusCompleted, StatusCompleted}, 0, 100},
		{"half completed", []TaskStatus{StatusCompleted, StatusToDo}, 0, 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := Task{Progress: tt.initial}
			for _, s := range tt.statuses {
				task.Subtasks = append(task.Subtasks, Subtask{ID: primitive.NewObjectID(), Status: s})
			}
			task.RecalculateProgress()
			if task.Progress != tt.want {
				t.Errorf("progress = %d, want %d", task.Progress, tt.want)
			}
		})
	}
}

func TestApplyDefaults(t *testing.T) {
	task := Task{}
	task.ApplyDefaults()
	if task.Status != StatusToDo {
		t.Errorf("default status = %q, want %q", task.Status, StatusToDo)
	}
	if task.Priority != PriorityMedium {
		t.Errorf("default priority = %q, want %q", task.Priority, PriorityMedium)
	}

	task = Task{Status: StatusBlocked, Priority: PriorityHigh}
	task.ApplyDefaults()
	if task.Status != StatusBlocked || task.Priority != PriorityHigh {
		t.Error("ApplyDefaults overwrote explicit values")
	}
}

func TestValidTaskStatus(t *testing.T) {
	for _, s := range []TaskStatus{StatusToDo, StatusInProgress, StatusBlocked, StatusCompleted} {
		if !ValidTaskStatus(s) {
			t.Errorf("ValidTaskStatus(%q) = false", s)
		}
	}
	if ValidTaskStatus("Done") {
		t.Error(`ValidTaskStatus("Done") = true`)
	}

	if ValidSubtaskStatus(StatusBlocked) {
		t.Error("subtasks must not accept the Blocked status")
	}
	if !ValidSubtaskStatus(StatusCompleted) {
		t.Error("ValidSubtaskStatus(Completed) = false")
	}
}

func TestSubtaskLookupAndRemove(t *testing.T) {
	first := Subtask{ID: primitive.NewObjectID(), Title: "first"}
	second := Subtask{ID: primitive.NewObjectID(), Title: "second"}
	task := Task{Subtasks: []Subtask{first, second}}

	if got := task.Subtask(second.ID); got == nil || got.Title != "second" {
		t.Fatalf("Subtask(%s) = %v", second.ID.Hex(), got)
	}
	if task.Subtask(primitive.NewObjectID()) != nil {
		t.Error("lookup of unknown id should return nil")
	}

	if !task.RemoveSubtask(first.ID) {
		t.Fatal("RemoveSubtask returned false for an existing entry")
	}
	if len(task.Subtasks) != 1 || task.Subtasks[0].ID != second.ID {
		t.Errorf("subtasks after removal = %v", task.Subtasks)
	}
	if task.RemoveSubtask(first.ID) {
		t.Error("RemoveSubtask returned true for an already-removed entry")
	}
}
