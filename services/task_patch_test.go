package services

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/nithinknkr/TeamSync/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func testTask(assignee primitive.ObjectID) *models.Task {
	due := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &models.Task{
		ID:         primitive.NewObjectID(),
		Title:      "Ship it",
		Status:     models.StatusToDo,
		Priority:   models.PriorityMedium,
		DueDate:    &due,
		AssignedTo: assignee,
		AssignedBy: assignee,
	}
}

func TestTaskPatchDueDateDecoding(t *testing.T) {
	var patch TaskPatch
	if err := json.Unmarshal([]byte(`{"title":"x"}`), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if patch.DueDate.Set {
		t.Error("absent dueDate should not be marked set")
	}

	patch = TaskPatch{}
	if err := json.Unmarshal([]byte(`{"dueDate":null}`), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !patch.DueDate.Set || patch.DueDate.Value != nil {
		t.Errorf("explicit null should mark the field set with no value, got %+v", patch.DueDate)
	}

	patch = TaskPatch{}
	if err := json.Unmarshal([]byte(`{"dueDate":"2026-09-01T00:00:00Z"}`), &patch); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !patch.DueDate.Set || patch.DueDate.Value == nil {
		t.Fatalf("dated patch not decoded: %+v", patch.DueDate)
	}
	if got := *patch.DueDate.Value; !got.Equal(time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("dueDate = %v", got)
	}
}

func TestApplyTaskPatchClearsDueDate(t *testing.T) {
	task := testTask(primitive.NewObjectID())

	if err := applyTaskPatch(task, TaskPatch{DueDate: OptionalTime{Set: true}}); err != nil {
		t.Fatalf("applyTaskPatch: %v", err)
	}
	if task.DueDate != nil {
		t.Errorf("dueDate not cleared: %v", task.DueDate)
	}
}

func TestApplyTaskPatchLeavesUnsetFieldsAlone(t *testing.T) {
	task := testTask(primitive.NewObjectID())
	originalDue := *task.DueDate

	status := models.StatusInProgress
	if err := applyTaskPatch(task, TaskPatch{Status: &status}); err != nil {
		t.Fatalf("applyTaskPatch: %v", err)
	}
	if task.Status != models.StatusInProgress {
		t.Errorf("status = %q", task.Status)
	}
	if task.DueDate == nil || !task.DueDate.Equal(originalDue) {
		t.Errorf("untouched dueDate changed: %v", task.DueDate)
	}
	if task.Title != "Ship it" {
		t.Errorf("untouched title changed: %q", task.Title)
	}
}

func TestApplyTaskPatchReassigns(t *testing.T) {
	task := testTask(primitive.NewObjectID())
	newAssignee := primitive.NewObjectID()

	if err := applyTaskPatch(task, TaskPatch{AssignedTo: &newAssignee}); err != nil {
		t.Fatalf("applyTaskPatch: %v", err)
	}
	if task.AssignedTo != newAssignee {
		t.Errorf("assignedTo = %s, want %s", task.AssignedTo.Hex(), newAssignee.Hex())
	}

	zero := primitive.NilObjectID
	if err := applyTaskPatch(task, TaskPatch{AssignedTo: &zero}); !IsValidation(err) {
		t.Errorf("zero assignee: err = %v", err)
	}
}

func TestApplyTaskPatchRejectsBadFields(t *testing.T) {
	empty := "   "
	if err := applyTaskPatch(testTask(primitive.NewObjectID()), TaskPatch{Title: &empty}); !IsValidation(err) {
		t.Errorf("blank title: err = %v", err)
	}

	badStatus := models.TaskStatus("Paused")
	if err := applyTaskPatch(testTask(primitive.NewObjectID()), TaskPatch{Status: &badStatus}); !IsValidation(err) {
		t.Errorf("bad status: err = %v", err)
	}

	badPriority := models.TaskPriority("Urgent")
	if err := applyTaskPatch(testTask(primitive.NewObjectID()), TaskPatch{Priority: &badPriority}); !IsValidation(err) {
		t.Errorf("bad priority: err = %v", err)
	}
}

func TestApplyTaskPatchRecomputesProgress(t *testing.T) {
	task := testTask(primitive.NewObjectID())
	task.Subtasks = []models.Subtask{
		{ID: primitive.NewObjectID(), Title: "a", Status: models.StatusCompleted},
		{ID: primitive.NewObjectID(), Title: "b", Status: models.StatusToDo},
	}

	if err := applyTaskPatch(task, TaskPatch{}); err != nil {
		t.Fatalf("applyTaskPatch: %v", err)
	}
	if task.Progress != 50 {
		t.Errorf("progress = %d, want 50", task.Progress)
	}
}
