package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

type TaskService struct {
	TasksCollection    *mongo.Collection
	ProjectsCollection *mongo.Collection
}

func NewTaskService(tasks, projects *mongo.Collection) *TaskService {
	return &TaskService{
		TasksCollection:    tasks,
		ProjectsCollection: projects,
	}
}

// OptionalTime distinguishes an absent field from an explicit null, so a
// patch can clear a due date.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if string(data) == "null" {
		o.Value = nil
		return nil
	}
	return json.Unmarshal(data, &o.Value)
}

// TaskPatch carries the updatable task fields; nil (or unset, for the due
// date) means "leave unchanged".
type TaskPatch struct {
	Title       *string              `json:"title"`
	Description *string              `json:"description"`
	Status      *models.TaskStatus   `json:"status"`
	Priority    *models.TaskPriority `json:"priority"`
	DueDate     OptionalTime         `json:"dueDate"`
	AssignedTo  *primitive.ObjectID  `json:"assignedTo"`
	Tags        *[]string            `json:"tags"`
}

// SubtaskPatch carries the updatable subtask fields.
type SubtaskPatch struct {
	Title      *string             `json:"title"`
	Status     *models.TaskStatus  `json:"status"`
	AssignedTo *primitive.ObjectID `json:"assignedTo"`
	DueDate    *time.Time          `json:"dueDate"`
}

// findTask resolves an id string to a task document.
func (s *TaskService) findTask(ctx context.Context, taskID string) (*models.Task, error) {
	objectID, err := primitive.ObjectIDFromHex(taskID)
	if err != nil {
		return nil, NewValidationError("invalid task ID format")
	}

	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&task); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("task %s: %w", taskID, ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching task: %v", err)
	}

	return &task, nil
}

// findTaskForUser fetches the task and checks the assignee-or-assigner rule.
func (s *TaskService) findTaskForUser(ctx context.Context, userID primitive.ObjectID, taskID string) (*models.Task, error) {
	task, err := s.findTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !CanActOnTask(task, userID) {
		return nil, fmt.Errorf("user %s may not act on task %s: %w", userID.Hex(), taskID, ErrForbidden)
	}
	return task, nil
}

// ListTasksForUser returns every task assigned to the user, soonest due
// first. Tasks without a due date sort wherever the store places missing
// values.
func (s *TaskService) ListTasksForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Task, error) {
	cursor, err := s.TasksCollection.Find(ctx, bson.M{"assignedTo": userID}, optionsFindSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode tasks: %v", err)
	}

	return tasks, nil
}

// validateNewTask normalizes and checks the fields common to both task
// creation paths.
func validateNewTask(task *models.Task) error {
	task.Title = strings.TrimSpace(task.Title)
	if task.Title == "" {
		return NewValidationError("a task must have a title")
	}
	task.ApplyDefaults()
	if !models.ValidTaskStatus(task.Status) {
		return NewValidationError(fmt.Sprintf("invalid task status: %s", task.Status))
	}
	if !models.ValidTaskPriority(task.Priority) {
		return NewValidationError(fmt.Sprintf("invalid task priority: %s", task.Priority))
	}
	return nil
}

// CreatePersonalTask persists a self-assigned task outside any project.
func (s *TaskService) CreatePersonalTask(ctx context.Context, userID primitive.ObjectID, task *models.Task) (*models.Task, error) {
	if err := validateNewTask(task); err != nil {
		return nil, err
	}

	task.ID = primitive.NewObjectID()
	task.IsPersonal = true
	task.Project = nil
	task.AssignedTo = userID
	task.AssignedBy = userID
	task.CreatedAt = time.Now()
	task.RecalculateProgress()

	if _, err := s.TasksCollection.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}

	return task, nil
}

// CreateProjectTask persists a task inside a project. Only a Lead may assign
// the task to someone other than themself.
func (s *TaskService) CreateProjectTask(ctx context.Context, userID primitive.ObjectID, projectID string, task *models.Task) (*models.Task, error) {
	projectObjectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, NewValidationError("invalid project ID format")
	}

	var project models.Project
	if err := s.ProjectsCollection.FindOne(ctx, bson.M{"_id": projectObjectID}).Decode(&project); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching project: %v", err)
	}
	project.EnsureLeadMembership()

	if !IsMember(&project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	if task.AssignedTo.IsZero() {
		task.AssignedTo = userID
	}
	if !CanAssignTask(&project, userID, task.AssignedTo) {
		return nil, fmt.Errorf("only project leads can assign tasks to other members: %w", ErrForbidden)
	}

	if err := validateNewTask(task); err != nil {
		return nil, err
	}

	task.ID = primitive.NewObjectID()
	task.IsPersonal = false
	task.Project = &project.ID
	task.AssignedBy = userID
	task.CreatedAt = time.Now()
	task.RecalculateProgress()

	if _, err := s.TasksCollection.InsertOne(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %v", err)
	}

	if _, err := s.ProjectsCollection.UpdateOne(ctx,
		bson.M{"_id": project.ID},
		bson.M{"$set": bson.M{"lastActivity": time.Now()}},
	); err != nil {
		logging.Logger.Warnf("Event ID: LAST_ACTIVITY_UPDATE_FAILED, Description: failed to bump lastActivity for project %s: %v", projectID, err)
	}

	return task, nil
}

// GetTask returns a task to its assignee or assigner.
func (s *TaskService) GetTask(ctx context.Context, userID primitive.ObjectID, taskID string) (*models.Task, error) {
	return s.findTaskForUser(ctx, userID, taskID)
}

// applyTaskPatch folds the patch into the task, re-validating enums and
// recomputing the subtask-derived progress.
func applyTaskPatch(task *models.Task, patch TaskPatch) error {
	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return NewValidationError("a task must have a title")
		}
		task.Title = title
	}
	if patch.Description != nil {
		task.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.Status != nil {
		if !models.ValidTaskStatus(*patch.Status) {
			return NewValidationError(fmt.Sprintf("invalid task status: %s", *patch.Status))
		}
		task.Status = *patch.Status
	}
	if patch.Priority != nil {
		if !models.ValidTaskPriority(*patch.Priority) {
			return NewValidationError(fmt.Sprintf("invalid task priority: %s", *patch.Priority))
		}
		task.Priority = *patch.Priority
	}
	if patch.DueDate.Set {
		task.DueDate = patch.DueDate.Value
	}
	if patch.AssignedTo != nil {
		if patch.AssignedTo.IsZero() {
			return NewValidationError("a task must be assigned to a user")
		}
		task.AssignedTo = *patch.AssignedTo
	}
	if patch.Tags != nil {
		task.Tags = *patch.Tags
	}

	task.RecalculateProgress()
	return nil
}

// UpdateTask applies the patch and persists the result.
func (s *TaskService) UpdateTask(ctx context.Context, userID primitive.ObjectID, taskID string, patch TaskPatch) (*models.Task, error) {
	task, err := s.findTaskForUser(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	if err := applyTaskPatch(task, patch); err != nil {
		return nil, err
	}

	if _, err := s.TasksCollection.ReplaceOne(ctx, bson.M{"_id": task.ID}, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %v", err)
	}

	return task, nil
}

// DeleteTask hard-deletes the task. No cascade: subtasks live inside the
// document and weak references from elsewhere stay dangling.
func (s *TaskService) DeleteTask(ctx context.Context, userID primitive.ObjectID, taskID string) error {
	task, err := s.findTaskForUser(ctx, userID, taskID)
	if err != nil {
		return err
	}

	if _, err := s.TasksCollection.DeleteOne(ctx, bson.M{"_id": task.ID}); err != nil {
		return fmt.Errorf("failed to delete task: %v", err)
	}

	return nil
}

// persistSubtasks writes the mutated subtask list and derived progress back
// to the parent document.
func (s *TaskService) persistSubtasks(ctx context.Context, task *models.Task) error {
	task.RecalculateProgress()
	_, err := s.TasksCollection.UpdateOne(ctx,
		bson.M{"_id": task.ID},
		bson.M{"$set": bson.M{"subtasks": task.Subtasks, "progress": task.Progress}},
	)
	if err != nil {
		return fmt.Errorf("failed to update subtasks: %v", err)
	}
	return nil
}

// AddSubtask appends a subtask to the parent and returns the updated task.
func (s *TaskService) AddSubtask(ctx context.Context, userID primitive.ObjectID, taskID string, subtask models.Subtask) (*models.Task, error) {
	task, err := s.findTaskForUser(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	subtask.Title = strings.TrimSpace(subtask.Title)
	if subtask.Title == "" {
		return nil, NewValidationError("a subtask must have a title")
	}
	if subtask.Status == "" {
		subtask.Status = models.StatusToDo
	}
	if !models.ValidSubtaskStatus(subtask.Status) {
		return nil, NewValidationError(fmt.Sprintf("invalid subtask status: %s", subtask.Status))
	}

	subtask.ID = primitive.NewObjectID()
	subtask.CreatedAt = time.Now()
	task.Subtasks = append(task.Subtasks, subtask)

	if err := s.persistSubtasks(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// UpdateSubtask patches one subtask in place and returns the updated task.
func (s *TaskService) UpdateSubtask(ctx context.Context, userID primitive.ObjectID, taskID, subtaskID string, patch SubtaskPatch) (*models.Task, error) {
	task, err := s.findTaskForUser(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	subObjectID, err := primitive.ObjectIDFromHex(subtaskID)
	if err != nil {
		return nil, NewValidationError("invalid subtask ID format")
	}

	subtask := task.Subtask(subObjectID)
	if subtask == nil {
		return nil, fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}

	if patch.Title != nil {
		title := strings.TrimSpace(*patch.Title)
		if title == "" {
			return nil, NewValidationError("a subtask must have a title")
		}
		subtask.Title = title
	}
	if patch.Status != nil {
		if !models.ValidSubtaskStatus(*patch.Status) {
			return nil, NewValidationError(fmt.Sprintf("invalid subtask status: %s", *patch.Status))
		}
		subtask.Status = *patch.Status
	}
	if patch.AssignedTo != nil {
		subtask.AssignedTo = patch.AssignedTo
	}
	if patch.DueDate != nil {
		subtask.DueDate = patch.DueDate
	}

	if err := s.persistSubtasks(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}

// DeleteSubtask removes one subtask and returns the updated task.
func (s *TaskService) DeleteSubtask(ctx context.Context, userID primitive.ObjectID, taskID, subtaskID string) (*models.Task, error) {
	task, err := s.findTaskForUser(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	subObjectID, err := primitive.ObjectIDFromHex(subtaskID)
	if err != nil {
		return nil, NewValidationError("invalid subtask ID format")
	}

	if !task.RemoveSubtask(subObjectID) {
		return nil, fmt.Errorf("subtask %s: %w", subtaskID, ErrNotFound)
	}

	if err := s.persistSubtasks(ctx, task); err != nil {
		return nil, err
	}

	return task, nil
}
