package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/models"

	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Mailer delivers a single email. The SMTP implementation lives in utils;
// tests inject a fake.
type Mailer interface {
	Send(to, subject, body string) error
}

type ProjectService struct {
	ProjectsCollection *mongo.Collection
	TasksCollection    *mongo.Collection
	UsersCollection    *mongo.Collection
	Mailer             Mailer
	EmailBreaker       *gobreaker.CircuitBreaker
}

func NewProjectService(projects, tasks, users *mongo.Collection, mailer Mailer, breaker *gobreaker.CircuitBreaker) *ProjectService {
	return &ProjectService{
		ProjectsCollection: projects,
		TasksCollection:    tasks,
		UsersCollection:    users,
		Mailer:             mailer,
		EmailBreaker:       breaker,
	}
}

// ProjectSummary is a project annotated with the caller's own task count and
// role, as shown on the dashboard listing.
type ProjectSummary struct {
	models.Project `bson:",inline"`
	TaskCount      int64             `json:"taskCount"`
	UserRole       models.MemberRole `json:"userRole"`
}

// ProjectDetail is a full project plus the caller's role.
type ProjectDetail struct {
	models.Project
	UserRole models.MemberRole `json:"userRole"`
}

// PublicProjectInfo is the subset exposed without membership, used by the
// join page reached from an invitation link.
type PublicProjectInfo struct {
	ID            primitive.ObjectID `json:"id"`
	Name          string             `json:"name"`
	Description   string             `json:"description"`
	CreatedAt     time.Time          `json:"createdAt"`
	WorkspaceCode string             `json:"workspaceCode"`
	IsMember      bool               `json:"isMember"`
}

type JoinResult struct {
	AlreadyMember bool           `json:"alreadyMember"`
	Project       models.Project `json:"project"`
}

// MemberTaskCounts buckets a member's project tasks by status.
type MemberTaskCounts struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"inProgress"`
	ToDo       int `json:"todo"`
}

// MemberInfo joins a membership entry with the user's display fields and
// task counts.
type MemberInfo struct {
	User       primitive.ObjectID `json:"user"`
	Name       string             `json:"name"`
	Email      string             `json:"email"`
	Role       models.MemberRole  `json:"role"`
	JoinedAt   time.Time          `json:"joinedAt"`
	TaskCounts MemberTaskCounts   `json:"taskCounts"`
}

type InviteFailure struct {
	Email string `json:"email"`
	Error string `json:"error"`
}

// InviteResult partitions a bulk invitation by delivery outcome.
type InviteResult struct {
	Successful []string        `json:"successful"`
	Failed     []InviteFailure `json:"failed"`
}

// findProject resolves an id string to a project document, mapping a bad id
// to a validation failure and an absent document to ErrNotFound.
func (s *ProjectService) findProject(ctx context.Context, projectID string) (*models.Project, error) {
	objectID, err := primitive.ObjectIDFromHex(projectID)
	if err != nil {
		return nil, NewValidationError("invalid project ID format")
	}

	var project models.Project
	if err := s.ProjectsCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&project); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("project %s: %w", projectID, ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching project: %v", err)
	}

	if project.EnsureLeadMembership() {
		logging.Logger.Warnf("Event ID: LEAD_MEMBERSHIP_HEALED, Description: lead was missing from members of project %s", projectID)
		if _, err := s.ProjectsCollection.UpdateOne(ctx,
			bson.M{"_id": project.ID},
			bson.M{"$set": bson.M{"members": project.Members}},
		); err != nil {
			logging.Logger.Warnf("Event ID: LEAD_MEMBERSHIP_PERSIST_FAILED, Description: failed to persist healed members of project %s: %v", projectID, err)
		}
	}

	return &project, nil
}

// ListProjectsForUser returns every project the user belongs to, most
// recently active first, each annotated with the user's task count and role.
func (s *ProjectService) ListProjectsForUser(ctx context.Context, userID primitive.ObjectID) ([]ProjectSummary, error) {
	opts := optionsFindSort(bson.D{{Key: "lastActivity", Value: -1}})
	cursor, err := s.ProjectsCollection.Find(ctx, bson.M{"members.user": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve projects: %v", err)
	}
	defer cursor.Close(ctx)

	var projects []models.Project
	if err := cursor.All(ctx, &projects); err != nil {
		return nil, fmt.Errorf("failed to decode projects: %v", err)
	}

	summaries := make([]ProjectSummary, 0, len(projects))
	for _, p := range projects {
		count, err := s.TasksCollection.CountDocuments(ctx, bson.M{
			"project":    p.ID,
			"assignedTo": userID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to count tasks for project %s: %v", p.ID.Hex(), err)
		}
		summaries = append(summaries, ProjectSummary{
			Project:   p,
			TaskCount: count,
			UserRole:  RoleOf(&p, userID),
		})
	}

	return summaries, nil
}

// CreateProject persists a new project with the caller as lead and sole
// member.
func (s *ProjectService) CreateProject(ctx context.Context, userID primitive.ObjectID, name, description string) (*models.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, NewValidationError("a project must have a name")
	}

	project := models.NewProject(name, strings.TrimSpace(description), userID)

	if _, err := s.ProjectsCollection.InsertOne(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %v", err)
	}

	logging.Logger.Infof("Event ID: PROJECT_CREATED, Description: project %s created by user %s", project.ID.Hex(), userID.Hex())
	return project, nil
}

// GetProject returns the project with the caller's role. Not-found wins over
// forbidden when both could apply.
func (s *ProjectService) GetProject(ctx context.Context, userID primitive.ObjectID, projectID string) (*ProjectDetail, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	return &ProjectDetail{
		Project:  *project,
		UserRole: RoleOf(project, userID),
	}, nil
}

// GetPublicProjectInfo returns the membership-free subset shown on the join
// page. IsMember is computed only when a caller identity is present.
func (s *ProjectService) GetPublicProjectInfo(ctx context.Context, projectID string, userID *primitive.ObjectID) (*PublicProjectInfo, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	info := &PublicProjectInfo{
		ID:            project.ID,
		Name:          project.Name,
		Description:   project.Description,
		CreatedAt:     project.CreatedAt,
		WorkspaceCode: project.WorkspaceCode,
	}
	if userID != nil {
		info.IsMember = IsMember(project, *userID)
	}

	return info, nil
}

// JoinProject adds the caller as a Member. Joining twice is not an error:
// the second call reports AlreadyMember without touching the document. The
// membership push is guarded on "members.user" so two concurrent joins
// cannot both append.
func (s *ProjectService) JoinProject(ctx context.Context, userID primitive.ObjectID, projectID string) (*JoinResult, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if IsMember(project, userID) {
		return &JoinResult{AlreadyMember: true, Project: *project}, nil
	}

	now := time.Now()
	filter := bson.M{
		"_id":          project.ID,
		"members.user": bson.M{"$ne": userID},
	}
	update := bson.M{
		"$push": bson.M{"members": models.Member{
			User:     userID,
			Role:     models.RoleMember,
			JoinedAt: now,
		}},
		"$set": bson.M{"lastActivity": now},
	}

	result, err := s.ProjectsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return nil, fmt.Errorf("failed to join project: %v", err)
	}
	if result.ModifiedCount == 0 {
		// Lost a race with a concurrent join by the same user.
		return &JoinResult{AlreadyMember: true, Project: *project}, nil
	}

	updated, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	logging.Logger.Infof("Event ID: PROJECT_JOINED, Description: user %s joined project %s", userID.Hex(), projectID)
	return &JoinResult{AlreadyMember: false, Project: *updated}, nil
}

// ListMembers returns every member with display fields and per-status task
// counts for this project.
func (s *ProjectService) ListMembers(ctx context.Context, userID primitive.ObjectID, projectID string) ([]MemberInfo, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	memberIDs := make([]primitive.ObjectID, 0, len(project.Members))
	for _, m := range project.Members {
		memberIDs = append(memberIDs, m.User)
	}

	cursor, err := s.UsersCollection.Find(ctx, bson.M{"_id": bson.M{"$in": memberIDs}})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve member details: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode member details: %v", err)
	}
	usersByID := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		usersByID[u.ID] = u
	}

	taskCursor, err := s.TasksCollection.Find(ctx, bson.M{"project": project.ID})
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project tasks: %v", err)
	}
	defer taskCursor.Close(ctx)

	var tasks []models.Task
	if err := taskCursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode project tasks: %v", err)
	}

	counts := make(map[primitive.ObjectID]MemberTaskCounts, len(project.Members))
	for _, t := range tasks {
		c := counts[t.AssignedTo]
		c.Total++
		switch t.Status {
		case models.StatusCompleted:
			c.Completed++
		case models.StatusInProgress:
			c.InProgress++
		case models.StatusToDo:
			c.ToDo++
		}
		counts[t.AssignedTo] = c
	}

	members := make([]MemberInfo, 0, len(project.Members))
	for _, m := range project.Members {
		info := MemberInfo{
			User:       m.User,
			Role:       RoleOf(project, m.User),
			JoinedAt:   m.JoinedAt,
			TaskCounts: counts[m.User],
		}
		if u, ok := usersByID[m.User]; ok {
			info.Name = u.Name
			info.Email = u.Email
		}
		members = append(members, info)
	}

	return members, nil
}

// InviteMembers emails a join link to each address. Only the lead may
// invite. A delivery failure for one address never aborts the others;
// lastActivity is bumped exactly once at the end either way.
func (s *ProjectService) InviteMembers(ctx context.Context, userID primitive.ObjectID, projectID string, emails []string, message string) (*InviteResult, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !CanInvite(project, userID) {
		return nil, fmt.Errorf("only project leads can invite members: %w", ErrForbidden)
	}

	if len(emails) == 0 {
		return nil, NewValidationError("at least one email address is required")
	}

	result := s.sendInvites(project, emails, message)

	if _, err := s.ProjectsCollection.UpdateOne(ctx,
		bson.M{"_id": project.ID},
		bson.M{"$set": bson.M{"lastActivity": time.Now()}},
	); err != nil {
		logging.Logger.Warnf("Event ID: LAST_ACTIVITY_UPDATE_FAILED, Description: failed to bump lastActivity for project %s: %v", projectID, err)
	}

	return result, nil
}

// sendInvites runs the per-address delivery loop. Each send goes through the
// email circuit breaker so a dead SMTP relay fails fast instead of stalling
// the batch.
func (s *ProjectService) sendInvites(project *models.Project, emails []string, message string) *InviteResult {
	frontendURL := os.Getenv("FRONTEND_URL")
	if frontendURL == "" {
		frontendURL = "http://localhost:5173"
	}
	joinLink := fmt.Sprintf("%s/projects/join/%s", frontendURL, project.ID.Hex())

	subject := fmt.Sprintf("You've been invited to join %s on TeamSync", project.Name)

	result := &InviteResult{Successful: []string{}, Failed: []InviteFailure{}}
	for _, email := range emails {
		email = strings.TrimSpace(email)
		if email == "" {
			continue
		}

		body := inviteBody(project.Name, joinLink, message)

		_, err := s.EmailBreaker.Execute(func() (interface{}, error) {
			return nil, s.Mailer.Send(email, subject, body)
		})
		if err != nil {
			logging.Logger.Warnf("Event ID: INVITE_SEND_FAILED, Description: failed to send invitation to %s for project %s: %v", email, project.ID.Hex(), err)
			result.Failed = append(result.Failed, InviteFailure{Email: email, Error: err.Error()})
			continue
		}
		result.Successful = append(result.Successful, email)
	}

	return result
}

func inviteBody(projectName, joinLink, message string) string {
	body := fmt.Sprintf("<p>You have been invited to join the project <b>%s</b> on TeamSync.</p>", projectName)
	if message != "" {
		body += fmt.Sprintf("<p>%s</p>", message)
	}
	body += fmt.Sprintf(`<p><a href="%s">Click here to join the project</a></p>`, joinLink)
	return body
}

// AddProjectTask persists a task inside the project and bumps lastActivity.
func (s *ProjectService) AddProjectTask(ctx context.Context, userID primitive.ObjectID, projectID string, task *models.Task) (*models.Task, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	if strings.TrimSpace(task.Title) == "" {
		return nil, NewValidationError("a task must have a title")
	}
	if task.AssignedTo.IsZero() {
		return nil, NewValidationError("a task must be assigned to a user")
	}

	task.ID = primitive.NewObjectID()
	task.Title = strings.TrimSpace(task.Title)
	task.IsPersonal = false
	task.Project = &project.ID
	task.AssignedBy = userID
	task.CreatedAt = time.Now()
	task.ApplyDefaults()
	if !models.ValidTaskStatus(task.Status) {
		return nil, NewValidationError(fmt.Sprintf("invalid task status: %s", task.Status))
	}
	if !models.ValidTaskPriority(task.Priority) {
		return nil, NewValidationError(fmt.Sprintf("invalid task priority: %s", task.Priority))
	}
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

// ListProjectTasks returns all tasks of the project, soonest due first.
func (s *ProjectService) ListProjectTasks(ctx context.Context, userID primitive.ObjectID, projectID string) ([]models.Task, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}

	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	cursor, err := s.TasksCollection.Find(ctx, bson.M{"project": project.ID}, optionsFindSort(bson.D{{Key: "dueDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve project tasks: %v", err)
	}
	defer cursor.Close(ctx)

	tasks := []models.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to decode project tasks: %v", err)
	}

	return tasks, nil
}
