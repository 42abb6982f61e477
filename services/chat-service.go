package services

import (
	"context"
	"fmt"
	"time"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/models"
	"github.com/nithinknkr/TeamSync/realtime"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ChatService owns the two message streams of each project: the team
// broadcast and the member<->lead personal threads. The hub is an injected
// collaborator, not a global.
type ChatService struct {
	MessagesCollection *mongo.Collection
	ProjectsCollection *mongo.Collection
	UsersCollection    *mongo.Collection
	Hub                *realtime.Hub
}

func NewChatService(messages, projects, users *mongo.Collection, hub *realtime.Hub) *ChatService {
	return &ChatService{
		MessagesCollection: messages,
		ProjectsCollection: projects,
		UsersCollection:    users,
		Hub:                hub,
	}
}

// PersonalMessages is a personal-stream read plus the caller's lead flag.
type PersonalMessages struct {
	Messages []models.ChatMessage `json:"messages"`
	IsLead   bool                 `json:"isLead"`
}

// ConversationMember is the display subset of the other party in a thread.
type ConversationMember struct {
	ID   primitive.ObjectID `bson:"_id" json:"id"`
	Name string             `bson:"name" json:"name"`
}

// Conversation is one member<->lead thread summarized by its latest message.
type Conversation struct {
	Member          ConversationMember `bson:"member" json:"member"`
	LastMessage     string             `bson:"lastMessage" json:"lastMessage"`
	LastMessageDate time.Time          `bson:"lastMessageDate" json:"lastMessageDate"`
}

func (s *ChatService) findProject(ctx context.Context, projectID string) (*models.Project, error) {
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

	// Membership checks below depend on the lead-is-a-member invariant.
	project.EnsureLeadMembership()

	return &project, nil
}

// RequireMembership fetches the project and fails closed unless the user is
// a member. Used by the SSE endpoint before a client joins a project topic.
func (s *ChatService) RequireMembership(ctx context.Context, userID primitive.ObjectID, projectID string) error {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return err
	}
	if !IsMember(project, userID) {
		return fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}
	return nil
}

// populateNames fills the display names on a batch of messages from the
// users collection.
func (s *ChatService) populateNames(ctx context.Context, messages []models.ChatMessage) error {
	idSet := make(map[primitive.ObjectID]struct{})
	for _, m := range messages {
		idSet[m.Sender] = struct{}{}
		if m.Recipient != nil {
			idSet[*m.Recipient] = struct{}{}
		}
	}
	if len(idSet) == 0 {
		return nil
	}

	ids := make([]primitive.ObjectID, 0, len(idSet))
	for id := range idSet {
		ids = append(ids, id)
	}

	cursor, err := s.UsersCollection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return fmt.Errorf("failed to retrieve user details: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return fmt.Errorf("failed to decode user details: %v", err)
	}
	names := make(map[primitive.ObjectID]string, len(users))
	for _, u := range users {
		names[u.ID] = u.Name
	}

	for i := range messages {
		messages[i].SenderName = names[messages[i].Sender]
		if messages[i].Recipient != nil {
			messages[i].RecipientName = names[*messages[i].Recipient]
		}
	}

	return nil
}

// SendTeamMessage persists a broadcast message and publishes it to the
// project topic after the write succeeds.
func (s *ChatService) SendTeamMessage(ctx context.Context, userID primitive.ObjectID, projectID, content string) (*models.ChatMessage, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	message := models.ChatMessage{
		ID:         primitive.NewObjectID(),
		Content:    content,
		Sender:     userID,
		Project:    project.ID,
		IsTeamChat: true,
		CreatedAt:  time.Now(),
	}
	if err := message.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	if _, err := s.MessagesCollection.InsertOne(ctx, &message); err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}

	batch := []models.ChatMessage{message}
	if err := s.populateNames(ctx, batch); err != nil {
		logging.Logger.Warnf("Event ID: CHAT_POPULATE_FAILED, Description: failed to populate names on message %s: %v", message.ID.Hex(), err)
	}
	message = batch[0]

	s.Hub.Broadcast(project.ID.Hex(), realtime.Event{Type: realtime.EventNewTeamMessage, Data: message})

	return &message, nil
}

// SendPersonalMessage persists a 1:1 message addressed to the project's
// current lead. The lead cannot message themself.
func (s *ChatService) SendPersonalMessage(ctx context.Context, userID primitive.ObjectID, projectID, content string) (*models.ChatMessage, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	if !CanMessageLead(project, userID) {
		return nil, ErrSelfMessage
	}
	leadID := project.Lead

	message := models.ChatMessage{
		ID:         primitive.NewObjectID(),
		Content:    content,
		Sender:     userID,
		Project:    project.ID,
		IsTeamChat: false,
		Recipient:  &leadID,
		CreatedAt:  time.Now(),
	}
	if err := message.Validate(); err != nil {
		return nil, NewValidationError(err.Error())
	}

	if _, err := s.MessagesCollection.InsertOne(ctx, &message); err != nil {
		return nil, fmt.Errorf("failed to save message: %v", err)
	}

	batch := []models.ChatMessage{message}
	if err := s.populateNames(ctx, batch); err != nil {
		logging.Logger.Warnf("Event ID: CHAT_POPULATE_FAILED, Description: failed to populate names on message %s: %v", message.ID.Hex(), err)
	}
	message = batch[0]

	s.Hub.Broadcast(project.ID.Hex(), realtime.Event{Type: realtime.EventNewPersonalMessage, Data: message})

	return &message, nil
}

// GetTeamMessages returns the team stream oldest first.
func (s *ChatService) GetTeamMessages(ctx context.Context, userID primitive.ObjectID, projectID string) ([]models.ChatMessage, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	cursor, err := s.MessagesCollection.Find(ctx, bson.M{
		"project":    project.ID,
		"isTeamChat": true,
	}, optionsFindSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %v", err)
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %v", err)
	}

	if err := s.populateNames(ctx, messages); err != nil {
		return nil, err
	}

	return messages, nil
}

// GetPersonalMessages returns the caller's personal stream. The lead gets
// every member<->lead thread merged; a member gets only their own thread
// with the lead.
func (s *ChatService) GetPersonalMessages(ctx context.Context, userID primitive.ObjectID, projectID string) (*PersonalMessages, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsMember(project, userID) {
		return nil, fmt.Errorf("user %s is not a member of project %s: %w", userID.Hex(), projectID, ErrForbidden)
	}

	leadID := project.Lead
	isLead := userID == leadID

	var filter bson.M
	if isLead {
		filter = bson.M{
			"project":    project.ID,
			"isTeamChat": false,
			"$or": []bson.M{
				{"sender": userID},
				{"recipient": userID},
			},
		}
	} else {
		filter = bson.M{
			"project":    project.ID,
			"isTeamChat": false,
			"$or": []bson.M{
				{"sender": userID, "recipient": leadID},
				{"sender": leadID, "recipient": userID},
			},
		}
	}

	cursor, err := s.MessagesCollection.Find(ctx, filter, optionsFindSort(bson.D{{Key: "createdAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve messages: %v", err)
	}
	defer cursor.Close(ctx)

	messages := []models.ChatMessage{}
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %v", err)
	}

	if err := s.populateNames(ctx, messages); err != nil {
		return nil, err
	}

	return &PersonalMessages{Messages: messages, IsLead: isLead}, nil
}

// GetPersonalConversations groups the lead's personal messages by the other
// party and summarizes each thread by its latest message, most recent first.
// Lead-only.
func (s *ChatService) GetPersonalConversations(ctx context.Context, userID primitive.ObjectID, projectID string) ([]Conversation, error) {
	project, err := s.findProject(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !IsLead(project, userID) {
		return nil, fmt.Errorf("only project leads can view all personal conversations: %w", ErrForbidden)
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"project":    project.ID,
			"isTeamChat": false,
			"$or": []bson.M{
				{"sender": userID},
				{"recipient": userID},
			},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "createdAt", Value: 1}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{
				"$cond": bson.A{
					bson.M{"$eq": bson.A{"$sender", userID}},
					"$recipient",
					"$sender",
				},
			},
			"lastMessage":     bson.M{"$last": "$content"},
			"lastMessageDate": bson.M{"$max": "$createdAt"},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "lastMessageDate", Value: -1}}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         s.UsersCollection.Name(),
			"localField":   "_id",
			"foreignField": "_id",
			"as":           "memberDetails",
		}}},
		{{Key: "$project", Value: bson.M{
			"member": bson.M{
				"$arrayElemAt": bson.A{"$memberDetails", 0},
			},
			"lastMessage":     1,
			"lastMessageDate": 1,
		}}},
		{{Key: "$project", Value: bson.M{
			"member._id":      1,
			"member.name":     1,
			"lastMessage":     1,
			"lastMessageDate": 1,
		}}},
	}

	cursor, err := s.MessagesCollection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate conversations: %v", err)
	}
	defer cursor.Close(ctx)

	conversations := []Conversation{}
	if err := cursor.All(ctx, &conversations); err != nil {
		return nil, fmt.Errorf("failed to decode conversations: %v", err)
	}

	return conversations, nil
}
