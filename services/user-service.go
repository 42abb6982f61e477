package services

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/models"
	"github.com/nithinknkr/TeamSync/utils"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"golang.org/x/crypto/bcrypt"
)

type UserService struct {
	UsersCollection *mongo.Collection
}

func NewUserService(users *mongo.Collection) *UserService {
	return &UserService{UsersCollection: users}
}

// Register validates the signup fields, hashes the password and stores the
// user.
func (s *UserService) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	name = strings.TrimSpace(name)
	email = strings.ToLower(strings.TrimSpace(email))

	if name == "" {
		return nil, NewValidationError("name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewValidationError("a valid email address is required")
	}
	if len(password) < 8 {
		return nil, NewValidationError("password must be at least 8 characters long")
	}

	var existing models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&existing); err == nil {
		return nil, NewValidationError("a user with this email already exists")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %v", err)
	}

	user := &models.User{
		ID:        primitive.NewObjectID(),
		Name:      html.EscapeString(name),
		Email:     email,
		Password:  string(hashed),
		CreatedAt: time.Now(),
	}

	if _, err := s.UsersCollection.InsertOne(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %v", err)
	}

	logging.Logger.Infof("Event ID: USER_REGISTERED, Description: user %s registered", user.ID.Hex())
	return user, nil
}

// Login checks the credentials and issues a bearer token. Wrong email and
// wrong password are indistinguishable to the caller.
func (s *UserService) Login(ctx context.Context, email, password string) (string, *models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"email": email}).Decode(&user); err != nil {
		return "", nil, NewValidationError("incorrect email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, NewValidationError("incorrect email or password")
	}

	token, err := utils.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate token: %v", err)
	}

	return token, &user, nil
}

// GetByID returns the user document, used for the current-user endpoint and
// display-name population.
func (s *UserService) GetByID(ctx context.Context, userID primitive.ObjectID) (*models.User, error) {
	var user models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"_id": userID}).Decode(&user); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("user %s: %w", userID.Hex(), ErrNotFound)
		}
		return nil, fmt.Errorf("error fetching user: %v", err)
	}
	return &user, nil
}
