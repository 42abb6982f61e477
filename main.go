package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/nithinknkr/TeamSync/handlers"
	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/middleware"
	"github.com/nithinknkr/TeamSync/realtime"
	"github.com/nithinknkr/TeamSync/services"
	"github.com/nithinknkr/TeamSync/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sony/gobreaker"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func createIndexes(tasks, messages *mongo.Collection) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := tasks.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "assignedTo", Value: 1}, {Key: "dueDate", Value: 1}}},
		{Keys: bson.D{{Key: "project", Value: 1}}},
	})
	if err != nil {
		return err
	}

	_, err = messages.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "project", Value: 1}, {Key: "isTeamChat", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "project", Value: 1}, {Key: "sender", Value: 1}, {Key: "recipient", Value: 1}, {Key: "isTeamChat", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	return err
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	logging.InitLogger()

	mongoURI := os.Getenv("MONGODB_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGODB_DB")
	if dbName == "" {
		dbName = "teamsync"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatal("Database connection failed:", err)
	}
	defer client.Disconnect(context.TODO())

	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("MongoDB connection error:", err)
	}

	db := client.Database(dbName)
	projectsCollection := db.Collection("projects")
	tasksCollection := db.Collection("tasks")
	usersCollection := db.Collection("users")
	messagesCollection := db.Collection("chat_messages")

	if err := createIndexes(tasksCollection, messagesCollection); err != nil {
		log.Fatal("Failed to create indexes:", err)
	}

	emailBreaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "EmailDeliveryCB",
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	hub := realtime.NewHub()

	projectService := services.NewProjectService(projectsCollection, tasksCollection, usersCollection, utils.SMTPMailer{}, emailBreaker)
	taskService := services.NewTaskService(tasksCollection, projectsCollection)
	chatService := services.NewChatService(messagesCollection, projectsCollection, usersCollection, hub)
	userService := services.NewUserService(usersCollection)

	projectHandler := handlers.NewProjectHandler(projectService)
	taskHandler := handlers.NewTaskHandler(taskService)
	chatHandler := handlers.NewChatHandler(chatService)
	userHandler := handlers.NewUserHandler(userService)
	eventsHandler := handlers.NewEventsHandler(chatService, hub)

	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Open endpoints
	api.HandleFunc("/users/register", userHandler.Register).Methods("POST")
	api.HandleFunc("/users/login", userHandler.Login).Methods("POST")

	// Optional auth: the public join page personalizes for known callers
	public := api.NewRoute().Subrouter()
	public.Use(middleware.OptionalJWTAuthMiddleware)
	public.HandleFunc("/projects/{id}/public", projectHandler.GetPublicProjectInfo).Methods("GET")

	// Everything else requires a valid bearer token
	protected := api.NewRoute().Subrouter()
	protected.Use(middleware.JWTAuthMiddleware)

	protected.HandleFunc("/users/me", userHandler.Me).Methods("GET")

	protected.HandleFunc("/projects", projectHandler.ListProjects).Methods("GET")
	protected.HandleFunc("/projects", projectHandler.CreateProject).Methods("POST")
	protected.HandleFunc("/projects/{id}", projectHandler.GetProject).Methods("GET")
	protected.HandleFunc("/projects/{id}/join", projectHandler.JoinProject).Methods("POST")
	protected.HandleFunc("/projects/{id}/members", projectHandler.ListMembers).Methods("GET")
	protected.HandleFunc("/projects/{id}/invite", projectHandler.InviteMembers).Methods("POST")
	protected.HandleFunc("/projects/{id}/tasks", projectHandler.ListProjectTasks).Methods("GET")
	protected.HandleFunc("/projects/{id}/tasks", projectHandler.AddProjectTask).Methods("POST")

	protected.HandleFunc("/tasks", taskHandler.ListTasks).Methods("GET")
	protected.HandleFunc("/tasks", taskHandler.CreateTask).Methods("POST")
	protected.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods("GET")
	protected.HandleFunc("/tasks/{id}", taskHandler.UpdateTask).Methods("PATCH")
	protected.HandleFunc("/tasks/{id}", taskHandler.DeleteTask).Methods("DELETE")
	protected.HandleFunc("/tasks/{id}/subtasks", taskHandler.AddSubtask).Methods("POST")
	protected.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}", taskHandler.UpdateSubtask).Methods("PATCH")
	protected.HandleFunc("/tasks/{taskId}/subtasks/{subtaskId}", taskHandler.DeleteSubtask).Methods("DELETE")

	protected.HandleFunc("/projects/{projectId}/chat/team", chatHandler.GetTeamMessages).Methods("GET")
	protected.HandleFunc("/projects/{projectId}/chat/team", chatHandler.SendTeamMessage).Methods("POST")
	protected.HandleFunc("/projects/{projectId}/chat/personal", chatHandler.GetPersonalMessages).Methods("GET")
	protected.HandleFunc("/projects/{projectId}/chat/personal", chatHandler.SendPersonalMessage).Methods("POST")
	protected.HandleFunc("/projects/{projectId}/chat/personal/conversations", chatHandler.GetPersonalConversations).Methods("GET")
	protected.HandleFunc("/projects/{projectId}/chat/events", eventsHandler.Stream).Methods("GET")

	corsRouter := enableCORS(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5000"
	}

	logging.Logger.Infof("Event ID: SERVER_STARTING, Description: TeamSync backend listening on port %s", port)
	log.Println("TeamSync backend running on http://localhost:" + port)
	log.Fatal(http.ListenAndServe(":"+port, corsRouter))
}

// enableCORS allows the React frontend to call the API from its dev origin.
func enableCORS(next http.Handler) http.Handler {
	origin := os.Getenv("CORS_ORIGIN")
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PATCH, DELETE")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
