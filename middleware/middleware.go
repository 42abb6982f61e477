package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/nithinknkr/TeamSync/logging"
	"github.com/nithinknkr/TeamSync/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type contextKey string

const userIDKey contextKey = "userID"

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "fail",
		"message": message,
	})
}

// bearerUserID extracts and validates the bearer token, returning the caller
// id from its sub claim.
func bearerUserID(r *http.Request) (primitive.ObjectID, bool) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return primitive.NilObjectID, false
	}

	tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
	sub, err := utils.ValidateToken(tokenStr)
	if err != nil {
		logging.Logger.Warnf("Event ID: JWT_AUTH_INVALID_TOKEN, Description: invalid token for request to %s %s: %v", r.Method, r.URL.Path, err)
		return primitive.NilObjectID, false
	}

	userID, err := primitive.ObjectIDFromHex(sub)
	if err != nil {
		logging.Logger.Warnf("Event ID: JWT_AUTH_BAD_SUBJECT, Description: token sub claim is not a valid id for request to %s %s", r.Method, r.URL.Path)
		return primitive.NilObjectID, false
	}

	return userID, true
}

// JWTAuthMiddleware rejects requests without a valid bearer token and puts
// the caller's id in the request context.
func JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeUnauthorized(w, "Authorization header missing")
			return
		}

		userID, ok := bearerUserID(r)
		if !ok {
			writeUnauthorized(w, "Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// OptionalJWTAuthMiddleware attaches the caller's id when a valid token is
// present but lets anonymous requests through. Used by the public project
// endpoint, which only personalizes its response for known callers.
func OptionalJWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID, ok := bearerUserID(r); ok {
			r = r.WithContext(context.WithValue(r.Context(), userIDKey, userID))
		}
		next.ServeHTTP(w, r)
	})
}

// UserIDFromContext returns the authenticated caller's id, if any.
func UserIDFromContext(ctx context.Context) (primitive.ObjectID, bool) {
	userID, ok := ctx.Value(userIDKey).(primitive.ObjectID)
	return userID, ok
}
