package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/nithinknkr/TeamSync/utils"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func authedRequest(t *testing.T, userID primitive.ObjectID) *http.Request {
	t.Helper()
	token, err := utils.GenerateToken(userID.Hex(), "a@x.com")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
	r.Header.Set("Authorization", "Bearer "+token)
	return r
}

func TestJWTAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	userID := primitive.NewObjectID()

	var gotID primitive.ObjectID
	var called bool
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		gotID, _ = UserIDFromContext(r.Context())
	})

	t.Run("valid token passes through with the caller id", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		JWTAuthMiddleware(next).ServeHTTP(w, authedRequest(t, userID))

		if !called {
			t.Fatal("next handler not called")
		}
		if gotID != userID {
			t.Errorf("context user id = %s, want %s", gotID.Hex(), userID.Hex())
		}
	})

	t.Run("missing header is rejected", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		JWTAuthMiddleware(next).ServeHTTP(w, r)

		if called {
			t.Error("next handler called without a token")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("code = %d", w.Code)
		}
	})

	t.Run("invalid token is rejected", func(t *testing.T) {
		called = false
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/projects", nil)
		r.Header.Set("Authorization", "Bearer not-a-token")
		JWTAuthMiddleware(next).ServeHTTP(w, r)

		if called {
			t.Error("next handler called with a bad token")
		}
		if w.Code != http.StatusUnauthorized {
			t.Errorf("code = %d", w.Code)
		}
	})
}

func TestOptionalJWTAuthMiddleware(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	userID := primitive.NewObjectID()

	t.Run("anonymous request passes through without identity", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/api/v1/projects/x/public", nil)

		OptionalJWTAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := UserIDFromContext(r.Context()); ok {
				t.Error("anonymous request should carry no user id")
			}
			w.WriteHeader(http.StatusOK)
		})).ServeHTTP(w, r)

		if w.Code != http.StatusOK {
			t.Errorf("code = %d", w.Code)
		}
	})

	t.Run("valid token attaches identity", func(t *testing.T) {
		w := httptest.NewRecorder()

		OptionalJWTAuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := UserIDFromContext(r.Context())
			if !ok || got != userID {
				t.Errorf("context user id = %v, %v", got, ok)
			}
		})).ServeHTTP(w, authedRequest(t, userID))
	})
}
