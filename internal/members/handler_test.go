package members

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/fundhub/backend/internal/auth"
	"github.com/fundhub/backend/internal/middleware"
	"github.com/fundhub/backend/pkg/response"
)

func TestHandlerRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	e := newEnv(t)
	jwtSvc := auth.NewJWTService("secret", 1)
	h := NewHandler(e.svc, zap.NewNop())

	r := gin.New()
	r.Use(middleware.OptionalJWT(jwtSvc), middleware.Actor(e.store, zap.NewNop()))
	r.POST("/members", h.Create)
	r.POST("/members/remove", h.Remove)

	token, err := jwtSvc.Generate(e.user2.ID, e.user2.Email)
	if err != nil {
		t.Fatal(err)
	}
	body := func(v any) *bytes.Reader {
		b, _ := json.Marshal(v)
		return bytes.NewReader(b)
	}
	in := map[string]any{
		"member":     map[string]any{"id": e.user2.CollectiveID},
		"collective": map[string]any{"id": e.event.ID},
		"role":       "FOLLOWER",
	}

	tests := []struct {
		name    string
		path    string
		auth    bool
		status  int
		message string
	}{
		{"remove before create", "/members/remove", false, http.StatusNotFound, "Member not found"},
		{"create", "/members", true, http.StatusCreated, ""},
		{"remove anonymously", "/members/remove", false, http.StatusUnauthorized, "You need to be logged in to remove a member"},
		{"remove", "/members/remove", true, http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, body(in))
			req.Header.Set("Content-Type", "application/json")
			if tt.auth {
				req.Header.Set("Authorization", "Bearer "+token)
			}
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != tt.status {
				t.Fatalf("status = %d, want %d: %s", w.Code, tt.status, w.Body.String())
			}
			var resp response.Body
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatal(err)
			}
			if tt.message == "" {
				if !resp.Success {
					t.Errorf("errors = %+v", resp.Errors)
				}
				return
			}
			if len(resp.Errors) != 1 || resp.Errors[0].Message != tt.message {
				t.Errorf("errors = %+v, want one %q", resp.Errors, tt.message)
			}
		})
	}
}
