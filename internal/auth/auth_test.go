package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/fundhub/backend/internal/models"
	"github.com/fundhub/backend/internal/store/memory"
	"github.com/fundhub/backend/pkg/apperr"
)

func TestFindOrCreateByEmail(t *testing.T) {
	ctx := context.Background()
	s := memory.New()
	r := NewIdentityResolver(s, nil)

	u, err := r.FindOrCreateByEmail(ctx, " Jane.Doe@Example.com ", "Jane", "Doe")
	if err != nil {
		t.Fatalf("FindOrCreateByEmail() error = %v", err)
	}
	if u.Email != "jane.doe@example.com" {
		t.Errorf("Email = %q", u.Email)
	}
	c, err := s.GetCollectiveByID(ctx, u.CollectiveID)
	if err != nil {
		t.Fatalf("user collective missing: %v", err)
	}
	if c.Type != models.CollectiveTypeUser || c.Slug != "jane-doe" {
		t.Errorf("collective = %+v", c)
	}

	again, err := r.FindOrCreateByEmail(ctx, "jane.doe@example.com", "", "")
	if err != nil {
		t.Fatal(err)
	}
	if again.ID != u.ID {
		t.Errorf("second lookup created user %d, want %d", again.ID, u.ID)
	}

	other, err := r.FindOrCreateByEmail(ctx, "jane@elsewhere.org", "Jane", "Doe")
	if err != nil {
		t.Fatal(err)
	}
	oc, _ := s.GetCollectiveByID(ctx, other.CollectiveID)
	if oc.Slug != "jane-doe-1" {
		t.Errorf("slug = %q, want jane-doe-1", oc.Slug)
	}
}

func TestFindOrCreateByEmailRejectsGarbage(t *testing.T) {
	r := NewIdentityResolver(memory.New(), nil)
	for _, email := range []string{"", "not an email"} {
		if _, err := r.FindOrCreateByEmail(context.Background(), email, "", ""); !apperr.Is(err, apperr.KindValidation) {
			t.Errorf("FindOrCreateByEmail(%q) error = %v, want ValidationError", email, err)
		}
	}
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	token, err := svc.Generate(42, "a@example.com")
	if err != nil {
		t.Fatal(err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if _, err := NewJWTService("other", 1).Validate(token); err != ErrInvalidToken {
		t.Errorf("Validate() with wrong secret error = %v", err)
	}
}

func TestRegisterAndLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := memory.New()
	h := NewHandler(s, NewIdentityResolver(s, nil), NewJWTService("secret", 1), nil)
	r := gin.New()
	r.POST("/auth/register", h.Register)
	r.POST("/auth/login", h.Login)

	do := func(path string, body any) *httptest.ResponseRecorder {
		b, _ := json.Marshal(body)
		req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := do("/auth/register", map[string]string{"email": "new@example.com", "password": "secret1", "firstName": "New"})
	if w.Code != http.StatusCreated {
		t.Fatalf("register status = %d body = %s", w.Code, w.Body)
	}
	if w := do("/auth/register", map[string]string{"email": "new@example.com", "password": "secret1"}); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register status = %d", w.Code)
	}
	if w := do("/auth/login", map[string]string{"email": "new@example.com", "password": "wrong!"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad login status = %d", w.Code)
	}
	w = do("/auth/login", map[string]string{"email": "new@example.com", "password": "secret1"})
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d body = %s", w.Code, w.Body)
	}
	var body struct {
		Data TokenResponse `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Data.Token == "" || body.Data.User.CollectiveID == 0 {
		t.Errorf("login response = %+v", body.Data)
	}
}
