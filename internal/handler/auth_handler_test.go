package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

func newAuthEngine(api *API) *gin.Engine {
	r := gin.New()
	r.Use(sessions.Sessions("test_session", cookie.NewStore([]byte("test-secret"))))
	r.POST("/login", api.Login)
	r.POST("/logout", api.Logout)
	r.GET("/me", AuthRequired(), api.Me)
	return r
}

func postCredentials(r http.Handler, path, username, password string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]string{"username": username, "password": password})
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLoginWrongPassword(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newAuthEngine(api)

	w := postCredentials(r, "/login", "tester", "wrong-password")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}

func TestLoginThenMe(t *testing.T) {
	api, userID := setupTestAPI(t)
	r := newAuthEngine(api)

	w := postCredentials(r, "/login", "tester", "secret123")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 logging in, got %d: %s", w.Code, w.Body.String())
	}
	cookies := w.Result().Cookies()

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 from /me, got %d", w.Code)
	}

	var resp struct {
		User struct {
			ID       uint   `json:"id"`
			Username string `json:"username"`
		} `json:"user"`
	}
	decodeBody(t, w, &resp)
	if resp.User.ID != userID || resp.User.Username != "tester" {
		t.Fatalf("unexpected user: %+v", resp.User)
	}
}

func TestAuthRequiredWithoutSession(t *testing.T) {
	api, _ := setupTestAPI(t)
	r := newAuthEngine(api)

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", w.Code)
	}
}
