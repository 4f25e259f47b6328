package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/db"
	"github.com/tally/internal/metrics"
	"github.com/tally/internal/schedule"
	"gorm.io/gorm/logger"
)

// 测试固定的“今天”：2024-05-08，周三
var testToday = schedule.MustParseDate("2024-05-08")

func setupTestAPI(t *testing.T) (*API, uint) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	gdb, err := db.Open("file:"+name+"?mode=memory&cache=shared", logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	api := NewAPI(gdb, metrics.New(), time.UTC)
	api.SetClock(func() time.Time { return testToday.Time(time.UTC).Add(9 * time.Hour) })

	user, err := api.users.Register("tester", "secret123")
	if err != nil {
		t.Fatalf("failed to register user: %v", err)
	}
	return api, user.ID
}

// newTestContext 构造已登录用户的请求上下文
func newTestContext(method, target string, body any, userID uint) (*gin.Context, *httptest.ResponseRecorder) {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	if userID != 0 {
		c.Set(contextUserIDKey, userID)
	}
	return c, w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), dst); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
}

func createActivityViaAPI(t *testing.T, api *API, userID uint, payload map[string]any) uint {
	t.Helper()
	c, w := newTestContext("POST", "/api/activities", payload, userID)
	api.CreateActivity(c)
	if w.Code != 201 {
		t.Fatalf("expected 201 creating activity, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Activity struct {
			ID uint `json:"id"`
		} `json:"activity"`
	}
	decodeBody(t, w, &resp)
	return resp.Activity.ID
}
