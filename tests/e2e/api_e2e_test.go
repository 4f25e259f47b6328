package e2e

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/db"
	"github.com/tally/internal/handler"
	"github.com/tally/internal/metrics"
	"github.com/tally/internal/router"
	"gorm.io/gorm/logger"
)

// 固定“今天”为 2024-05-08（周三）
var e2eNow = time.Date(2024, 5, 8, 10, 0, 0, 0, time.UTC)

type e2eSuite struct {
	handler http.Handler
	public  httpClient
	user    httpClient
	baseURL string

	categoryID uint
	runID      uint
	meditateID uint
	cleanID    uint
	swimID     uint
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(handler http.Handler, withJar bool) *localClient {
	var jar http.CookieJar
	if withJar {
		if j, err := cookiejar.New(nil); err == nil {
			jar = j
		}
	}
	return &localClient{handler: handler, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func TestE2E_AllInterfaces(t *testing.T) {
	suite := newE2ESuite(t)

	t.Run("public endpoints", suite.testPublicEndpoints)
	suite.register(t, suite.user, "alice")
	t.Run("activities", suite.testActivities)
	t.Run("logging and skips", suite.testLoggingAndSkips)
	t.Run("scores", suite.testScores)
	t.Run("analytics", suite.testAnalytics)
	t.Run("todos", suite.testTodos)
	t.Run("export and import", suite.testExportImport)
	t.Run("logout", suite.testLogout)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	gdb, err := db.Open("file:e2e?mode=memory&cache=shared", logger.Default.LogMode(logger.Silent))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})

	m := metrics.New()
	api := handler.NewAPI(gdb, m, time.UTC)
	api.SetClock(func() time.Time { return e2eNow })
	engine := router.SetupRouter(api, "test-session-secret", m)

	return &e2eSuite{
		handler: engine,
		public:  newLocalClient(engine, false),
		user:    newLocalClient(engine, true),
		baseURL: "http://example.test",
	}
}

func (s *e2eSuite) register(t *testing.T, client httpClient, username string) {
	t.Helper()
	resp := s.mustRequestJSON(t, client, http.MethodPost, "/api/auth/register", map[string]interface{}{
		"username": username,
		"password": "e2e-secret",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register %s failed, status %d: %s", username, resp.StatusCode, readBody(t, resp))
	}
}

func (s *e2eSuite) testPublicEndpoints(t *testing.T) {
	resp := s.mustRequest(t, s.public, http.MethodGet, "/ping", nil, nil)
	defer resp.Body.Close()
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || !strings.Contains(body, "pong") {
		t.Fatalf("ping: unexpected response %d %q", resp.StatusCode, body)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/healthz", nil, nil)
	defer resp.Body.Close()
	if body := readBody(t, resp); resp.StatusCode != http.StatusOK || !strings.Contains(body, `"status":"ok"`) {
		t.Fatalf("healthz: unexpected response %d %q", resp.StatusCode, body)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/api/activities", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("anonymous api access expected 401, got %d", resp.StatusCode)
	}

	resp = s.mustRequest(t, s.public, http.MethodGet, "/metrics", nil, nil)
	defer resp.Body.Close()
	if body := readBody(t, resp); !strings.Contains(body, "tally_http_requests_total") {
		t.Fatal("metrics output missing request counter")
	}
}

func (s *e2eSuite) testActivities(t *testing.T) {
	var category struct {
		Category struct {
			ID    uint   `json:"id"`
			Color string `json:"color"`
		} `json:"category"`
	}
	s.expectJSON(t, http.MethodPost, "/api/categories", map[string]interface{}{
		"name":  "Mindfulness",
		"color": "#10b981",
	}, http.StatusCreated, &category)
	if category.Category.Color != "#10B981" {
		t.Fatalf("expected normalized color, got %s", category.Category.Color)
	}
	s.categoryID = category.Category.ID

	s.runID = s.createActivity(t, map[string]interface{}{
		"name": "Run", "points": 10, "days_of_week": []string{"mon", "wed", "fri"},
	})
	s.meditateID = s.createActivity(t, map[string]interface{}{
		"name": "Meditate", "points": 5, "category_id": s.categoryID,
		"completion_type": "rating", "rating_scale": 5,
	})
	s.cleanID = s.createActivity(t, map[string]interface{}{
		"name": "Deep clean", "points": 20, "days_of_week": []string{"wed"},
		"schedule_frequency": "biweekly", "biweekly_start_date": "2024-04-24",
	})
	s.swimID = s.createActivity(t, map[string]interface{}{
		"name": "Swim", "points": 8, "days_of_week": []string{"wed"},
		"schedule_frequency": "biweekly", "biweekly_start_date": "2024-05-01",
	})

	var due struct {
		Activities []struct {
			ID uint `json:"id"`
		} `json:"activities"`
	}
	s.expectJSON(t, http.MethodGet, "/api/activities/due", nil, http.StatusOK, &due)
	got := map[uint]bool{}
	for _, item := range due.Activities {
		got[item.ID] = true
	}
	if len(got) != 3 || !got[s.runID] || !got[s.meditateID] || !got[s.cleanID] {
		t.Fatalf("unexpected due activities: %+v", due.Activities)
	}

	s.expectJSON(t, http.MethodPut, "/api/activities/reorder", map[string]interface{}{
		"items": []map[string]interface{}{
			{"id": s.meditateID, "order": 0},
			{"id": s.runID, "order": 1},
		},
	}, http.StatusOK, nil)
}

func (s *e2eSuite) testLoggingAndSkips(t *testing.T) {
	s.expectJSON(t, http.MethodPost, "/api/logs", map[string]interface{}{
		"activity_id": s.runID,
	}, http.StatusCreated, nil)
	s.expectJSON(t, http.MethodPost, "/api/logs", map[string]interface{}{
		"activity_id": s.meditateID, "rating_value": 4, "notes": "calm *morning*",
	}, http.StatusCreated, nil)
	s.expectJSON(t, http.MethodPost, "/api/logs", map[string]interface{}{
		"activity_id": s.meditateID, "rating_value": 6, "date": "2024-05-07",
	}, http.StatusBadRequest, nil)

	var skips struct {
		SkippedIDs []uint `json:"skipped_activity_ids"`
	}
	s.expectJSON(t, http.MethodPost, "/api/skips/2024-05-08/toggle/"+idStr(s.cleanID), nil, http.StatusOK, &skips)
	if len(skips.SkippedIDs) != 1 || skips.SkippedIDs[0] != s.cleanID {
		t.Fatalf("unexpected skip set: %v", skips.SkippedIDs)
	}

	s.expectJSON(t, http.MethodPost, "/api/special-days", map[string]interface{}{
		"date": "2024-05-07", "day_type": "recovery",
	}, http.StatusCreated, nil)
}

func (s *e2eSuite) testScores(t *testing.T) {
	type score struct {
		TotalPoints       int `json:"total_points"`
		MaxPossiblePoints int `json:"max_possible_points"`
		CompletedCount    int `json:"completed_count"`
		TotalActivities   int `json:"total_activities"`
		Percentage        int `json:"percentage"`
	}
	var daily struct {
		Date     string `json:"date"`
		Raw      score  `json:"raw"`
		Adjusted score  `json:"adjusted"`
	}
	s.expectJSON(t, http.MethodGet, "/api/scores/daily", nil, http.StatusOK, &daily)

	if daily.Date != "2024-05-08" {
		t.Fatalf("expected daily score for today, got %s", daily.Date)
	}
	if daily.Raw != (score{TotalPoints: 15, MaxPossiblePoints: 35, CompletedCount: 2, TotalActivities: 3, Percentage: 67}) {
		t.Fatalf("unexpected raw score: %+v", daily.Raw)
	}
	if daily.Adjusted != (score{TotalPoints: 15, MaxPossiblePoints: 15, CompletedCount: 2, TotalActivities: 2, Percentage: 100}) {
		t.Fatalf("unexpected adjusted score: %+v", daily.Adjusted)
	}

	var weekly struct {
		Start string `json:"start"`
		End   string `json:"end"`
	}
	s.expectJSON(t, http.MethodGet, "/api/scores/weekly", nil, http.StatusOK, &weekly)
	if weekly.Start != "2024-05-06" || weekly.End != "2024-05-12" {
		t.Fatalf("unexpected weekly range: %+v", weekly)
	}

	s.expectJSON(t, http.MethodGet, "/api/scores/monthly?year=2024&month=5", nil, http.StatusOK, nil)
	s.expectJSON(t, http.MethodGet, "/api/scores/history?days=120", nil, http.StatusBadRequest, nil)
}

func (s *e2eSuite) testAnalytics(t *testing.T) {
	var streaks struct {
		Activities []struct {
			ActivityID    uint `json:"activity_id"`
			CurrentStreak int  `json:"current_streak"`
		} `json:"activities"`
	}
	s.expectJSON(t, http.MethodGet, "/api/analytics/streaks", nil, http.StatusOK, &streaks)
	for _, item := range streaks.Activities {
		if item.ActivityID == s.runID && item.CurrentStreak != 1 {
			t.Fatalf("expected Run streak 1, got %d", item.CurrentStreak)
		}
	}

	s.expectJSON(t, http.MethodGet, "/api/analytics/statistics?days=7", nil, http.StatusOK, nil)
	s.expectJSON(t, http.MethodGet, "/api/analytics/categories", nil, http.StatusOK, nil)

	var summary struct {
		Days []struct {
			Date       string `json:"date"`
			Percentage int    `json:"percentage"`
			SpecialDay string `json:"special_day"`
		} `json:"days"`
	}
	s.expectJSON(t, http.MethodGet, "/api/analytics/weekly-summary", nil, http.StatusOK, &summary)
	if len(summary.Days) != 7 {
		t.Fatalf("expected 7 summary days, got %d", len(summary.Days))
	}
	for _, day := range summary.Days {
		if day.Date == "2024-05-07" && (day.SpecialDay != "recovery" || day.Percentage != 100) {
			t.Fatalf("expected recovery day to count as 100%%, got %+v", day)
		}
	}
}

func (s *e2eSuite) testTodos(t *testing.T) {
	var created struct {
		Todo struct {
			ID uint `json:"id"`
		} `json:"todo"`
	}
	s.expectJSON(t, http.MethodPost, "/api/todos", map[string]interface{}{"text": "renew gym pass"}, http.StatusCreated, &created)
	s.expectJSON(t, http.MethodPut, "/api/todos/"+idStr(created.Todo.ID), map[string]interface{}{"is_completed": true}, http.StatusOK, nil)

	var cleared struct {
		Deleted int `json:"deleted"`
	}
	s.expectJSON(t, http.MethodDelete, "/api/todos/completed/all", nil, http.StatusOK, &cleared)
	if cleared.Deleted != 1 {
		t.Fatalf("expected 1 cleared todo, got %d", cleared.Deleted)
	}
}

func (s *e2eSuite) testExportImport(t *testing.T) {
	resp := s.mustRequest(t, s.user, http.MethodGet, "/api/export?format=json", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("export expected 200, got %d", resp.StatusCode)
	}
	exported := readBody(t, resp)

	restorer := newLocalClient(s.handler, true)
	s.register(t, restorer, "bob")

	resp = s.mustRequest(t, restorer, http.MethodPost, "/api/import", strings.NewReader(exported),
		map[string]string{"Content-Type": "application/json"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("import expected 200, got %d: %s", resp.StatusCode, readBody(t, resp))
	}
	var result struct {
		Result struct {
			ActivitiesCreated int `json:"activities_created"`
			LogsImported      int `json:"logs_imported"`
			SkipSetsMerged    int `json:"skip_sets_merged"`
		} `json:"result"`
	}
	decodeJSON(t, resp, &result)
	if result.Result.ActivitiesCreated != 4 || result.Result.LogsImported != 2 || result.Result.SkipSetsMerged != 1 {
		t.Fatalf("unexpected import result: %+v", result.Result)
	}
}

func (s *e2eSuite) testLogout(t *testing.T) {
	s.expectJSON(t, http.MethodPost, "/api/auth/logout", nil, http.StatusOK, nil)

	resp := s.mustRequest(t, s.user, http.MethodGet, "/api/activities", nil, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) createActivity(t *testing.T, payload map[string]interface{}) uint {
	t.Helper()
	var created struct {
		Activity struct {
			ID uint `json:"id"`
		} `json:"activity"`
	}
	s.expectJSON(t, http.MethodPost, "/api/activities", payload, http.StatusCreated, &created)
	return created.Activity.ID
}

// expectJSON 以登录用户身份发送 JSON 请求并校验状态码，dst 非空时解析响应
func (s *e2eSuite) expectJSON(t *testing.T, method, path string, payload map[string]interface{}, status int, dst interface{}) {
	t.Helper()
	resp := s.mustRequestJSON(t, s.user, method, path, payload)
	defer resp.Body.Close()
	if resp.StatusCode != status {
		t.Fatalf("%s %s expected %d, got %d: %s", method, path, status, resp.StatusCode, readBody(t, resp))
	}
	if dst != nil {
		decodeJSON(t, resp, dst)
	}
}

func (s *e2eSuite) mustRequest(t *testing.T, client httpClient, method, path string, body io.Reader, headers map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	return resp
}

func (s *e2eSuite) mustRequestJSON(t *testing.T, client httpClient, method, path string, payload map[string]interface{}) *http.Response {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	headers := map[string]string{"Content-Type": "application/json"}
	return s.mustRequest(t, client, method, path, body, headers)
}

func decodeJSON(t *testing.T, resp *http.Response, dst interface{}) {
	t.Helper()
	body := readBody(t, resp)
	if err := json.Unmarshal([]byte(body), dst); err != nil {
		t.Fatalf("failed to decode json: %v\nbody=%s", err, body)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return string(data)
}

func idStr(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
