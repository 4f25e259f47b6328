package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestSpecialDayLifecycle(t *testing.T) {
	api, userID := setupTestAPI(t)

	payload := map[string]any{"date": "2024-05-06", "day_type": "rest", "notes": "long weekend"}
	c, w := newTestContext(http.MethodPost, "/api/special-days", payload, userID)
	api.CreateSpecialDay(c)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}

	c, w = newTestContext(http.MethodPost, "/api/special-days", payload, userID)
	api.CreateSpecialDay(c)
	if w.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate date, got %d", w.Code)
	}

	c, w = newTestContext(http.MethodPut, "/api/special-days/2024-05-06", map[string]any{"day_type": "vacation"}, userID)
	c.Params = gin.Params{{Key: "date", Value: "2024-05-06"}}
	api.UpdateSpecialDay(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 updating, got %d: %s", w.Code, w.Body.String())
	}

	c, w = newTestContext(http.MethodGet, "/api/special-days?start=2024-05-01&end=2024-05-31", nil, userID)
	api.ListSpecialDays(c)
	var resp struct {
		SpecialDays []struct {
			Date    string `json:"date"`
			DayType string `json:"day_type"`
		} `json:"special_days"`
	}
	decodeBody(t, w, &resp)
	if len(resp.SpecialDays) != 1 || resp.SpecialDays[0].DayType != "vacation" || resp.SpecialDays[0].Date != "2024-05-06" {
		t.Fatalf("unexpected special days: %+v", resp.SpecialDays)
	}

	c, w = newTestContext(http.MethodDelete, "/api/special-days/2024-05-06", nil, userID)
	c.Params = gin.Params{{Key: "date", Value: "2024-05-06"}}
	api.DeleteSpecialDay(c)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 deleting, got %d", w.Code)
	}

	c, w = newTestContext(http.MethodDelete, "/api/special-days/2024-05-06", nil, userID)
	c.Params = gin.Params{{Key: "date", Value: "2024-05-06"}}
	api.DeleteSpecialDay(c)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 deleting twice, got %d", w.Code)
	}
}

func TestCreateSpecialDayRejectsUnknownType(t *testing.T) {
	api, userID := setupTestAPI(t)

	c, w := newTestContext(http.MethodPost, "/api/special-days", map[string]any{"date": "2024-05-06", "day_type": "holiday"}, userID)
	api.CreateSpecialDay(c)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
}
