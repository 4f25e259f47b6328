package service

import (
	"errors"
	"testing"

	"github.com/tally/internal/schedule"
)

func TestActivityServiceCreateAndList(t *testing.T) {
	gdb := setupServiceTestDB(t)
	userID := createTestUser(t, gdb, "alice")
	svc := NewActivityService(gdb)

	activity, err := svc.Create(userID, ActivityInput{
		Name:       "晨跑",
		Points:     10,
		DaysOfWeek: []string{"fri", "mon", "wed", "mon"},
	})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}

	if activity.DaysOfWeek != "mon,wed,fri" {
		t.Fatalf("expected normalized days, got %q", activity.DaysOfWeek)
	}
	if activity.CompletionType != "checkbox" {
		t.Fatalf("expected default completion type, got %s", activity.CompletionType)
	}
	if activity.ScheduleFrequency != "weekly" {
		t.Fatalf("expected weekly frequency, got %s", activity.ScheduleFrequency)
	}
	if !activity.IsActive {
		t.Fatal("expected new activity to be active")
	}

	second, err := svc.Create(userID, ActivityInput{Name: "阅读", Points: 5})
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if second.SortOrder != activity.SortOrder+1 {
		t.Fatalf("expected sort order to append, got %d", second.SortOrder)
	}

	activities, err := svc.List(userID, ActivityFilter{Search: "晨"})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(activities) != 1 || activities[0].ID != activity.ID {
		t.Fatalf("unexpected search result: %+v", activities)
	}

	// 其他用户不可见
	otherID := createTestUser(t, gdb, "bob")
	if _, err := svc.Get(otherID, activity.ID); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound for other user, got %v", err)
	}
}

func TestActivityServiceValidation(t *testing.T) {
	gdb := setupServiceTestDB(t)
	userID := createTestUser(t, gdb, "alice")
	svc := NewActivityService(gdb)

	anchor := schedule.MustParseDate("2024-01-01")
	missingCategory := uint(999)

	tests := []struct {
		name  string
		input ActivityInput
	}{
		{name: "empty name", input: ActivityInput{Name: "  "}},
		{name: "bad weekday", input: ActivityInput{Name: "a", DaysOfWeek: []string{"funday"}}},
		{name: "bad frequency", input: ActivityInput{Name: "a", ScheduleFrequency: "monthly"}},
		{name: "biweekly without anchor", input: ActivityInput{Name: "a", ScheduleFrequency: "biweekly"}},
		{name: "bad completion type", input: ActivityInput{Name: "a", CompletionType: "slider"}},
		{name: "rating scale too small", input: ActivityInput{Name: "a", CompletionType: "rating", RatingScale: 1}},
		{name: "missing category", input: ActivityInput{Name: "a", CategoryID: &missingCategory}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(userID, tt.input); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}

	biweekly, err := svc.Create(userID, ActivityInput{Name: "大扫除", ScheduleFrequency: "biweekly", BiweeklyStartDate: &anchor})
	if err != nil {
		t.Fatalf("Create biweekly returned error: %v", err)
	}
	if biweekly.BiweeklyStartDate == nil || fromDBDate(*biweekly.BiweeklyStartDate) != anchor {
		t.Fatalf("expected anchor to be stored, got %v", biweekly.BiweeklyStartDate)
	}
}

func TestActivityServiceUpdateAndSoftDelete(t *testing.T) {
	gdb := setupServiceTestDB(t)
	userID := createTestUser(t, gdb, "alice")
	svc := NewActivityService(gdb)

	id := createTestActivity(t, gdb, userID, ActivityInput{Name: "冥想", Points: 3})

	updated, err := svc.Update(userID, id, ActivityInput{Name: "冥想训练", Points: 4, CompletionType: "rating", RatingScale: 5})
	if err != nil {
		t.Fatalf("Update returned error: %v", err)
	}
	if updated.Name != "冥想训练" || updated.RatingScale != 5 {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if err := svc.Delete(userID, id); err != nil {
		t.Fatalf("Delete returned error: %v", err)
	}

	active, err := svc.List(userID, ActivityFilter{})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(active) != 0 {
		t.Fatalf("expected no active activities, got %d", len(active))
	}

	all, err := svc.List(userID, ActivityFilter{IncludeInactive: true})
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	if len(all) != 1 || all[0].IsActive {
		t.Fatalf("expected soft-deleted activity to remain, got %+v", all)
	}

	if err := svc.Delete(userID, 12345); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestActivityServiceReorderAndDueOn(t *testing.T) {
	gdb := setupServiceTestDB(t)
	userID := createTestUser(t, gdb, "alice")
	svc := NewActivityService(gdb)

	anchor := schedule.MustParseDate("2024-01-01")
	daily := createTestActivity(t, gdb, userID, ActivityInput{Name: "喝水", Points: 1})
	mondays := createTestActivity(t, gdb, userID, ActivityInput{Name: "周会", Points: 2, DaysOfWeek: []string{"mon"}})
	biweekly := createTestActivity(t, gdb, userID, ActivityInput{Name: "理发", Points: 2, DaysOfWeek: []string{"mon"}, ScheduleFrequency: "biweekly", BiweeklyStartDate: &anchor})

	if err := svc.Reorder(userID, []ActivityOrder{{ID: biweekly, SortOrder: 0}, {ID: daily, SortOrder: 1}, {ID: mondays, SortOrder: 2}}); err != nil {
		t.Fatalf("Reorder returned error: %v", err)
	}

	// 2024-01-08 为周一，处于锚点后的奇数周
	due, err := svc.DueOn(userID, schedule.MustParseDate("2024-01-08"))
	if err != nil {
		t.Fatalf("DueOn returned error: %v", err)
	}
	if len(due) != 2 || due[0].ID != daily || due[1].ID != mondays {
		t.Fatalf("unexpected due activities on odd week: %+v", due)
	}

	due, err = svc.DueOn(userID, schedule.MustParseDate("2024-01-15"))
	if err != nil {
		t.Fatalf("DueOn returned error: %v", err)
	}
	if len(due) != 3 || due[0].ID != biweekly {
		t.Fatalf("expected biweekly activity first on even week, got %+v", due)
	}

	if err := svc.Reorder(userID, []ActivityOrder{{ID: 999, SortOrder: 0}}); !errors.Is(err, ErrActivityNotFound) {
		t.Fatalf("expected ErrActivityNotFound, got %v", err)
	}
}

func TestActivityRuleToleratesStoredGarbage(t *testing.T) {
	rule := ActivityRule(dbActivity("mon,xyz", "weekly"))
	if len(rule.Days) != 1 || rule.Days[0] != "mon" {
		t.Fatalf("expected invalid tokens to be ignored, got %v", rule.Days)
	}

	rule = ActivityRule(dbActivity("", "fortnightly"))
	if rule.Frequency != schedule.Weekly || rule.Days != nil {
		t.Fatalf("expected every-day weekly fallback, got %+v", rule)
	}
}
