package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/tally/internal/schedule"
)

func seedExportData(t *testing.T, svcDB *ExportService, userID uint) (uint, uint) {
	t.Helper()
	gdb := svcDB.db

	category, err := NewCategoryService(gdb).Create(userID, CategoryInput{Name: "编程", Color: "#112233"})
	if err != nil {
		t.Fatalf("Create category returned error: %v", err)
	}
	anchor := schedule.MustParseDate("2024-01-01")
	run := createTestActivity(t, gdb, userID, ActivityInput{Name: "跑步", Points: 10, DaysOfWeek: []string{"mon"}, ScheduleFrequency: "biweekly", BiweeklyStartDate: &anchor, CategoryID: &category.ID})
	code := createTestActivity(t, gdb, userID, ActivityInput{Name: "写代码", Points: 5, CompletionType: "rating", RatingScale: 5})

	logOn(t, gdb, userID, run, "2024-01-15")
	if _, err := NewLogService(gdb).Create(userID, LogInput{ActivityID: code, Date: schedule.MustParseDate("2024-01-15"), RatingValue: intPtr(4), Notes: "重构"}); err != nil {
		t.Fatalf("Create log returned error: %v", err)
	}
	if _, err := NewSpecialDayService(gdb).Create(userID, SpecialDayInput{Date: schedule.MustParseDate("2024-01-20"), DayType: "rest"}); err != nil {
		t.Fatalf("Create special day returned error: %v", err)
	}
	if _, err := NewTodoService(gdb).Create(userID, TodoInput{Text: "买书"}); err != nil {
		t.Fatalf("Create todo returned error: %v", err)
	}
	if _, err := NewSkipService(gdb).Toggle(userID, schedule.MustParseDate("2024-01-16"), code); err != nil {
		t.Fatalf("Toggle returned error: %v", err)
	}
	return run, code
}

func TestExportServiceExport(t *testing.T) {
	gdb := setupServiceTestDB(t)
	userID := createTestUser(t, gdb, "alice")
	svc := NewExportService(gdb)
	svc.now = func() time.Time { return time.Date(2024, 2, 1, 8, 0, 0, 0, time.UTC) }
	run, code := seedExportData(t, svc, userID)

	snapshot, err := svc.Export(userID)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	if snapshot.Version != SnapshotVersion || snapshot.Username != "alice" {
		t.Fatalf("unexpected header: %+v", snapshot)
	}
	if len(snapshot.Activities) != 2 || len(snapshot.Logs) != 2 || len(snapshot.SpecialDays) != 1 || len(snapshot.Todos) != 1 {
		t.Fatalf("unexpected snapshot sizes: %+v", snapshot)
	}
	if snapshot.Activities[0].ID != run || snapshot.Activities[0].BiweeklyStartDate == nil {
		t.Fatalf("expected biweekly anchor in export: %+v", snapshot.Activities[0])
	}
	if ids := snapshot.Skips["2024-01-16"]; len(ids) != 1 || ids[0] != code {
		t.Fatalf("unexpected skips: %v", snapshot.Skips)
	}
	if snapshot.Statistics.TotalLogs != 2 || snapshot.Statistics.TotalPoints != 15 {
		t.Fatalf("unexpected statistics: %+v", snapshot.Statistics)
	}

	yamlData, contentType, err := EncodeSnapshot(snapshot, "yaml")
	if err != nil {
		t.Fatalf("EncodeSnapshot returned error: %v", err)
	}
	if !strings.HasPrefix(contentType, "application/yaml") || !strings.Contains(string(yamlData), "biweekly_start_date:") || !strings.Contains(string(yamlData), "2024-01-01") {
		t.Fatalf("unexpected yaml output (%s):\n%s", contentType, yamlData)
	}

	decoded, err := DecodeSnapshot(yamlData, "yaml")
	if err != nil {
		t.Fatalf("DecodeSnapshot returned error: %v", err)
	}
	if decoded.Logs[1].CompletedAt != schedule.MustParseDate("2024-01-15") {
		t.Fatalf("unexpected decoded log date: %v", decoded.Logs[1].CompletedAt)
	}

	if _, _, err := EncodeSnapshot(snapshot, "xml"); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestExportServiceImportMergesByName(t *testing.T) {
	gdb := setupServiceTestDB(t)
	alice := createTestUser(t, gdb, "alice")
	bob := createTestUser(t, gdb, "bob")
	svc := NewExportService(gdb)
	seedExportData(t, svc, alice)

	snapshot, err := svc.Export(alice)
	if err != nil {
		t.Fatalf("Export returned error: %v", err)
	}

	// bob 已有同名活动，导入时复用
	existing := createTestActivity(t, gdb, bob, ActivityInput{Name: "写代码", Points: 5, CompletionType: "rating", RatingScale: 5})

	result, err := svc.Import(bob, *snapshot)
	if err != nil {
		t.Fatalf("Import returned error: %v", err)
	}
	if result.ActivitiesCreated != 1 || result.CategoriesCreated != 1 || result.LogsImported != 2 || result.SpecialDaysCreated != 1 || result.SkipSetsMerged != 1 {
		t.Fatalf("unexpected import result: %+v", result)
	}

	if got := NewSkipService(gdb).Get(bob, schedule.MustParseDate("2024-01-16")); !got.Contains(existing) {
		t.Fatalf("expected skip set to be remapped to bob's activity, got %v", got.IDs())
	}

	// 再次导入时全部跳过
	again, err := svc.Import(bob, *snapshot)
	if err != nil {
		t.Fatalf("second Import returned error: %v", err)
	}
	if again.ActivitiesCreated != 0 || again.LogsImported != 0 || again.LogsSkipped != 2 || again.SpecialDaysCreated != 0 {
		t.Fatalf("expected second import to skip duplicates: %+v", again)
	}

	logs, err := NewLogService(gdb).ListByDate(bob, schedule.MustParseDate("2024-01-15"))
	if err != nil {
		t.Fatalf("ListByDate returned error: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs for bob, got %d", len(logs))
	}
}

func TestExportServiceImportValidatesSnapshot(t *testing.T) {
	gdb := setupServiceTestDB(t)
	userID := createTestUser(t, gdb, "alice")
	svc := NewExportService(gdb)

	if _, err := svc.Import(userID, Snapshot{Version: "0.9", Activities: []ActivityRecord{}}); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("expected ErrSnapshotInvalid for version, got %v", err)
	}
	if _, err := svc.Import(userID, Snapshot{Version: SnapshotVersion}); !errors.Is(err, ErrSnapshotInvalid) {
		t.Fatalf("expected ErrSnapshotInvalid for missing activities, got %v", err)
	}

	// 事务内失败时不留下部分数据
	bad := Snapshot{
		Version:    SnapshotVersion,
		Categories: []CategoryRecord{{ID: 1, Name: "新分类", Color: "#123456", IsActive: true}},
		Activities: []ActivityRecord{{ID: 1, Name: "坏活动", DaysOfWeek: []string{"noday"}}},
	}
	if _, err := svc.Import(userID, bad); err == nil {
		t.Fatal("expected import to fail")
	}
	categories, err := NewCategoryService(gdb).List(userID)
	if err != nil {
		t.Fatalf("List returned error: %v", err)
	}
	for _, category := range categories {
		if category.Name == "新分类" {
			t.Fatal("expected category creation to be rolled back")
		}
	}
}
