package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"go.yaml.in/yaml/v3"
	"gorm.io/gorm"
)

// SnapshotVersion 是当前导出格式版本
const SnapshotVersion = "1.0"

const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var (
	// ErrSnapshotInvalid 在导入数据缺少版本或活动列表时返回
	ErrSnapshotInvalid = errors.New("invalid snapshot")
	// ErrUnsupportedFormat 在导出格式不受支持时返回
	ErrUnsupportedFormat = errors.New("unsupported export format")
)

// Snapshot 是用户数据的完整导出
// 导入时按名称合并分类与活动，ID 只用于在快照内部建立引用
type Snapshot struct {
	Version     string              `json:"version" yaml:"version"`
	ExportedAt  time.Time           `json:"exported_at" yaml:"exported_at"`
	Username    string              `json:"username" yaml:"username"`
	Categories  []CategoryRecord    `json:"categories" yaml:"categories"`
	Activities  []ActivityRecord    `json:"activities" yaml:"activities"`
	Logs        []LogRecord         `json:"logs" yaml:"logs"`
	SpecialDays []SpecialDayRecord  `json:"special_days" yaml:"special_days"`
	Todos       []TodoRecord        `json:"todos" yaml:"todos"`
	Skips       map[string][]uint   `json:"skips" yaml:"skips"`
	Statistics  *SnapshotStatistics `json:"statistics,omitempty" yaml:"statistics,omitempty"`
}

type CategoryRecord struct {
	ID       uint   `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	Color    string `json:"color" yaml:"color"`
	Icon     string `json:"icon,omitempty" yaml:"icon,omitempty"`
	IsActive bool   `json:"is_active" yaml:"is_active"`
}

type ActivityRecord struct {
	ID                uint           `json:"id" yaml:"id"`
	Name              string         `json:"name" yaml:"name"`
	Description       string         `json:"description,omitempty" yaml:"description,omitempty"`
	Points            int            `json:"points" yaml:"points"`
	DaysOfWeek        []string       `json:"days_of_week" yaml:"days_of_week"`
	CategoryID        *uint          `json:"category_id" yaml:"category_id"`
	CompletionType    string         `json:"completion_type" yaml:"completion_type"`
	RatingScale       int            `json:"rating_scale,omitempty" yaml:"rating_scale,omitempty"`
	ScheduleFrequency string         `json:"schedule_frequency" yaml:"schedule_frequency"`
	BiweeklyStartDate *schedule.Date `json:"biweekly_start_date,omitempty" yaml:"biweekly_start_date,omitempty"`
	IsActive          bool           `json:"is_active" yaml:"is_active"`
	SortOrder         int            `json:"sort_order" yaml:"sort_order"`
}

type LogRecord struct {
	ActivityID    uint          `json:"activity_id" yaml:"activity_id"`
	CompletedAt   schedule.Date `json:"completed_at" yaml:"completed_at"`
	EnergyLevel   *int          `json:"energy_level,omitempty" yaml:"energy_level,omitempty"`
	QualityRating *int          `json:"quality_rating,omitempty" yaml:"quality_rating,omitempty"`
	RatingValue   *int          `json:"rating_value,omitempty" yaml:"rating_value,omitempty"`
	Notes         string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

type SpecialDayRecord struct {
	Date    schedule.Date `json:"date" yaml:"date"`
	DayType string        `json:"day_type" yaml:"day_type"`
	Notes   string        `json:"notes,omitempty" yaml:"notes,omitempty"`
}

type TodoRecord struct {
	Text        string     `json:"text" yaml:"text"`
	Category    string     `json:"category,omitempty" yaml:"category,omitempty"`
	OrderIndex  int        `json:"order_index" yaml:"order_index"`
	IsCompleted bool       `json:"is_completed" yaml:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
}

type SnapshotStatistics struct {
	TotalActivities  int `json:"total_activities" yaml:"total_activities"`
	ActiveActivities int `json:"active_activities" yaml:"active_activities"`
	TotalLogs        int `json:"total_logs" yaml:"total_logs"`
	TotalPoints      int `json:"total_points" yaml:"total_points"`
}

// ImportResult 统计导入时新建与跳过的数量
type ImportResult struct {
	CategoriesCreated  int `json:"categories_created"`
	ActivitiesCreated  int `json:"activities_created"`
	LogsImported       int `json:"logs_imported"`
	LogsSkipped        int `json:"logs_skipped"`
	SpecialDaysCreated int `json:"special_days_created"`
	TodosImported      int `json:"todos_imported"`
	SkipSetsMerged     int `json:"skip_sets_merged"`
}

// ExportService 负责用户数据的导出与导入
type ExportService struct {
	db  *gorm.DB
	now func() time.Time
}

// NewExportService 构造 ExportService
func NewExportService(gdb *gorm.DB) *ExportService {
	return &ExportService{db: gdb, now: time.Now}
}

// Export 导出用户的全部数据
func (s *ExportService) Export(userID uint) (*Snapshot, error) {
	user, err := NewUserService(s.db).Get(userID)
	if err != nil {
		return nil, err
	}

	snapshot := &Snapshot{
		Version:    SnapshotVersion,
		ExportedAt: s.now().UTC(),
		Username:   user.Username,
	}

	var categories []db.Category
	if err := s.db.Where("user_id = ?", userID).Order("id ASC").Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("export categories: %w", err)
	}
	for _, category := range categories {
		snapshot.Categories = append(snapshot.Categories, CategoryRecord{
			ID:       category.ID,
			Name:     category.Name,
			Color:    category.Color,
			Icon:     category.Icon,
			IsActive: category.IsActive,
		})
	}

	activities, err := NewActivityService(s.db).List(userID, ActivityFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	stats := &SnapshotStatistics{TotalActivities: len(activities)}
	points := make(map[uint]int, len(activities))
	for _, activity := range activities {
		rule := ActivityRule(activity)
		snapshot.Activities = append(snapshot.Activities, ActivityRecord{
			ID:                activity.ID,
			Name:              activity.Name,
			Description:       activity.Description,
			Points:            activity.Points,
			DaysOfWeek:        rule.Days,
			CategoryID:        activity.CategoryID,
			CompletionType:    activity.CompletionType,
			RatingScale:       activity.RatingScale,
			ScheduleFrequency: string(rule.Frequency),
			BiweeklyStartDate: rule.BiweeklyStart,
			IsActive:          activity.IsActive,
			SortOrder:         activity.SortOrder,
		})
		points[activity.ID] = activity.Points
		if activity.IsActive {
			stats.ActiveActivities++
		}
	}

	var logs []db.ActivityLog
	if err := s.db.Where("user_id = ?", userID).Order("completed_at ASC, activity_id ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("export logs: %w", err)
	}
	for _, record := range logs {
		snapshot.Logs = append(snapshot.Logs, LogRecord{
			ActivityID:    record.ActivityID,
			CompletedAt:   fromDBDate(record.CompletedAt),
			EnergyLevel:   record.EnergyLevel,
			QualityRating: record.QualityRating,
			RatingValue:   record.RatingValue,
			Notes:         record.Notes,
		})
		stats.TotalPoints += points[record.ActivityID]
	}
	stats.TotalLogs = len(logs)

	var specialDays []db.SpecialDay
	if err := s.db.Where("user_id = ?", userID).Order("date ASC").Find(&specialDays).Error; err != nil {
		return nil, fmt.Errorf("export special days: %w", err)
	}
	for _, day := range specialDays {
		snapshot.SpecialDays = append(snapshot.SpecialDays, SpecialDayRecord{
			Date:    fromDBDate(day.Date),
			DayType: day.DayType,
			Notes:   day.Notes,
		})
	}

	todos, err := NewTodoService(s.db).List(userID)
	if err != nil {
		return nil, err
	}
	for _, todo := range todos {
		snapshot.Todos = append(snapshot.Todos, TodoRecord{
			Text:        todo.Text,
			Category:    todo.Category,
			OrderIndex:  todo.OrderIndex,
			IsCompleted: todo.IsCompleted,
			CompletedAt: todo.CompletedAt,
		})
	}

	snapshot.Skips, err = NewSkipService(s.db).ListAll(userID)
	if err != nil {
		return nil, err
	}

	snapshot.Statistics = stats
	return snapshot, nil
}

// Import 将快照合并到用户数据中
// 同名分类与活动会被复用，已存在的打卡与特殊日会被跳过，全部写入在同一事务中完成
func (s *ExportService) Import(userID uint, snapshot Snapshot) (*ImportResult, error) {
	if snapshot.Version != SnapshotVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrSnapshotInvalid, snapshot.Version)
	}
	if snapshot.Activities == nil {
		return nil, fmt.Errorf("%w: activities are required", ErrSnapshotInvalid)
	}

	result := &ImportResult{}
	err := s.db.Transaction(func(tx *gorm.DB) error {
		categoryIDs, err := importCategories(tx, userID, snapshot.Categories, result)
		if err != nil {
			return err
		}

		activityIDs, err := importActivities(tx, userID, snapshot.Activities, categoryIDs, result)
		if err != nil {
			return err
		}

		if err := importLogs(tx, userID, snapshot.Logs, activityIDs, result); err != nil {
			return err
		}

		specialDays := NewSpecialDayService(tx)
		for _, record := range snapshot.SpecialDays {
			_, err := specialDays.Create(userID, SpecialDayInput{Date: record.Date, DayType: record.DayType, Notes: record.Notes})
			switch {
			case err == nil:
				result.SpecialDaysCreated++
			case errors.Is(err, ErrSpecialDayExists):
			default:
				return err
			}
		}

		for _, record := range snapshot.Todos {
			todo := db.Todo{
				UserID:      userID,
				Text:        strings.TrimSpace(record.Text),
				Category:    strings.TrimSpace(record.Category),
				OrderIndex:  record.OrderIndex,
				IsCompleted: record.IsCompleted,
				CompletedAt: record.CompletedAt,
			}
			if todo.Text == "" {
				continue
			}
			if err := tx.Create(&todo).Error; err != nil {
				return fmt.Errorf("import todo: %w", err)
			}
			result.TodosImported++
		}

		return importSkips(tx, userID, snapshot.Skips, activityIDs, result)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func importCategories(tx *gorm.DB, userID uint, records []CategoryRecord, result *ImportResult) (map[uint]uint, error) {
	categories := NewCategoryService(tx)
	existing, err := categories.List(userID)
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint, len(existing))
	for _, category := range existing {
		byName[strings.ToLower(category.Name)] = category.ID
	}

	ids := make(map[uint]uint, len(records))
	for _, record := range records {
		if !record.IsActive {
			continue
		}
		if id, ok := byName[strings.ToLower(strings.TrimSpace(record.Name))]; ok {
			ids[record.ID] = id
			continue
		}
		created, err := categories.Create(userID, CategoryInput{Name: record.Name, Color: record.Color, Icon: record.Icon})
		if err != nil {
			return nil, fmt.Errorf("import category %q: %w", record.Name, err)
		}
		byName[strings.ToLower(created.Name)] = created.ID
		ids[record.ID] = created.ID
		result.CategoriesCreated++
	}
	return ids, nil
}

func importActivities(tx *gorm.DB, userID uint, records []ActivityRecord, categoryIDs map[uint]uint, result *ImportResult) (map[uint]uint, error) {
	activities := NewActivityService(tx)
	existing, err := activities.List(userID, ActivityFilter{IncludeInactive: true})
	if err != nil {
		return nil, err
	}
	byName := make(map[string]uint, len(existing))
	for _, activity := range existing {
		byName[activity.Name] = activity.ID
	}

	ids := make(map[uint]uint, len(records))
	for _, record := range records {
		name := strings.TrimSpace(record.Name)
		if id, ok := byName[name]; ok {
			ids[record.ID] = id
			continue
		}

		var categoryID *uint
		if record.CategoryID != nil {
			if mapped, ok := categoryIDs[*record.CategoryID]; ok {
				categoryID = &mapped
			}
		}

		isActive := record.IsActive
		created, err := activities.Create(userID, ActivityInput{
			Name:              name,
			Description:       record.Description,
			Points:            record.Points,
			DaysOfWeek:        record.DaysOfWeek,
			CategoryID:        categoryID,
			CompletionType:    record.CompletionType,
			RatingScale:       record.RatingScale,
			ScheduleFrequency: record.ScheduleFrequency,
			BiweeklyStartDate: record.BiweeklyStartDate,
			IsActive:          &isActive,
		})
		if err != nil {
			return nil, fmt.Errorf("import activity %q: %w", record.Name, err)
		}
		byName[created.Name] = created.ID
		ids[record.ID] = created.ID
		result.ActivitiesCreated++
	}
	return ids, nil
}

func importLogs(tx *gorm.DB, userID uint, records []LogRecord, activityIDs map[uint]uint, result *ImportResult) error {
	for _, record := range records {
		activityID, ok := activityIDs[record.ActivityID]
		if !ok || record.CompletedAt.IsZero() {
			result.LogsSkipped++
			continue
		}

		completedAt := dbDate(record.CompletedAt)
		var count int64
		if err := tx.Model(&db.ActivityLog{}).
			Where("activity_id = ? AND completed_at = ?", activityID, completedAt).
			Count(&count).Error; err != nil {
			return fmt.Errorf("check imported log: %w", err)
		}
		if count > 0 {
			result.LogsSkipped++
			continue
		}

		log := db.ActivityLog{
			UserID:        userID,
			ActivityID:    activityID,
			CompletedAt:   completedAt,
			EnergyLevel:   record.EnergyLevel,
			QualityRating: record.QualityRating,
			RatingValue:   record.RatingValue,
			Notes:         strings.TrimSpace(record.Notes),
		}
		if err := tx.Omit("Activity").Create(&log).Error; err != nil {
			return fmt.Errorf("import log: %w", err)
		}
		result.LogsImported++
	}
	return nil
}

func importSkips(tx *gorm.DB, userID uint, records map[string][]uint, activityIDs map[uint]uint, result *ImportResult) error {
	skipService := NewSkipService(tx)
	store := skipService.Store(userID)
	for key, ids := range records {
		date, err := schedule.ParseDate(key)
		if err != nil {
			continue
		}

		merged := store.GetSkipped(date)
		for _, id := range ids {
			if mapped, ok := activityIDs[id]; ok {
				merged = merged.With(mapped)
			}
		}
		if merged.IsEmpty() {
			continue
		}
		if err := store.SetSkipped(date, merged); err != nil {
			return err
		}
		result.SkipSetsMerged++
	}
	return nil
}

// EncodeSnapshot 按格式序列化快照，返回内容与 Content-Type
func EncodeSnapshot(snapshot *Snapshot, format string) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		data, err := json.MarshalIndent(snapshot, "", "  ")
		if err != nil {
			return nil, "", fmt.Errorf("encode snapshot: %w", err)
		}
		return data, "application/json; charset=utf-8", nil
	case FormatYAML, "yml":
		data, err := yaml.Marshal(snapshot)
		if err != nil {
			return nil, "", fmt.Errorf("encode snapshot: %w", err)
		}
		return data, "application/yaml; charset=utf-8", nil
	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

// DecodeSnapshot 按格式解析快照
func DecodeSnapshot(data []byte, format string) (*Snapshot, error) {
	var snapshot Snapshot
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatJSON:
		if err := json.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
		}
	case FormatYAML, "yml":
		if err := yaml.Unmarshal(data, &snapshot); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrSnapshotInvalid, err)
		}
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
	return &snapshot, nil
}
