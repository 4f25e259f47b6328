package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tally/internal/db"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/scoring"
	"gorm.io/gorm"
)

var (
	// ErrActivityNotFound 在指定活动不存在或不属于当前用户时返回
	ErrActivityNotFound = errors.New("activity not found")
	// ErrActivityInvalid 当活动字段校验失败时返回
	ErrActivityInvalid = errors.New("invalid activity")
)

// ActivityService 负责活动的增删改查与排程查询
// 删除为软删除，只将 is_active 置为 false
type ActivityService struct {
	db *gorm.DB
}

// ActivityFilter 描述列表过滤条件
type ActivityFilter struct {
	IncludeInactive bool
	CategoryID      *uint
	Search          string
}

// ActivityInput 定义创建/更新活动时可配置字段
type ActivityInput struct {
	Name              string
	Description       string
	Points            int
	DaysOfWeek        []string
	CategoryID        *uint
	CompletionType    string
	RatingScale       int
	ScheduleFrequency string
	BiweeklyStartDate *schedule.Date
	IsActive          *bool
}

// ActivityOrder 描述拖拽排序后的单项位置
type ActivityOrder struct {
	ID        uint
	SortOrder int
}

// NewActivityService 构造 ActivityService
func NewActivityService(gdb *gorm.DB) *ActivityService {
	return &ActivityService{db: gdb}
}

// List 返回用户的活动集合，默认只包含启用的活动
func (s *ActivityService) List(userID uint, filter ActivityFilter) ([]db.Activity, error) {
	var activities []db.Activity

	query := s.db.Model(&db.Activity{}).Where("user_id = ?", userID)

	if !filter.IncludeInactive {
		query = query.Where("is_active = ?", true)
	}
	if filter.CategoryID != nil {
		query = query.Where("category_id = ?", *filter.CategoryID)
	}
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := fmt.Sprintf("%%%s%%", search)
		query = query.Where("name LIKE ? OR description LIKE ?", like, like)
	}

	if err := query.Order("sort_order ASC, id ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}

	return activities, nil
}

// Get 根据 ID 获取活动（包含已停用的活动）
func (s *ActivityService) Get(userID, id uint) (*db.Activity, error) {
	var activity db.Activity
	if err := s.db.Where("user_id = ?", userID).First(&activity, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("get activity: %w", err)
	}
	return &activity, nil
}

// Create 新建活动，排序位置追加到末尾
func (s *ActivityService) Create(userID uint, input ActivityInput) (*db.Activity, error) {
	normalized, err := s.normalizeInput(userID, input)
	if err != nil {
		return nil, err
	}

	var maxOrder int
	if err := s.db.Model(&db.Activity{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(sort_order), -1)").
		Scan(&maxOrder).Error; err != nil {
		return nil, fmt.Errorf("load sort order: %w", err)
	}

	activity := db.Activity{UserID: userID, IsActive: true, SortOrder: maxOrder + 1}
	applyActivityInput(&activity, normalized)

	if err := s.db.Create(&activity).Error; err != nil {
		return nil, fmt.Errorf("create activity: %w", err)
	}
	return &activity, nil
}

// Update 更新活动
func (s *ActivityService) Update(userID, id uint, input ActivityInput) (*db.Activity, error) {
	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	normalized, err := s.normalizeInput(userID, input)
	if err != nil {
		return nil, err
	}

	applyActivityInput(existing, normalized)

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	return existing, nil
}

// Delete 软删除活动，保留历史打卡
func (s *ActivityService) Delete(userID, id uint) error {
	result := s.db.Model(&db.Activity{}).
		Where("user_id = ? AND id = ?", userID, id).
		Update("is_active", false)
	if result.Error != nil {
		return fmt.Errorf("delete activity: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// Reorder 批量更新排序
func (s *ActivityService) Reorder(userID uint, orders []ActivityOrder) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range orders {
			result := tx.Model(&db.Activity{}).
				Where("user_id = ? AND id = ?", userID, item.ID).
				Update("sort_order", item.SortOrder)
			if result.Error != nil {
				return fmt.Errorf("reorder activity %d: %w", item.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrActivityNotFound
			}
		}
		return nil
	})
}

// DueOn 返回指定日期需要完成的活动
func (s *ActivityService) DueOn(userID uint, date schedule.Date) ([]db.Activity, error) {
	activities, err := s.List(userID, ActivityFilter{})
	if err != nil {
		return nil, err
	}

	due := make([]db.Activity, 0, len(activities))
	for _, activity := range activities {
		if ActivityRule(activity).ScheduledOn(date) {
			due = append(due, activity)
		}
	}
	return due, nil
}

// ActivityRule 将存储模型转换为排程规则
// 数据库中的非法星期标记会被忽略，而不是让整个活动失效
func ActivityRule(activity db.Activity) schedule.Rule {
	days, err := schedule.ParseDaysString(activity.DaysOfWeek)
	if err != nil {
		days = nil
		for _, token := range strings.Split(activity.DaysOfWeek, ",") {
			token = strings.ToLower(strings.TrimSpace(token))
			if schedule.IsWeekdayToken(token) {
				days = append(days, token)
			}
		}
		days, _ = schedule.ParseDays(days)
	}

	frequency, err := schedule.ParseFrequency(activity.ScheduleFrequency)
	if err != nil {
		frequency = schedule.Weekly
	}

	return schedule.Rule{
		Days:          days,
		Frequency:     frequency,
		BiweeklyStart: fromDBDatePtr(activity.BiweeklyStartDate),
	}
}

// ToScoringActivities 将存储模型转换为积分计算视图
func ToScoringActivities(activities []db.Activity) []scoring.Activity {
	result := make([]scoring.Activity, 0, len(activities))
	for _, activity := range activities {
		result = append(result, scoring.Activity{
			ID:     activity.ID,
			Points: activity.Points,
			Rule:   ActivityRule(activity),
			Active: activity.IsActive,
		})
	}
	return result
}

type normalizedActivity struct {
	name        string
	description string
	points      int
	days        schedule.Days
	categoryID  *uint
	completion  string
	ratingScale int
	rule        schedule.Rule
	isActive    *bool
}

func (s *ActivityService) normalizeInput(userID uint, input ActivityInput) (normalizedActivity, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return normalizedActivity{}, fmt.Errorf("%w: name is required", ErrActivityInvalid)
	}

	days, err := schedule.ParseDays(input.DaysOfWeek)
	if err != nil {
		return normalizedActivity{}, fmt.Errorf("%w: %v", ErrActivityInvalid, err)
	}

	frequency, err := schedule.ParseFrequency(input.ScheduleFrequency)
	if err != nil {
		return normalizedActivity{}, fmt.Errorf("%w: %v", ErrActivityInvalid, err)
	}

	rule := schedule.Rule{Days: days, Frequency: frequency}
	if frequency == schedule.Biweekly {
		rule.BiweeklyStart = input.BiweeklyStartDate
	}
	if err := rule.Validate(); err != nil {
		return normalizedActivity{}, fmt.Errorf("%w: %v", ErrActivityInvalid, err)
	}

	completion := strings.ToLower(strings.TrimSpace(input.CompletionType))
	if completion == "" {
		completion = db.CompletionTypeCheckbox
	}
	ratingScale := 0
	switch completion {
	case db.CompletionTypeCheckbox, db.CompletionTypeEnergyQuality:
	case db.CompletionTypeRating:
		if input.RatingScale < 2 || input.RatingScale > 10 {
			return normalizedActivity{}, fmt.Errorf("%w: rating scale must be between 2 and 10", ErrActivityInvalid)
		}
		ratingScale = input.RatingScale
	default:
		return normalizedActivity{}, fmt.Errorf("%w: unsupported completion type %s", ErrActivityInvalid, input.CompletionType)
	}

	if input.CategoryID != nil {
		if err := ensureActiveCategory(s.db, userID, *input.CategoryID); err != nil {
			return normalizedActivity{}, err
		}
	}

	return normalizedActivity{
		name:        name,
		description: strings.TrimSpace(input.Description),
		points:      input.Points,
		days:        days,
		categoryID:  input.CategoryID,
		completion:  completion,
		ratingScale: ratingScale,
		rule:        rule,
		isActive:    input.IsActive,
	}, nil
}

func applyActivityInput(activity *db.Activity, input normalizedActivity) {
	activity.Name = input.name
	activity.Description = input.description
	activity.Points = input.points
	activity.DaysOfWeek = input.days.String()
	activity.CategoryID = input.categoryID
	activity.CompletionType = input.completion
	activity.RatingScale = input.ratingScale
	activity.ScheduleFrequency = string(input.rule.Frequency)
	activity.BiweeklyStartDate = dbDatePtr(input.rule.BiweeklyStart)
	if input.isActive != nil {
		activity.IsActive = *input.isActive
	}
}
