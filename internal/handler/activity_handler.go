package handler

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/db"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/service"
)

type activityPayload struct {
	Name              string         `json:"name" binding:"required,max=200"`
	Description       string         `json:"description" binding:"max=2000"`
	Points            int            `json:"points" binding:"min=-1000,max=1000"`
	DaysOfWeek        []string       `json:"days_of_week" binding:"omitempty,max=7,dive,weekday"`
	CategoryID        *uint          `json:"category_id"`
	CompletionType    string         `json:"completion_type" binding:"omitempty,oneof=checkbox rating energy_quality"`
	RatingScale       int            `json:"rating_scale" binding:"omitempty,min=2,max=10"`
	ScheduleFrequency string         `json:"schedule_frequency" binding:"omitempty,oneof=weekly biweekly"`
	BiweeklyStartDate *schedule.Date `json:"biweekly_start_date"`
	IsActive          *bool          `json:"is_active"`
}

func (p activityPayload) toInput() service.ActivityInput {
	return service.ActivityInput{
		Name:              p.Name,
		Description:       p.Description,
		Points:            p.Points,
		DaysOfWeek:        p.DaysOfWeek,
		CategoryID:        p.CategoryID,
		CompletionType:    p.CompletionType,
		RatingScale:       p.RatingScale,
		ScheduleFrequency: p.ScheduleFrequency,
		BiweeklyStartDate: p.BiweeklyStartDate,
		IsActive:          p.IsActive,
	}
}

type reorderPayload struct {
	Items []struct {
		ID    uint `json:"id" binding:"required"`
		Order int  `json:"order" binding:"min=0"`
	} `json:"items" binding:"required,dive"`
}

// ListActivities 返回活动列表，支持 include_inactive/category_id/search
func (a *API) ListActivities(c *gin.Context) {
	filter := service.ActivityFilter{
		IncludeInactive: strings.EqualFold(c.Query("include_inactive"), "true"),
		CategoryID:      parseUintQuery(c, "category_id"),
		Search:          c.Query("search"),
	}

	activities, err := a.activities.List(currentUserID(c), filter)
	if err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activities": serializeActivities(activities)})
}

// GetActivity 返回单个活动
func (a *API) GetActivity(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	activity, err := a.activities.Get(currentUserID(c), id)
	if err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activityToPayload(*activity)})
}

// CreateActivity 创建活动
func (a *API) CreateActivity(c *gin.Context) {
	var payload activityPayload
	if !bindJSON(c, &payload, "活动参数不合法") {
		return
	}

	activity, err := a.activities.Create(currentUserID(c), payload.toInput())
	if err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"activity": activityToPayload(*activity)})
}

// UpdateActivity 更新活动
func (a *API) UpdateActivity(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	var payload activityPayload
	if !bindJSON(c, &payload, "活动参数不合法") {
		return
	}

	activity, err := a.activities.Update(currentUserID(c), id, payload.toInput())
	if err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"activity": activityToPayload(*activity)})
}

// DeleteActivity 停用活动
func (a *API) DeleteActivity(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	if err := a.activities.Delete(currentUserID(c), id); err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ReorderActivities 保存拖拽后的排序
func (a *API) ReorderActivities(c *gin.Context) {
	var payload reorderPayload
	if !bindJSON(c, &payload, "排序参数不合法") {
		return
	}

	orders := make([]service.ActivityOrder, 0, len(payload.Items))
	for _, item := range payload.Items {
		orders = append(orders, service.ActivityOrder{ID: item.ID, SortOrder: item.Order})
	}

	if err := a.activities.Reorder(currentUserID(c), orders); err != nil {
		handleActivityError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"reordered": len(orders)})
}

// DueActivities 返回指定日期（默认今天）需要完成的活动及完成、跳过状态
func (a *API) DueActivities(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}
	userID := currentUserID(c)

	activities, err := a.activities.DueOn(userID, date)
	if err != nil {
		handleActivityError(c, err)
		return
	}

	logs, err := a.logs.ListByDate(userID, date)
	if err != nil {
		handleLogError(c, err)
		return
	}
	logged := make(map[uint]uint, len(logs))
	for _, record := range logs {
		logged[record.ActivityID] = record.ID
	}

	skipped := a.skips.Get(userID, date)

	items := make([]gin.H, 0, len(activities))
	for _, activity := range activities {
		item := activityToPayload(activity)
		logID, done := logged[activity.ID]
		item["completed"] = done
		if done {
			item["log_id"] = logID
		}
		item["skipped"] = skipped.Contains(activity.ID)
		items = append(items, item)
	}

	c.JSON(http.StatusOK, gin.H{"date": date.String(), "activities": items})
}

func serializeActivities(activities []db.Activity) []gin.H {
	items := make([]gin.H, 0, len(activities))
	for _, activity := range activities {
		items = append(items, activityToPayload(activity))
	}
	return items
}

func activityToPayload(activity db.Activity) gin.H {
	rule := service.ActivityRule(activity)
	days := []string(rule.Days)
	if days == nil {
		days = []string{}
	}

	return gin.H{
		"id":                  activity.ID,
		"name":                activity.Name,
		"description":         activity.Description,
		"points":              activity.Points,
		"days_of_week":        days,
		"every_day":           rule.Days.EveryDay(),
		"category_id":         activity.CategoryID,
		"completion_type":     activity.CompletionType,
		"rating_scale":        activity.RatingScale,
		"schedule_frequency":  string(rule.Frequency),
		"biweekly_start_date": optionalDate(rule.BiweeklyStart),
		"is_active":           activity.IsActive,
		"sort_order":          activity.SortOrder,
		"created_at":          activity.CreatedAt,
		"updated_at":          activity.UpdatedAt,
	}
}

func handleActivityError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		respondError(c, http.StatusNotFound, "活动不存在")
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusBadRequest, "分类不存在")
	case errors.Is(err, service.ErrActivityInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.L().WithError(err).Error("activity operation failed")
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
