package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/db"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/service"
)

const defaultHeatmapDays = 365

type logPayload struct {
	ActivityID    uint           `json:"activity_id" binding:"required"`
	Date          *schedule.Date `json:"date"`
	EnergyLevel   *int           `json:"energy_level" binding:"omitempty,min=1,max=5"`
	QualityRating *int           `json:"quality_rating" binding:"omitempty,min=1,max=5"`
	RatingValue   *int           `json:"rating_value" binding:"omitempty,min=1,max=10"`
	Notes         string         `json:"notes" binding:"max=5000"`
}

type logUpdatePayload struct {
	EnergyLevel   *int    `json:"energy_level" binding:"omitempty,min=1,max=5"`
	QualityRating *int    `json:"quality_rating" binding:"omitempty,min=1,max=5"`
	RatingValue   *int    `json:"rating_value" binding:"omitempty,min=1,max=10"`
	Notes         *string `json:"notes" binding:"omitempty,max=5000"`
}

// ListLogs 返回某天（date）或区间（start/end）内的打卡
func (a *API) ListLogs(c *gin.Context) {
	today := a.today()
	start, ok := queryDate(c, "start", today)
	if !ok {
		return
	}
	end, ok := queryDate(c, "end", start)
	if !ok {
		return
	}
	if c.Query("date") != "" {
		date, ok := queryDate(c, "date", today)
		if !ok {
			return
		}
		start, end = date, date
	}

	logs, err := a.logs.ListBetween(currentUserID(c), start, end)
	if err != nil {
		handleLogError(c, err)
		return
	}

	items := make([]gin.H, 0, len(logs))
	for _, record := range logs {
		items = append(items, a.logToPayload(record))
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  items,
		"range": gin.H{"start": start.String(), "end": end.String()},
	})
}

// CreateLog 打卡，日期缺省为今天
func (a *API) CreateLog(c *gin.Context) {
	var payload logPayload
	if !bindJSON(c, &payload, "打卡参数不合法") {
		return
	}

	date := a.today()
	if payload.Date != nil {
		date = *payload.Date
	}

	userID := currentUserID(c)
	record, err := a.logs.Create(userID, service.LogInput{
		ActivityID:    payload.ActivityID,
		Date:          date,
		EnergyLevel:   payload.EnergyLevel,
		QualityRating: payload.QualityRating,
		RatingValue:   payload.RatingValue,
		Notes:         payload.Notes,
	})
	if err != nil {
		handleLogError(c, err)
		return
	}

	a.metrics.ObserveCompletion(record.Activity.CompletionType)
	logger.WithUserID(userID).WithField("activity_id", record.ActivityID).WithField("date", date.String()).Debug("activity logged")

	c.JSON(http.StatusCreated, gin.H{"log": a.logToPayload(*record)})
}

// UpdateLog 修改备注或评分
func (a *API) UpdateLog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡记录ID")
		return
	}

	var payload logUpdatePayload
	if !bindJSON(c, &payload, "打卡参数不合法") {
		return
	}

	record, err := a.logs.Update(currentUserID(c), id, service.LogUpdate{
		EnergyLevel:   payload.EnergyLevel,
		QualityRating: payload.QualityRating,
		RatingValue:   payload.RatingValue,
		Notes:         payload.Notes,
	})
	if err != nil {
		handleLogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"log": a.logToPayload(*record)})
}

// DeleteLog 取消打卡
func (a *API) DeleteLog(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的打卡记录ID")
		return
	}

	if err := a.logs.Delete(currentUserID(c), id); err != nil {
		handleLogError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// GetHeatmap 返回热力图数据，默认截至今天的最近一年
func (a *API) GetHeatmap(c *gin.Context) {
	today := a.today()
	end, ok := queryDate(c, "end", today)
	if !ok {
		return
	}
	start, ok := queryDate(c, "start", end.AddDays(-(defaultHeatmapDays - 1)))
	if !ok {
		return
	}

	days, err := a.logs.Heatmap(currentUserID(c), start, end)
	if err != nil {
		handleLogError(c, err)
		return
	}

	total, active := 0, 0
	for _, day := range days {
		total += day.Count
		if day.Count > 0 {
			active++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"days":    days,
		"range":   gin.H{"start": start.String(), "end": end.String()},
		"summary": gin.H{"total_logs": total, "active_days": active},
	})
}

func (a *API) logToPayload(record db.ActivityLog) gin.H {
	item := gin.H{
		"id":             record.ID,
		"activity_id":    record.ActivityID,
		"activity_name":  record.Activity.Name,
		"points":         record.Activity.Points,
		"completed_at":   record.CompletedAt.UTC().Format(schedule.DateLayout),
		"energy_level":   record.EnergyLevel,
		"quality_rating": record.QualityRating,
		"rating_value":   record.RatingValue,
		"notes":          record.Notes,
	}

	if record.Notes != "" {
		html, err := a.logs.NotesHTML(record)
		if err != nil {
			logger.L().WithError(err).WithField("log_id", record.ID).Warn("render notes failed")
		} else {
			item["notes_html"] = html
		}
	}
	return item
}

func handleLogError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLogNotFound):
		respondError(c, http.StatusNotFound, "打卡记录不存在")
	case errors.Is(err, service.ErrActivityNotFound):
		respondError(c, http.StatusNotFound, "活动不存在")
	case errors.Is(err, service.ErrLogExists):
		respondError(c, http.StatusConflict, "该活动当天已打卡")
	case errors.Is(err, service.ErrActivityInactive):
		respondError(c, http.StatusBadRequest, "活动已停用")
	case errors.Is(err, service.ErrLogInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, "无效的日期区间")
	default:
		logger.L().WithError(err).Error("log operation failed")
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
