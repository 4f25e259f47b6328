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

type specialDayPayload struct {
	Date    schedule.Date `json:"date"`
	DayType string        `json:"day_type" binding:"required,oneof=rest recovery vacation"`
	Notes   string        `json:"notes" binding:"max=500"`
}

type specialDayUpdatePayload struct {
	DayType string `json:"day_type" binding:"required,oneof=rest recovery vacation"`
	Notes   string `json:"notes" binding:"max=500"`
}

// ListSpecialDays 返回 start..end 区间内的特殊日，默认最近 30 天
func (a *API) ListSpecialDays(c *gin.Context) {
	today := a.today()
	start, ok := queryDate(c, "start", today.AddDays(-(defaultHistoryDays - 1)))
	if !ok {
		return
	}
	end, ok := queryDate(c, "end", today)
	if !ok {
		return
	}

	days, err := a.specialDays.List(currentUserID(c), start, end)
	if err != nil {
		handleSpecialDayError(c, err)
		return
	}

	items := make([]gin.H, 0, len(days))
	for _, day := range days {
		items = append(items, specialDayToPayload(day))
	}
	c.JSON(http.StatusOK, gin.H{"special_days": items})
}

// CreateSpecialDay 标记某天为休息日/恢复日/假期
func (a *API) CreateSpecialDay(c *gin.Context) {
	var payload specialDayPayload
	if !bindJSON(c, &payload, "特殊日参数不合法") {
		return
	}

	day, err := a.specialDays.Create(currentUserID(c), service.SpecialDayInput{
		Date:    payload.Date,
		DayType: payload.DayType,
		Notes:   payload.Notes,
	})
	if err != nil {
		handleSpecialDayError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"special_day": specialDayToPayload(*day)})
}

// UpdateSpecialDay 修改特殊日类型与备注
func (a *API) UpdateSpecialDay(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	var payload specialDayUpdatePayload
	if !bindJSON(c, &payload, "特殊日参数不合法") {
		return
	}

	day, err := a.specialDays.Update(currentUserID(c), date, payload.DayType, payload.Notes)
	if err != nil {
		handleSpecialDayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"special_day": specialDayToPayload(*day)})
}

// DeleteSpecialDay 取消某天的特殊日标记
func (a *API) DeleteSpecialDay(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	if err := a.specialDays.Delete(currentUserID(c), date); err != nil {
		handleSpecialDayError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func specialDayToPayload(day db.SpecialDay) gin.H {
	return gin.H{
		"id":       day.ID,
		"date":     schedule.DateOf(day.Date).String(),
		"day_type": day.DayType,
		"notes":    day.Notes,
	}
}

func handleSpecialDayError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSpecialDayNotFound):
		respondError(c, http.StatusNotFound, "该日期没有特殊日标记")
	case errors.Is(err, service.ErrSpecialDayExists):
		respondError(c, http.StatusConflict, "该日期已标记为特殊日")
	case errors.Is(err, service.ErrSpecialDayInvalid), errors.Is(err, service.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.L().WithError(err).Error("special day operation failed")
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
