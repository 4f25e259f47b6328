package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/schedule"
	"github.com/tally/internal/service"
	"github.com/tally/internal/skips"
)

type skipSetPayload struct {
	ActivityIDs []uint `json:"activity_ids" binding:"omitempty,dive,gt=0"`
}

// GetSkips 返回某天被跳过的活动
func (a *API) GetSkips(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	respondSkipSet(c, date, a.skips.Get(currentUserID(c), date))
}

// SetSkips 覆盖某天的跳过集合
func (a *API) SetSkips(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	var payload skipSetPayload
	if !bindJSON(c, &payload, "跳过参数不合法") {
		return
	}

	set, err := a.skips.Set(currentUserID(c), date, payload.ActivityIDs)
	if err != nil {
		handleSkipError(c, err)
		return
	}

	a.metrics.ObserveSkip("set")
	respondSkipSet(c, date, set)
}

// ToggleSkip 切换单个活动的跳过状态
func (a *API) ToggleSkip(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}
	activityID, err := parseUintParam(c, "activityId")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的活动ID")
		return
	}

	set, err := a.skips.Toggle(currentUserID(c), date, activityID)
	if err != nil {
		handleSkipError(c, err)
		return
	}

	a.metrics.ObserveSkip("toggle")
	respondSkipSet(c, date, set)
}

// ClearSkips 清空某天的跳过集合
func (a *API) ClearSkips(c *gin.Context) {
	date, ok := parseDateParam(c, "date")
	if !ok {
		return
	}

	if err := a.skips.Clear(currentUserID(c), date); err != nil {
		handleSkipError(c, err)
		return
	}

	a.metrics.ObserveSkip("clear")
	respondSkipSet(c, date, skips.IDSet{})
}

func respondSkipSet(c *gin.Context, date schedule.Date, set skips.IDSet) {
	c.JSON(http.StatusOK, gin.H{
		"date":                 date.String(),
		"skipped_activity_ids": set.IDs(),
	})
}

func handleSkipError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrActivityNotFound):
		respondError(c, http.StatusNotFound, "活动不存在")
	default:
		logger.L().WithError(err).Error("skip operation failed")
		respondError(c, http.StatusInternalServerError, "保存跳过状态失败")
	}
}
