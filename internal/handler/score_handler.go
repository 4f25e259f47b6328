package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/service"
)

const defaultHistoryDays = 30

// DailyScore 返回某天（默认今天）的原始积分与跳过后积分
func (a *API) DailyScore(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}

	score, err := a.scores.Daily(currentUserID(c), date)
	if err != nil {
		handleScoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, score)
}

// WeeklyScore 返回 date 所在周的积分
func (a *API) WeeklyScore(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}

	report, err := a.scores.Weekly(currentUserID(c), date)
	if err != nil {
		handleScoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// MonthlyScore 返回 year/month 对应月份的积分，默认本月
func (a *API) MonthlyScore(c *gin.Context) {
	today := a.today()
	year, ok := queryInt(c, "year", today.Year)
	if !ok {
		return
	}
	month, ok := queryInt(c, "month", int(today.Month))
	if !ok {
		return
	}

	report, err := a.scores.Monthly(currentUserID(c), year, time.Month(month))
	if err != nil {
		handleScoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, report)
}

// ScoreHistory 返回最近 days 天（1-90）的每日积分
func (a *API) ScoreHistory(c *gin.Context) {
	days, ok := queryInt(c, "days", defaultHistoryDays)
	if !ok {
		return
	}

	history, err := a.scores.History(currentUserID(c), a.today(), days)
	if err != nil {
		handleScoreError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"days": history})
}

func handleScoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidRange):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.L().WithError(err).Error("score calculation failed")
		respondError(c, http.StatusInternalServerError, "计算积分失败")
	}
}
