package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/locale"
)

const defaultStatisticsDays = 30

// Streaks 返回各活动的当前与最长连续天数
func (a *API) Streaks(c *gin.Context) {
	summary, err := a.analytics.Streaks(currentUserID(c), a.today())
	if err != nil {
		handleScoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Statistics 返回最近 days 天的完成率统计
func (a *API) Statistics(c *gin.Context) {
	days, ok := queryInt(c, "days", defaultStatisticsDays)
	if !ok {
		return
	}

	stats, err := a.analytics.Statistics(currentUserID(c), a.today(), days)
	if err != nil {
		handleScoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CategoryProgress 返回区间内各分类的完成情况，默认本月
func (a *API) CategoryProgress(c *gin.Context) {
	today := a.today()
	start, ok := queryDate(c, "start", today.StartOfMonth())
	if !ok {
		return
	}
	end, ok := queryDate(c, "end", today)
	if !ok {
		return
	}

	progress, err := a.analytics.CategoryBreakdown(currentUserID(c), start, end)
	if err != nil {
		handleScoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"start": start.String(), "end": end.String(), "categories": progress})
}

// WeeklySummary 返回截至 date 的最近 7 天汇总
func (a *API) WeeklySummary(c *gin.Context) {
	date, ok := queryDate(c, "date", a.today())
	if !ok {
		return
	}

	summary, err := a.analytics.WeeklySummary(currentUserID(c), date)
	if err != nil {
		handleScoreError(c, err)
		return
	}
	if summary.BestDate != nil {
		summary.BestDay = locale.WeekdayName(requestLanguage(c), summary.BestDate.Weekday())
	}
	c.JSON(http.StatusOK, summary)
}
