package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/schedule"
)

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": localizeMessage(c, message)})
}

func bindJSON(c *gin.Context, dst interface{}, message string) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, http.StatusBadRequest, message)
		return false
	}
	return true
}

func parseUintParam(c *gin.Context, key string) (uint, error) {
	raw := c.Param(key)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(id), nil
}

// parseDateParam 解析路径中的日期参数，失败时直接写入 400 响应。
func parseDateParam(c *gin.Context, key string) (schedule.Date, bool) {
	date, err := schedule.ParseDate(c.Param(key))
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期，格式应为 YYYY-MM-DD")
		return schedule.Date{}, false
	}
	return date, true
}

// queryDate 解析查询参数中的日期，缺省时返回 fallback。
func queryDate(c *gin.Context, key string, fallback schedule.Date) (schedule.Date, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	date, err := schedule.ParseDate(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的日期，格式应为 YYYY-MM-DD")
		return schedule.Date{}, false
	}
	return date, true
}

// queryInt 解析整数查询参数，缺省时返回 fallback。
func queryInt(c *gin.Context, key string, fallback int) (int, bool) {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return fallback, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": localizeMessage(c, "无效的查询参数"), "field": key})
		return 0, false
	}
	return value, true
}

func parseUintQuery(c *gin.Context, key string) *uint {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return nil
	}
	parsed, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil
	}
	id := uint(parsed)
	return &id
}

func optionalDate(d *schedule.Date) any {
	if d == nil {
		return nil
	}
	return d.String()
}
