package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/service"
)

const maxImportBytes = 10 << 20

// ExportData 以 JSON 或 YAML 附件形式导出当前用户的全部数据
func (a *API) ExportData(c *gin.Context) {
	format := strings.ToLower(strings.TrimSpace(c.DefaultQuery("format", service.FormatJSON)))

	snapshot, err := a.exports.Export(currentUserID(c))
	if err != nil {
		handleExportError(c, err)
		return
	}

	data, contentType, err := service.EncodeSnapshot(snapshot, format)
	if err != nil {
		handleExportError(c, err)
		return
	}

	filename := fmt.Sprintf("tally-export-%s.%s", a.today().String(), format)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

// ImportData 合并导入快照，按 Content-Type 或 format 参数识别 YAML
func (a *API) ImportData(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxImportBytes))
	if err != nil {
		respondError(c, http.StatusBadRequest, "读取导入数据失败")
		return
	}

	snapshot, err := service.DecodeSnapshot(body, importFormat(c))
	if err != nil {
		handleExportError(c, err)
		return
	}

	userID := currentUserID(c)
	result, err := a.exports.Import(userID, *snapshot)
	if err != nil {
		handleExportError(c, err)
		return
	}

	logger.WithUserID(userID).WithField("logs", result.LogsImported).Info("snapshot imported")
	c.JSON(http.StatusOK, gin.H{"result": result})
}

func importFormat(c *gin.Context) string {
	if format := c.Query("format"); format != "" {
		return format
	}
	contentType := strings.ToLower(c.ContentType())
	if strings.Contains(contentType, "yaml") || strings.Contains(contentType, "yml") {
		return service.FormatYAML
	}
	return service.FormatJSON
}

func handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrUnsupportedFormat):
		respondError(c, http.StatusBadRequest, "不支持的导出格式")
	case errors.Is(err, service.ErrSnapshotInvalid),
		errors.Is(err, service.ErrActivityInvalid),
		errors.Is(err, service.ErrLogInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.L().WithError(err).Error("export operation failed")
		respondError(c, http.StatusInternalServerError, "导入导出失败")
	}
}
