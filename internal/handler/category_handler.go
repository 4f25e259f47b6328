package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/db"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/service"
)

type categoryPayload struct {
	Name  string `json:"name" binding:"required,max=100"`
	Color string `json:"color" binding:"omitempty,hexcolor"`
	Icon  string `json:"icon" binding:"max=50"`
}

func (p categoryPayload) toInput() service.CategoryInput {
	return service.CategoryInput{Name: p.Name, Color: p.Color, Icon: p.Icon}
}

// ListCategories 返回启用中的分类
func (a *API) ListCategories(c *gin.Context) {
	categories, err := a.categories.List(currentUserID(c))
	if err != nil {
		handleCategoryError(c, err)
		return
	}

	items := make([]gin.H, 0, len(categories))
	for _, category := range categories {
		items = append(items, categoryToPayload(category))
	}
	c.JSON(http.StatusOK, gin.H{"categories": items})
}

// CreateCategory 创建分类
func (a *API) CreateCategory(c *gin.Context) {
	var payload categoryPayload
	if !bindJSON(c, &payload, "分类参数不合法") {
		return
	}

	category, err := a.categories.Create(currentUserID(c), payload.toInput())
	if err != nil {
		handleCategoryError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"category": categoryToPayload(*category)})
}

// UpdateCategory 更新分类
func (a *API) UpdateCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	var payload categoryPayload
	if !bindJSON(c, &payload, "分类参数不合法") {
		return
	}

	category, err := a.categories.Update(currentUserID(c), id, payload.toInput())
	if err != nil {
		handleCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"category": categoryToPayload(*category)})
}

// DeleteCategory 停用分类
func (a *API) DeleteCategory(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的分类ID")
		return
	}

	if err := a.categories.Delete(currentUserID(c), id); err != nil {
		handleCategoryError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func categoryToPayload(category db.Category) gin.H {
	return gin.H{
		"id":         category.ID,
		"name":       category.Name,
		"color":      category.Color,
		"icon":       category.Icon,
		"is_active":  category.IsActive,
		"created_at": category.CreatedAt,
	}
}

func handleCategoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrCategoryNotFound):
		respondError(c, http.StatusNotFound, "分类不存在")
	case errors.Is(err, service.ErrCategoryExists):
		respondError(c, http.StatusConflict, "分类名称已存在")
	case errors.Is(err, service.ErrCategoryInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.L().WithError(err).Error("category operation failed")
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
