package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/tally/internal/db"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/service"
)

type todoPayload struct {
	Text     string `json:"text" binding:"required,max=500"`
	Category string `json:"category" binding:"max=50"`
}

type todoUpdatePayload struct {
	Text        *string `json:"text" binding:"omitempty,max=500"`
	Category    *string `json:"category" binding:"omitempty,max=50"`
	IsCompleted *bool   `json:"is_completed"`
}

type todoReorderPayload struct {
	Items []struct {
		ID    uint `json:"id" binding:"required"`
		Order int  `json:"order"`
	} `json:"items" binding:"required,dive"`
}

// ListTodos 返回全部待办
func (a *API) ListTodos(c *gin.Context) {
	todos, err := a.todos.List(currentUserID(c))
	if err != nil {
		handleTodoError(c, err)
		return
	}

	items := make([]gin.H, 0, len(todos))
	open := 0
	for _, todo := range todos {
		if !todo.IsCompleted {
			open++
		}
		items = append(items, todoToPayload(todo))
	}
	c.JSON(http.StatusOK, gin.H{"todos": items, "open": open})
}

// CreateTodo 新建待办
func (a *API) CreateTodo(c *gin.Context) {
	var payload todoPayload
	if !bindJSON(c, &payload, "待办参数不合法") {
		return
	}

	todo, err := a.todos.Create(currentUserID(c), service.TodoInput{Text: payload.Text, Category: payload.Category})
	if err != nil {
		handleTodoError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"todo": todoToPayload(*todo)})
}

// UpdateTodo 修改待办内容或完成状态
func (a *API) UpdateTodo(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的待办ID")
		return
	}

	var payload todoUpdatePayload
	if !bindJSON(c, &payload, "待办参数不合法") {
		return
	}

	todo, err := a.todos.Update(currentUserID(c), id, service.TodoUpdate{
		Text:        payload.Text,
		Category:    payload.Category,
		IsCompleted: payload.IsCompleted,
	})
	if err != nil {
		handleTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"todo": todoToPayload(*todo)})
}

// DeleteTodo 删除待办
func (a *API) DeleteTodo(c *gin.Context) {
	id, err := parseUintParam(c, "id")
	if err != nil {
		respondError(c, http.StatusBadRequest, "无效的待办ID")
		return
	}

	if err := a.todos.Delete(currentUserID(c), id); err != nil {
		handleTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// ClearCompletedTodos 删除全部已完成待办
func (a *API) ClearCompletedTodos(c *gin.Context) {
	removed, err := a.todos.ClearCompleted(currentUserID(c))
	if err != nil {
		handleTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": removed})
}

// ReorderTodos 按提交顺序重排待办
func (a *API) ReorderTodos(c *gin.Context) {
	var payload todoReorderPayload
	if !bindJSON(c, &payload, "排序参数不合法") {
		return
	}

	orders := make([]service.TodoOrder, 0, len(payload.Items))
	for _, item := range payload.Items {
		orders = append(orders, service.TodoOrder{ID: item.ID, OrderIndex: item.Order})
	}

	if err := a.todos.Reorder(currentUserID(c), orders); err != nil {
		handleTodoError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"updated": len(orders)})
}

func todoToPayload(todo db.Todo) gin.H {
	return gin.H{
		"id":           todo.ID,
		"text":         todo.Text,
		"category":     todo.Category,
		"order_index":  todo.OrderIndex,
		"is_completed": todo.IsCompleted,
		"completed_at": todo.CompletedAt,
		"created_at":   todo.CreatedAt,
	}
}

func handleTodoError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTodoNotFound):
		respondError(c, http.StatusNotFound, "待办不存在")
	case errors.Is(err, service.ErrTodoInvalid):
		respondError(c, http.StatusBadRequest, err.Error())
	default:
		logger.L().WithError(err).Error("todo operation failed")
		respondError(c, http.StatusInternalServerError, "操作失败")
	}
}
