package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tally/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrTodoNotFound 在待办不存在时返回
	ErrTodoNotFound = errors.New("todo not found")
	// ErrTodoInvalid 当待办内容为空时返回
	ErrTodoInvalid = errors.New("invalid todo")
)

// TodoService 管理待办事项
type TodoService struct {
	db  *gorm.DB
	now func() time.Time
}

// TodoInput 定义创建待办的字段
type TodoInput struct {
	Text     string
	Category string
}

// TodoUpdate 定义可修改字段，nil 表示不修改
type TodoUpdate struct {
	Text        *string
	Category    *string
	IsCompleted *bool
}

// TodoOrder 描述排序后的单项位置
type TodoOrder struct {
	ID         uint
	OrderIndex int
}

// NewTodoService 构造 TodoService
func NewTodoService(gdb *gorm.DB) *TodoService {
	return &TodoService{db: gdb, now: time.Now}
}

// List 返回待办，未完成在前，其次按排序位置
func (s *TodoService) List(userID uint) ([]db.Todo, error) {
	var todos []db.Todo
	if err := s.db.Where("user_id = ?", userID).
		Order("is_completed ASC, order_index ASC, id ASC").
		Find(&todos).Error; err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	return todos, nil
}

// Create 新建待办并追加到末尾
func (s *TodoService) Create(userID uint, input TodoInput) (*db.Todo, error) {
	text := strings.TrimSpace(input.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: text is required", ErrTodoInvalid)
	}

	var maxOrder int
	if err := s.db.Model(&db.Todo{}).
		Where("user_id = ?", userID).
		Select("COALESCE(MAX(order_index), -1)").
		Scan(&maxOrder).Error; err != nil {
		return nil, fmt.Errorf("load todo order: %w", err)
	}

	todo := db.Todo{
		UserID:     userID,
		Text:       text,
		Category:   strings.TrimSpace(input.Category),
		OrderIndex: maxOrder + 1,
	}
	if err := s.db.Create(&todo).Error; err != nil {
		return nil, fmt.Errorf("create todo: %w", err)
	}
	return &todo, nil
}

// Update 修改待办，完成状态变化时同步维护完成时间
func (s *TodoService) Update(userID, id uint, input TodoUpdate) (*db.Todo, error) {
	todo, err := s.get(userID, id)
	if err != nil {
		return nil, err
	}

	if input.Text != nil {
		text := strings.TrimSpace(*input.Text)
		if text == "" {
			return nil, fmt.Errorf("%w: text is required", ErrTodoInvalid)
		}
		todo.Text = text
	}
	if input.Category != nil {
		todo.Category = strings.TrimSpace(*input.Category)
	}
	if input.IsCompleted != nil && *input.IsCompleted != todo.IsCompleted {
		todo.IsCompleted = *input.IsCompleted
		if todo.IsCompleted {
			now := s.now()
			todo.CompletedAt = &now
		} else {
			todo.CompletedAt = nil
		}
	}

	if err := s.db.Save(todo).Error; err != nil {
		return nil, fmt.Errorf("update todo: %w", err)
	}
	return todo, nil
}

// Delete 删除待办
func (s *TodoService) Delete(userID, id uint) error {
	result := s.db.Where("user_id = ? AND id = ?", userID, id).Delete(&db.Todo{})
	if result.Error != nil {
		return fmt.Errorf("delete todo: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrTodoNotFound
	}
	return nil
}

// ClearCompleted 删除全部已完成待办，返回删除数量
func (s *TodoService) ClearCompleted(userID uint) (int64, error) {
	result := s.db.Where("user_id = ? AND is_completed = ?", userID, true).Delete(&db.Todo{})
	if result.Error != nil {
		return 0, fmt.Errorf("clear completed todos: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// Reorder 批量更新排序位置
func (s *TodoService) Reorder(userID uint, orders []TodoOrder) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		for _, item := range orders {
			result := tx.Model(&db.Todo{}).
				Where("user_id = ? AND id = ?", userID, item.ID).
				Update("order_index", item.OrderIndex)
			if result.Error != nil {
				return fmt.Errorf("reorder todo %d: %w", item.ID, result.Error)
			}
			if result.RowsAffected == 0 {
				return ErrTodoNotFound
			}
		}
		return nil
	})
}

func (s *TodoService) get(userID, id uint) (*db.Todo, error) {
	var todo db.Todo
	if err := s.db.Where("user_id = ?", userID).First(&todo, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTodoNotFound
		}
		return nil, fmt.Errorf("get todo: %w", err)
	}
	return &todo, nil
}
