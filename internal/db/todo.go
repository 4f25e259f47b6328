package db

import (
	"time"

	"gorm.io/gorm"
)

// Todo 是简单的待办事项，OrderIndex 决定拖拽后的显示顺序。
type Todo struct {
	gorm.Model
	UserID      uint   `gorm:"index;not null"`
	Text        string `gorm:"not null"`
	Category    string
	OrderIndex  int
	IsCompleted bool `gorm:"index"`
	CompletedAt *time.Time
}
