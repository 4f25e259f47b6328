package db

import "gorm.io/gorm"

// DefaultCategoryColor 是未指定颜色时使用的分类颜色。
const DefaultCategoryColor = "#3B82F6"

// Category 定义活动分类，按用户隔离；删除为软删除（IsActive=false）。
type Category struct {
	gorm.Model
	UserID   uint   `gorm:"index;not null"`
	Name     string `gorm:"not null"`
	Color    string `gorm:"size:16;not null"`
	Icon     string
	IsActive bool `gorm:"index;not null"`
}

// DefaultCategories 是新用户注册时预置的分类。
var DefaultCategories = []Category{
	{Name: "Health & Fitness", Color: "#10B981"},
	{Name: "Personal Development", Color: "#3B82F6"},
	{Name: "Productivity", Color: "#F59E0B"},
	{Name: "Wellness", Color: "#8B5CF6"},
}
