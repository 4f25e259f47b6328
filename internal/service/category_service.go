package service

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/tally/internal/db"
	"gorm.io/gorm"
)

var (
	// ErrCategoryNotFound 在分类不存在或已停用时返回
	ErrCategoryNotFound = errors.New("category not found")
	// ErrCategoryExists 在同名分类已存在时返回
	ErrCategoryExists = errors.New("category already exists")
	// ErrCategoryInvalid 当名称或颜色非法时返回
	ErrCategoryInvalid = errors.New("invalid category")
)

var colorPattern = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// CategoryService 管理活动分类
type CategoryService struct {
	db *gorm.DB
}

// CategoryInput 定义创建/更新分类的字段
type CategoryInput struct {
	Name  string
	Color string
	Icon  string
}

// NewCategoryService 构造 CategoryService
func NewCategoryService(gdb *gorm.DB) *CategoryService {
	return &CategoryService{db: gdb}
}

// List 返回用户启用中的分类，按名称排序
func (s *CategoryService) List(userID uint) ([]db.Category, error) {
	var categories []db.Category
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).
		Order("name ASC").
		Find(&categories).Error; err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// Get 返回启用中的分类
func (s *CategoryService) Get(userID, id uint) (*db.Category, error) {
	var category db.Category
	if err := s.db.Where("user_id = ? AND is_active = ?", userID, true).First(&category, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCategoryNotFound
		}
		return nil, fmt.Errorf("get category: %w", err)
	}
	return &category, nil
}

// Create 新建分类，名称在启用分类中唯一
func (s *CategoryService) Create(userID uint, input CategoryInput) (*db.Category, error) {
	normalized, err := normalizeCategoryInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUniqueName(userID, normalized.Name, 0); err != nil {
		return nil, err
	}

	category := db.Category{
		UserID:   userID,
		Name:     normalized.Name,
		Color:    normalized.Color,
		Icon:     normalized.Icon,
		IsActive: true,
	}
	if err := s.db.Create(&category).Error; err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return &category, nil
}

// Update 更新分类
func (s *CategoryService) Update(userID, id uint, input CategoryInput) (*db.Category, error) {
	existing, err := s.Get(userID, id)
	if err != nil {
		return nil, err
	}

	normalized, err := normalizeCategoryInput(input)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUniqueName(userID, normalized.Name, id); err != nil {
		return nil, err
	}

	existing.Name = normalized.Name
	existing.Color = normalized.Color
	existing.Icon = normalized.Icon

	if err := s.db.Save(existing).Error; err != nil {
		return nil, fmt.Errorf("update category: %w", err)
	}
	return existing, nil
}

// Delete 停用分类并解除活动与它的关联
func (s *CategoryService) Delete(userID, id uint) error {
	if _, err := s.Get(userID, id); err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&db.Activity{}).
			Where("user_id = ? AND category_id = ?", userID, id).
			Update("category_id", nil).Error; err != nil {
			return fmt.Errorf("detach activities: %w", err)
		}
		if err := tx.Model(&db.Category{}).
			Where("user_id = ? AND id = ?", userID, id).
			Update("is_active", false).Error; err != nil {
			return fmt.Errorf("delete category: %w", err)
		}
		return nil
	})
}

// SeedDefaults 为没有任何分类的用户写入默认分类
func (s *CategoryService) SeedDefaults(userID uint) error {
	if err := db.SeedCategories(s.db, userID); err != nil {
		return fmt.Errorf("seed categories: %w", err)
	}
	return nil
}

func (s *CategoryService) ensureUniqueName(userID uint, name string, excludeID uint) error {
	query := s.db.Model(&db.Category{}).
		Where("user_id = ? AND is_active = ? AND LOWER(name) = LOWER(?)", userID, true, name)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return fmt.Errorf("check category name: %w", err)
	}
	if count > 0 {
		return ErrCategoryExists
	}
	return nil
}

func normalizeCategoryInput(input CategoryInput) (CategoryInput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return CategoryInput{}, fmt.Errorf("%w: name is required", ErrCategoryInvalid)
	}

	color := strings.TrimSpace(input.Color)
	if color == "" {
		color = db.DefaultCategoryColor
	}
	if !colorPattern.MatchString(color) {
		return CategoryInput{}, fmt.Errorf("%w: color must look like #RRGGBB", ErrCategoryInvalid)
	}

	return CategoryInput{
		Name:  name,
		Color: strings.ToUpper(color),
		Icon:  strings.TrimSpace(input.Icon),
	}, nil
}

func ensureActiveCategory(gdb *gorm.DB, userID, categoryID uint) error {
	var count int64
	if err := gdb.Model(&db.Category{}).
		Where("user_id = ? AND id = ? AND is_active = ?", userID, categoryID, true).
		Count(&count).Error; err != nil {
		return fmt.Errorf("check category: %w", err)
	}
	if count == 0 {
		return ErrCategoryNotFound
	}
	return nil
}
