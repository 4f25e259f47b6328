package db

import (
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User 定义了用户模型
type User struct {
	gorm.Model
	Username string `gorm:"unique;not null"`
	Password string `gorm:"not null"`
}

// EnsureUser 存在性检查：若提供的用户名与密码均非空且不存在对应账号，则创建一个 bcrypt 哈希的用户并预置默认分类。
func EnsureUser(username, password string) error {
	trimmedUser := strings.TrimSpace(username)
	trimmedPassword := strings.TrimSpace(password)
	if trimmedUser == "" || trimmedPassword == "" {
		return nil
	}

	if DB == nil {
		return errors.New("database not initialized")
	}

	var existing User
	if err := DB.Where("username = ?", trimmedUser).First(&existing).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(trimmedPassword), bcrypt.DefaultCost)
		if err != nil {
			return err
		}

		return DB.Transaction(func(tx *gorm.DB) error {
			user := User{Username: trimmedUser, Password: string(hashed)}
			if err := tx.Create(&user).Error; err != nil {
				return err
			}
			return SeedCategories(tx, user.ID)
		})
	}

	return nil
}

// SeedCategories 为用户写入默认分类，已有分类时跳过。
func SeedCategories(tx *gorm.DB, userID uint) error {
	var count int64
	if err := tx.Model(&Category{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	categories := make([]Category, 0, len(DefaultCategories))
	for _, item := range DefaultCategories {
		categories = append(categories, Category{UserID: userID, Name: item.Name, Color: item.Color, IsActive: true})
	}
	return tx.Create(&categories).Error
}
