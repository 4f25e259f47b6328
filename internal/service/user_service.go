package service

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tally/internal/db"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var (
	// ErrInvalidCredentials 在用户名或密码错误时返回
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserExists 在用户名已被占用时返回
	ErrUserExists = errors.New("username already taken")
	// ErrUserInvalid 当用户名或密码不满足要求时返回
	ErrUserInvalid = errors.New("invalid user")
	// ErrUserNotFound 在用户不存在时返回
	ErrUserNotFound = errors.New("user not found")
)

const minPasswordLength = 6

// UserService 负责注册与登录校验
type UserService struct {
	db *gorm.DB
}

// NewUserService 构造 UserService
func NewUserService(gdb *gorm.DB) *UserService {
	return &UserService{db: gdb}
}

// Register 创建用户并预置默认分类
func (s *UserService) Register(username, password string) (*db.User, error) {
	name := strings.TrimSpace(username)
	if name == "" {
		return nil, fmt.Errorf("%w: username is required", ErrUserInvalid)
	}
	if len(password) < minPasswordLength {
		return nil, fmt.Errorf("%w: password must be at least %d characters", ErrUserInvalid, minPasswordLength)
	}

	var count int64
	if err := s.db.Model(&db.User{}).Where("username = ?", name).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check username: %w", err)
	}
	if count > 0 {
		return nil, ErrUserExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := db.User{Username: name, Password: string(hashed)}
	if err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		return db.SeedCategories(tx, user.ID)
	}); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}
	return &user, nil
}

// Authenticate 校验用户名与密码
func (s *UserService) Authenticate(username, password string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// Get 根据 ID 获取用户
func (s *UserService) Get(id uint) (*db.User, error) {
	var user db.User
	if err := s.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// FindByUsername 根据用户名获取用户
func (s *UserService) FindByUsername(username string) (*db.User, error) {
	var user db.User
	if err := s.db.Where("username = ?", strings.TrimSpace(username)).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}
