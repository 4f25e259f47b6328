package handler

import (
	"errors"
	"net/http"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/service"
)

const (
	sessionUserIDKey   = "user_id"
	sessionUsernameKey = "username"
	contextUserIDKey   = "tally_user_id"
)

type credentialsPayload struct {
	Username string `json:"username" binding:"required,max=64"`
	Password string `json:"password" binding:"required,max=128"`
}

// Register 注册新用户并直接登录
func (a *API) Register(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请填写用户名和密码") {
		return
	}

	user, err := a.users.Register(payload.Username, payload.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserExists):
			respondError(c, http.StatusConflict, "用户名已被占用")
		case errors.Is(err, service.ErrUserInvalid):
			respondError(c, http.StatusBadRequest, "用户名不能为空，密码至少 6 位")
		default:
			logger.L().WithError(err).Error("register user failed")
			respondError(c, http.StatusInternalServerError, "注册失败")
		}
		return
	}

	if !saveSession(c, user.ID, user.Username) {
		return
	}

	logger.WithUserID(user.ID).Info("user registered")
	c.JSON(http.StatusCreated, gin.H{"user": gin.H{"id": user.ID, "username": user.Username}})
}

// Login 校验账号密码并写入会话
func (a *API) Login(c *gin.Context) {
	var payload credentialsPayload
	if !bindJSON(c, &payload, "请填写用户名和密码") {
		return
	}

	user, err := a.users.Authenticate(payload.Username, payload.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			respondError(c, http.StatusUnauthorized, "用户名或密码错误")
			return
		}
		logger.L().WithError(err).Error("authenticate failed")
		respondError(c, http.StatusInternalServerError, "登录失败")
		return
	}

	if !saveSession(c, user.ID, user.Username) {
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": user.ID, "username": user.Username}})
}

// Logout 清除会话
func (a *API) Logout(c *gin.Context) {
	session := sessions.Default(c)
	session.Clear()
	session.Options(sessions.Options{Path: "/", MaxAge: -1})
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "已退出登录"})
}

// Me 返回当前登录用户
func (a *API) Me(c *gin.Context) {
	user, err := a.users.Get(currentUserID(c))
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			respondError(c, http.StatusUnauthorized, "请先登录")
			return
		}
		respondError(c, http.StatusInternalServerError, "获取用户信息失败")
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{"id": user.ID, "username": user.Username}})
}

// AuthRequired 校验会话，未登录时返回 401 JSON
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		userID, ok := session.Get(sessionUserIDKey).(uint)
		if !ok || userID == 0 {
			respondError(c, http.StatusUnauthorized, "请先登录")
			c.Abort()
			return
		}
		c.Set(contextUserIDKey, userID)
		c.Next()
	}
}

func currentUserID(c *gin.Context) uint {
	return c.GetUint(contextUserIDKey)
}

func saveSession(c *gin.Context, userID uint, username string) bool {
	session := sessions.Default(c)
	session.Set(sessionUserIDKey, userID)
	session.Set(sessionUsernameKey, username)
	if err := session.Save(); err != nil {
		respondError(c, http.StatusInternalServerError, "会话保存失败")
		return false
	}
	return true
}
