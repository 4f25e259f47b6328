package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/tally/internal/locale"
)

// errorMessages 收录接口错误提示的英文译文，未收录的提示（如校验错误原文）原样返回
var errorMessages = locale.Catalog{
	"请先登录":                  "login required",
	"请填写用户名和密码":             "username and password are required",
	"用户名或密码错误":              "invalid username or password",
	"用户名已被占用":               "username already taken",
	"用户名不能为空，密码至少 6 位":      "username is required and password needs at least 6 characters",
	"注册失败":                  "registration failed",
	"登录失败":                  "login failed",
	"会话保存失败":                "failed to save session",
	"获取用户信息失败":              "failed to load user",
	"已退出登录":                 "logged out",
	"无效的日期，格式应为 YYYY-MM-DD": "invalid date, expected YYYY-MM-DD",
	"无效的日期区间":               "invalid date range",
	"无效的查询参数":               "invalid query parameter",
	"无效的活动ID":               "invalid activity id",
	"无效的分类ID":               "invalid category id",
	"无效的待办ID":               "invalid todo id",
	"无效的打卡记录ID":             "invalid log id",
	"活动参数不合法":               "invalid activity payload",
	"分类参数不合法":               "invalid category payload",
	"打卡参数不合法":               "invalid log payload",
	"跳过参数不合法":               "invalid skip payload",
	"特殊日参数不合法":              "invalid special day payload",
	"待办参数不合法":               "invalid todo payload",
	"排序参数不合法":               "invalid reorder payload",
	"活动不存在":                 "activity not found",
	"活动已停用":                 "activity is inactive",
	"分类不存在":                 "category not found",
	"分类名称已存在":               "category name already exists",
	"打卡记录不存在":               "log not found",
	"该活动当天已打卡":              "activity already logged for this date",
	"该日期没有特殊日标记":            "no special day on this date",
	"该日期已标记为特殊日":            "date is already a special day",
	"待办不存在":                 "todo not found",
	"保存跳过状态失败":              "failed to save skipped activities",
	"计算积分失败":                "failed to calculate score",
	"不支持的导出格式":              "unsupported export format",
	"读取导入数据失败":              "failed to read import data",
	"导入导出失败":                "import or export failed",
	"操作失败":                  "operation failed",
}

func localizeMessage(c *gin.Context, message string) string {
	return errorMessages.Translate(requestLanguage(c), message)
}
