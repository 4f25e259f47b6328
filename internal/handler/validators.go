package handler

import (
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/tally/internal/logger"
	"github.com/tally/internal/schedule"
)

var registerOnce sync.Once

// registerValidators 在 gin 的校验引擎上注册自定义规则。
func registerValidators() {
	registerOnce.Do(func() {
		engine, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			logger.L().Warn("gin validator engine is not go-playground/validator, weekday rule not registered")
			return
		}
		if err := engine.RegisterValidation("weekday", validWeekday); err != nil {
			logger.L().WithError(err).Fatal("register weekday validator")
		}
	})
}

func validWeekday(fl validator.FieldLevel) bool {
	return schedule.IsWeekdayToken(fl.Field().String())
}
