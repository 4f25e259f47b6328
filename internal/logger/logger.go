package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config 描述日志输出配置。
type Config struct {
	Level string
	// File 非空时额外写入按大小滚动的日志文件。
	File    string
	Service string
}

var (
	mu  sync.RWMutex
	std = newDefault()
)

func newDefault() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stdout)
	l.SetFormatter(jsonFormatter())
	l.SetLevel(logrus.InfoLevel)
	return l
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// Init 根据配置重建全局 logger。
func Init(cfg Config) error {
	l := logrus.New()
	l.SetFormatter(jsonFormatter())
	l.SetLevel(ParseLevel(cfg.Level))

	var writer io.Writer = os.Stdout
	if path := strings.TrimSpace(cfg.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return err
		}
		writer = io.MultiWriter(os.Stdout, &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	l.SetOutput(writer)

	if service := strings.TrimSpace(cfg.Service); service != "" {
		l.AddHook(serviceHook{name: service})
	}

	mu.Lock()
	std = l
	mu.Unlock()
	return nil
}

// L 返回全局 logger。
func L() *logrus.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return std
}

// SetOutput 替换输出目标，测试中用于捕获日志。
func SetOutput(w io.Writer) {
	L().SetOutput(w)
}

// SetLevel 在运行时调整日志级别，配置热加载时调用。
func SetLevel(level string) {
	L().SetLevel(ParseLevel(level))
}

// ParseLevel 将配置字符串映射为 logrus 级别，未知值回退到 info。
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return logrus.DebugLevel
	case "info":
		return logrus.InfoLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// WithRequestID 为日志附加请求 ID。
func WithRequestID(requestID string) *logrus.Entry {
	return L().WithField("request_id", requestID)
}

// WithUserID 为日志附加用户 ID。
func WithUserID(userID uint) *logrus.Entry {
	return L().WithField("user_id", userID)
}

type serviceHook struct {
	name string
}

func (h serviceHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h serviceHook) Fire(entry *logrus.Entry) error {
	if _, exists := entry.Data["service"]; !exists {
		entry.Data["service"] = h.name
	}
	return nil
}
