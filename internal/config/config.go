package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
	_ "time/tzdata"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/tally/internal/logger"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr     string
	Port           string
	DatabasePath   string
	SessionSecret  string
	GinMode        string
	LogLevel       string
	LogFile        string
	Timezone       string
	SeedUsername   string
	SeedPassword   string
	MetricsEnabled bool
	ConfigFile     string
}

var (
	mu       sync.Mutex
	current  *viper.Viper
	fileUsed string
)

// Load 依次读取 .env、可选的 config.yaml 与环境变量，并为缺失项提供安全的默认值。
// 环境变量优先级最高，键名与配置文件中的小写键一一对应（DATABASE_PATH -> database_path）。
func Load() AppConfig {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.L().WithError(err).Warn("加载 .env 失败")
	}

	v := newViper(strings.TrimSpace(os.Getenv("CONFIG_FILE")))
	used := ""
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			logger.L().Debug("配置文件未找到，使用环境变量与默认配置")
		} else {
			logger.L().WithError(err).Warn("读取配置文件失败，使用环境变量与默认配置")
		}
	} else {
		used = v.ConfigFileUsed()
		logger.L().WithField("path", used).Info("加载配置文件")
	}

	mu.Lock()
	current = v
	fileUsed = used
	mu.Unlock()

	cfg := fromViper(v)
	cfg.ConfigFile = used
	return cfg
}

// Watch 在配置文件变化时回调 onChange，未使用配置文件时返回 false。
func Watch(onChange func(AppConfig)) bool {
	mu.Lock()
	v, used := current, fileUsed
	mu.Unlock()

	if v == nil || used == "" {
		return false
	}

	v.OnConfigChange(func(event fsnotify.Event) {
		handleConfigEvent(v, event, onChange)
	})
	v.WatchConfig()
	return true
}

func handleConfigEvent(v *viper.Viper, event fsnotify.Event, onChange func(AppConfig)) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}

	logger.L().WithField("path", event.Name).Info("配置文件已更新")
	if onChange != nil {
		cfg := fromViper(v)
		cfg.ConfigFile = event.Name
		onChange(cfg)
	}
}

// Location 返回用于计算“今天”的时区，未配置或无法识别时使用本地时区。
func (c AppConfig) Location() *time.Location {
	name := strings.TrimSpace(c.Timezone)
	if name == "" || strings.EqualFold(name, "local") {
		return time.Local
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		logger.L().WithError(err).WithField("timezone", name).Warn("无法识别时区，使用本地时区")
		return time.Local
	}
	return loc
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	setDefaults(v)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.AutomaticEnv()
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("listen_addr", "")
	v.SetDefault("database_path", "tally.db")
	v.SetDefault("session_secret", "tally-dev-secret")
	v.SetDefault("gin_mode", "release")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_file", "")
	v.SetDefault("timezone", "Local")
	v.SetDefault("seed_username", "")
	v.SetDefault("seed_password", "")
	v.SetDefault("metrics_enabled", true)
}

func fromViper(v *viper.Viper) AppConfig {
	port := stringOr(v, "port", "8080")

	listenAddr := strings.TrimSpace(v.GetString("listen_addr"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	return AppConfig{
		ListenAddr:     listenAddr,
		Port:           port,
		DatabasePath:   stringOr(v, "database_path", "tally.db"),
		SessionSecret:  stringOr(v, "session_secret", "tally-dev-secret"),
		GinMode:        stringOr(v, "gin_mode", "release"),
		LogLevel:       stringOr(v, "log_level", "info"),
		LogFile:        strings.TrimSpace(v.GetString("log_file")),
		Timezone:       stringOr(v, "timezone", "Local"),
		SeedUsername:   strings.TrimSpace(v.GetString("seed_username")),
		SeedPassword:   strings.TrimSpace(v.GetString("seed_password")),
		MetricsEnabled: v.GetBool("metrics_enabled"),
	}
}

func stringOr(v *viper.Viper, key, fallback string) string {
	value := strings.TrimSpace(v.GetString(key))
	if value == "" {
		return fallback
	}
	return value
}
