package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/relcache"
	"github.com/kasuganosora/videx/pkg/remote"
	"github.com/kasuganosora/videx/pkg/videxam"
)

// ConfigEnv 指定配置文件路径的环境变量
const ConfigEnv = "VIDEX_CONFIG"

// 目录后端
const (
	BackendMemory   = "memory"
	BackendBadger   = "badger"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendMySQL    = "mysql"
)

// Config 应用程序配置
type Config struct {
	Remote    remote.Config           `json:"remote" yaml:"remote"`
	Estimator videxam.EstimatorConfig `json:"estimator" yaml:"estimator"`
	Catalog   CatalogConfig           `json:"catalog" yaml:"catalog"`
	Server    ServerConfig            `json:"server" yaml:"server"`
	Log       LogConfig               `json:"log" yaml:"log"`
	Cache     CacheConfig             `json:"cache" yaml:"cache"`
}

// CatalogConfig 目录配置
type CatalogConfig struct {
	Backend  string `json:"backend" yaml:"backend"`
	DSN      string `json:"dsn" yaml:"dsn"`
	DataDir  string `json:"data_dir" yaml:"data_dir"`
	Database string `json:"database" yaml:"database"`
}

// ServerConfig 统计服务配置
type ServerConfig struct {
	Host string `json:"host" yaml:"host"`
	Port int    `json:"port" yaml:"port"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // json or text
}

// CacheConfig 表元数据缓存配置
type CacheConfig struct {
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// UnmarshalJSON ttl 接受 "5m" 这样的字符串或纳秒整数
func (c *CacheConfig) UnmarshalJSON(data []byte) error {
	var aux struct {
		TTL json.RawMessage `json:"ttl"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if err := remote.DecodeDuration(aux.TTL, &c.TTL); err != nil {
		return fmt.Errorf("ttl: %w", err)
	}
	return nil
}

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Remote:    remote.DefaultConfig(),
		Estimator: videxam.DefaultEstimatorConfig(),
		Catalog: CatalogConfig{
			Backend:  BackendMemory,
			Database: "postgres",
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 5001,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Cache: CacheConfig{
			TTL: relcache.DefaultTTL,
		},
	}
}

// LoadConfig 从文件加载配置
// .yaml / .yml 按 YAML 解析，其余按 JSON 解析；VIDEX_SERVER 覆盖 remote.server
func LoadConfig(configPath string) (*Config, error) {
	// 如果没有指定配置文件，使用默认配置
	if configPath == "" {
		config := DefaultConfig()
		config.Remote = config.Remote.WithEnv()
		return config, nil
	}

	// 检查配置文件是否存在
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("配置文件不存在: %s", configPath)
	}

	// 读取配置文件
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 解析配置
	config := DefaultConfig()
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, config)
	default:
		err = json.Unmarshal(data, config)
	}
	if err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	config.Remote = config.Remote.WithEnv()

	// 验证配置
	if err := validateConfig(config); err != nil {
		return nil, err
	}

	return config, nil
}

// LoadConfigOrDefault 尝试从常见位置加载配置文件
func LoadConfigOrDefault() *Config {
	// 尝试的配置文件路径
	possiblePaths := []string{
		"videx.yaml",
		"videx.json",
		"./config/videx.yaml",
		"./config/videx.json",
		"/etc/videx/videx.yaml",
	}

	// 尝试从环境变量获取配置文件路径
	if envPath := os.Getenv(ConfigEnv); envPath != "" {
		if config, err := LoadConfig(envPath); err == nil {
			return config
		}
	}

	// 尝试从常见位置加载
	for _, path := range possiblePaths {
		if absPath, err := filepath.Abs(path); err == nil {
			if config, err := LoadConfig(absPath); err == nil {
				return config
			}
		}
	}

	// 使用默认配置
	config := DefaultConfig()
	config.Remote = config.Remote.WithEnv()
	return config
}

// validateConfig 验证配置
func validateConfig(config *Config) error {
	if config.Server.Port < 1 || config.Server.Port > 65535 {
		return fmt.Errorf("无效的端口号: %d", config.Server.Port)
	}

	if err := config.Remote.Validate(); err != nil {
		return fmt.Errorf("remote 配置无效: %w", err)
	}

	if ff := config.Estimator.FillFactor; ff < videxam.MinFillFactor || ff > 100 {
		return fmt.Errorf("fill_factor 必须在 %d 到 100 之间: %d", videxam.MinFillFactor, ff)
	}

	if bs := config.Estimator.BlockSize; bs <= videxam.PageHeaderSize+videxam.TupleOverhead {
		return fmt.Errorf("无效的 block_size: %d", bs)
	}

	switch config.Catalog.Backend {
	case BackendMemory:
	case BackendBadger:
		if config.Catalog.DataDir == "" {
			return fmt.Errorf("badger 目录需要 data_dir")
		}
	case BackendSQLite, BackendPostgres, BackendMySQL:
		if config.Catalog.DSN == "" {
			return fmt.Errorf("%s 目录需要 dsn", config.Catalog.Backend)
		}
	default:
		return fmt.Errorf("未知的目录后端: %s", config.Catalog.Backend)
	}

	if config.Catalog.Database == "" {
		return fmt.Errorf("database 不能为空")
	}

	if _, err := logging.ParseLevel(config.Log.Level); err != nil {
		return err
	}

	if config.Cache.TTL < 0 {
		return fmt.Errorf("cache ttl 不能为负数")
	}

	return nil
}

// GetListenAddress 返回监听地址
func (c *Config) GetListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// NewLogger 按日志配置创建日志
func (c LogConfig) NewLogger() (*logging.ZapLogger, error) {
	level, err := logging.ParseLevel(c.Level)
	if err != nil {
		return nil, err
	}
	return logging.New(level, c.Format)
}

// Validate 验证配置
func (c *Config) Validate() error {
	return validateConfig(c)
}
