package remote

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/kasuganosora/videx/pkg/protocol"
)

// 默认值
const (
	DefaultServer         = "127.0.0.1:5001"
	DefaultPath           = "/ask_videx"
	DefaultConnectTimeout = 10 * time.Second
	DefaultTimeout        = 30 * time.Second

	// ServerEnv 覆盖服务地址的环境变量
	ServerEnv = "VIDEX_SERVER"
)

// Config 远程统计客户端配置
type Config struct {
	Server         string        `json:"server" yaml:"server"`
	Path           string        `json:"path" yaml:"path"`
	ConnectTimeout time.Duration `json:"connect_timeout" yaml:"connect_timeout"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout"`
	Parser         string        `json:"parser" yaml:"parser"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Server:         DefaultServer,
		Path:           DefaultPath,
		ConnectTimeout: DefaultConnectTimeout,
		Timeout:        DefaultTimeout,
		Parser:         protocol.ParserStructured,
	}
}

// UnmarshalJSON 超时既可以写成 "10s" 这样的字符串，也可以写成纳秒整数
// 未出现的字段保持原值
func (c *Config) UnmarshalJSON(data []byte) error {
	type plain Config
	aux := struct {
		*plain
		ConnectTimeout json.RawMessage `json:"connect_timeout"`
		Timeout        json.RawMessage `json:"timeout"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if err := DecodeDuration(aux.ConnectTimeout, &c.ConnectTimeout); err != nil {
		return fmt.Errorf("connect_timeout: %w", err)
	}
	if err := DecodeDuration(aux.Timeout, &c.Timeout); err != nil {
		return fmt.Errorf("timeout: %w", err)
	}
	return nil
}

// DecodeDuration 解析 JSON 中的时长，字符串按 time.ParseDuration，数字按纳秒
// raw 为空或 null 时不修改 dst
func DecodeDuration(raw json.RawMessage, dst *time.Duration) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		d, err := time.ParseDuration(s)
		if err != nil {
			return err
		}
		*dst = d
		return nil
	}
	var n int64
	if err := json.Unmarshal(raw, &n); err != nil {
		return fmt.Errorf("invalid duration %s", raw)
	}
	*dst = time.Duration(n)
	return nil
}

// WithEnv 用 VIDEX_SERVER 覆盖服务地址
func (c Config) WithEnv() Config {
	if v := strings.TrimSpace(os.Getenv(ServerEnv)); v != "" {
		c.Server = v
	}
	return c
}

// normalize 补齐缺省字段
func (c Config) normalize() Config {
	def := DefaultConfig()
	if c.Server == "" {
		c.Server = def.Server
	}
	if c.Path == "" {
		c.Path = def.Path
	}
	if !strings.HasPrefix(c.Path, "/") {
		c.Path = "/" + c.Path
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = def.ConnectTimeout
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	return c
}

// Endpoint 完整请求地址
func (c Config) Endpoint() string {
	c = c.normalize()
	server := strings.TrimRight(c.Server, "/")
	if !strings.Contains(server, "://") {
		server = "http://" + server
	}
	return server + c.Path
}

// Validate 校验配置
func (c Config) Validate() error {
	if c.ConnectTimeout < 0 || c.Timeout < 0 {
		return fmt.Errorf("remote timeouts must not be negative")
	}
	if c.ConnectTimeout > 0 && c.Timeout > 0 && c.ConnectTimeout > c.Timeout {
		return fmt.Errorf("remote connect_timeout %s exceeds timeout %s", c.ConnectTimeout, c.Timeout)
	}
	if _, err := protocol.NewParser(c.Parser); err != nil {
		return err
	}
	return nil
}
