package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Zacy-Sokach/PolyPanel/internal/utils"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	ResponderEcho = "echo"
	ResponderAPI  = "api"

	// APIKeyEnv 覆盖配置文件中的 api_key
	APIKeyEnv = "POLYPANEL_API_KEY"

	defaultModel   = "glm-4.5"
	defaultBaseURL = "https://open.bigmodel.cn/api/paas/v4"
)

var ErrMissingAPIKey = errors.New("api responder requires api_key or " + APIKeyEnv)

type Config struct {
	Responder    string       `yaml:"responder"`
	ReplyPrefix  string       `yaml:"reply_prefix"`
	APIKey       string       `yaml:"api_key"`
	Model        string       `yaml:"model"`
	BaseURL      string       `yaml:"base_url"`
	SystemPrompt string       `yaml:"system_prompt,omitempty"`
	Window       WindowConfig `yaml:"window"`
	Log          LogConfig    `yaml:"log"`
}

// WindowConfig 可见窗口参数，单位是终端行
type WindowConfig struct {
	EstimatedHeight float64 `yaml:"estimated_height"`
	Overscan        float64 `yaml:"overscan"`
	Epsilon         float64 `yaml:"epsilon"`
}

type LogConfig struct {
	Enabled bool   `yaml:"enabled"`
	Level   string `yaml:"level"`
	// File 为空时写到配置目录下的 logs/polypanel.log
	File string `yaml:"file"`
}

// Default 返回默认配置
func Default() *Config {
	return &Config{
		Responder:   ResponderEcho,
		ReplyPrefix: "You said: ",
		Model:       defaultModel,
		BaseURL:     defaultBaseURL,
		Window: WindowConfig{
			EstimatedHeight: 3,
			Overscan:        4,
			Epsilon:         0.5,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadConfig 从默认位置加载配置，文件不存在时返回默认值
func LoadConfig() (*Config, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFrom(configPath)
}

// LoadConfigFrom 从指定文件加载配置。文件中缺少的字段保留默认值。
func LoadConfigFrom(configPath string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	config.fillDefaults()
	return config, nil
}

func (c *Config) fillDefaults() {
	def := Default()
	if c.Responder == "" {
		c.Responder = def.Responder
	}
	if c.Model == "" {
		c.Model = def.Model
	}
	if c.BaseURL == "" {
		c.BaseURL = def.BaseURL
	}
	if c.Window.EstimatedHeight <= 0 {
		c.Window.EstimatedHeight = def.Window.EstimatedHeight
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
}

// ApplyEnv 加载工作目录下的 .env（不存在则忽略），再应用环境变量覆盖
func (c *Config) ApplyEnv(envFiles ...string) error {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("加载 %s 失败: %w", f, err)
		}
	}
	if key := os.Getenv(APIKeyEnv); key != "" {
		c.APIKey = key
	}
	return nil
}

// Validate 检查互相依赖的字段
func (c *Config) Validate() error {
	c.Responder = strings.ToLower(strings.TrimSpace(c.Responder))
	switch c.Responder {
	case ResponderEcho:
	case ResponderAPI:
		if c.APIKey == "" {
			return ErrMissingAPIKey
		}
	default:
		return fmt.Errorf("unknown responder %q (want %s or %s)", c.Responder, ResponderEcho, ResponderAPI)
	}
	return nil
}

// LogFile 日志文件路径
func (c *Config) LogFile() (string, error) {
	if c.Log.File != "" {
		return c.Log.File, nil
	}
	return utils.LogFilePath()
}

// SaveConfig 保存到默认位置
func SaveConfig(config *Config) error {
	configPath, err := getConfigPath()
	if err != nil {
		return err
	}
	return SaveConfigTo(config, configPath)
}

// SaveConfigTo 保存到指定文件
func SaveConfigTo(config *Config, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	// 可能包含 api_key
	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("写入配置文件失败: %w", err)
	}
	return nil
}

func getConfigPath() (string, error) {
	configPath, err := utils.ConfigFilePath()
	if err != nil {
		return "", fmt.Errorf("获取配置目录失败: %w", err)
	}
	return configPath, nil
}
