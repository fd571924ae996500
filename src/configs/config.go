package configs

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config 主配置结构
type Config struct {
	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	Image ImageConfig `yaml:"image"`

	SelectedModule map[string]string `yaml:"selected_module"`

	Detector map[string]DetectorConfig `yaml:"Detector"`
	Mood     map[string]MoodConfig     `yaml:"Mood"`

	ConnectivityCheck ConnectivityCheckConfig `yaml:"connectivity_check"`
}

// ImageConfig 图片输入输出配置
type ImageConfig struct {
	DefaultPath   string         `yaml:"default_path"`   // 默认输入图片路径
	SaveAnnotated bool           `yaml:"save_annotated"` // 是否保存标注后的图片
	AnnotatedDir  string         `yaml:"annotated_dir"`  // 标注图片输出目录
	Security      SecurityConfig `yaml:"security"`       // 图片安全配置
}

// SecurityConfig 图片安全配置结构
type SecurityConfig struct {
	MaxFileSize    int64    `yaml:"max_file_size"`   // 最大文件大小（字节）
	MaxPixels      int64    `yaml:"max_pixels"`      // 最大像素数量
	MaxWidth       int      `yaml:"max_width"`       // 最大宽度
	MaxHeight      int      `yaml:"max_height"`      // 最大高度
	AllowedFormats []string `yaml:"allowed_formats"` // 允许的图片格式
}

// DetectorConfig 目标检测提供者配置
type DetectorConfig struct {
	Type          string                 `yaml:"type"`           // 提供者类型：yolo, ws, openai
	BaseURL       string                 `yaml:"url"`            // 推理服务地址
	APIKey        string                 `yaml:"api_key"`        // API密钥（openai类型需要）
	ModelName     string                 `yaml:"model_name"`     // 模型名称
	Timeout       string                 `yaml:"timeout"`        // 单次调用超时时间
	PetLabels     []string               `yaml:"pet_labels"`     // 允许的宠物标签，默认 dog/cat
	MinConfidence float64                `yaml:"min_confidence"` // 置信度下限，0表示不过滤
	Extra         map[string]interface{} `yaml:",inline"`
}

// MoodConfig 情绪分类提供者配置
type MoodConfig struct {
	Type        string                 `yaml:"type"`        // 提供者类型：clip, openai
	BaseURL     string                 `yaml:"url"`         // 推理服务地址
	APIKey      string                 `yaml:"api_key"`     // API密钥
	ModelName   string                 `yaml:"model_name"`  // 模型名称
	Temperature float64                `yaml:"temperature"` // 温度参数（openai类型）
	MaxTokens   int                    `yaml:"max_tokens"`  // 最大令牌数（openai类型）
	Timeout     string                 `yaml:"timeout"`     // 单次调用超时时间
	Extra       map[string]interface{} `yaml:",inline"`
}

// ConnectivityCheckConfig 启动时连通性检查配置
type ConnectivityCheckConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Timeout       string `yaml:"timeout"`
	RetryAttempts int    `yaml:"retry_attempts"`
	RetryDelay    string `yaml:"retry_delay"`
}

// LoadConfig 从文件加载配置，默认使用.config.yaml
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	config, err := LoadConfigFromFile(path)
	return config, path, err
}

// LoadConfigFromFile 从指定路径加载配置，${VAR}形式的值从环境变量展开
func LoadConfigFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	expanded := os.ExpandEnv(string(data))

	config := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), config); err != nil {
		return nil, err
	}

	return config, nil
}
