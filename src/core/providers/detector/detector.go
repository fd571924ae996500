package detector

import (
	"context"
	"fmt"
	"time"

	"petmood-go/src/configs"
	"petmood-go/src/core/types"
	"petmood-go/src/core/utils"
)

// Config 检测提供者配置结构
type Config struct {
	Type          string
	BaseURL       string
	APIKey        string
	ModelName     string
	Timeout       time.Duration
	PetLabels     []string
	MinConfidence float64
	Extra         map[string]interface{}
}

// Provider 目标检测提供者接口
type Provider interface {
	Initialize() error
	Cleanup() error

	// Detect 对编码后的图片执行目标检测，按检测器输出顺序返回结果
	Detect(ctx context.Context, data []byte, format string) ([]types.Detection, error)
}

// HealthChecker 支持连通性检查的提供者实现此接口
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// BaseProvider 检测提供者基础实现
type BaseProvider struct {
	config *Config
}

// Config 获取配置
func (p *BaseProvider) Config() *Config {
	return p.config
}

// NewBaseProvider 创建检测基础提供者
func NewBaseProvider(config *Config) *BaseProvider {
	return &BaseProvider{
		config: config,
	}
}

// Initialize 初始化提供者
func (p *BaseProvider) Initialize() error {
	return nil
}

// Cleanup 清理资源
func (p *BaseProvider) Cleanup() error {
	return nil
}

// Factory 检测提供者工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册检测提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建检测提供者实例
func Create(detectorConfig *configs.DetectorConfig, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[detectorConfig.Type]
	if !ok {
		return nil, fmt.Errorf("未知的检测提供者: %s", detectorConfig.Type)
	}

	// 转换配置格式
	timeout := 30 * time.Second
	if detectorConfig.Timeout != "" {
		if t, err := time.ParseDuration(detectorConfig.Timeout); err == nil {
			timeout = t
		}
	}

	config := &Config{
		Type:          detectorConfig.Type,
		BaseURL:       detectorConfig.BaseURL,
		APIKey:        detectorConfig.APIKey,
		ModelName:     detectorConfig.ModelName,
		Timeout:       timeout,
		PetLabels:     detectorConfig.PetLabels,
		MinConfidence: detectorConfig.MinConfidence,
		Extra:         detectorConfig.Extra,
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建检测提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化检测提供者失败: %v", err)
	}

	logger.Debug("检测提供者创建成功", map[string]interface{}{
		"type":       config.Type,
		"model_name": config.ModelName,
	})

	return provider, nil
}

// GetRegisteredProviders 获取已注册的提供者列表
func GetRegisteredProviders() []string {
	var providers []string
	for name := range factories {
		providers = append(providers, name)
	}
	return providers
}
