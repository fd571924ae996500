package mood

import (
	"context"
	"fmt"
	"math"
	"time"

	"petmood-go/src/configs"
	"petmood-go/src/core/utils"
)

// Config 情绪分类提供者配置结构
type Config struct {
	Type        string
	BaseURL     string
	APIKey      string
	ModelName   string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Extra       map[string]interface{}
}

// Provider 零样本图文分类提供者接口
type Provider interface {
	Initialize() error
	Cleanup() error

	// Classify 对裁剪图片与候选文本计算概率分布，返回值与候选一一对应且和为1
	Classify(ctx context.Context, data []byte, format string, candidates []string) ([]float64, error)
}

// HealthChecker 支持连通性检查的提供者实现此接口
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// BaseProvider 情绪分类提供者基础实现
type BaseProvider struct {
	config *Config
}

// Config 获取配置
func (p *BaseProvider) Config() *Config {
	return p.config
}

// NewBaseProvider 创建情绪分类基础提供者
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

// Factory 情绪分类提供者工厂函数类型
type Factory func(config *Config, logger *utils.Logger) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册情绪分类提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 创建情绪分类提供者实例
func Create(moodConfig *configs.MoodConfig, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[moodConfig.Type]
	if !ok {
		return nil, fmt.Errorf("未知的情绪分类提供者: %s", moodConfig.Type)
	}

	timeout := 30 * time.Second
	if moodConfig.Timeout != "" {
		if t, err := time.ParseDuration(moodConfig.Timeout); err == nil {
			timeout = t
		}
	}

	config := &Config{
		Type:        moodConfig.Type,
		BaseURL:     moodConfig.BaseURL,
		APIKey:      moodConfig.APIKey,
		ModelName:   moodConfig.ModelName,
		Temperature: moodConfig.Temperature,
		MaxTokens:   moodConfig.MaxTokens,
		Timeout:     timeout,
		Extra:       moodConfig.Extra,
	}

	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建情绪分类提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化情绪分类提供者失败: %v", err)
	}

	logger.Debug("情绪分类提供者创建成功", map[string]interface{}{
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

// Softmax 对原始打分做softmax归一化，减去最大值避免上溢
func Softmax(logits []float64) []float64 {
	if len(logits) == 0 {
		return nil
	}

	maxLogit := logits[0]
	for _, v := range logits[1:] {
		if v > maxLogit {
			maxLogit = v
		}
	}

	probs := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		probs[i] = math.Exp(v - maxLogit)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

// Normalize 按总和重归一化非负打分，总和无效时退化为均匀分布
func Normalize(scores []float64) []float64 {
	if len(scores) == 0 {
		return nil
	}

	var sum float64
	for _, v := range scores {
		sum += v
	}
	probs := make([]float64, len(scores))
	if sum <= 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		for i := range probs {
			probs[i] = 1 / float64(len(scores))
		}
		return probs
	}
	for i, v := range scores {
		probs[i] = v / sum
	}
	return probs
}

// ArgMax 返回最大概率的下标，并列时取靠前的
func ArgMax(probs []float64) int {
	best := 0
	for i, v := range probs {
		if v > probs[best] {
			best = i
		}
	}
	return best
}
