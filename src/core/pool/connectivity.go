package pool

import (
	"context"
	"fmt"
	"time"

	"petmood-go/src/configs"
	"petmood-go/src/core/utils"

	"golang.org/x/sync/errgroup"
)

// HealthChecker 可做连通性检查的提供者
type HealthChecker interface {
	CheckHealth(ctx context.Context) error
}

// CheckResult 单个提供者的检查结果
type CheckResult struct {
	ProviderType string        `json:"provider_type"`
	Success      bool          `json:"success"`
	Error        error         `json:"error,omitempty"`
	Attempts     int           `json:"attempts"`
	Duration     time.Duration `json:"duration"`
	Timestamp    time.Time     `json:"timestamp"`
}

// ConnectivityConfig 连通性检查配置
type ConnectivityConfig struct {
	Enabled       bool
	Timeout       time.Duration
	RetryAttempts int
	RetryDelay    time.Duration
}

// DefaultConnectivityConfig 默认连通性检查配置
func DefaultConnectivityConfig() *ConnectivityConfig {
	return &ConnectivityConfig{
		Enabled:       true,
		Timeout:       30 * time.Second,
		RetryAttempts: 3,
		RetryDelay:    5 * time.Second,
	}
}

// ConfigFromYAML 从YAML配置创建连通性检查配置
func ConfigFromYAML(yamlConfig *configs.ConnectivityCheckConfig) *ConnectivityConfig {
	if yamlConfig == nil {
		return DefaultConnectivityConfig()
	}

	timeout := 30 * time.Second
	if yamlConfig.Timeout != "" {
		if t, err := time.ParseDuration(yamlConfig.Timeout); err == nil {
			timeout = t
		}
	}

	retryDelay := 5 * time.Second
	if yamlConfig.RetryDelay != "" {
		if t, err := time.ParseDuration(yamlConfig.RetryDelay); err == nil {
			retryDelay = t
		}
	}

	retryAttempts := 3
	if yamlConfig.RetryAttempts > 0 {
		retryAttempts = yamlConfig.RetryAttempts
	}

	return &ConnectivityConfig{
		Enabled:       yamlConfig.Enabled,
		Timeout:       timeout,
		RetryAttempts: retryAttempts,
		RetryDelay:    retryDelay,
	}
}

// ConnectivityChecker 启动时的提供者连通性检查器
type ConnectivityChecker struct {
	config *ConnectivityConfig
	logger *utils.Logger
}

// NewConnectivityChecker 创建连通性检查器
func NewConnectivityChecker(config *ConnectivityConfig, logger *utils.Logger) *ConnectivityChecker {
	if config == nil {
		config = DefaultConnectivityConfig()
	}
	return &ConnectivityChecker{
		config: config,
		logger: logger,
	}
}

// CheckAll 并发检查所有目标提供者，任一检查失败返回错误。
// 检查只在启动阶段执行一次，不影响分析流水线的顺序执行
func (c *ConnectivityChecker) CheckAll(ctx context.Context, targets map[string]HealthChecker) error {
	if !c.config.Enabled {
		c.logger.Debug("连通性检查已禁用")
		return nil
	}

	g, groupCtx := errgroup.WithContext(ctx)

	for name, target := range targets {
		name, target := name, target
		if target == nil {
			c.logger.Debug(fmt.Sprintf("提供者 %s 不支持连通性检查，跳过", name))
			continue
		}

		g.Go(func() error {
			result := c.checkWithRetry(groupCtx, name, target)
			if !result.Success {
				return fmt.Errorf("提供者 %s 连通性检查失败: %v", name, result.Error)
			}
			c.logger.Info(fmt.Sprintf("提供者 %s 连通性检查通过", name), map[string]interface{}{
				"attempts": result.Attempts,
				"duration": result.Duration.String(),
			})
			return nil
		})
	}

	return g.Wait()
}

// checkWithRetry 带重试的单提供者检查
func (c *ConnectivityChecker) checkWithRetry(ctx context.Context, name string, target HealthChecker) CheckResult {
	result := CheckResult{
		ProviderType: name,
		Timestamp:    time.Now(),
	}
	start := time.Now()

	for attempt := 1; attempt <= c.config.RetryAttempts; attempt++ {
		result.Attempts = attempt

		checkCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
		err := target.CheckHealth(checkCtx)
		cancel()

		if err == nil {
			result.Success = true
			result.Duration = time.Since(start)
			return result
		}

		result.Error = err
		c.logger.Warn(fmt.Sprintf("提供者 %s 第%d次连通性检查失败: %v", name, attempt, err))

		if attempt < c.config.RetryAttempts {
			select {
			case <-time.After(c.config.RetryDelay):
			case <-ctx.Done():
				result.Error = ctx.Err()
				result.Duration = time.Since(start)
				return result
			}
		}
	}

	result.Duration = time.Since(start)
	return result
}
