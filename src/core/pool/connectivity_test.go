package pool

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"petmood-go/src/configs"
	"petmood-go/src/core/utils"
)

func newTestLogger(t *testing.T) *utils.Logger {
	t.Helper()
	config := &configs.Config{}
	config.Log.LogDir = t.TempDir()
	config.Log.LogFile = "test.log"
	config.Log.LogLevel = "error"

	logger, err := utils.NewLogger(config)
	if err != nil {
		t.Fatalf("创建测试日志器失败: %v", err)
	}
	t.Cleanup(func() { logger.Close() })
	return logger
}

// flakyChecker 前failures次检查失败，之后成功
type flakyChecker struct {
	failures int32
	calls    int32
}

func (c *flakyChecker) CheckHealth(ctx context.Context) error {
	n := atomic.AddInt32(&c.calls, 1)
	if n <= atomic.LoadInt32(&c.failures) {
		return fmt.Errorf("连接被拒绝")
	}
	return nil
}

func TestCheckAll_RetryThenSucceed(t *testing.T) {
	checker := NewConnectivityChecker(&ConnectivityConfig{
		Enabled:       true,
		Timeout:       time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Millisecond,
	}, newTestLogger(t))

	target := &flakyChecker{failures: 2}
	err := checker.CheckAll(context.Background(), map[string]HealthChecker{
		"detector": target,
	})
	if err != nil {
		t.Fatalf("第三次重试应成功: %v", err)
	}
	if got := atomic.LoadInt32(&target.calls); got != 3 {
		t.Errorf("检查次数 = %d, want 3", got)
	}
}

func TestCheckAll_AllAttemptsFail(t *testing.T) {
	checker := NewConnectivityChecker(&ConnectivityConfig{
		Enabled:       true,
		Timeout:       time.Second,
		RetryAttempts: 2,
		RetryDelay:    time.Millisecond,
	}, newTestLogger(t))

	target := &flakyChecker{failures: 10}
	err := checker.CheckAll(context.Background(), map[string]HealthChecker{
		"mood": target,
	})
	if err == nil {
		t.Fatal("全部重试失败时应返回错误")
	}
	if got := atomic.LoadInt32(&target.calls); got != 2 {
		t.Errorf("检查次数 = %d, want 2", got)
	}
}

func TestCheckAll_Disabled(t *testing.T) {
	checker := NewConnectivityChecker(&ConnectivityConfig{
		Enabled: false,
	}, newTestLogger(t))

	target := &flakyChecker{}
	err := checker.CheckAll(context.Background(), map[string]HealthChecker{
		"detector": target,
	})
	if err != nil {
		t.Fatalf("禁用时应直接返回nil: %v", err)
	}
	if atomic.LoadInt32(&target.calls) != 0 {
		t.Error("禁用时不应执行检查")
	}
}

func TestCheckAll_SkipNilTarget(t *testing.T) {
	checker := NewConnectivityChecker(nil, newTestLogger(t))

	err := checker.CheckAll(context.Background(), map[string]HealthChecker{
		"detector": nil,
	})
	if err != nil {
		t.Fatalf("nil目标应被跳过: %v", err)
	}
}

func TestCheckAll_CanceledDuringRetryDelay(t *testing.T) {
	checker := NewConnectivityChecker(&ConnectivityConfig{
		Enabled:       true,
		Timeout:       time.Second,
		RetryAttempts: 3,
		RetryDelay:    time.Minute,
	}, newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	timer := time.AfterFunc(50*time.Millisecond, cancel)
	defer timer.Stop()

	start := time.Now()
	err := checker.CheckAll(ctx, map[string]HealthChecker{
		"detector": &flakyChecker{failures: 10},
	})
	if err == nil {
		t.Fatal("上下文取消后应返回错误")
	}
	// 取消应打断重试等待，而不是等满RetryDelay
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("取消后仍等待了 %v", elapsed)
	}
}

func TestConfigFromYAML(t *testing.T) {
	tests := []struct {
		name string
		yaml *configs.ConnectivityCheckConfig
		want ConnectivityConfig
	}{
		{
			name: "nil配置使用默认值",
			yaml: nil,
			want: *DefaultConnectivityConfig(),
		},
		{
			name: "完整配置",
			yaml: &configs.ConnectivityCheckConfig{
				Enabled:       true,
				Timeout:       "10s",
				RetryAttempts: 5,
				RetryDelay:    "2s",
			},
			want: ConnectivityConfig{
				Enabled:       true,
				Timeout:       10 * time.Second,
				RetryAttempts: 5,
				RetryDelay:    2 * time.Second,
			},
		},
		{
			name: "非法时长回退默认值",
			yaml: &configs.ConnectivityCheckConfig{
				Enabled: true,
				Timeout: "not-a-duration",
			},
			want: ConnectivityConfig{
				Enabled:       true,
				Timeout:       30 * time.Second,
				RetryAttempts: 3,
				RetryDelay:    5 * time.Second,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ConfigFromYAML(tt.yaml)
			if *got != tt.want {
				t.Errorf("ConfigFromYAML = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
