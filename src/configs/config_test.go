package configs

import (
	"os"
	"path/filepath"
	"testing"
)

// chdir changes the working directory for the duration of the test,
// mirroring t.Chdir (which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		if err := os.Chdir(wd); err != nil {
			t.Fatal(err)
		}
	})
}

const testConfigYAML = `
log:
  log_format: json
  log_level: debug
  log_dir: logs
  log_file: test.log

image:
  default_path: ./samples/dog.jpg
  save_annotated: true
  annotated_dir: out
  security:
    max_file_size: 1048576
    max_width: 2048
    max_height: 2048
    allowed_formats:
      - jpeg
      - png

selected_module:
  Detector: YoloService
  Mood: ClipService

Detector:
  YoloService:
    type: yolo
    url: http://localhost:8000
    timeout: 15s
    pet_labels:
      - dog
      - cat
    min_confidence: 0.3

Mood:
  ClipService:
    type: clip
    url: http://localhost:8001
    model_name: openai/clip-vit-base-patch32
  OpenAIVision:
    type: openai
    api_key: ${PETMOOD_TEST_API_KEY}
    model_name: gpt-4o-mini

connectivity_check:
  enabled: true
  timeout: 10s
  retry_attempts: 2
  retry_delay: 1s
`

func writeTestConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("写入测试配置失败: %v", err)
	}
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	t.Setenv("PETMOOD_TEST_API_KEY", "sk-test-123")

	config, err := LoadConfigFromFile(writeTestConfig(t, testConfigYAML))
	if err != nil {
		t.Fatalf("LoadConfigFromFile返回错误: %v", err)
	}

	t.Run("日志配置", func(t *testing.T) {
		if config.Log.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want %q", config.Log.LogLevel, "debug")
		}
	})

	t.Run("图片配置", func(t *testing.T) {
		if config.Image.DefaultPath != "./samples/dog.jpg" {
			t.Errorf("DefaultPath = %q", config.Image.DefaultPath)
		}
		if !config.Image.SaveAnnotated {
			t.Error("SaveAnnotated应为true")
		}
		if config.Image.Security.MaxFileSize != 1048576 {
			t.Errorf("MaxFileSize = %d, want 1048576", config.Image.Security.MaxFileSize)
		}
		if len(config.Image.Security.AllowedFormats) != 2 {
			t.Errorf("AllowedFormats = %v", config.Image.Security.AllowedFormats)
		}
	})

	t.Run("模块选择", func(t *testing.T) {
		if config.SelectedModule["Detector"] != "YoloService" {
			t.Errorf("Detector模块 = %q", config.SelectedModule["Detector"])
		}
		if config.SelectedModule["Mood"] != "ClipService" {
			t.Errorf("Mood模块 = %q", config.SelectedModule["Mood"])
		}
	})

	t.Run("检测提供者配置", func(t *testing.T) {
		dc, ok := config.Detector["YoloService"]
		if !ok {
			t.Fatal("缺少YoloService配置")
		}
		if dc.Type != "yolo" {
			t.Errorf("Type = %q, want %q", dc.Type, "yolo")
		}
		if dc.Timeout != "15s" {
			t.Errorf("Timeout = %q, want %q", dc.Timeout, "15s")
		}
		if len(dc.PetLabels) != 2 {
			t.Errorf("PetLabels = %v", dc.PetLabels)
		}
		if dc.MinConfidence != 0.3 {
			t.Errorf("MinConfidence = %v, want 0.3", dc.MinConfidence)
		}
	})

	t.Run("环境变量展开", func(t *testing.T) {
		mc, ok := config.Mood["OpenAIVision"]
		if !ok {
			t.Fatal("缺少OpenAIVision配置")
		}
		if mc.APIKey != "sk-test-123" {
			t.Errorf("APIKey = %q, want %q", mc.APIKey, "sk-test-123")
		}
	})

	t.Run("连通性检查配置", func(t *testing.T) {
		if !config.ConnectivityCheck.Enabled {
			t.Error("连通性检查应启用")
		}
		if config.ConnectivityCheck.RetryAttempts != 2 {
			t.Errorf("RetryAttempts = %d, want 2", config.ConnectivityCheck.RetryAttempts)
		}
	})
}

func TestLoadConfig_FileFallback(t *testing.T) {
	t.Run("优先使用.config.yaml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, ".config.yaml"), []byte("log:\n  log_level: debug\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  log_level: info\n"), 0644); err != nil {
			t.Fatal(err)
		}
		chdir(t, dir)

		config, path, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig返回错误: %v", err)
		}
		if path != ".config.yaml" {
			t.Errorf("配置路径 = %q, want %q", path, ".config.yaml")
		}
		if config.Log.LogLevel != "debug" {
			t.Errorf("LogLevel = %q, want %q", config.Log.LogLevel, "debug")
		}
	})

	t.Run("缺少.config.yaml时回退config.yaml", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("log:\n  log_level: warn\n"), 0644); err != nil {
			t.Fatal(err)
		}
		chdir(t, dir)

		config, path, err := LoadConfig()
		if err != nil {
			t.Fatalf("LoadConfig返回错误: %v", err)
		}
		if path != "config.yaml" {
			t.Errorf("配置路径 = %q, want %q", path, "config.yaml")
		}
		if config.Log.LogLevel != "warn" {
			t.Errorf("LogLevel = %q, want %q", config.Log.LogLevel, "warn")
		}
	})

	t.Run("两个文件都不存在", func(t *testing.T) {
		chdir(t, t.TempDir())
		if _, _, err := LoadConfig(); err == nil {
			t.Error("配置文件不存在时应返回错误")
		}
	})
}

func TestLoadConfigFromFile_Errors(t *testing.T) {
	t.Run("文件不存在", func(t *testing.T) {
		if _, err := LoadConfigFromFile("/nonexistent/config.yaml"); err == nil {
			t.Error("文件不存在时应返回错误")
		}
	})

	t.Run("非法YAML", func(t *testing.T) {
		path := writeTestConfig(t, "log: [unbalanced")
		if _, err := LoadConfigFromFile(path); err == nil {
			t.Error("非法YAML应返回错误")
		}
	})
}
