package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"petmood-go/src/configs"
	img "petmood-go/src/core/image"
	"petmood-go/src/core/pipeline"
	"petmood-go/src/core/pool"
	"petmood-go/src/core/providers/detector"
	"petmood-go/src/core/providers/mood"
	"petmood-go/src/core/utils"

	// 导入所有providers以确保init函数被调用
	_ "petmood-go/src/core/providers/detector/openai"
	_ "petmood-go/src/core/providers/detector/ws"
	_ "petmood-go/src/core/providers/detector/yolo"
	_ "petmood-go/src/core/providers/mood/clip"
	_ "petmood-go/src/core/providers/mood/openai"

	"github.com/joho/godotenv"
)

// LoadConfigAndLogger 加载配置并初始化日志系统
func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", configPath))

	return config, logger, nil
}

// buildProviders 根据selected_module配置创建检测和情绪分类提供者
func buildProviders(config *configs.Config, logger *utils.Logger) (detector.Provider, mood.Provider, error) {
	selectedDetector := config.SelectedModule["Detector"]
	if selectedDetector == "" {
		return nil, nil, fmt.Errorf("请在selected_module中设置Detector提供者")
	}
	detectorConfig, ok := config.Detector[selectedDetector]
	if !ok {
		return nil, nil, fmt.Errorf("未找到Detector配置: %s", selectedDetector)
	}

	det, err := detector.Create(&detectorConfig, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("创建检测提供者失败: %v", err)
	}

	selectedMood := config.SelectedModule["Mood"]
	if selectedMood == "" {
		return nil, nil, fmt.Errorf("请在selected_module中设置Mood提供者")
	}
	moodConfig, ok := config.Mood[selectedMood]
	if !ok {
		return nil, nil, fmt.Errorf("未找到Mood配置: %s", selectedMood)
	}

	cls, err := mood.Create(&moodConfig, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("创建情绪分类提供者失败: %v", err)
	}

	logger.Info("提供者初始化完成", map[string]interface{}{
		"detector": detectorConfig.Type,
		"mood":     moodConfig.Type,
	})

	return det, cls, nil
}

// checkConnectivity 启动时检查选中提供者的连通性
func checkConnectivity(ctx context.Context, config *configs.Config, logger *utils.Logger, det detector.Provider, cls mood.Provider) error {
	checker := pool.NewConnectivityChecker(pool.ConfigFromYAML(&config.ConnectivityCheck), logger)

	targets := make(map[string]pool.HealthChecker)
	if hc, ok := det.(pool.HealthChecker); ok {
		targets["detector"] = hc
	}
	if hc, ok := cls.(pool.HealthChecker); ok {
		targets["mood"] = hc
	}

	return checker.CheckAll(ctx, targets)
}

// reportResult 输出分析结果到标准输出
func reportResult(result *pipeline.Result) {
	if !result.Found {
		fmt.Println("No pet detected in the image.")
		return
	}

	fmt.Printf("Pet detected: %s\n", result.PetType)
	fmt.Printf("Mood: %s (%.1f%% confidence)\n", result.Mood, result.Confidence*100)
	fmt.Printf("Recommendation: %s\n", result.Recommendation)
}

func main() {
	// 先加载 .env 文件，配置中的${VAR}依赖环境变量展开
	envErr := godotenv.Load()

	// 加载配置和初始化日志系统
	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("加载配置或初始化日志系统失败:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	// 输入图片路径：第一个命令行参数优先，其次配置默认值
	imagePath := config.Image.DefaultPath
	if len(os.Args) > 1 {
		imagePath = os.Args[1]
	}
	if imagePath == "" {
		logger.Error("未指定输入图片路径")
		os.Exit(1)
	}

	// 创建可被信号取消的上下文
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 创建提供者
	det, cls, err := buildProviders(config, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("初始化提供者失败: %v", err))
		os.Exit(1)
	}
	defer det.Cleanup()
	defer cls.Cleanup()

	// 启动时连通性检查
	if err := checkConnectivity(ctx, config, logger, det, cls); err != nil {
		logger.Error(fmt.Sprintf("连通性检查失败: %v", err))
		os.Exit(1)
	}

	// 创建图片处理器和分析器
	images, err := img.NewProcessor(&config.Image, logger)
	if err != nil {
		logger.Error(fmt.Sprintf("初始化图片处理器失败: %v", err))
		os.Exit(1)
	}

	detectorName := config.SelectedModule["Detector"]
	petLabels := config.Detector[detectorName].PetLabels
	analyzer := pipeline.NewAnalyzer(det, cls, images, logger, petLabels)

	// 执行分析流水线
	result, err := analyzer.Analyze(ctx, imagePath)
	if err != nil {
		logger.Error(fmt.Sprintf("分析失败: %v", err))
		os.Exit(1)
	}

	reportResult(result)

	metrics := images.GetMetrics()
	logger.Info("图片处理统计", map[string]interface{}{
		"total_loaded":       metrics.TotalLoaded,
		"url_downloads":      metrics.URLDownloads,
		"failed_validations": metrics.FailedValidations,
		"crops_produced":     metrics.CropsProduced,
	})

	// 保存标注图片
	if result.Found && config.Image.SaveAnnotated {
		annotated := img.Annotate(result.Source, result.Box, result.PetType, result.Mood, result.Confidence)
		path, err := images.SaveAnnotated(annotated)
		if err != nil {
			logger.Error(fmt.Sprintf("保存标注图片失败: %v", err))
			os.Exit(1)
		}
		fmt.Printf("Annotated image saved to %s\n", path)
	}
}
