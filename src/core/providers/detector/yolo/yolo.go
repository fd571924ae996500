package yolo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"petmood-go/src/core/providers/detector"
	"petmood-go/src/core/types"
	"petmood-go/src/core/utils"
)

// Provider YOLO推理服务检测提供者，通过multipart上传图片获取检测框
type Provider struct {
	*detector.BaseProvider
	logger     *utils.Logger
	httpClient *http.Client
}

// 注册提供者
func init() {
	detector.Register("yolo", NewProvider)
}

// detectResponse 推理服务响应结构
type detectResponse struct {
	Detections []types.Detection `json:"detections"`
}

// NewProvider 创建YOLO检测提供者
func NewProvider(config *detector.Config, logger *utils.Logger) (detector.Provider, error) {
	return &Provider{
		BaseProvider: detector.NewBaseProvider(config),
		logger:       logger,
		httpClient:   &http.Client{Timeout: config.Timeout},
	}, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	if p.Config().BaseURL == "" {
		return fmt.Errorf("YOLO检测服务地址不能为空")
	}
	return nil
}

// Detect 上传图片到推理服务并解析检测结果
func (p *Provider) Detect(ctx context.Context, data []byte, format string) ([]types.Detection, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	filename := "image.jpg"
	if format != "" {
		filename = "image." + format
	}

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("创建表单文件失败: %v", err)
	}

	if _, err := io.Copy(part, bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("复制图片数据失败: %v", err)
	}

	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("关闭表单失败: %v", err)
	}

	url := strings.TrimSuffix(p.Config().BaseURL, "/") + "/detect"
	req, err := http.NewRequestWithContext(ctx, "POST", url, body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("检测服务请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("检测服务响应错误: %d", resp.StatusCode)
	}

	var result detectResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析检测结果失败: %v", err)
	}

	detections := filterByConfidence(result.Detections, p.Config().MinConfidence)

	p.logger.Debug("YOLO检测完成", map[string]interface{}{
		"total":    len(result.Detections),
		"returned": len(detections),
	})

	return detections, nil
}

// CheckHealth 检查推理服务可用性
func (p *Provider) CheckHealth(ctx context.Context) error {
	url := strings.TrimSuffix(p.Config().BaseURL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return err
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("检测服务状态异常: %d", resp.StatusCode)
	}
	return nil
}

// filterByConfidence 按置信度下限过滤，保持检测器原始顺序
func filterByConfidence(detections []types.Detection, minConfidence float64) []types.Detection {
	if minConfidence <= 0 {
		return detections
	}
	filtered := make([]types.Detection, 0, len(detections))
	for _, d := range detections {
		if d.Confidence >= minConfidence {
			filtered = append(filtered, d)
		}
	}
	return filtered
}
