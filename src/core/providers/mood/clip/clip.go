package clip

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"petmood-go/src/core/providers/mood"
	"petmood-go/src/core/utils"
)

// Provider CLIP零样本分类提供者，调用图文相似度推理服务
type Provider struct {
	*mood.BaseProvider
	logger     *utils.Logger
	httpClient *http.Client
}

// 注册提供者
func init() {
	mood.Register("clip", NewProvider)
}

// classifyRequest 推理服务请求结构
type classifyRequest struct {
	Image      string   `json:"image"`           // base64编码的图片
	Candidates []string `json:"candidates"`      // 候选文本
	Model      string   `json:"model,omitempty"` // 模型名称
}

// classifyResponse 推理服务响应结构，logits和probs二选一
type classifyResponse struct {
	Logits []float64 `json:"logits,omitempty"`
	Probs  []float64 `json:"probs,omitempty"`
}

// NewProvider 创建CLIP分类提供者
func NewProvider(config *mood.Config, logger *utils.Logger) (mood.Provider, error) {
	return &Provider{
		BaseProvider: mood.NewBaseProvider(config),
		logger:       logger,
		httpClient:   &http.Client{Timeout: config.Timeout},
	}, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	if p.Config().BaseURL == "" {
		return fmt.Errorf("CLIP推理服务地址不能为空")
	}
	return nil
}

// Classify 请求推理服务并归一化为概率分布
func (p *Provider) Classify(ctx context.Context, data []byte, format string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("候选文本不能为空")
	}

	request := classifyRequest{
		Image:      base64.StdEncoding.EncodeToString(data),
		Candidates: candidates,
		Model:      p.Config().ModelName,
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("请求序列化失败: %v", err)
	}

	url := strings.TrimSuffix(p.Config().BaseURL, "/") + "/classify"
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(requestBody))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("CLIP服务请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("CLIP服务响应错误: %d", resp.StatusCode)
	}

	var result classifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("解析分类结果失败: %v", err)
	}

	// 服务端可能直接给概率，也可能给原始logits；概率按总和重归一，logits走softmax，保证和为1
	var probs []float64
	switch {
	case len(result.Probs) > 0:
		if len(result.Probs) != len(candidates) {
			return nil, fmt.Errorf("分类结果数量不匹配: 期望%d个，实际%d个", len(candidates), len(result.Probs))
		}
		probs = mood.Normalize(result.Probs)
	case len(result.Logits) > 0:
		if len(result.Logits) != len(candidates) {
			return nil, fmt.Errorf("分类结果数量不匹配: 期望%d个，实际%d个", len(candidates), len(result.Logits))
		}
		probs = mood.Softmax(result.Logits)
	default:
		return nil, fmt.Errorf("分类结果为空")
	}

	p.logger.Debug("CLIP分类完成", map[string]interface{}{
		"candidates": len(candidates),
	})

	return probs, nil
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
		return fmt.Errorf("CLIP服务状态异常: %d", resp.StatusCode)
	}
	return nil
}
