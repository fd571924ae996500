package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	img "petmood-go/src/core/image"
	"petmood-go/src/core/providers/detector"
	"petmood-go/src/core/types"
	"petmood-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI视觉检测提供者，让多模态模型输出JSON检测框
type Provider struct {
	*detector.BaseProvider
	logger *utils.Logger
	client *openai.Client
}

// 注册提供者
func init() {
	detector.Register("openai", NewProvider)
}

const detectPrompt = `Detect every animal in this image. Reply with strict JSON only, no prose:
{"detections":[{"label":"<animal name in English, lowercase>","confidence":<0..1>,"box":{"x1":<int>,"y1":<int>,"x2":<int>,"y2":<int>}}]}
Box coordinates are pixels in the original image. List detections in the order you find them. Reply {"detections":[]} if there are none.`

// NewProvider 创建OpenAI检测提供者
func NewProvider(config *detector.Config, logger *utils.Logger) (detector.Provider, error) {
	return &Provider{
		BaseProvider: detector.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// Initialize 初始化OpenAI客户端
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.APIKey == "" {
		return fmt.Errorf("missing OpenAI API key")
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Detect 调用视觉模型并解析JSON检测结果
func (p *Provider) Detect(ctx context.Context, data []byte, format string) ([]types.Detection, error) {
	if format == "" {
		format = "jpeg"
	}

	visionMessage := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: detectPrompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: img.DataURL(data, format),
				},
			},
		},
	}

	resp, err := p.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:    p.Config().ModelName,
			Messages: []openai.ChatCompletionMessage{visionMessage},
		},
	)
	if err != nil {
		return nil, fmt.Errorf("OpenAI Vision API调用失败: %v", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI Vision API返回空结果")
	}

	detections, err := parseDetections(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}

	p.logger.Debug("OpenAI视觉检测完成", map[string]interface{}{
		"model":      p.Config().ModelName,
		"detections": len(detections),
	})

	return detections, nil
}

// CheckHealth 通过模型列表接口验证凭证和连通性
func (p *Provider) CheckHealth(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	return err
}

// parseDetections 解析模型回复中的JSON，容忍markdown代码块包裹
func parseDetections(content string) ([]types.Detection, error) {
	payload := extractJSON(content)

	var result struct {
		Detections []types.Detection `json:"detections"`
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("解析模型检测回复失败: %v", err)
	}

	return result.Detections, nil
}

// extractJSON 去掉```json代码块标记，截取首个大括号到末个大括号
func extractJSON(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return content[start : end+1]
	}
	return content
}
