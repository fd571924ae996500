package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	img "petmood-go/src/core/image"
	"petmood-go/src/core/providers/mood"
	"petmood-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI情绪分类提供者，用视觉模型给候选描述打分后本地softmax
type Provider struct {
	*mood.BaseProvider
	logger *utils.Logger
	client *openai.Client
}

// 注册提供者
func init() {
	mood.Register("openai", NewProvider)
}

// NewProvider 创建OpenAI情绪分类提供者
func NewProvider(config *mood.Config, logger *utils.Logger) (mood.Provider, error) {
	return &Provider{
		BaseProvider: mood.NewBaseProvider(config),
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

// Classify 让视觉模型为每个候选描述打分，本地softmax归一化
func (p *Provider) Classify(ctx context.Context, data []byte, format string, candidates []string) ([]float64, error) {
	if len(candidates) == 0 {
		return nil, fmt.Errorf("候选文本不能为空")
	}
	if format == "" {
		format = "jpeg"
	}

	prompt := buildPrompt(candidates)

	visionMessage := openai.ChatCompletionMessage{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{
				Type: openai.ChatMessagePartTypeText,
				Text: prompt,
			},
			{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: img.DataURL(data, format),
				},
			},
		},
	}

	request := openai.ChatCompletionRequest{
		Model:       p.Config().ModelName,
		Messages:    []openai.ChatCompletionMessage{visionMessage},
		Temperature: float32(p.Config().Temperature),
	}
	if p.Config().MaxTokens > 0 {
		request.MaxTokens = p.Config().MaxTokens
	}

	resp, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return nil, fmt.Errorf("OpenAI Vision API调用失败: %v", err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("OpenAI Vision API返回空结果")
	}

	scores, err := parseScores(resp.Choices[0].Message.Content, len(candidates))
	if err != nil {
		return nil, err
	}

	p.logger.Debug("OpenAI情绪打分完成", map[string]interface{}{
		"model":      p.Config().ModelName,
		"candidates": len(candidates),
	})

	return mood.Softmax(scores), nil
}

// CheckHealth 通过模型列表接口验证凭证和连通性
func (p *Provider) CheckHealth(ctx context.Context) error {
	_, err := p.client.ListModels(ctx)
	return err
}

// buildPrompt 构造打分提示词，要求严格JSON分数数组
func buildPrompt(candidates []string) string {
	var sb strings.Builder
	sb.WriteString("Score how well each description matches the animal in this image, from 0 (no match) to 10 (perfect match). Descriptions in order:\n")
	for i, c := range candidates {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
	}
	sb.WriteString(`Reply with strict JSON only, no prose: {"scores":[<number per description, same order>]}`)
	return sb.String()
}

// parseScores 解析模型回复中的分数数组，容忍markdown代码块包裹
func parseScores(content string, expected int) ([]float64, error) {
	payload := extractJSON(content)

	var result struct {
		Scores []float64 `json:"scores"`
	}
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("解析模型打分回复失败: %v", err)
	}

	if len(result.Scores) != expected {
		return nil, fmt.Errorf("打分数量不匹配: 期望%d个，实际%d个", expected, len(result.Scores))
	}

	return result.Scores, nil
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
