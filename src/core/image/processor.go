package image

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"petmood-go/src/configs"
	"petmood-go/src/core/types"
	"petmood-go/src/core/utils"

	"github.com/google/uuid"
)

// Processor 图片处理器，负责加载、验证、裁剪和编码
type Processor struct {
	config     *configs.ImageConfig
	validator  *SecurityValidator
	logger     *utils.Logger
	metrics    *Metrics
	httpClient *http.Client
}

// NewProcessor 创建新的图片处理器
func NewProcessor(config *configs.ImageConfig, logger *utils.Logger) (*Processor, error) {
	validator := NewSecurityValidator(&config.Security, logger)

	httpClient := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			// 限制重定向次数为3次
			if len(via) >= 3 {
				return fmt.Errorf("停止重定向：超过最大重定向次数")
			}
			return nil
		},
	}

	return &Processor{
		config:     config,
		validator:  validator,
		logger:     logger,
		metrics:    &Metrics{},
		httpClient: httpClient,
	}, nil
}

// LoadFile 从本地路径加载图片并完成安全验证和解码
func (p *Processor) LoadFile(path string) (*Loaded, error) {
	atomic.AddInt64(&p.metrics.TotalLoaded, 1)

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取图片文件失败: %v", err)
	}

	return p.loadBytes(data, formatFromPath(path))
}

// LoadURL 下载远程图片后按本地图片同样流程处理
func (p *Processor) LoadURL(ctx context.Context, url string) (*Loaded, error) {
	atomic.AddInt64(&p.metrics.TotalLoaded, 1)
	atomic.AddInt64(&p.metrics.URLDownloads, 1)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %v", err)
	}
	req.Header.Set("User-Agent", "PetMood-Image-Bot/1.0")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP请求失败: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP响应错误: %d %s", resp.StatusCode, resp.Status)
	}

	if p.config.Security.MaxFileSize > 0 && resp.ContentLength > p.config.Security.MaxFileSize {
		return nil, fmt.Errorf("文件过大: %d bytes，最大允许: %d bytes",
			resp.ContentLength, p.config.Security.MaxFileSize)
	}

	// 使用LimitReader限制下载大小，防止无限下载
	limit := p.config.Security.MaxFileSize
	if limit <= 0 {
		limit = 32 << 20
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("下载文件失败: %v", err)
	}

	return p.loadBytes(data, "")
}

// loadBytes 验证并解码图片字节
func (p *Processor) loadBytes(data []byte, declaredFormat string) (*Loaded, error) {
	validation := p.validator.ValidateBytes(data, declaredFormat)
	if !validation.IsValid {
		atomic.AddInt64(&p.metrics.FailedValidations, 1)
		if validation.SecurityRisk != "" {
			p.logger.Warn("图片验证失败", map[string]interface{}{
				"error":         validation.Error.Error(),
				"security_risk": validation.SecurityRisk,
			})
		}
		return nil, fmt.Errorf("图片验证失败: %v", validation.Error)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("图片解码失败: %v", err)
	}

	p.logger.Debug("图片加载完成", map[string]interface{}{
		"format":    format,
		"width":     validation.Width,
		"height":    validation.Height,
		"file_size": validation.FileSize,
	})

	return &Loaded{
		Image:  img,
		Data:   data,
		Format: format,
		Width:  validation.Width,
		Height: validation.Height,
	}, nil
}

// Crop 按检测框裁剪图片，框坐标越界时收拢到图片范围内
func (p *Processor) Crop(src image.Image, box types.Box) (image.Image, error) {
	bounds := src.Bounds()

	rect := image.Rect(box.X1, box.Y1, box.X2, box.Y2).Intersect(bounds)
	if rect.Empty() {
		return nil, fmt.Errorf("裁剪区域无效: (%d,%d)-(%d,%d)", box.X1, box.Y1, box.X2, box.Y2)
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), src, rect.Min, draw.Src)

	atomic.AddInt64(&p.metrics.CropsProduced, 1)
	return cropped, nil
}

// EncodeJPEG 将图片编码为JPEG字节
func (p *Processor) EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, nil); err != nil {
		return nil, fmt.Errorf("JPEG编码失败: %v", err)
	}
	return buf.Bytes(), nil
}

// SaveAnnotated 保存标注后的图片到输出目录，返回保存路径
func (p *Processor) SaveAnnotated(img image.Image) (string, error) {
	dir := p.config.AnnotatedDir
	if dir == "" {
		dir = filepath.Join("tmp", "annotated")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("创建输出目录失败: %v", err)
	}

	data, err := p.EncodeJPEG(img)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, fmt.Sprintf("annotated_%d_%s.jpg", time.Now().UnixNano(), uuid.New().String()))
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("写入标注图片失败: %v", err)
	}

	return path, nil
}

// DataURL 构造多模态API使用的base64数据URL
func DataURL(data []byte, format string) string {
	return fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(data))
}

// GetMetrics 获取处理统计信息
func (p *Processor) GetMetrics() Metrics {
	return Metrics{
		TotalLoaded:       atomic.LoadInt64(&p.metrics.TotalLoaded),
		URLDownloads:      atomic.LoadInt64(&p.metrics.URLDownloads),
		FailedValidations: atomic.LoadInt64(&p.metrics.FailedValidations),
		CropsProduced:     atomic.LoadInt64(&p.metrics.CropsProduced),
	}
}

// formatFromPath 根据扩展名推断声明格式，交给验证器核对
func formatFromPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "jpeg"
	case ".png":
		return "png"
	case ".gif":
		return "gif"
	case ".webp":
		return "webp"
	default:
		return ""
	}
}
