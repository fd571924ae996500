package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"petmood-go/src/core/providers/detector"
	"petmood-go/src/core/types"
	"petmood-go/src/core/utils"

	"github.com/gorilla/websocket"
)

// Provider websocket检测提供者，长连接发送图片帧获取检测结果
type Provider struct {
	*detector.BaseProvider
	logger *utils.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// 注册提供者
func init() {
	detector.Register("ws", NewProvider)
}

// NewProvider 创建websocket检测提供者
func NewProvider(config *detector.Config, logger *utils.Logger) (detector.Provider, error) {
	return &Provider{
		BaseProvider: detector.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// Initialize 建立到检测服务的websocket连接
func (p *Provider) Initialize() error {
	if p.Config().BaseURL == "" {
		return fmt.Errorf("websocket检测服务地址不能为空")
	}

	serverURL, err := p.serverURL()
	if err != nil {
		return err
	}

	dialer := *websocket.DefaultDialer
	dialer.HandshakeTimeout = p.Config().Timeout

	conn, _, err := dialer.Dial(serverURL, nil)
	if err != nil {
		return fmt.Errorf("连接检测服务失败: %v", err)
	}

	p.mu.Lock()
	p.conn = conn
	p.mu.Unlock()

	p.logger.Info("已连接到websocket检测服务", map[string]interface{}{
		"url": serverURL,
	})
	return nil
}

// Cleanup 关闭连接
func (p *Provider) Cleanup() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}

// Detect 发送一帧图片并等待对应的检测结果
func (p *Provider) Detect(ctx context.Context, data []byte, format string) ([]types.Detection, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.conn == nil {
		return nil, fmt.Errorf("websocket连接未建立")
	}

	// 上下文没带截止时间时用配置超时兜底，避免ReadMessage无限阻塞
	deadline, ok := ctx.Deadline()
	if !ok && p.Config().Timeout > 0 {
		deadline = time.Now().Add(p.Config().Timeout)
		ok = true
	}
	if ok {
		p.conn.SetWriteDeadline(deadline)
		p.conn.SetReadDeadline(deadline)
	}

	if err := p.conn.WriteMessage(websocket.BinaryMessage, data); err != nil {
		return nil, fmt.Errorf("发送图片帧失败: %v", err)
	}

	_, message, err := p.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("接收检测结果失败: %v", err)
	}

	var detections []types.Detection
	if err := json.Unmarshal(message, &detections); err != nil {
		return nil, fmt.Errorf("解析检测结果失败: %v", err)
	}

	return detections, nil
}

// CheckHealth 重新拨号验证服务可达
func (p *Provider) CheckHealth(ctx context.Context) error {
	serverURL, err := p.serverURL()
	if err != nil {
		return err
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return err
	}
	return conn.Close()
}

// serverURL 规范化配置地址为ws地址，裸host:port补全为ws://host:port/ws
func (p *Provider) serverURL() (string, error) {
	raw := p.Config().BaseURL
	if !strings.Contains(raw, "://") {
		wsURL := url.URL{Scheme: "ws", Host: raw, Path: "/ws"}
		return wsURL.String(), nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("无效的服务地址: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
		return u.String(), nil
	case "http":
		u.Scheme = "ws"
		return u.String(), nil
	case "https":
		u.Scheme = "wss"
		return u.String(), nil
	default:
		return "", fmt.Errorf("不支持的协议: %s", u.Scheme)
	}
}
