package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/protocol"
)

// RequestIDHeader 每次调用的请求 ID 头
const RequestIDHeader = "X-Request-Id"

// maxResponseSize 响应体上限
const maxResponseSize = 4 << 20

// Asker 远程统计查询接口
type Asker interface {
	Ask(ctx context.Context, req *protocol.Item) (*protocol.Response, error)
}

// Client 远程统计客户端
// 每次调用使用新的连接，不复用
type Client struct {
	endpoint string
	http     *http.Client
	parser   protocol.ResponseParser
	metrics  *Metrics
	logger   logging.Logger
}

// Option 客户端选项
type Option func(*Client)

// WithMetrics 设置指标
func WithMetrics(m *Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger 设置日志
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithHTTPClient 替换底层 HTTP 客户端
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient 创建客户端
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.normalize()

	parser, err := protocol.NewParser(cfg.Parser)
	if err != nil {
		return nil, err
	}

	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		DisableKeepAlives: true,
	}

	c := &Client{
		endpoint: cfg.Endpoint(),
		http: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
		parser: parser,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Endpoint 请求地址
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ask 序列化请求并发送，解析响应信封
// 网络错误返回 ErrTransport；响应无法解析或消息不是 "OK" 返回 ErrProtocol，
// 后者同时返回已解析的信封
func (c *Client) Ask(ctx context.Context, req *protocol.Item) (*protocol.Response, error) {
	function, _ := req.Property("function")
	start := time.Now()

	resp, result, err := c.ask(ctx, req)
	c.metrics.observe(function, result, time.Since(start).Seconds())
	if err != nil {
		c.logger.Debug("ask %s function=%s failed: %v", c.endpoint, function, err)
	}
	return resp, err
}

func (c *Client) ask(ctx context.Context, req *protocol.Item) (*protocol.Response, string, error) {
	body := req.ToJSON()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader([]byte(body)))
	if err != nil {
		return nil, resultTransport, domain.NewErrTransport(c.endpoint, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set(RequestIDHeader, uuid.NewString())
	httpReq.Close = true

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, resultTransport, domain.NewErrTransport(c.endpoint, err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, resultTransport, domain.NewErrTransport(c.endpoint, fmt.Errorf("read response body: %w", err))
	}

	// 先按信封解析，错误状态码下的信封同样保留服务端消息
	resp, err := c.parser.Parse(respBody)
	if err != nil {
		if httpResp.StatusCode >= 400 {
			return nil, resultProtocol, domain.NewErrProtocol(
				fmt.Sprintf("unexpected HTTP status %d", httpResp.StatusCode), string(respBody))
		}
		return nil, resultProtocol, err
	}
	if !resp.OK() {
		return resp, resultNoStats, domain.NewErrProtocol(
			fmt.Sprintf("message is not OK: %q", resp.Message), "")
	}
	return resp, resultOK, nil
}
