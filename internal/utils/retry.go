package utils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math"
	"net/http"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"
)

// RetryConfig 重试参数
type RetryConfig struct {
	// MaxRetries 首次请求之外的最大重试次数
	MaxRetries int
	// InitialDelay 第一次重试前的等待
	InitialDelay time.Duration
	// MaxDelay 单次等待上限，也限制 Retry-After
	MaxDelay time.Duration
	// BackoffMultiplier 退避倍数
	BackoffMultiplier float64
	// RetryableStatusCodes 需要重试的 HTTP 状态码
	RetryableStatusCodes []int
	// RetryableErrors 判断传输错误是否值得重试，nil 表示不重试
	RetryableErrors func(error) bool
	Logger          *zap.Logger
}

// DefaultRetryConfig 返回默认的重试配置
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxRetries:        3,
		InitialDelay:      500 * time.Millisecond,
		MaxDelay:          10 * time.Second,
		BackoffMultiplier: 2.0,
		RetryableStatusCodes: []int{
			http.StatusRequestTimeout,      // 408
			http.StatusTooManyRequests,     // 429
			http.StatusInternalServerError, // 500
			http.StatusBadGateway,          // 502
			http.StatusServiceUnavailable,  // 503
			http.StatusGatewayTimeout,      // 504
		},
		RetryableErrors: func(err error) bool {
			// 取消和超时由 ctx 判断，这里重试其余网络错误
			return true
		},
	}
}

// Backoff 第 attempt 次重试（从 1 开始）前的等待时间
func (c *RetryConfig) Backoff(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}
	delay := float64(c.InitialDelay) * math.Pow(c.BackoffMultiplier, float64(attempt-1))
	if c.MaxDelay > 0 && delay > float64(c.MaxDelay) {
		return c.MaxDelay
	}
	return time.Duration(delay)
}

func (c *RetryConfig) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// sleepCtx 可被 ctx 打断的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RetryableHTTPClient 带重试的 HTTP 客户端
type RetryableHTTPClient struct {
	client Doer
	config *RetryConfig
}

// NewRetryableHTTPClient 包装一个 Doer，config 为 nil 时使用默认配置
func NewRetryableHTTPClient(client Doer, config *RetryConfig) *RetryableHTTPClient {
	if client == nil {
		client = http.DefaultClient
	}
	if config == nil {
		config = DefaultRetryConfig()
	}
	return &RetryableHTTPClient{client: client, config: config}
}

// Do 执行请求。可重试的状态码和传输错误按指数退避重试，
// 429/503 带 Retry-After 时以其为准（不超过 MaxDelay）。
func (r *RetryableHTTPClient) Do(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	log := r.config.logger()

	body, err := snapshotBody(req)
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}

	var lastErr error
	var wait time.Duration
	attempts := 0
	for attempt := 0; attempt <= r.config.MaxRetries; attempt++ {
		if attempt > 0 {
			if wait <= 0 {
				wait = r.config.Backoff(attempt)
			}
			log.Debug("retrying request",
				zap.String("url", req.URL.String()),
				zap.Int("attempt", attempt),
				zap.Duration("wait", wait),
				zap.Error(lastErr))
			if err := sleepCtx(ctx, wait); err != nil {
				return nil, err
			}
			wait = 0
		} else if err := ctx.Err(); err != nil {
			return nil, err
		}

		attemptReq := req.Clone(ctx)
		if body != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(body))
			attemptReq.ContentLength = int64(len(body))
		}

		attempts++
		resp, err := r.client.Do(attemptReq)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			lastErr = err
			if r.config.RetryableErrors == nil || !r.config.RetryableErrors(err) {
				break
			}
			continue
		}

		if !slices.Contains(r.config.RetryableStatusCodes, resp.StatusCode) || attempt == r.config.MaxRetries {
			return resp, nil
		}

		wait = r.retryAfter(resp)
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		lastErr = fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	return nil, fmt.Errorf("after %d attempt(s): %w", attempts, lastErr)
}

// retryAfter 解析秒数形式的 Retry-After
func (r *RetryableHTTPClient) retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	d := time.Duration(secs) * time.Second
	if r.config.MaxDelay > 0 && d > r.config.MaxDelay {
		d = r.config.MaxDelay
	}
	return d
}

// snapshotBody 读出请求体以便每次重试重新发送
func snapshotBody(req *http.Request) ([]byte, error) {
	if req.Body == nil || req.Body == http.NoBody {
		return nil, nil
	}
	defer req.Body.Close()
	b, err := io.ReadAll(req.Body)
	if err != nil {
		return nil, err
	}
	req.Body = io.NopCloser(bytes.NewReader(b))
	return b, nil
}

// WithRetry 为函数添加重试，等待期间 ctx 取消会立即返回
func WithRetry(ctx context.Context, fn func(context.Context) error, config *RetryConfig) error {
	if config == nil {
		config = DefaultRetryConfig()
	}

	var lastErr error
	attempts := 0
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		if err := sleepCtx(ctx, config.Backoff(attempt)); err != nil {
			return err
		}

		attempts++
		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if config.RetryableErrors != nil && !config.RetryableErrors(err) {
			break
		}
	}

	return fmt.Errorf("after %d attempt(s): %w", attempts, lastErr)
}
