package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/Zacy-Sokach/PolyPanel/internal/utils"
)

// emptyReplyRetry 空回复时重发一次
var emptyReplyRetry = &utils.RetryConfig{
	MaxRetries:        1,
	InitialDelay:      200 * time.Millisecond,
	MaxDelay:          time.Second,
	BackoffMultiplier: 2.0,
	RetryableErrors:   func(err error) bool { return errors.Is(err, ErrEmptyReply) },
}

// Responder 把面板的提交转成 chat completions 调用，并保留成功轮次作为上下文
type Responder struct {
	client       *Client
	systemPrompt string
	maxTurns     int

	mu      sync.Mutex
	history []Message
}

// NewResponder maxTurns <= 0 时不限制历史轮数
func NewResponder(client *Client, systemPrompt string, maxTurns int) *Responder {
	return &Responder{
		client:       client,
		systemPrompt: systemPrompt,
		maxTurns:     maxTurns,
	}
}

// Respond 发送 system + 历史 + 本次输入。失败或取消的轮次不写入历史。
func (r *Responder) Respond(ctx context.Context, userText string) (string, error) {
	r.mu.Lock()
	messages := make([]Message, 0, len(r.history)+2)
	if r.systemPrompt != "" {
		messages = append(messages, TextMessage(RoleSystem, r.systemPrompt))
	}
	messages = append(messages, r.history...)
	r.mu.Unlock()

	user := TextMessage(RoleUser, userText)
	messages = append(messages, user)

	var reply string
	var lastErr error
	err := utils.WithRetry(ctx, func(ctx context.Context) error {
		resp, err := r.client.ChatCompletion(ctx, messages)
		if err == nil && (len(resp.Choices) == 0 || resp.Choices[0].Message == nil) {
			err = ErrEmptyReply
		}
		if err != nil {
			lastErr = err
			return err
		}
		text := strings.TrimSpace(resp.Choices[0].Message.Text())
		if text == "" {
			lastErr = ErrEmptyReply
			return ErrEmptyReply
		}
		reply = text
		return nil
	}, emptyReplyRetry)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		// 返回原始错误，不带重试包装
		return "", lastErr
	}

	// 请求已完成但面板已取消：回复会被丢弃，不计入历史
	if err := ctx.Err(); err != nil {
		return "", err
	}

	r.mu.Lock()
	r.history = append(r.history, user, TextMessage(RoleAssistant, reply))
	if r.maxTurns > 0 && len(r.history) > 2*r.maxTurns {
		r.history = append([]Message(nil), r.history[len(r.history)-2*r.maxTurns:]...)
	}
	r.mu.Unlock()

	return reply, nil
}

// History 已记录的轮次副本
func (r *Responder) History() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Message(nil), r.history...)
}
