package pipeline

import "context"

// DefaultReplyPrefix 回声回复的固定前缀
const DefaultReplyPrefix = "You said: "

// Responder 为用户输入生成回复，可能阻塞，可能失败。
// 真正的推理后端从这里接入。
type Responder interface {
	Respond(ctx context.Context, userText string) (string, error)
}

// ImmediateResponder 不会阻塞也不会失败的回复方。
// 管道对它会把用户消息和回复作为一次插入（数量为 2）追加。
type ImmediateResponder interface {
	RespondNow(userText string) string
}

// ResponderFunc 函数适配器
type ResponderFunc func(ctx context.Context, userText string) (string, error)

func (f ResponderFunc) Respond(ctx context.Context, userText string) (string, error) {
	return f(ctx, userText)
}

// EchoResponder 原样回显输入，带固定前缀
type EchoResponder struct {
	Prefix string
}

// NewEchoResponder prefix 为空时使用 DefaultReplyPrefix
func NewEchoResponder(prefix string) *EchoResponder {
	if prefix == "" {
		prefix = DefaultReplyPrefix
	}
	return &EchoResponder{Prefix: prefix}
}

func (e *EchoResponder) RespondNow(userText string) string {
	return e.Prefix + userText
}

func (e *EchoResponder) Respond(ctx context.Context, userText string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return e.RespondNow(userText), nil
}
