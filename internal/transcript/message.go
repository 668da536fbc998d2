package transcript

import (
	"time"

	"github.com/google/uuid"
)

// Sender 消息发送方
type Sender int

const (
	SenderUser Sender = iota
	SenderAssistant
)

func (s Sender) String() string {
	switch s {
	case SenderUser:
		return "user"
	case SenderAssistant:
		return "assistant"
	default:
		return "unknown"
	}
}

// Status 标记助手消息是否为失败/取消占位
type Status int

const (
	StatusComplete Status = iota
	StatusFailed
	StatusCancelled
)

func (s Status) String() string {
	switch s {
	case StatusComplete:
		return "complete"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Message 一条对话消息，创建后不可修改
type Message struct {
	ID        string
	Sender    Sender
	Text      string
	Status    Status
	CreatedAt time.Time
}

// NewMessage 创建一条完整消息
func NewMessage(sender Sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Status:    StatusComplete,
		CreatedAt: time.Now(),
	}
}

// UserMessage 创建用户消息
func UserMessage(text string) Message {
	return NewMessage(SenderUser, text)
}

// AssistantMessage 创建助手消息
func AssistantMessage(text string) Message {
	return NewMessage(SenderAssistant, text)
}

// FailedMessage 创建失败的助手占位消息
func FailedMessage(text string) Message {
	msg := NewMessage(SenderAssistant, text)
	msg.Status = StatusFailed
	return msg
}

// CancelledMessage 创建被取消的助手占位消息
func CancelledMessage(text string) Message {
	msg := NewMessage(SenderAssistant, text)
	msg.Status = StatusCancelled
	return msg
}

// IsPlaceholder 是否为失败或取消的占位
func (m Message) IsPlaceholder() bool {
	return m.Status == StatusFailed || m.Status == StatusCancelled
}
