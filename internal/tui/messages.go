package tui

import "github.com/Zacy-Sokach/PolyPanel/internal/pipeline"

// ReplyMsg 后台 Responder 完成后送回 Update 循环
type ReplyMsg struct {
	Reply pipeline.Reply
}
