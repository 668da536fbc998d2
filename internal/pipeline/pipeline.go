// Package pipeline 实现提交流程：读取输入框 → 追加用户消息 → 请求回复 → 追加助手消息。
//
// 状态机为 Idle → Composing → Submitting → Idle。Pipeline 的所有方法都应在拥有
// transcript.Store 的 goroutine 上调用；只有 Request.Run 可以放到后台执行，
// 其结果通过 Deliver 送回拥有者 goroutine 后才会追加。
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Zacy-Sokach/PolyPanel/internal/transcript"
	"go.uber.org/zap"
)

// ErrBusy 上一次提交还没有回到 Idle
var ErrBusy = errors.New("pipeline: submission already in flight")

// State 提交状态
type State int

const (
	StateIdle State = iota
	StateComposing
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateComposing:
		return "composing"
	case StateSubmitting:
		return "submitting"
	default:
		return "unknown"
	}
}

// Composer 输入框协作方
type Composer interface {
	ReadText() string
	Clear()
}

// Request 一次进行中的回复请求
type Request struct {
	Seq       uint64
	Text      string
	ctx       context.Context
	responder Responder
}

// Context 请求的上下文，Cancel 时会被取消
func (r *Request) Context() context.Context {
	return r.ctx
}

// Run 调用 Responder，可以在任意 goroutine 上执行
func (r *Request) Run() Reply {
	text, err := r.responder.Respond(r.ctx, r.Text)
	return Reply{Seq: r.Seq, Text: text, Err: err}
}

// Reply Responder 的结果
type Reply struct {
	Seq  uint64
	Text string
	Err  error
}

// Options 管道参数
type Options struct {
	// FailureLabel 失败占位消息的前缀
	FailureLabel string
	// CancelledText 取消占位消息的内容
	CancelledText string
	Logger        *zap.Logger
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		FailureLabel:  "Reply failed",
		CancelledText: "Reply cancelled",
	}
}

// Pipeline 提交流程状态机
type Pipeline struct {
	store     *transcript.Store
	composer  Composer
	responder Responder
	opts      Options
	log       *zap.Logger

	state  State
	seq    uint64
	cancel context.CancelFunc
}

// New 创建提交管道
func New(store *transcript.Store, composer Composer, responder Responder, opts Options) *Pipeline {
	def := DefaultOptions()
	if opts.FailureLabel == "" {
		opts.FailureLabel = def.FailureLabel
	}
	if opts.CancelledText == "" {
		opts.CancelledText = def.CancelledText
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if responder == nil {
		responder = NewEchoResponder("")
	}
	return &Pipeline{
		store:     store,
		composer:  composer,
		responder: responder,
		opts:      opts,
		log:       log,
		state:     StateIdle,
	}
}

// State 当前状态
func (p *Pipeline) State() State {
	return p.state
}

// Busy 是否有进行中的请求
func (p *Pipeline) Busy() bool {
	return p.state == StateSubmitting
}

// NoteInput 输入框内容变化时调用，在 Idle 与 Composing 之间切换
func (p *Pipeline) NoteInput(text string) {
	if p.state == StateSubmitting {
		return
	}
	if strings.TrimSpace(text) != "" {
		p.state = StateComposing
	} else {
		p.state = StateIdle
	}
}

// Submit 提交输入框内容。
//
// 空输入什么也不追加，返回 (nil, nil)。ImmediateResponder 会一次追加用户消息和回复，
// 同样返回 (nil, nil)。其他 Responder 先追加用户消息（返回前插入事件已送达），
// 然后返回需要在后台执行的 Request。
func (p *Pipeline) Submit(ctx context.Context) (*Request, error) {
	if p.state == StateSubmitting {
		return nil, ErrBusy
	}

	text := p.composer.ReadText()
	if strings.TrimSpace(text) == "" {
		p.state = StateIdle
		return nil, nil
	}
	p.composer.Clear()

	if imm, ok := p.responder.(ImmediateResponder); ok {
		ev := p.store.AppendMany(
			transcript.UserMessage(text),
			transcript.AssistantMessage(imm.RespondNow(text)),
		)
		p.state = StateIdle
		p.log.Debug("submit answered immediately", zap.Int("start", ev.Start), zap.Int("count", ev.Count))
		return nil, nil
	}

	p.store.Append(transcript.UserMessage(text))

	p.seq++
	reqCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.state = StateSubmitting
	p.log.Debug("submit waiting for reply", zap.Uint64("seq", p.seq))

	return &Request{
		Seq:       p.seq,
		Text:      text,
		ctx:       reqCtx,
		responder: p.responder,
	}, nil
}

// Deliver 把回复追加到对话记录。过期或已取消的回复会被丢弃并返回 false。
func (p *Pipeline) Deliver(reply Reply) (transcript.SpliceEvent, bool) {
	if p.state != StateSubmitting || reply.Seq != p.seq {
		p.log.Debug("discard stale reply",
			zap.Uint64("seq", reply.Seq),
			zap.Uint64("current", p.seq),
			zap.Stringer("state", p.state))
		return transcript.SpliceEvent{}, false
	}
	p.finish()

	var msg transcript.Message
	if reply.Err != nil {
		p.log.Warn("responder failed", zap.Uint64("seq", reply.Seq), zap.Error(reply.Err))
		msg = transcript.FailedMessage(fmt.Sprintf("%s: %v", p.opts.FailureLabel, reply.Err))
	} else {
		msg = transcript.AssistantMessage(reply.Text)
	}
	return p.store.Append(msg), true
}

// Cancel 取消进行中的请求并追加取消占位。没有进行中的请求时返回 false。
func (p *Pipeline) Cancel() bool {
	if p.state != StateSubmitting {
		return false
	}
	seq := p.seq
	p.finish()
	p.store.Append(transcript.CancelledMessage(p.opts.CancelledText))
	p.log.Debug("submit cancelled", zap.Uint64("seq", seq))
	return true
}

// SubmitAndWait 在当前 goroutine 上完成整个提交周期
func (p *Pipeline) SubmitAndWait(ctx context.Context) error {
	req, err := p.Submit(ctx)
	if err != nil || req == nil {
		return err
	}
	p.Deliver(req.Run())
	return nil
}

func (p *Pipeline) finish() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.state = StateIdle
}
