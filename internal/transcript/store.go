// Package transcript 保存面板的对话记录，是"说了什么、谁说的、顺序如何"的唯一来源。
//
// Store 只支持尾部追加，每次追加都会产生一个 SpliceEvent 通知订阅者做增量更新。
// Store 不是并发安全的，所有调用都应来自同一个 goroutine（bubbletea 的 Update 循环）。
package transcript

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ErrOutOfRange 索引越界，属于调用方的编程错误
var ErrOutOfRange = errors.New("transcript: index out of range")

// OutOfRangeError 越界详情
type OutOfRangeError struct {
	Index int
	Len   int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("transcript: index %d out of range [0, %d)", e.Index, e.Len)
}

func (e *OutOfRangeError) Is(target error) bool {
	return target == ErrOutOfRange
}

// SpliceEvent 描述一次连续插入
type SpliceEvent struct {
	Start int
	Count int
}

// End 插入区间的结束位置（不含）
func (e SpliceEvent) End() int {
	return e.Start + e.Count
}

// Empty 是否为空插入
func (e SpliceEvent) Empty() bool {
	return e.Count == 0
}

// SpliceHandler 接收插入通知
type SpliceHandler interface {
	OnSplice(event SpliceEvent)
}

// SpliceHandlerFunc 函数适配器
type SpliceHandlerFunc func(event SpliceEvent)

func (f SpliceHandlerFunc) OnSplice(event SpliceEvent) {
	f(event)
}

type subscription struct {
	id       int
	handler  SpliceHandler
	priority int
}

// Store 追加式对话记录
type Store struct {
	messages []Message
	subs     []subscription
	nextID   int
	log      *zap.Logger
}

// NewStore 创建空的对话记录
func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		messages: make([]Message, 0, 64),
		log:      log,
	}
}

// Subscribe 订阅插入事件，priority 越小越先收到通知。返回值用于取消订阅。
func (s *Store) Subscribe(handler SpliceHandler, priority int) int {
	s.nextID++
	s.subs = append(s.subs, subscription{id: s.nextID, handler: handler, priority: priority})

	// 按优先级排序，同优先级保持订阅顺序
	sort.SliceStable(s.subs, func(i, j int) bool {
		return s.subs[i].priority < s.subs[j].priority
	})
	return s.nextID
}

// Unsubscribe 取消订阅
func (s *Store) Unsubscribe(id int) {
	for i, sub := range s.subs {
		if sub.id == id {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Append 追加单条消息
func (s *Store) Append(msg Message) SpliceEvent {
	return s.AppendMany(msg)
}

// AppendMany 在尾部追加多条消息，返回插入区间。空输入不会通知订阅者。
func (s *Store) AppendMany(msgs ...Message) SpliceEvent {
	event := SpliceEvent{Start: len(s.messages), Count: len(msgs)}
	if event.Empty() {
		return event
	}

	s.messages = append(s.messages, msgs...)
	s.log.Debug("transcript splice",
		zap.Int("start", event.Start),
		zap.Int("count", event.Count),
		zap.Int("len", len(s.messages)))

	for _, sub := range s.subs {
		sub.handler.OnSplice(event)
	}
	return event
}

// Len 消息数量
func (s *Store) Len() int {
	return len(s.messages)
}

// Get 按索引获取消息
func (s *Store) Get(index int) (Message, error) {
	if index < 0 || index >= len(s.messages) {
		return Message{}, &OutOfRangeError{Index: index, Len: len(s.messages)}
	}
	return s.messages[index], nil
}

// MustGet 按索引获取消息，越界直接 panic
func (s *Store) MustGet(index int) Message {
	msg, err := s.Get(index)
	if err != nil {
		panic(err)
	}
	return msg
}

// Range 返回 [start, end) 的副本，区间会被截断到有效范围
func (s *Store) Range(start, end int) []Message {
	if start < 0 {
		start = 0
	}
	if end > len(s.messages) {
		end = len(s.messages)
	}
	if start >= end {
		return nil
	}
	out := make([]Message, end-start)
	copy(out, s.messages[start:end])
	return out
}

// Messages 返回全部消息的副本
func (s *Store) Messages() []Message {
	return s.Range(0, len(s.messages))
}
