// Package window 把不断增长的对话记录映射到一个有限、底部锚定的可见窗口。
//
// Window 只保存可重算的几何信息（行高、前缀和）和滚动/锚定状态，不持有消息内容。
// 追加只会作废插入点之后的几何信息；可见性查询只测量落在视口附近的行，
// 不会遍历整个历史。
package window

import (
	"math"

	"github.com/Zacy-Sokach/PolyPanel/internal/transcript"
	"go.uber.org/zap"
)

// Anchor 锚定状态
type Anchor int

const (
	// BottomPinned 视口底边跟随最新消息（初始状态）
	BottomPinned Anchor = iota
	// FreeScroll 用户已向上滚动离开底部
	FreeScroll
)

func (a Anchor) String() string {
	if a == BottomPinned {
		return "bottom-pinned"
	}
	return "free-scroll"
}

// Config 窗口参数，单位与视口高度一致（终端里是行数）
type Config struct {
	// EstimatedHeight 未测量行的占位高度
	EstimatedHeight float64
	// Overscan 视口上下额外覆盖的高度
	Overscan float64
	// Epsilon 距离底部多近算作回到底部
	Epsilon float64
}

// DefaultConfig 终端面板的默认参数
func DefaultConfig() Config {
	return Config{
		EstimatedHeight: 3,
		Overscan:        4,
		Epsilon:         0.5,
	}
}

func (c Config) normalized() Config {
	def := DefaultConfig()
	if !(c.EstimatedHeight > 0) || math.IsInf(c.EstimatedHeight, 0) {
		c.EstimatedHeight = def.EstimatedHeight
	}
	if !(c.Overscan >= 0) || math.IsInf(c.Overscan, 0) {
		c.Overscan = def.Overscan
	}
	if !(c.Epsilon >= 0) || math.IsInf(c.Epsilon, 0) {
		c.Epsilon = def.Epsilon
	}
	return c
}

// Measurer 测量某一行的真实高度，返回值 <= 0 时使用估计值
type Measurer interface {
	MeasureRow(index int) float64
}

// MeasurerFunc 函数适配器
type MeasurerFunc func(index int) float64

func (f MeasurerFunc) MeasureRow(index int) float64 {
	return f(index)
}

// Row 一行的可见位置，Offset 是距内容顶部的绝对距离
type Row struct {
	Index  int
	Offset float64
	Height float64
}

// Option 构造选项
type Option func(*Window)

// WithMeasurer 设置测量器
func WithMeasurer(m Measurer) Option {
	return func(w *Window) { w.measurer = m }
}

// WithLogger 设置日志
func WithLogger(log *zap.Logger) Option {
	return func(w *Window) {
		if log != nil {
			w.log = log
		}
	}
}

// Window 虚拟化窗口，不是并发安全的
type Window struct {
	cfg      Config
	geom     *geometry
	measurer Measurer
	anchor   Anchor
	offset   float64 // 仅在 FreeScroll 时有意义
	viewport float64
	log      *zap.Logger
}

// New 创建空窗口，初始为 BottomPinned
func New(cfg Config, opts ...Option) *Window {
	cfg = cfg.normalized()
	w := &Window{
		cfg:    cfg,
		geom:   newGeometry(cfg.EstimatedHeight),
		anchor: BottomPinned,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// OnSplice 处理插入事件，实现 transcript.SpliceHandler。Count 为 0 时什么也不做。
func (w *Window) OnSplice(ev transcript.SpliceEvent) {
	if ev.Count <= 0 {
		return
	}
	// 先结算已回报的高度，FreeScroll 偏移不能以过期的底部为准
	w.settle()
	w.geom.splice(ev.Start, ev.Count)
	w.log.Debug("window splice",
		zap.Int("start", ev.Start),
		zap.Int("count", ev.Count),
		zap.Int("len", w.geom.len()),
		zap.Stringer("anchor", w.anchor))
	// BottomPinned 时偏移量由 ScrollOffset 按最新底部推导；FreeScroll 时保持数值不变
}

// Reset 丢弃全部几何信息，按 length 行重建并回到底部
func (w *Window) Reset(length int) {
	w.geom = newGeometry(w.cfg.EstimatedHeight)
	if length > 0 {
		w.geom.splice(0, length)
	}
	w.anchor = BottomPinned
	w.offset = 0
}

// Len 窗口知道的行数
func (w *Window) Len() int {
	return w.geom.len()
}

// Anchor 当前锚定状态
func (w *Window) Anchor() Anchor {
	return w.anchor
}

// Config 返回生效的参数
func (w *Window) Config() Config {
	return w.cfg
}

// SetViewportHeight 记录视口高度，用于计算最大偏移
func (w *Window) SetViewportHeight(h float64) {
	if !(h >= 0) || math.IsInf(h, 0) {
		h = 0
	}
	w.viewport = h
	w.settle()
}

// ContentHeight 内容总高度
func (w *Window) ContentHeight() float64 {
	w.geom.flush()
	return w.geom.total()
}

// MaxOffset 最大滚动偏移（底部）
func (w *Window) MaxOffset() float64 {
	return math.Max(0, w.ContentHeight()-w.viewport)
}

// ScrollOffset 视口顶部距内容顶部的距离。BottomPinned 时总是最大偏移。
func (w *Window) ScrollOffset() float64 {
	w.settle()
	if w.anchor == BottomPinned {
		return w.MaxOffset()
	}
	return w.clampOffset(w.offset)
}

// settle 内容变矮后 FreeScroll 偏移越过了底部：收回到底部并重新锚定。
// 之后的追加按 BottomPinned 处理，偏移不会随新行漂移。
func (w *Window) settle() {
	if w.anchor != FreeScroll {
		return
	}
	if maxOff := w.MaxOffset(); w.offset > maxOff {
		w.SetScrollOffset(maxOff)
	}
}

func (w *Window) clampOffset(off float64) float64 {
	if math.IsNaN(off) || off < 0 {
		return 0
	}
	if maxOff := w.MaxOffset(); off > maxOff {
		return maxOff
	}
	return off
}

// SetScrollOffset 设置滚动偏移。距离底部 Epsilon 以内时回到 BottomPinned，否则进入 FreeScroll。
func (w *Window) SetScrollOffset(off float64) {
	maxOff := w.MaxOffset()
	off = w.clampOffset(off)

	prev := w.anchor
	if maxOff-off <= w.cfg.Epsilon {
		w.anchor = BottomPinned
		w.offset = maxOff
	} else {
		w.anchor = FreeScroll
		w.offset = off
	}
	if prev != w.anchor {
		w.log.Debug("window anchor changed",
			zap.Stringer("from", prev),
			zap.Stringer("to", w.anchor),
			zap.Float64("offset", off))
	}
}

// ScrollBy 相对滚动，负数向上
func (w *Window) ScrollBy(delta float64) {
	if math.IsNaN(delta) {
		return
	}
	w.SetScrollOffset(w.ScrollOffset() + delta)
}

// ScrollToBottom 回到底部
func (w *Window) ScrollToBottom() {
	w.anchor = BottomPinned
	w.offset = w.MaxOffset()
}

// ScrollToTop 滚动到顶部
func (w *Window) ScrollToTop() {
	w.SetScrollOffset(0)
}

// AtBottom 是否处于底部锚定
func (w *Window) AtBottom() bool {
	return w.anchor == BottomPinned
}

// ReportHeight 渲染方回报某行的真实高度，后续行的偏移在下一次查询时才调整
func (w *Window) ReportHeight(index int, h float64) {
	if index < 0 || index >= w.geom.len() {
		return
	}
	if !(h > 0) || math.IsInf(h, 0) {
		return
	}
	w.geom.set(index, h)
}

// IsMeasured 某行是否已有真实高度
func (w *Window) IsMeasured(index int) bool {
	if index < 0 || index >= w.geom.len() {
		return false
	}
	return w.geom.isMeasured(index)
}

// VisibleRange 返回需要渲染的行，按 Index 升序。
// 只测量落在视口（含 overscan）附近的行；重复调用且中间没有修改时结果相同。
func (w *Window) VisibleRange(viewportHeight float64) []Row {
	if !(viewportHeight > 0) || math.IsInf(viewportHeight, 0) || w.geom.len() == 0 {
		return nil
	}
	w.viewport = viewportHeight

	for {
		w.geom.flush()
		w.settle()

		var rows []Row
		if w.anchor == BottomPinned {
			rows = w.walkFromBottom(viewportHeight)
		} else {
			rows = w.walkFromOffset(viewportHeight)
		}

		// 测量本轮遇到的未测量行；有变化就重新走一遍，直到结果稳定
		if !w.measureRows(rows) {
			return rows
		}
	}
}

// walkFromBottom 从最后一行向上累加，直到覆盖视口和 overscan
func (w *Window) walkFromBottom(vh float64) []Row {
	total := w.geom.total()
	limit := total - vh - w.cfg.Overscan

	var rows []Row
	cursor := total
	for i := w.geom.len() - 1; i >= 0 && cursor > limit; i-- {
		h := w.geom.height(i)
		cursor -= h
		rows = append(rows, Row{Index: i, Offset: cursor, Height: h})
	}

	// 反转为升序，并用前缀和校正累计误差
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	if len(rows) > 0 {
		off := w.geom.offset(rows[0].Index)
		for i := range rows {
			rows[i].Offset = off
			off += rows[i].Height
		}
	}
	return rows
}

// walkFromOffset 二分定位滚动偏移处的行，再向下累加
func (w *Window) walkFromOffset(vh float64) []Row {
	off := w.clampOffset(w.offset)
	top := math.Max(0, off-w.cfg.Overscan)
	bottom := off + vh + w.cfg.Overscan

	start := w.geom.find(top)
	cursor := w.geom.offset(start)

	var rows []Row
	for i := start; i < w.geom.len() && cursor < bottom; i++ {
		h := w.geom.height(i)
		rows = append(rows, Row{Index: i, Offset: cursor, Height: h})
		cursor += h
	}
	return rows
}

func (w *Window) measureRows(rows []Row) bool {
	if w.measurer == nil {
		return false
	}
	changed := false
	for _, r := range rows {
		if w.geom.isMeasured(r.Index) {
			continue
		}
		h := w.measurer.MeasureRow(r.Index)
		if !(h > 0) || math.IsInf(h, 0) {
			h = w.cfg.EstimatedHeight
		}
		w.geom.set(r.Index, h)
		if h != r.Height {
			changed = true
		}
	}
	return changed
}
