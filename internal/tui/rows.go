package tui

import (
	"strings"

	"github.com/Zacy-Sokach/PolyPanel/internal/transcript"
	"github.com/charmbracelet/lipgloss"
)

// rowGap 每条消息下方的空行
const rowGap = 1

// rowRenderer 把对话记录中的一条消息渲染成终端文本，同时作为 window.Measurer
type rowRenderer struct {
	store    *transcript.Store
	theme    Theme
	markdown *MarkdownRenderer
	cache    *renderCache
	width    int
}

func newRowRenderer(store *transcript.Store, theme Theme, cacheSize int) *rowRenderer {
	return &rowRenderer{
		store:    store,
		theme:    theme,
		markdown: NewMarkdownRenderer(theme.Markdown),
		cache:    newRenderCache(cacheSize),
		width:    80,
	}
}

// setWidth 宽度变化后旧的渲染结果自然失效（键里带宽度）
func (r *rowRenderer) setWidth(width int) bool {
	if width < 1 {
		width = 1
	}
	if width == r.width {
		return false
	}
	r.width = width
	return true
}

// render 渲染第 index 条消息，不含行间空行
func (r *rowRenderer) render(index int) string {
	msg, err := r.store.Get(index)
	if err != nil {
		return ""
	}
	key := rowKey{id: msg.ID, width: r.width}
	if s, ok := r.cache.get(key); ok {
		return s
	}
	s := r.renderMessage(msg)
	r.cache.add(key, s)
	return s
}

func (r *rowRenderer) renderMessage(msg transcript.Message) string {
	body := lipgloss.NewStyle().Width(r.width)

	switch {
	case msg.Sender == transcript.SenderUser:
		return r.theme.UserLabel.Render("You") + "\n" + body.Inherit(r.theme.UserText).Render(msg.Text)
	case msg.IsPlaceholder():
		return r.theme.FailedLabel.Render("Assistant") + "\n" + body.Inherit(r.theme.Placeholder).Render(msg.Text)
	default:
		text := r.markdown.Render(msg.Text, r.width)
		if text == "" {
			text = body.Render(msg.Text)
		}
		return r.theme.AssistantLabel.Render("Assistant") + "\n" + text
	}
}

// MeasureRow 渲染后的行数加上行间空行
func (r *rowRenderer) MeasureRow(index int) float64 {
	return float64(lipgloss.Height(r.render(index)) + rowGap)
}

// lines 第 index 条消息占用的全部终端行，含行间空行
func (r *rowRenderer) lines(index int) []string {
	out := strings.Split(r.render(index), "\n")
	for i := 0; i < rowGap; i++ {
		out = append(out, "")
	}
	return out
}
