package tui

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/Zacy-Sokach/PolyPanel/internal/pipeline"
	"github.com/Zacy-Sokach/PolyPanel/internal/transcript"
	"github.com/Zacy-Sokach/PolyPanel/internal/window"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
)

// Version 是当前的 PolyPanel 版本，由 main 包设置
var Version string

const (
	composerHeight = 3
	// 分隔线 + 帮助行
	chromeHeight = 2
	wheelStep    = 3
)

// Model 面板的 bubbletea 模型。Store、Window、Pipeline 只在 Update/View 中访问。
type Model struct {
	ctx      context.Context
	textarea textarea.Model
	store    *transcript.Store
	window   *window.Window
	pipeline *pipeline.Pipeline
	rows     *rowRenderer
	theme    Theme
	keys     keyMap
	log      *zap.Logger

	width    int
	height   int
	ready    bool
	showHelp bool
}

func (m *Model) Init() tea.Cmd {
	return textarea.Blink
}

// Store 对话记录
func (m *Model) Store() *transcript.Store { return m.store }

// Window 可见窗口
func (m *Model) Window() *window.Window { return m.window }

// Pipeline 提交管道
func (m *Model) Pipeline() *pipeline.Pipeline { return m.pipeline }

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case ReplyMsg:
		if _, ok := m.pipeline.Deliver(msg.Reply); !ok {
			m.log.Debug("reply dropped", zap.Uint64("seq", msg.Reply.Seq))
		}
		return m, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress {
			switch msg.Button {
			case tea.MouseButtonWheelUp:
				m.window.ScrollBy(-wheelStep)
			case tea.MouseButtonWheelDown:
				m.window.ScrollBy(wheelStep)
			}
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Submit):
			return m, m.submit()
		case key.Matches(msg, m.keys.Cancel):
			m.pipeline.Cancel()
			return m, nil
		case key.Matches(msg, m.keys.PageUp):
			m.window.ScrollBy(-float64(m.transcriptHeight()))
			return m, nil
		case key.Matches(msg, m.keys.PageDown):
			m.window.ScrollBy(float64(m.transcriptHeight()))
			return m, nil
		case key.Matches(msg, m.keys.LineUp):
			m.window.ScrollBy(-1)
			return m, nil
		case key.Matches(msg, m.keys.LineDown):
			m.window.ScrollBy(1)
			return m, nil
		case key.Matches(msg, m.keys.Top):
			m.window.ScrollToTop()
			return m, nil
		case key.Matches(msg, m.keys.Bottom):
			m.window.ScrollToBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	m.pipeline.NoteInput(m.textarea.Value())
	return m, cmd
}

// submit 处理 Enter：斜杠命令本地执行，其余交给提交管道
func (m *Model) submit() tea.Cmd {
	if c := ParseCommand(m.textarea.Value()); c != nil {
		m.textarea.Reset()
		m.pipeline.NoteInput("")
		return m.runCommand(c)
	}

	before := m.store.Len()
	req, err := m.pipeline.Submit(m.ctx)
	if errors.Is(err, pipeline.ErrBusy) {
		// 上一条回复还没回来，保留输入
		return nil
	}
	if err != nil {
		m.log.Error("submit failed", zap.Error(err))
		return nil
	}
	if m.store.Len() > before {
		// 自己发出的消息总是回到底部
		m.window.ScrollToBottom()
	}
	if req == nil {
		return nil
	}
	return func() tea.Msg {
		return ReplyMsg{Reply: req.Run()}
	}
}

func (m *Model) runCommand(c *Command) tea.Cmd {
	switch c.Type {
	case CommandTypeTop:
		m.window.ScrollToTop()
	case CommandTypeBottom:
		m.window.ScrollToBottom()
	case CommandTypeHelp:
		m.showHelp = !m.showHelp
	case CommandTypeQuit:
		return tea.Quit
	}
	return nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.textarea.SetWidth(width)

	if m.rows.setWidth(width) && m.store.Len() > 0 {
		// 行高取决于宽度，几何信息整体重建
		anchor, off := m.window.Anchor(), m.window.ScrollOffset()
		m.window.Reset(m.store.Len())
		m.window.SetViewportHeight(float64(m.transcriptHeight()))
		if anchor == window.FreeScroll {
			m.window.SetScrollOffset(off)
		}
	} else {
		m.window.SetViewportHeight(float64(m.transcriptHeight()))
	}
	m.ready = true
}

func (m *Model) transcriptHeight() int {
	h := m.height - composerHeight - chromeHeight
	if h < 1 {
		return 1
	}
	return h
}

func (m *Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var sb strings.Builder
	sb.WriteString(m.transcriptView())
	sb.WriteString("\n")
	sb.WriteString(m.theme.Divider.Render(strings.Repeat("─", max(m.width, 1))))
	sb.WriteString("\n")
	sb.WriteString(m.textarea.View())
	sb.WriteString("\n")
	sb.WriteString(m.helpView())
	return sb.String()
}

// transcriptView 只绘制 VisibleRange 返回的行
func (m *Model) transcriptView() string {
	vh := m.transcriptHeight()
	canvas := make([]string, vh)

	rows := m.window.VisibleRange(float64(vh))
	top := m.window.ScrollOffset()
	for _, row := range rows {
		base := int(math.Floor(row.Offset - top))
		for j, line := range m.rows.lines(row.Index) {
			if y := base + j; y >= 0 && y < vh {
				canvas[y] = line
			}
		}
	}
	return strings.Join(canvas, "\n")
}

func (m *Model) helpView() string {
	if m.pipeline.Busy() {
		return m.theme.Thinking.Render("Thinking... ") + m.theme.Help.Render("esc: cancel")
	}

	bindings := m.keys.shortHelp()
	if m.showHelp {
		bindings = m.keys.fullHelp()
	}
	parts := make([]string, 0, len(bindings)+2)
	if m.showHelp && Version != "" {
		parts = append(parts, "PolyPanel "+Version)
	}
	if !m.window.AtBottom() {
		parts = append(parts, "[scrolled] ctrl+end: bottom")
	}
	for _, b := range bindings {
		h := b.Help()
		parts = append(parts, h.Key+": "+h.Desc)
	}
	return m.theme.Help.Render(strings.Join(parts, " • "))
}
