package tui

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
)

// newTextarea 多行输入框：Enter 提交，Alt+Enter / Ctrl+J 换行
func newTextarea(width int) textarea.Model {
	ta := textarea.New()
	ta.Placeholder = "Send a message..."
	ta.Focus()
	ta.CharLimit = 0
	ta.SetWidth(width)
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.KeyMap.InsertNewline = key.NewBinding(key.WithKeys("alt+enter", "ctrl+j"))
	return ta
}

// textareaComposer 让 pipeline 读取和清空 Model 里的输入框
type textareaComposer struct {
	m *Model
}

func (c textareaComposer) ReadText() string {
	return c.m.textarea.Value()
}

func (c textareaComposer) Clear() {
	c.m.textarea.Reset()
}
