package tui

import "github.com/charmbracelet/lipgloss"

// Theme 面板用到的全部样式。作为值传入，不读取全局状态。
type Theme struct {
	UserLabel      lipgloss.Style
	AssistantLabel lipgloss.Style
	FailedLabel    lipgloss.Style
	UserText       lipgloss.Style
	Placeholder    lipgloss.Style
	Help           lipgloss.Style
	Thinking       lipgloss.Style
	Divider        lipgloss.Style

	Markdown MarkdownStyles
}

// MarkdownStyles 助手消息中 Markdown 元素的样式
type MarkdownStyles struct {
	Heading lipgloss.Style
	Strong  lipgloss.Style
	Emph    lipgloss.Style
	Strike  lipgloss.Style
	Code    lipgloss.Style
	Link    lipgloss.Style
	Quote   lipgloss.Style
	Rule    lipgloss.Style
}

// DefaultTheme 默认配色，沿用 256 色编号
func DefaultTheme() Theme {
	return Theme{
		UserLabel:      lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true),
		AssistantLabel: lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true),
		FailedLabel:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true),
		UserText:       lipgloss.NewStyle(),
		Placeholder:    lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Italic(true),
		Help:           lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Thinking:       lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Divider:        lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		Markdown: MarkdownStyles{
			Heading: lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
			Strong:  lipgloss.NewStyle().Bold(true),
			Emph:    lipgloss.NewStyle().Italic(true),
			Strike:  lipgloss.NewStyle().Strikethrough(true),
			Code:    lipgloss.NewStyle().Foreground(lipgloss.Color("252")).Background(lipgloss.Color("236")),
			Link:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Underline(true),
			Quote:   lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Italic(true),
			Rule:    lipgloss.NewStyle().Foreground(lipgloss.Color("8")),
		},
	}
}

// PlainTheme 不带任何样式，测试和不支持颜色的终端使用
func PlainTheme() Theme {
	s := lipgloss.NewStyle()
	return Theme{
		UserLabel: s, AssistantLabel: s, FailedLabel: s, UserText: s,
		Placeholder: s, Help: s, Thinking: s, Divider: s,
		Markdown: MarkdownStyles{
			Heading: s, Strong: s, Emph: s, Strike: s,
			Code: s, Link: s, Quote: s, Rule: s,
		},
	}
}
