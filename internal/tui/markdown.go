package tui

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/russross/blackfriday/v2"
)

var extraBlankLines = regexp.MustCompile(`\n{3,}`)

// MarkdownRenderer 把 Markdown 转成带 ANSI 样式的终端文本
type MarkdownRenderer struct {
	styles     MarkdownStyles
	extensions blackfriday.Extensions
}

func NewMarkdownRenderer(styles MarkdownStyles) *MarkdownRenderer {
	return &MarkdownRenderer{
		styles:     styles,
		extensions: blackfriday.CommonExtensions,
	}
}

// Render 解析并渲染，width > 0 时按宽度折行
func (r *MarkdownRenderer) Render(markdown string, width int) string {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	root := blackfriday.New(blackfriday.WithExtensions(r.extensions)).Parse([]byte(markdown))
	w := &mdWriter{styles: r.styles}
	root.Walk(w.visit)

	out := extraBlankLines.ReplaceAllString(w.buf.String(), "\n\n")
	out = strings.TrimRight(out, "\n ")
	if width > 0 {
		out = lipgloss.NewStyle().Width(width).Render(out)
	}
	return out
}

// mdWriter 单次渲染的状态
type mdWriter struct {
	buf    bytes.Buffer
	styles MarkdownStyles

	strong, emph, strike, heading, quote int
	links                                []*blackfriday.Node
	lists                                []int // 每层列表的下一个序号，0 表示无序
}

func (w *mdWriter) inline(text string) string {
	style := lipgloss.NewStyle()
	switch {
	case w.heading > 0:
		style = w.styles.Heading
	case w.quote > 0:
		style = w.styles.Quote
	}
	if w.strong > 0 {
		style = style.Inherit(w.styles.Strong)
	}
	if w.emph > 0 {
		style = style.Inherit(w.styles.Emph)
	}
	if w.strike > 0 {
		style = style.Inherit(w.styles.Strike)
	}
	if len(w.links) > 0 {
		style = style.Inherit(w.styles.Link)
	}
	return style.Render(text)
}

func (w *mdWriter) indent() string {
	if len(w.lists) <= 1 {
		return ""
	}
	return strings.Repeat("  ", len(w.lists)-1)
}

func (w *mdWriter) visit(node *blackfriday.Node, entering bool) blackfriday.WalkStatus {
	switch node.Type {
	case blackfriday.Text:
		text := string(node.Literal)
		if node.Next == nil && node.Parent != nil && node.Parent.Type == blackfriday.Paragraph {
			// 列表项的段落内容可能带着行尾换行
			text = strings.TrimRight(text, "\n")
		}
		w.buf.WriteString(w.inline(text))
	case blackfriday.Code:
		w.buf.WriteString(w.styles.Code.Render(string(node.Literal)))
	case blackfriday.Softbreak:
		w.buf.WriteByte(' ')
	case blackfriday.Hardbreak:
		w.buf.WriteByte('\n')
	case blackfriday.HTMLSpan, blackfriday.HTMLBlock:
		w.buf.Write(node.Literal)
	case blackfriday.HorizontalRule:
		w.buf.WriteString(w.styles.Rule.Render("────────") + "\n\n")
	case blackfriday.CodeBlock:
		code := strings.TrimRight(string(node.Literal), "\n")
		for _, line := range strings.Split(code, "\n") {
			w.buf.WriteString(w.indent() + "  " + w.styles.Code.Render(line) + "\n")
		}
		w.buf.WriteByte('\n')

	case blackfriday.Strong:
		w.strong += delta(entering)
	case blackfriday.Emph:
		w.emph += delta(entering)
	case blackfriday.Del:
		w.strike += delta(entering)
	case blackfriday.BlockQuote:
		w.quote += delta(entering)
	case blackfriday.Heading:
		w.heading += delta(entering)
		if !entering {
			w.buf.WriteString("\n\n")
		}
	case blackfriday.Paragraph:
		if !entering {
			if tightItem(node) {
				w.buf.WriteByte('\n')
			} else {
				w.buf.WriteString("\n\n")
			}
		}

	case blackfriday.Link:
		if entering {
			w.links = append(w.links, node)
			break
		}
		w.links = w.links[:len(w.links)-1]
		dest := string(node.LinkData.Destination)
		if dest != "" && dest != linkText(node) {
			w.buf.WriteString(w.styles.Rule.Render(" (" + dest + ")"))
		}
	case blackfriday.Image:
		if entering {
			w.buf.WriteString("[image: ")
		} else {
			w.buf.WriteString("]")
		}

	case blackfriday.List:
		if entering {
			next := 0
			if node.ListFlags&blackfriday.ListTypeOrdered != 0 {
				next = 1
			}
			w.lists = append(w.lists, next)
		} else {
			w.lists = w.lists[:len(w.lists)-1]
			if len(w.lists) == 0 {
				w.buf.WriteByte('\n')
			}
		}
	case blackfriday.Item:
		if entering && len(w.lists) > 0 {
			top := len(w.lists) - 1
			bullet := "• "
			if n := w.lists[top]; n > 0 {
				bullet = fmt.Sprintf("%d. ", n)
				w.lists[top]++
			}
			w.buf.WriteString(w.indent() + bullet)
		}

	case blackfriday.TableCell:
		if entering && node.Prev != nil {
			w.buf.WriteString(" │ ")
		}
		if node.TableCellData.IsHeader {
			w.strong += delta(entering)
		}
	case blackfriday.TableRow:
		if !entering {
			w.buf.WriteByte('\n')
		}
	case blackfriday.Table:
		if !entering {
			w.buf.WriteByte('\n')
		}
	}
	return blackfriday.GoToNext
}

func delta(entering bool) int {
	if entering {
		return 1
	}
	return -1
}

// tightItem 紧凑列表里的段落只换一行
func tightItem(p *blackfriday.Node) bool {
	item := p.Parent
	if item == nil || item.Type != blackfriday.Item || item.Parent == nil {
		return false
	}
	return item.Parent.Tight
}

func linkText(link *blackfriday.Node) string {
	var sb strings.Builder
	for c := link.FirstChild; c != nil; c = c.Next {
		sb.Write(c.Literal)
	}
	return sb.String()
}
