package tui

import "strings"

// CommandType 斜杠命令类型
type CommandType int

const (
	CommandTypeUnknown CommandType = iota
	CommandTypeTop
	CommandTypeBottom
	CommandTypeHelp
	CommandTypeQuit
)

// Command 解析后的命令
type Command struct {
	Type CommandType
	Raw  string
}

var commandNames = map[string]CommandType{
	"/top":    CommandTypeTop,
	"/bottom": CommandTypeBottom,
	"/help":   CommandTypeHelp,
	"/quit":   CommandTypeQuit,
	"/exit":   CommandTypeQuit,
}

// ParseCommand 只识别单独一行的斜杠命令，其余输入返回 nil 交给提交流程
func ParseCommand(input string) *Command {
	trimmed := strings.TrimSpace(input)
	if !strings.HasPrefix(trimmed, "/") || strings.ContainsAny(trimmed, " \t\n") {
		return nil
	}
	t, ok := commandNames[strings.ToLower(trimmed)]
	if !ok {
		return nil
	}
	return &Command{Type: t, Raw: trimmed}
}
