package main

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/Zacy-Sokach/PolyPanel/internal/logger"
	"go.uber.org/zap"
)

// Version 由 ldflags 在构建时设置
var Version = "dev"

func main() {
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(os.Stderr, "程序发生panic: %v\n", r)
			debug.PrintStack()
			logger.L().Error("panic", zap.Any("recovered", r), zap.Stack("stack"))
			logger.Sync()
			os.Exit(1)
		}
	}()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
