package main

import (
	"context"
	"fmt"
	"os"

	"github.com/Zacy-Sokach/PolyPanel/internal/api"
	"github.com/Zacy-Sokach/PolyPanel/internal/config"
	"github.com/Zacy-Sokach/PolyPanel/internal/logger"
	"github.com/Zacy-Sokach/PolyPanel/internal/pipeline"
	"github.com/Zacy-Sokach/PolyPanel/internal/tui"
	"github.com/Zacy-Sokach/PolyPanel/internal/utils"
	"github.com/Zacy-Sokach/PolyPanel/internal/window"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// apiHistoryTurns api 回复方保留的对话轮数
const apiHistoryTurns = 20

type rootOptions struct {
	configPath string
	responder  string
	debug      bool
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "polypanel",
		Short: "Terminal chat side panel",
		Long: `PolyPanel is a terminal chat panel: a scrolling transcript above a
multi-line composer. Replies come from a local echo responder by default,
or from an OpenAI-compatible chat completions endpoint.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd.Context(), opts)
		},
	}
	cmd.SetVersionTemplate("PolyPanel {{.Version}}\n")

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configPath, "config", "", "config file (default <config dir>/config.yaml)")
	flags.StringVar(&opts.responder, "responder", "", "reply source: echo or api (overrides config)")
	flags.BoolVar(&opts.debug, "debug", false, "enable debug logging to the log file")

	cmd.AddCommand(newInitCmd(opts))
	return cmd
}

// newInitCmd 写出默认配置文件，已存在时不覆盖
func newInitCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a default config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := resolveConfigPath(opts)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "配置文件已存在: %s\n", path)
				return nil
			}
			if err := config.SaveConfigTo(config.Default(), path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "已写入默认配置: %s\n", path)
			return nil
		},
	}
}

func resolveConfigPath(opts *rootOptions) (string, error) {
	if opts.configPath != "" {
		return opts.configPath, nil
	}
	return utils.ConfigFilePath()
}

// loadConfig 文件 → .env / 环境变量 → 命令行参数，最后校验
func loadConfig(opts *rootOptions) (*config.Config, error) {
	path, err := resolveConfigPath(opts)
	if err != nil {
		return nil, err
	}
	cfg, err := config.LoadConfigFrom(path)
	if err != nil {
		return nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if opts.responder != "" {
		cfg.Responder = opts.responder
	}
	if opts.debug {
		cfg.Log.Enabled = true
		cfg.Log.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func buildResponder(cfg *config.Config, log *zap.Logger) pipeline.Responder {
	if cfg.Responder == config.ResponderAPI {
		client := api.NewClient(cfg.APIKey,
			api.WithBaseURL(cfg.BaseURL),
			api.WithModel(cfg.Model),
			api.WithLogger(log.Named("api")))
		return api.NewResponder(client, cfg.SystemPrompt, apiHistoryTurns)
	}
	return pipeline.NewEchoResponder(cfg.ReplyPrefix)
}

func runTUI(ctx context.Context, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	logFile, err := cfg.LogFile()
	if err != nil {
		return err
	}
	log, err := logger.Init(logger.Options{
		Enabled: cfg.Log.Enabled,
		Level:   cfg.Log.Level,
		File:    logFile,
	})
	if err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer logger.Sync()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Info("starting panel",
		zap.String("version", Version),
		zap.String("responder", cfg.Responder))

	tui.Version = Version
	m := tui.NewModelBuilder().
		WithContext(ctx).
		WithResponder(buildResponder(cfg, log)).
		WithWindowConfig(window.Config{
			EstimatedHeight: cfg.Window.EstimatedHeight,
			Overscan:        cfg.Window.Overscan,
			Epsilon:         cfg.Window.Epsilon,
		}).
		WithLogger(log).
		Build()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("运行界面失败: %w", err)
	}
	return nil
}
