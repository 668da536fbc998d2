package tui

import (
	"context"

	"github.com/Zacy-Sokach/PolyPanel/internal/pipeline"
	"github.com/Zacy-Sokach/PolyPanel/internal/transcript"
	"github.com/Zacy-Sokach/PolyPanel/internal/window"
	"go.uber.org/zap"
)

const defaultRenderCacheSize = 512

// ModelBuilder 组装面板模型
type ModelBuilder struct {
	ctx       context.Context
	responder pipeline.Responder
	windowCfg window.Config
	theme     Theme
	cacheSize int
	opts      pipeline.Options
	log       *zap.Logger
}

// NewModelBuilder 默认使用回声回复和默认主题
func NewModelBuilder() *ModelBuilder {
	return &ModelBuilder{
		ctx:       context.Background(),
		windowCfg: window.DefaultConfig(),
		theme:     DefaultTheme(),
		cacheSize: defaultRenderCacheSize,
		log:       zap.NewNop(),
	}
}

// WithContext 所有请求上下文的父上下文
func (b *ModelBuilder) WithContext(ctx context.Context) *ModelBuilder {
	if ctx != nil {
		b.ctx = ctx
	}
	return b
}

func (b *ModelBuilder) WithResponder(r pipeline.Responder) *ModelBuilder {
	b.responder = r
	return b
}

func (b *ModelBuilder) WithWindowConfig(cfg window.Config) *ModelBuilder {
	b.windowCfg = cfg
	return b
}

func (b *ModelBuilder) WithTheme(theme Theme) *ModelBuilder {
	b.theme = theme
	return b
}

// WithRenderCacheSize 渲染结果 LRU 的容量
func (b *ModelBuilder) WithRenderCacheSize(n int) *ModelBuilder {
	b.cacheSize = n
	return b
}

// WithPipelineOptions 占位消息文案等
func (b *ModelBuilder) WithPipelineOptions(opts pipeline.Options) *ModelBuilder {
	b.opts = opts
	return b
}

func (b *ModelBuilder) WithLogger(log *zap.Logger) *ModelBuilder {
	if log != nil {
		b.log = log
	}
	return b
}

// Build 创建 Store、Window、Pipeline 并连接起来
func (b *ModelBuilder) Build() *Model {
	store := transcript.NewStore(b.log.Named("transcript"))
	rows := newRowRenderer(store, b.theme, b.cacheSize)
	win := window.New(b.windowCfg,
		window.WithMeasurer(rows),
		window.WithLogger(b.log.Named("window")))
	store.Subscribe(win, 0)

	m := &Model{
		ctx:      b.ctx,
		textarea: newTextarea(80),
		store:    store,
		window:   win,
		rows:     rows,
		theme:    b.theme,
		keys:     defaultKeyMap(),
		log:      b.log.Named("tui"),
		width:    80,
	}

	opts := b.opts
	opts.Logger = b.log.Named("pipeline")
	m.pipeline = pipeline.New(store, textareaComposer{m: m}, b.responder, opts)
	return m
}
