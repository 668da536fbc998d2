package window

import (
	"math"
	"testing"

	"github.com/Zacy-Sokach/PolyPanel/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedConfig(h float64) Config {
	return Config{EstimatedHeight: h, Overscan: 0, Epsilon: 0.5}
}

func splice(w *Window, start, count int) {
	w.OnSplice(transcript.SpliceEvent{Start: start, Count: count})
}

func indices(rows []Row) []int {
	out := make([]int, len(rows))
	for i, r := range rows {
		out[i] = r.Index
	}
	return out
}

func TestNewWindowStartsPinned(t *testing.T) {
	w := New(Config{})
	assert.Equal(t, BottomPinned, w.Anchor())
	assert.Equal(t, DefaultConfig().EstimatedHeight, w.Config().EstimatedHeight)
	assert.Equal(t, DefaultConfig(), New(DefaultConfig()).Config())
	assert.Equal(t, 0, w.Len())
}

func TestVisibleRangeEmptyCases(t *testing.T) {
	w := New(fixedConfig(10))
	assert.Empty(t, w.VisibleRange(100), "empty transcript")

	splice(w, 0, 3)
	for _, vh := range []float64{0, -5, math.NaN(), math.Inf(1)} {
		assert.Empty(t, w.VisibleRange(vh), "viewport %v", vh)
	}
}

func TestSplicePinnedShowsTail(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 5)

	rows := w.VisibleRange(25)
	require.Equal(t, []int{2, 3, 4}, indices(rows))
	assert.Equal(t, 20.0, rows[0].Offset)
	assert.Equal(t, 40.0, rows[2].Offset)
	assert.Equal(t, 25.0, w.ScrollOffset())

	splice(w, 5, 2)
	rows = w.VisibleRange(25)
	require.Equal(t, []int{4, 5, 6}, indices(rows))
	assert.Equal(t, 45.0, w.ScrollOffset())
	assert.Equal(t, BottomPinned, w.Anchor())
}

func TestZeroCountSpliceIsNoop(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 20)
	w.SetViewportHeight(50)
	w.SetScrollOffset(30)
	require.Equal(t, FreeScroll, w.Anchor())
	w.ReportHeight(19, 4)

	splice(w, 20, 0)

	assert.Equal(t, 20, w.Len())
	assert.Equal(t, FreeScroll, w.Anchor())
	assert.Equal(t, 30.0, w.ScrollOffset())
	assert.True(t, w.IsMeasured(19))
}

func TestAnchorStabilityInFreeScroll(t *testing.T) {
	w := New(fixedConfig(20))
	splice(w, 0, 50)
	w.SetViewportHeight(200)

	w.SetScrollOffset(500)
	require.Equal(t, FreeScroll, w.Anchor())
	require.Equal(t, 500.0, w.ScrollOffset())

	splice(w, 50, 10)

	assert.Equal(t, 500.0, w.ScrollOffset())
	assert.Equal(t, FreeScroll, w.Anchor())
	rows := w.VisibleRange(200)
	require.NotEmpty(t, rows)
	assert.Equal(t, 25, rows[0].Index)
	assert.Equal(t, 500.0, rows[0].Offset)
	assert.Equal(t, 34, rows[len(rows)-1].Index)
}

func TestVisibleRangeIdempotent(t *testing.T) {
	calls := 0
	m := MeasurerFunc(func(i int) float64 {
		calls++
		return float64(i%3 + 1)
	})
	w := New(Config{EstimatedHeight: 5, Overscan: 2, Epsilon: 0.5}, WithMeasurer(m))
	splice(w, 0, 200)

	first := w.VisibleRange(12)
	afterFirst := calls
	second := w.VisibleRange(12)
	assert.Equal(t, first, second)
	assert.Equal(t, afterFirst, calls, "second query measured again")

	w.SetScrollOffset(100)
	require.Equal(t, FreeScroll, w.Anchor())
	first = w.VisibleRange(12)
	second = w.VisibleRange(12)
	assert.Equal(t, first, second)
}

func TestVisibleRangeMeasuresOnlyNearViewport(t *testing.T) {
	calls := 0
	m := MeasurerFunc(func(int) float64 {
		calls++
		return 1
	})
	w := New(fixedConfig(10), WithMeasurer(m))
	splice(w, 0, 100)

	rows := w.VisibleRange(5)
	assert.Equal(t, []int{95, 96, 97, 98, 99}, indices(rows))
	assert.Equal(t, 5, calls)
	assert.False(t, w.IsMeasured(94))
	for _, r := range rows {
		assert.Equal(t, 1.0, r.Height)
	}
	assert.Equal(t, 955.0, w.ContentHeight())
}

func TestSetScrollOffsetReengagesPin(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 30)
	w.SetViewportHeight(50)
	maxOff := w.MaxOffset()
	require.Equal(t, 250.0, maxOff)

	w.SetScrollOffset(100)
	assert.Equal(t, FreeScroll, w.Anchor())

	w.SetScrollOffset(maxOff - 0.3)
	assert.Equal(t, BottomPinned, w.Anchor())

	splice(w, 30, 1)
	rows := w.VisibleRange(50)
	require.NotEmpty(t, rows)
	assert.Equal(t, 30, rows[len(rows)-1].Index)
	assert.Equal(t, 260.0, w.ScrollOffset())
}

func TestSetScrollOffsetClamps(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 30)
	w.SetViewportHeight(50)

	w.SetScrollOffset(-100)
	assert.Equal(t, FreeScroll, w.Anchor())
	assert.Equal(t, 0.0, w.ScrollOffset())

	w.SetScrollOffset(math.NaN())
	assert.Equal(t, 0.0, w.ScrollOffset())

	w.SetScrollOffset(1e9)
	assert.Equal(t, BottomPinned, w.Anchor())
	assert.Equal(t, 250.0, w.ScrollOffset())
}

func TestShortContentAlwaysPinned(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 2)
	w.SetViewportHeight(100)

	w.SetScrollOffset(0)
	assert.Equal(t, BottomPinned, w.Anchor())

	rows := w.VisibleRange(100)
	assert.Equal(t, []int{0, 1}, indices(rows))
	assert.Equal(t, 0.0, rows[0].Offset)
}

func TestScrollHelpers(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 30)
	w.SetViewportHeight(50)

	w.ScrollBy(-30)
	assert.Equal(t, FreeScroll, w.Anchor())
	assert.Equal(t, 220.0, w.ScrollOffset())

	w.ScrollBy(math.NaN())
	assert.Equal(t, 220.0, w.ScrollOffset())

	w.ScrollToTop()
	assert.Equal(t, 0.0, w.ScrollOffset())
	assert.Equal(t, []int{0, 1, 2, 3, 4}, indices(w.VisibleRange(50)))

	w.ScrollToBottom()
	assert.True(t, w.AtBottom())
	assert.Equal(t, 250.0, w.ScrollOffset())
}

func TestReportHeightAdjustsLaterOffsets(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 10)
	w.SetViewportHeight(30)
	w.SetScrollOffset(0)

	w.ReportHeight(0, 4)
	w.ReportHeight(-1, 4)
	w.ReportHeight(10, 4)
	w.ReportHeight(1, 0)
	w.ReportHeight(1, math.Inf(1))

	assert.Equal(t, 94.0, w.ContentHeight())
	rows := w.VisibleRange(30)
	require.GreaterOrEqual(t, len(rows), 2)
	assert.Equal(t, 4.0, rows[0].Height)
	assert.Equal(t, 4.0, rows[1].Offset)
	assert.False(t, w.IsMeasured(1))
}

func TestSpliceInvalidatesOnlyFromStart(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 5)
	for i := 0; i < 5; i++ {
		w.ReportHeight(i, 2)
	}

	splice(w, 3, 1)

	assert.Equal(t, 6, w.Len())
	for i := 0; i < 3; i++ {
		assert.True(t, w.IsMeasured(i))
	}
	for i := 3; i < 6; i++ {
		assert.False(t, w.IsMeasured(i))
	}
	assert.Equal(t, 6.0+30, w.ContentHeight())
}

func TestOverscanExtendsRange(t *testing.T) {
	w := New(Config{EstimatedHeight: 10, Overscan: 15, Epsilon: 0.5})
	splice(w, 0, 20)

	assert.Equal(t, []int{15, 16, 17, 18, 19}, indices(w.VisibleRange(30)))

	w.SetScrollOffset(100)
	assert.Equal(t, []int{8, 9, 10, 11, 12, 13, 14}, indices(w.VisibleRange(30)))
}

func TestResetRebuildsGeometry(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 10)
	w.SetViewportHeight(20)
	w.SetScrollOffset(0)
	w.ReportHeight(0, 3)

	w.Reset(4)
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, BottomPinned, w.Anchor())
	assert.False(t, w.IsMeasured(0))
	assert.Equal(t, 40.0, w.ContentHeight())
}

func TestWindowObservesStore(t *testing.T) {
	store := transcript.NewStore(nil)
	w := New(fixedConfig(1))
	store.Subscribe(w, 0)

	store.AppendMany(transcript.UserMessage("hello"), transcript.AssistantMessage("You said: hello"))
	assert.Equal(t, store.Len(), w.Len())
	assert.Equal(t, []int{0, 1}, indices(w.VisibleRange(10)))
}

func TestShrinkPastOffsetRepinsOnRender(t *testing.T) {
	w := New(fixedConfig(10), WithMeasurer(MeasurerFunc(func(int) float64 { return 2 })))
	splice(w, 0, 30)
	w.SetViewportHeight(50)

	w.ScrollBy(-20)
	require.Equal(t, FreeScroll, w.Anchor())
	require.Equal(t, 230.0, w.ScrollOffset())

	// 测量后内容变矮，偏移越过底部
	w.VisibleRange(50)
	require.Equal(t, BottomPinned, w.Anchor())
	before := w.ScrollOffset()
	assert.Equal(t, w.MaxOffset(), before)

	splice(w, 30, 2)
	rows := w.VisibleRange(50)
	require.NotEmpty(t, rows)
	assert.Equal(t, 31, rows[len(rows)-1].Index)
	assert.Equal(t, w.MaxOffset(), w.ScrollOffset())
}

func TestReportedShrinkSettlesBeforeAppend(t *testing.T) {
	w := New(fixedConfig(10))
	splice(w, 0, 30)
	w.SetViewportHeight(50)
	w.SetScrollOffset(200)
	require.Equal(t, FreeScroll, w.Anchor())

	for i := 0; i < 30; i++ {
		w.ReportHeight(i, 2)
	}
	splice(w, 30, 2)

	assert.Equal(t, BottomPinned, w.Anchor())
	assert.Equal(t, 30.0, w.ScrollOffset())
	rows := w.VisibleRange(50)
	require.NotEmpty(t, rows)
	assert.Equal(t, 31, rows[len(rows)-1].Index)
}

func TestShrinkWithinRangeKeepsOffset(t *testing.T) {
	w := New(fixedConfig(10), WithMeasurer(MeasurerFunc(func(int) float64 { return 2 })))
	splice(w, 0, 30)
	w.SetViewportHeight(50)
	w.SetScrollOffset(20)
	require.Equal(t, FreeScroll, w.Anchor())

	w.VisibleRange(50)
	require.Equal(t, FreeScroll, w.Anchor())
	require.Equal(t, 20.0, w.ScrollOffset())

	splice(w, 30, 2)
	assert.Equal(t, FreeScroll, w.Anchor())
	assert.Equal(t, 20.0, w.ScrollOffset())
	rows := w.VisibleRange(50)
	require.NotEmpty(t, rows)
	assert.Equal(t, 20.0, rows[0].Offset)
}
