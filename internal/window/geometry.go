package window

import "math/bits"

// geometry 行高缓存。heights 是已经计入 Fenwick 树的值，
// pending 里是新测量但尚未计入的高度，在下一次查询前才合并。
type geometry struct {
	estimate float64
	heights  []float64
	measured []bool
	tree     []float64 // 1-based Fenwick 树，len(tree) == len(heights)+1
	pending  map[int]float64
}

func newGeometry(estimate float64) *geometry {
	return &geometry{
		estimate: estimate,
		tree:     []float64{0},
		pending:  make(map[int]float64),
	}
}

func (g *geometry) len() int {
	return len(g.heights)
}

// splice 作废 start 之后的全部几何信息，再追加 count 行估计高度。
// Fenwick 树第 i 个节点只依赖 <= i 的值，所以截断后剩余部分仍然有效。
func (g *geometry) splice(start, count int) {
	n := len(g.heights)
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	reset := n - start

	g.heights = g.heights[:start]
	g.measured = g.measured[:start]
	g.tree = g.tree[:start+1]
	for idx := range g.pending {
		if idx >= start {
			delete(g.pending, idx)
		}
	}

	for i := 0; i < reset+count; i++ {
		g.push(g.estimate, false)
	}
}

// push 在尾部追加一行，O(log n)
func (g *geometry) push(h float64, measured bool) {
	g.heights = append(g.heights, h)
	g.measured = append(g.measured, measured)

	i := len(g.heights) // 1-based
	lo := i - (i & -i)
	g.tree = append(g.tree, h+g.prefix(i-1)-g.prefix(lo))
}

// add 对 1-based 位置 i 增加 delta
func (g *geometry) add(i int, delta float64) {
	for ; i < len(g.tree); i += i & -i {
		g.tree[i] += delta
	}
}

// prefix 前 n 行的高度和
func (g *geometry) prefix(n int) float64 {
	var sum float64
	for i := n; i > 0; i -= i & -i {
		sum += g.tree[i]
	}
	return sum
}

// set 记录一次测量结果，延迟到 flush 时才更新前缀和
func (g *geometry) set(index int, h float64) {
	if index < 0 || index >= len(g.heights) {
		return
	}
	g.measured[index] = true
	if h == g.heights[index] {
		delete(g.pending, index)
		return
	}
	g.pending[index] = h
}

// flush 把挂起的高度变化合并进 Fenwick 树，代价 O(k log n)
func (g *geometry) flush() {
	if len(g.pending) == 0 {
		return
	}
	for idx, h := range g.pending {
		delta := h - g.heights[idx]
		g.heights[idx] = h
		g.add(idx+1, delta)
	}
	clear(g.pending)
}

func (g *geometry) height(index int) float64 {
	if h, ok := g.pending[index]; ok {
		return h
	}
	return g.heights[index]
}

func (g *geometry) isMeasured(index int) bool {
	return g.measured[index]
}

// offset 第 index 行顶部距内容顶部的距离，调用前需 flush
func (g *geometry) offset(index int) float64 {
	return g.prefix(index)
}

func (g *geometry) total() float64 {
	return g.prefix(len(g.heights))
}

// find 返回包含位置 y 的行号（0-based），调用前需 flush。
// y 超出内容高度时返回最后一行。
func (g *geometry) find(y float64) int {
	n := len(g.heights)
	if n == 0 {
		return -1
	}
	if y <= 0 {
		return 0
	}

	pos := 0
	for step := 1 << (bits.Len(uint(n)) - 1); step > 0; step >>= 1 {
		next := pos + step
		if next <= n && g.tree[next] <= y {
			pos = next
			y -= g.tree[next]
		}
	}
	if pos >= n {
		return n - 1
	}
	return pos
}
