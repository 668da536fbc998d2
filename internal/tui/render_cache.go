package tui

import (
	"container/list"
	"sync"
)

// rowKey 渲染结果只取决于消息和宽度
type rowKey struct {
	id    string
	width int
}

// renderCache LRU 缓存，限制渲染结果数量，避免长对话无限增长
type renderCache struct {
	mu       sync.Mutex
	capacity int
	items    map[rowKey]*list.Element
	order    *list.List
}

type cacheEntry struct {
	key   rowKey
	value string
}

func newRenderCache(capacity int) *renderCache {
	if capacity <= 0 {
		capacity = 256
	}
	return &renderCache{
		capacity: capacity,
		items:    make(map[rowKey]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *renderCache) get(key rowKey) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.order.MoveToFront(elem)
		return elem.Value.(cacheEntry).value, true
	}
	return "", false
}

func (c *renderCache) add(key rowKey, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[key]; ok {
		elem.Value = cacheEntry{key: key, value: value}
		c.order.MoveToFront(elem)
		return
	}

	c.items[key] = c.order.PushFront(cacheEntry{key: key, value: value})
	if c.order.Len() > c.capacity {
		tail := c.order.Back()
		delete(c.items, tail.Value.(cacheEntry).key)
		c.order.Remove(tail)
	}
}

func (c *renderCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *renderCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[rowKey]*list.Element, c.capacity)
	c.order.Init()
}
