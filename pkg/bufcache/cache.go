// Package bufcache implements the buffer cache collaborator the log
// depends on: bread/bwrite/brelse/bpin/bunpin, with a pin-and-reference-aware
// eviction policy over a blockdev.Device.
package bufcache

import (
	"container/list"
	"sync"

	"github.com/loggedfs/walog/pkg/blockdev"
	"github.com/loggedfs/walog/pkg/wal"
)

// entry is one cached block: its data, how many callers currently hold a
// reference via Bread (released by Brelse), and how many pins are held via
// Bpin (released by Bunpin). A block is only evictable when both are zero.
type entry struct {
	buf    *wal.Buf
	refcnt int
	pincnt int
}

// Cache implements wal.BufferCache over a blockdev.Device, evicting the
// least-recently-used unreferenced, unpinned block once capacity is
// exceeded. Capacity <= 0 means unbounded (never evict).
//
// Cache does not lock buffers: Bread only takes a reference, every caller
// holding the same block shares one *wal.Buf, and Brelse only drops the
// reference.
type Cache struct {
	dev   blockdev.Device
	bsize int
	cap   int

	mu      sync.Mutex
	entries map[uint32]*list.Element
	order   *list.List // front = most recently used
}

func New(dev blockdev.Device, bsize, capacity int) *Cache {
	return &Cache{
		dev:     dev,
		bsize:   bsize,
		cap:     capacity,
		entries: make(map[uint32]*list.Element),
		order:   list.New(),
	}
}

func (c *Cache) Bread(blockno uint32) (*wal.Buf, error) {
	c.mu.Lock()

	if el, ok := c.entries[blockno]; ok {
		e, _ := el.Value.(*entry)
		e.refcnt++
		c.order.MoveToFront(el)
		c.mu.Unlock()

		return e.buf, nil
	}

	c.mu.Unlock()

	data := make([]byte, c.bsize)
	if err := c.dev.ReadBlock(blockno, data); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Re-check: another goroutine may have loaded this block while we read
	// from the device without holding the lock.
	if el, ok := c.entries[blockno]; ok {
		e, _ := el.Value.(*entry)
		e.refcnt++
		c.order.MoveToFront(el)

		return e.buf, nil
	}

	c.evictIfNeeded()

	buf := &wal.Buf{Blockno: blockno, Data: data}
	el := c.order.PushFront(&entry{buf: buf, refcnt: 1})
	c.entries[blockno] = el

	return buf, nil
}

func (c *Cache) Bwrite(buf *wal.Buf) error {
	return c.dev.WriteBlock(buf.Blockno, buf.Data)
}

func (c *Cache) Brelse(buf *wal.Buf) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[buf.Blockno]
	if !ok {
		return
	}

	e, _ := el.Value.(*entry)
	if e.refcnt > 0 {
		e.refcnt--
	}
}

func (c *Cache) Bpin(buf *wal.Buf) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[buf.Blockno]; ok {
		e, _ := el.Value.(*entry)
		e.pincnt++
	}
}

func (c *Cache) Bunpin(buf *wal.Buf) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[buf.Blockno]; ok {
		e, _ := el.Value.(*entry)
		if e.pincnt > 0 {
			e.pincnt--
		}
	}
}

// evictIfNeeded drops least-recently-used entries until the cache is back
// under capacity, skipping any entry that is currently referenced or
// pinned. If every resident entry is referenced/pinned, the cache is
// allowed to grow past capacity rather than violate the pinning contract.
func (c *Cache) evictIfNeeded() {
	if c.cap <= 0 {
		return
	}

	for c.order.Len() >= c.cap {
		victim := c.findEvictable()
		if victim == nil {
			return
		}

		e, _ := victim.Value.(*entry)
		delete(c.entries, e.buf.Blockno)
		c.order.Remove(victim)
	}
}

func (c *Cache) findEvictable() *list.Element {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		e, _ := el.Value.(*entry)
		if e.refcnt == 0 && e.pincnt == 0 {
			return el
		}
	}

	return nil
}

var _ wal.BufferCache = (*Cache)(nil)
