package iobtree

import "container/list"

// cache is a bounded in-memory page cache in front of a Store,
// writing dirty pages back on eviction and on Flush. Capacity follows
// the teacher tool's pooled-tier sizing convention (a fixed slot
// count, not a byte budget) since pages are uniform size.
type cache struct {
	store    *Store
	capacity int
	ll       *list.List // front = most recently used
	items    map[pageKey]*list.Element
}

type pageKey struct {
	fileno uint32
	offset int64
}

func keyOf(ref PageRef) pageKey { return pageKey{fileno: ref.Fileno, offset: ref.Offset} }

func newCache(store *Store, capacity int) *cache {
	if capacity < 1 {
		capacity = 1
	}
	return &cache{
		store:    store,
		capacity: capacity,
		ll:       list.New(),
		items:    make(map[pageKey]*list.Element),
	}
}

// get returns the page for ref, loading it from the store on a miss.
func (c *cache) get(ref PageRef) (*page, error) {
	if el, ok := c.items[keyOf(ref)]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*page), nil
	}
	p, err := c.store.ReadPage(ref)
	if err != nil {
		return nil, err
	}
	if err := c.insert(p); err != nil {
		return nil, err
	}
	return p, nil
}

// put registers a freshly allocated (not yet persisted) page.
func (c *cache) put(p *page) error {
	if el, ok := c.items[keyOf(p.ref)]; ok {
		el.Value = p
		c.ll.MoveToFront(el)
		return nil
	}
	return c.insert(p)
}

func (c *cache) insert(p *page) error {
	el := c.ll.PushFront(p)
	c.items[keyOf(p.ref)] = el
	if c.ll.Len() > c.capacity {
		return c.evictOldest()
	}
	return nil
}

func (c *cache) evictOldest() error {
	el := c.ll.Back()
	if el == nil {
		return nil
	}
	victim := el.Value.(*page)
	c.ll.Remove(el)
	delete(c.items, keyOf(victim.ref))
	if victim.dirty {
		return c.store.WritePage(victim)
	}
	return nil
}

// markDirty flags p for write-back and bumps its recency.
func (c *cache) markDirty(p *page) {
	p.dirty = true
	if el, ok := c.items[keyOf(p.ref)]; ok {
		c.ll.MoveToFront(el)
	}
}

// flush writes back every dirty page currently cached.
func (c *cache) flush() error {
	for el := c.ll.Front(); el != nil; el = el.Next() {
		p := el.Value.(*page)
		if p.dirty {
			if err := c.store.WritePage(p); err != nil {
				return err
			}
		}
	}
	return nil
}
