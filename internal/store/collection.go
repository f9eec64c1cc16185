package store

import (
	"fretlog/internal/snapshot"
)

// entity is anything stored by id.
type entity interface {
	EntityID() string
}

// collection is one cached entity list and the snapshot key it persists to.
type collection[T entity] struct {
	key     snapshot.Key
	prepend bool
	clone   func(T) T
	items   []T
}

func newCollection[T entity](key snapshot.Key, prepend bool) collection[T] {
	return collection[T]{key: key, prepend: prepend, items: []T{}}
}

func (c *collection[T]) index(id string) int {
	for i, v := range c.items {
		if v.EntityID() == id {
			return i
		}
	}
	return -1
}

func (c *collection[T]) find(id string) (T, bool) {
	if i := c.index(id); i >= 0 {
		return c.copyOf(c.items[i]), true
	}
	var zero T
	return zero, false
}

// upsert replaces the entry with v's id or inserts v at the collection's
// insertion end.
func (c *collection[T]) upsert(v T) {
	if i := c.index(v.EntityID()); i >= 0 {
		c.items[i] = v
		return
	}
	if c.prepend {
		c.items = append([]T{v}, c.items...)
		return
	}
	c.items = append(c.items, v)
}

func (c *collection[T]) remove(id string) bool {
	i := c.index(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i:i], c.items[i+1:]...)
	return true
}

func (c *collection[T]) set(items []T) {
	if items == nil {
		items = []T{}
	}
	c.items = items
}

// list returns a copy that callers may modify freely.
func (c *collection[T]) list() []T {
	out := make([]T, len(c.items))
	for i, v := range c.items {
		out[i] = c.copyOf(v)
	}
	return out
}

func (c *collection[T]) len() int {
	return len(c.items)
}

func (c *collection[T]) copyOf(v T) T {
	if c.clone != nil {
		return c.clone(v)
	}
	return v
}
