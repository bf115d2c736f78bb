package primes

import (
	"sync"

	"github.com/google/btree"
)

// Item 按素数值排序，Index 是它在序列中的 1-based 位置
type Item struct {
	Index int
	Value int64
}

func (i Item) Less(than btree.Item) bool {
	return i.Value < than.(Item).Value
}

// Table 是已发现素数的有序缓存，多个 iterator 共享
type Table struct {
	tree *btree.BTree
	lock sync.RWMutex
}

func NewTable(degree int) *Table {
	return &Table{
		tree: btree.New(degree),
	}
}

// Append 只接受比当前最大值更大的素数，保证 Index 连续
func (t *Table) Append(value int64) (Item, bool) {
	t.lock.Lock()
	defer t.lock.Unlock()

	next := Item{Index: t.tree.Len() + 1, Value: value}
	if last := t.tree.Max(); last != nil && last.(Item).Value >= value {
		return Item{}, false
	}
	t.tree.ReplaceOrInsert(next)
	return next, true
}

func (t *Table) Get(value int64) (Item, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	res := t.tree.Get(Item{Value: value})
	if res == nil {
		return Item{}, false
	}
	return res.(Item), true
}

// NextAfter returns the smallest cached prime strictly greater than value.
func (t *Table) NextAfter(value int64) (Item, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	var found Item
	ok := false
	t.tree.AscendGreaterOrEqual(Item{Value: value + 1}, func(i btree.Item) bool {
		found = i.(Item)
		ok = true
		return false
	})
	return found, ok
}

func (t *Table) Max() (Item, bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	res := t.tree.Max()
	if res == nil {
		return Item{}, false
	}
	return res.(Item), true
}

func (t *Table) Ascend(fn func(item Item) bool) {
	t.lock.RLock()
	defer t.lock.RUnlock()

	t.tree.Ascend(func(i btree.Item) bool {
		return fn(i.(Item))
	})
}

func (t *Table) Count() int {
	t.lock.RLock()
	defer t.lock.RUnlock()
	return t.tree.Len()
}
