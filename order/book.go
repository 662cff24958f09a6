package order

import (
	"sort"
	"sync"
)

// Book 记录每个订单最近一次的状态快照，供报表/风控读取。
type Book struct {
	mu      sync.RWMutex
	records map[OrderID]Record
}

func NewBook() *Book {
	return &Book{records: make(map[OrderID]Record)}
}

func (b *Book) Set(r Record) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.records[r.OrderID] = r
}

func (b *Book) Get(id OrderID) (Record, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	r, ok := b.records[id]
	return r, ok
}

func (b *Book) Delete(id OrderID) {
	b.mu.Lock()
	delete(b.records, id)
	b.mu.Unlock()
}

// List 返回全部记录（拷贝，按订单号排序）。
func (b *Book) List() []Record {
	b.mu.RLock()
	defer b.mu.RUnlock()
	res := make([]Record, 0, len(b.records))
	for _, r := range b.records {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].OrderID < res[j].OrderID })
	return res
}

// CountByState 按状态标签统计订单数。
func (b *Book) CountByState() map[StateTag]int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	counts := make(map[StateTag]int, 4)
	for _, r := range b.records {
		counts[r.State]++
	}
	return counts
}
