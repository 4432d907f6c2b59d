package annotation

import (
	"strconv"
	"strings"
	"sync"
)

// Counters hands out per-type name indices. Indices start at 1, only ever
// increase, and are persisted with the project so deleted names are never
// reissued.
type Counters struct {
	mu   sync.Mutex
	next map[Type]int
}

// NewCounters creates counters with every type at 1.
func NewCounters() *Counters {
	c := &Counters{}
	c.Reset()
	return c
}

// Reset puts every type back to 1.
func (c *Counters) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = make(map[Type]int, len(Types))
	for _, t := range Types {
		c.next[t] = 1
	}
}

// Next returns the next index for t and advances the counter.
func (c *Counters) Next(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := c.next[t]
	if n < 1 {
		n = 1
	}
	c.next[t] = n + 1
	return n
}

// Peek returns the index Next would return without advancing.
func (c *Counters) Peek(t Type) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n := c.next[t]; n >= 1 {
		return n
	}
	return 1
}

// Snapshot returns a copy of the counters keyed by type code.
func (c *Counters) Snapshot() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int, len(c.next))
	for t, n := range c.next {
		out[string(t)] = n
	}
	return out
}

// Restore replaces the counters. Missing types start at 1.
func (c *Counters) Restore(values map[Type]int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = make(map[Type]int, len(Types))
	for _, t := range Types {
		n := values[t]
		if n < 1 {
			n = 1
		}
		c.next[t] = n
	}
}

// RecomputeCounters derives counters from existing item names: one past the
// highest numeric suffix per type, at least 1.
func RecomputeCounters(items []*Item) map[Type]int {
	out := make(map[Type]int, len(Types))
	for _, t := range Types {
		out[t] = 1
	}
	for _, it := range items {
		next := NameIndex(it.Name) + 1
		if next > out[it.Type] {
			out[it.Type] = next
		}
	}
	return out
}

// NameIndex parses the number after the first dash of a name such as
// "DS-12". It returns 0 when there is none.
func NameIndex(name string) int {
	_, rest, ok := strings.Cut(name, "-")
	if !ok {
		return 0
	}
	if i := strings.IndexByte(rest, '-'); i >= 0 {
		rest = rest[:i]
	}
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(rest[:end])
	if err != nil {
		return 0
	}
	return n
}
