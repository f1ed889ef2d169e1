package registry

import "slices"

// handle identifies a record in one of the registry arenas. Handles are
// allocated from a single increasing counter, so sorting handles yields
// creation order.
type handle uint64

// handleList is an unordered set of handles with O(1) add and remove.
type handleList struct {
	items []handle
	pos   map[handle]int
}

func newHandleList() *handleList {
	return &handleList{pos: make(map[handle]int)}
}

func (l *handleList) add(h handle) {
	if _, ok := l.pos[h]; ok {
		return
	}
	l.pos[h] = len(l.items)
	l.items = append(l.items, h)
}

// remove swaps h with the last element and truncates.
func (l *handleList) remove(h handle) bool {
	i, ok := l.pos[h]
	if !ok {
		return false
	}
	last := len(l.items) - 1
	moved := l.items[last]
	l.items[i] = moved
	l.pos[moved] = i
	l.items = l.items[:last]
	delete(l.pos, h)
	return true
}

func (l *handleList) contains(h handle) bool {
	_, ok := l.pos[h]
	return ok
}

func (l *handleList) len() int {
	if l == nil {
		return 0
	}
	return len(l.items)
}

// ordered returns a copy of the handles in creation order.
func (l *handleList) ordered() []handle {
	if l == nil {
		return nil
	}
	out := slices.Clone(l.items)
	slices.Sort(out)
	return out
}

// addTo adds h to the list stored under key, creating the list on first use.
// It reports whether the list was empty before.
func addTo[K comparable](m map[K]*handleList, key K, h handle) bool {
	l, ok := m[key]
	if !ok {
		l = newHandleList()
		m[key] = l
	}
	l.add(h)
	return l.len() == 1
}

// removeFrom removes h from the list under key and drops the list once empty.
// It reports whether the list is now gone.
func removeFrom[K comparable](m map[K]*handleList, key K, h handle) bool {
	l, ok := m[key]
	if !ok {
		return true
	}
	l.remove(h)
	if l.len() == 0 {
		delete(m, key)
		return true
	}
	return false
}
