package slab

import "github.com/cznic-labs/snmalloc-go/internal/xlog"

// AvailableList is the intrusive doubly-linked list of slabs that still
// have free objects, one per size class per allocator.
type AvailableList struct {
	head *Meta
}

// PushFront inserts m at the head of the list.
func (l *AvailableList) PushFront(m *Meta) {
	if m.inList {
		xlog.Fatalf("double-push of slab %p into available list: memory corruption", m)
	}
	m.prev = nil
	m.next = l.head
	if l.head != nil {
		l.head.prev = m
	}
	l.head = m
	m.inList = true
}

// Remove unlinks m from the list; it is a no-op if m is not a member.
func (l *AvailableList) Remove(m *Meta) {
	if !m.inList {
		return
	}
	switch {
	case m.prev == nil && m.next == nil:
		l.head = nil
	case m.prev == nil:
		l.head = m.next
		m.next.prev = nil
	case m.next == nil:
		m.prev.next = nil
	default:
		m.prev.next = m.next
		m.next.prev = m.prev
	}
	m.prev, m.next, m.inList = nil, nil, false
}

// Front returns the head of the list, or nil if empty.
func (l *AvailableList) Front() *Meta { return l.head }

// Empty reports whether the list has no members.
func (l *AvailableList) Empty() bool { return l.head == nil }

// Verify walks the list checking curr.next.prev == curr at every step.
// This catches a double-push of the same slab, e.g. from a double free,
// that slipped past PushFront's direct inList check via a stale pointer.
func (l *AvailableList) Verify() {
	for m := l.head; m != nil && m.next != nil; m = m.next {
		if m.next.prev != m {
			xlog.Fatalf("available-slab list corruption: node %p's successor does not point back", m)
		}
	}
}
