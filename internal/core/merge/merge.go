// Package merge reconciles locally known collections with inbound items.
// Every function returns a new slice and leaves its input untouched, so a
// caller may hand the previous value to an observer without copying.
package merge

import (
	"slices"

	"github.com/lorrc/devexchange/internal/core/domain"
)

// Keyed is an item with a stable identity.
type Keyed interface {
	Key() string
}

// Timed is a keyed item with a creation time.
type Timed interface {
	Keyed
	Created() domain.Timestamp
}

// Contains reports whether an element with key is present.
func Contains[T Keyed](list []T, key string) bool {
	return slices.ContainsFunc(list, func(item T) bool { return item.Key() == key })
}

// MergeByID appends item to the end of list unless an element with the same
// key is already present. Applying the same item twice yields the same list
// as applying it once.
func MergeByID[T Keyed](list []T, item T) ([]T, bool) {
	if Contains(list, item.Key()) {
		return list, false
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, item), true
}

// MergeAllByID folds MergeByID over items in order.
func MergeAllByID[T Keyed](list []T, items []T) []T {
	for _, item := range items {
		list, _ = MergeByID(list, item)
	}
	return list
}

// Prepend puts item at the front of list, most recent first. An item whose
// key is already displayed is dropped.
func Prepend[T Keyed](list []T, item T) ([]T, bool) {
	if Contains(list, item.Key()) {
		return list, false
	}
	out := make([]T, 0, len(list)+1)
	out = append(out, item)
	return append(out, list...), true
}

// MarkRead flags the notification with id as read. Marking an already read
// or unknown notification changes nothing and is not an error. Order is
// never touched.
func MarkRead(list []domain.Notification, id string) ([]domain.Notification, bool) {
	idx := slices.IndexFunc(list, func(n domain.Notification) bool { return n.ID == id })
	if idx < 0 || list[idx].IsRead {
		return list, false
	}
	out := slices.Clone(list)
	out[idx].IsRead = true
	return out, true
}

// UnreadCount counts notifications with IsRead false.
func UnreadCount(list []domain.Notification) int {
	count := 0
	for _, n := range list {
		if !n.IsRead {
			count++
		}
	}
	return count
}

// SortByCreatedAt returns list ordered oldest first. Items with equal
// timestamps keep their arrival order.
func SortByCreatedAt[T Timed](list []T) []T {
	out := slices.Clone(list)
	slices.SortStableFunc(out, func(a, b T) int {
		return a.Created().Compare(b.Created().Time)
	})
	return out
}
