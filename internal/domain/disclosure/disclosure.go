// Package disclosure splits a list into the part a locked viewer may see and
// the part shown only as an obscured teaser.
package disclosure

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
)

// VisibleWhenLocked is how many leading items stay readable while locked.
const VisibleWhenLocked = 1

// DefaultLockedMessage is used when Options.LockedMessage is empty.
const DefaultLockedMessage = "Locked results. Unlock to view all."

// Options controls how a list is rendered.
type Options[T any] struct {
	EmptyMessage  string
	LockedMessage string
	// Key returns the identity text of an item. A nil Key hashes the position only.
	Key func(T) string
}

// Item is one rendered entry.
type Item[T any] struct {
	Key      string
	Value    T
	Obscured bool
}

// View is the rendered list handed to a template.
type View[T any] struct {
	Items []Item[T]
	Empty bool
	// Message is the empty message when Empty, the locked message when at
	// least one item is obscured, and "" otherwise.
	Message string
}

// Visible returns the items a viewer can read.
func (v View[T]) Visible() []Item[T] {
	var out []Item[T]
	for _, it := range v.Items {
		if !it.Obscured {
			out = append(out, it)
		}
	}
	return out
}

// Obscured returns the items rendered as a teaser.
func (v View[T]) Obscured() []Item[T] {
	var out []Item[T]
	for _, it := range v.Items {
		if it.Obscured {
			out = append(out, it)
		}
	}
	return out
}

// Render applies the locked/unlocked split to items.
// PRE: none; items may be nil
// POST: order is preserved; when locked only the first VisibleWhenLocked
// items are readable; a locked message appears only if something is obscured
func Render[T any](items []T, locked bool, opts Options[T]) View[T] {
	if len(items) == 0 {
		return View[T]{Empty: true, Message: opts.EmptyMessage}
	}

	view := View[T]{Items: make([]Item[T], len(items))}
	for i, v := range items {
		view.Items[i] = Item[T]{
			Key:      itemKey(opts.Key, v, i),
			Value:    v,
			Obscured: locked && i >= VisibleWhenLocked,
		}
	}
	if locked && len(items) > VisibleWhenLocked {
		view.Message = opts.LockedMessage
		if view.Message == "" {
			view.Message = DefaultLockedMessage
		}
	}
	return view
}

func itemKey[T any](key func(T) string, v T, i int) string {
	var ident string
	if key != nil {
		ident = key(v)
	}
	sum := sha256.Sum256([]byte(ident))
	return hex.EncodeToString(sum[:4]) + "-" + strconv.Itoa(i)
}
