// Package clipboard captures and replays full clipboard contents and
// extracts images from them.
package clipboard

import (
	"fmt"

	"markestedt/pasteimagepath/platform"
)

// Snapshot is a deep, point-in-time copy of every clipboard item
type Snapshot struct {
	items []platform.Item
}

// Take copies every representation of every item on cb. The clipboard is
// only read.
func Take(cb platform.Clipboard) (Snapshot, error) {
	items, err := cb.Items()
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to read clipboard items: %w", err)
	}
	return Snapshot{items: copyItems(items)}, nil
}

// Empty reports whether nothing was captured
func (s Snapshot) Empty() bool {
	for _, item := range s.items {
		if len(item) > 0 {
			return false
		}
	}
	return true
}

// Len returns the number of captured items
func (s Snapshot) Len() int {
	return len(s.items)
}

// Items returns a copy of the captured items
func (s Snapshot) Items() []platform.Item {
	return copyItems(s.items)
}

// Types lists the content types of every item, in order
func (s Snapshot) Types() []platform.ContentType {
	var types []platform.ContentType
	for _, item := range s.items {
		for _, rep := range item {
			types = append(types, rep.Type)
		}
	}
	return types
}

// Restore overwrites cb with the captured items. An empty snapshot leaves
// the clipboard alone.
func (s Snapshot) Restore(cb platform.Clipboard) error {
	if s.Empty() {
		return nil
	}
	if err := cb.Write(copyItems(s.items)); err != nil {
		return fmt.Errorf("failed to restore clipboard: %w", err)
	}
	return nil
}

func copyItems(items []platform.Item) []platform.Item {
	out := make([]platform.Item, 0, len(items))
	for _, item := range items {
		dup := make(platform.Item, len(item))
		for i, rep := range item {
			data := make([]byte, len(rep.Data))
			copy(data, rep.Data)
			dup[i] = platform.Representation{Type: rep.Type, Data: data}
		}
		out = append(out, dup)
	}
	return out
}
