package maze

import (
	"fmt"
	"hash/fnv"
	"io"
	"sort"
)

// ItemStats counts how often an item has been used and inspected across the
// whole session. The solver consults these to avoid re-examining items.
type ItemStats struct {
	UseCount  int
	LookCount int
}

// Inventory tracks the items the player holds. Entries appear on take and
// vanish on drop; the guest's own "inv" listing is the source of truth and
// reconciles any drift (items consumed by the game, picked up by events).
type Inventory struct {
	items map[string]*ItemStats

	// dirty is set whenever a take/drop/use may have changed the real
	// inventory; the solver issues "inv" to reconcile before exploring.
	dirty bool
}

func NewInventory() *Inventory {
	return &Inventory{items: make(map[string]*ItemStats)}
}

func (inv *Inventory) stats(name string) *ItemStats {
	s, ok := inv.items[name]
	if !ok {
		s = &ItemStats{}
		inv.items[name] = s
	}
	return s
}

// Take registers a picked up item.
func (inv *Inventory) Take(name string) {
	inv.stats(name)
	inv.dirty = true
}

// Drop removes an item. Usage statistics are forgotten with it.
func (inv *Inventory) Drop(name string) {
	delete(inv.items, name)
	inv.dirty = true
}

// Use bumps the use counter. Using an item we do not believe we hold still
// counts; the reconcile pass sorts out who was right.
func (inv *Inventory) Use(name string) {
	inv.stats(name).UseCount++
	inv.dirty = true
}

// LookItem bumps the look counter for a held item.
func (inv *Inventory) LookItem(name string) {
	if s, ok := inv.items[name]; ok {
		s.LookCount++
	}
}

// Has reports whether the item is currently held.
func (inv *Inventory) Has(name string) bool {
	_, ok := inv.items[name]
	return ok
}

// UsedOrLooked reports whether the item has been used or inspected at least
// once during the session.
func (inv *Inventory) UsedOrLooked(name string) bool {
	s, ok := inv.items[name]
	return ok && (s.UseCount > 0 || s.LookCount > 0)
}

// Items returns the held item names in sorted order.
func (inv *Inventory) Items() []string {
	names := make([]string, 0, len(inv.items))
	for name := range inv.items {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dirty reports whether a take/drop/use happened since the last reconcile.
func (inv *Inventory) Dirty() bool {
	return inv.dirty
}

// Reconcile replaces the held set with the guest's own listing, keeping the
// usage statistics of items that survive.
func (inv *Inventory) Reconcile(names []string) {
	kept := make(map[string]*ItemStats, len(names))
	for _, name := range names {
		if s, ok := inv.items[name]; ok {
			kept[name] = s
		} else {
			kept[name] = &ItemStats{}
		}
	}
	inv.items = kept
	inv.dirty = false
}

// Hash returns a stable hash of the sorted item names. Node completion is
// tracked per inventory hash: what is a dead end empty-handed may open up
// once the right item is held.
func (inv *Inventory) Hash() uint64 {
	h := fnv.New64a()
	for _, name := range inv.Items() {
		h.Write([]byte(name))
		h.Write([]byte{0x1f})
	}
	return h.Sum64()
}

// WriteState dumps the inventory for the state meta-commands.
func (inv *Inventory) WriteState(w io.Writer) {
	names := inv.Items()
	if len(names) == 0 {
		fmt.Fprintln(w, "inventory: empty")
		return
	}
	fmt.Fprintf(w, "inventory (%d items, hash %#x):\n", len(names), inv.Hash())
	for _, name := range names {
		s := inv.items[name]
		fmt.Fprintf(w, "  %s (used %d, looked %d)\n", name, s.UseCount, s.LookCount)
	}
}
