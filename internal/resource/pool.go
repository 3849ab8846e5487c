// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package resource

// pool is a fixed-capacity list of units of one type. Not safe for
// concurrent use; the arbiter serializes access.
type pool struct {
	typ   Type
	items []Item
}

func newPool(t Type, ids []int) *pool {
	p := &pool{typ: t, items: make([]Item, len(ids))}
	for i, id := range ids {
		p.items[i] = Item{ID: id}
	}
	return p
}

// acquire marks a unit used and reports whether the preference was honoured.
func (p *pool) acquire(preference int) (id int, preferred bool, ok bool) {
	if preference != NoPreference {
		for i := range p.items {
			if p.items[i].ID == preference && !p.items[i].Used {
				p.items[i].Used = true
				return p.items[i].ID, true, true
			}
		}
	}
	for i := range p.items {
		if !p.items[i].Used {
			p.items[i].Used = true
			return p.items[i].ID, false, true
		}
	}
	return 0, false, false
}

// release frees a used unit. It returns false for unknown or already free ids.
func (p *pool) release(id int) bool {
	for i := range p.items {
		if p.items[i].ID == id {
			if !p.items[i].Used {
				return false
			}
			p.items[i].Used = false
			return true
		}
	}
	return false
}

func (p *pool) inUse() int {
	n := 0
	for _, it := range p.items {
		if it.Used {
			n++
		}
	}
	return n
}

func (p *pool) usedIDs() []int {
	ids := make([]int, 0, len(p.items))
	for _, it := range p.items {
		if it.Used {
			ids = append(ids, it.ID)
		}
	}
	return ids
}
