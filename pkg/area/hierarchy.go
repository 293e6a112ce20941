// Package area maintains the containment forest of areas: every area has at
// most one parent and no area may become its own ancestor.
package area

import (
	"slices"

	"github.com/rotisserie/eris"
)

// ID identifies an area.
type ID int64

// NoArea is returned where no area could be found.
const NoArea ID = -1

var (
	// ErrNotFound is returned for unknown area ids and for areas without a
	// common ancestor.
	ErrNotFound = eris.New("area not found")
	// ErrInvalidParent is returned when an assignment would give an area a
	// second parent or make it its own ancestor.
	ErrInvalidParent = eris.New("invalid parent area")
)

// Directory answers whether an area id is known. The registry implements it.
type Directory interface {
	AreaExists(id ID) bool
}

// Hierarchy stores parent edges by id. Children lists keep attachment order.
//
// Hierarchy is not safe for concurrent use.
type Hierarchy struct {
	dir      Directory
	parent   map[ID]ID
	children map[ID][]ID
}

// NewHierarchy creates an empty hierarchy whose ids are validated by dir.
func NewHierarchy(dir Directory) *Hierarchy {
	return &Hierarchy{
		dir:      dir,
		parent:   make(map[ID]ID),
		children: make(map[ID][]ID),
	}
}

func (h *Hierarchy) known(id ID) error {
	if id == NoArea || !h.dir.AreaExists(id) {
		return eris.Wrapf(ErrNotFound, "area %d", id)
	}
	return nil
}

// AddSubarea makes parent the parent of child.
func (h *Hierarchy) AddSubarea(child, parent ID) error {
	if err := h.known(child); err != nil {
		return err
	}
	if err := h.known(parent); err != nil {
		return err
	}
	if p, ok := h.parent[child]; ok {
		return eris.Wrapf(ErrInvalidParent, "area %d already belongs to %d", child, p)
	}
	// Walk up from parent; meeting child there means a cycle.
	for at := parent; ; {
		if at == child {
			return eris.Wrapf(ErrInvalidParent, "area %d cannot be placed inside its own subarea %d", child, parent)
		}
		next, ok := h.parent[at]
		if !ok {
			break
		}
		at = next
	}

	h.parent[child] = parent
	h.children[parent] = append(h.children[parent], child)
	return nil
}

// Parent returns the parent of id, or NoArea for a root.
func (h *Hierarchy) Parent(id ID) ID {
	if p, ok := h.parent[id]; ok {
		return p
	}
	return NoArea
}

// Children returns the direct subareas of id in attachment order.
func (h *Hierarchy) Children(id ID) []ID {
	return slices.Clone(h.children[id])
}

// Ancestors returns the chain from the immediate parent of id up to its root.
// A root has an empty chain.
func (h *Hierarchy) Ancestors(id ID) ([]ID, error) {
	if err := h.known(id); err != nil {
		return nil, err
	}
	chain := []ID{}
	for p, ok := h.parent[id]; ok; p, ok = h.parent[p] {
		chain = append(chain, p)
	}
	return chain, nil
}

// Descendants returns the whole subtree below id, breadth-first.
func (h *Hierarchy) Descendants(id ID) ([]ID, error) {
	if err := h.known(id); err != nil {
		return nil, err
	}
	out := []ID{}
	queue := slices.Clone(h.children[id])
	for len(queue) > 0 {
		at := queue[0]
		queue = queue[1:]
		out = append(out, at)
		queue = append(queue, h.children[at]...)
	}
	return out, nil
}

// CommonAncestor returns the lowest area that contains both a and b. Each
// chain starts at the id itself, so an area is its own common ancestor and an
// ancestor of the other id is returned as is.
func (h *Hierarchy) CommonAncestor(a, b ID) (ID, error) {
	if err := h.known(a); err != nil {
		return NoArea, err
	}
	if err := h.known(b); err != nil {
		return NoArea, err
	}

	seen := map[ID]bool{a: true}
	for p, ok := h.parent[a]; ok; p, ok = h.parent[p] {
		seen[p] = true
	}
	for at, ok := b, true; ok; at, ok = h.parent[at] {
		if seen[at] {
			return at, nil
		}
	}
	return NoArea, eris.Wrapf(ErrNotFound, "areas %d and %d share no ancestor", a, b)
}

// Roots returns every known area in ids that has no parent, keeping order.
func (h *Hierarchy) Roots(ids []ID) []ID {
	var roots []ID
	for _, id := range ids {
		if _, ok := h.parent[id]; !ok {
			roots = append(roots, id)
		}
	}
	return roots
}

// Remove drops id from the forest. Its children move up to id's parent, or
// become roots when id had none. Unknown ids are ignored.
func (h *Hierarchy) Remove(id ID) {
	p, hasParent := h.parent[id]
	kids := h.children[id]

	if hasParent {
		siblings := h.children[p]
		if i := slices.Index(siblings, id); i >= 0 {
			siblings = slices.Delete(siblings, i, i+1)
		}
		siblings = append(siblings, kids...)
		if len(siblings) == 0 {
			delete(h.children, p)
		} else {
			h.children[p] = siblings
		}
	}
	for _, k := range kids {
		if hasParent {
			h.parent[k] = p
		} else {
			delete(h.parent, k)
		}
	}
	delete(h.parent, id)
	delete(h.children, id)
}

// Clear removes every parent edge.
func (h *Hierarchy) Clear() {
	h.parent = make(map[ID]ID)
	h.children = make(map[ID][]ID)
}

// Len returns the number of parent edges.
func (h *Hierarchy) Len() int { return len(h.parent) }
