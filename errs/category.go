package errs

import (
	"fmt"
	"sync"
)

// Category describes one entry in a [CategoryRegistry]: a named space of
// error Values, identified on the wire by its index in the registry.
type Category struct {
	Name string
}

// CategoryRegistry is the ordered list of error categories shared by both
// peers of an armi session, so that an error [Code] can cross the wire as
// an (index, value) pair and be translated back by the receiver. Index 0
// is reserved for "ok / system", per spec.md §6.
//
// Grounded on spec.md §4.1's "category registry" and
// original_source/include/logicmill/armi/types.h's shared, indexed
// bstream::context_base of error categories.
type CategoryRegistry struct {
	mu         sync.RWMutex
	categories []Category
	index      map[string]int32
}

// NewCategoryRegistry constructs a registry with index 0 reserved for
// "ok / system", as spec.md §6 requires.
func NewCategoryRegistry() *CategoryRegistry {
	r := &CategoryRegistry{index: make(map[string]int32)}
	r.categories = append(r.categories, Category{Name: "ok"})
	r.index["ok"] = 0
	return r
}

// Register adds a new category and returns its fixed index. Registering the
// same name twice returns the original index rather than duplicating it.
func (r *CategoryRegistry) Register(name string) int32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if idx, ok := r.index[name]; ok {
		return idx
	}
	idx := int32(len(r.categories))
	r.categories = append(r.categories, Category{Name: name})
	r.index[name] = idx
	return idx
}

// Lookup returns the category registered at idx, and whether it exists.
func (r *CategoryRegistry) Lookup(idx int32) (Category, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if idx < 0 || int(idx) >= len(r.categories) {
		return Category{}, false
	}
	return r.categories[idx], true
}

// IndexOf returns the index of a previously registered category name.
func (r *CategoryRegistry) IndexOf(name string) (int32, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.index[name]
	return idx, ok
}

// ArmiCategoryName is the name under which the runtime's own error category
// (the Kind enum defined in this package) is registered by every context.
const ArmiCategoryName = "armi"

// Decode translates a wire Code into an *Error using this registry. A Code
// naming an index unknown to this registry decodes to a synthetic
// InvalidErrorCategory error, per spec.md §4.1/§7, rather than failing. A
// Code in the runtime's own "armi" category decodes its Value back into a
// Kind; any other category is carried opaquely (Kind left as OK, the
// category name and value recorded in Message).
func (r *CategoryRegistry) Decode(code Code) *Error {
	cat, ok := r.Lookup(code.Category)
	if !ok {
		return &Error{
			Kind:    InvalidErrorCategory,
			Code:    code,
			Message: fmt.Sprintf("invalid error category index %d", code.Category),
		}
	}
	if cat.Name == ArmiCategoryName {
		return &Error{
			Kind:    Kind(code.Value),
			Code:    code,
			Message: Kind(code.Value).String(),
		}
	}
	return &Error{
		Code:    code,
		Message: fmt.Sprintf("%s: code %d", cat.Name, code.Value),
	}
}
