package wizard

import (
	"clinicdesk/internal/model"
	"clinicdesk/internal/validation"
)

// AddResult tells the caller what Add did with a file.
type AddResult int

const (
	Added AddResult = iota
	Duplicate
)

// Aggregator tracks attached files per category, independent of which step
// is on screen. Handles are unique within a category.
type Aggregator struct {
	max   int
	files map[model.Category][]model.FileRef
}

// NewAggregator returns an empty aggregator capped at the per-category
// file limit.
func NewAggregator() *Aggregator {
	return &Aggregator{
		max:   validation.MaxFilesPerCategory,
		files: make(map[model.Category][]model.FileRef, len(model.Categories)),
	}
}

// Add appends ref to its category with status done. Adding a handle that is
// already present is a no-op reporting Duplicate. A full category is
// rejected with ErrCategoryFull.
func (a *Aggregator) Add(c model.Category, ref model.FileRef) (AddResult, error) {
	if _, ok := model.ParseCategory(string(c)); !ok {
		return 0, ErrUnknownCategory
	}
	if a.indexOf(c, ref.Handle) >= 0 {
		return Duplicate, nil
	}
	if len(a.files[c]) >= a.max {
		return 0, ErrCategoryFull
	}
	ref.Category = c
	ref.Status = model.UploadDone
	a.files[c] = append(a.files[c], ref)
	return Added, nil
}

// Remove filters handle out of the category and returns the removed entry
// marked as removed. A handle that is not present is a no-op.
func (a *Aggregator) Remove(c model.Category, handle string) (model.FileRef, bool, error) {
	if _, ok := model.ParseCategory(string(c)); !ok {
		return model.FileRef{}, false, ErrUnknownCategory
	}
	i := a.indexOf(c, handle)
	if i < 0 {
		return model.FileRef{}, false, nil
	}
	list := a.files[c]
	removed := list[i]
	removed.Status = model.UploadRemoved
	out := make([]model.FileRef, 0, len(list)-1)
	out = append(out, list[:i]...)
	out = append(out, list[i+1:]...)
	a.files[c] = out
	return removed, true, nil
}

// Files returns a copy of the category's list in insertion order.
func (a *Aggregator) Files(c model.Category) []model.FileRef {
	list := a.files[c]
	out := make([]model.FileRef, len(list))
	copy(out, list)
	return out
}

// Count returns the number of files in c.
func (a *Aggregator) Count(c model.Category) int {
	return len(a.files[c])
}

// All returns every attached file across categories.
func (a *Aggregator) All() []model.FileRef {
	var out []model.FileRef
	for _, c := range model.Categories {
		out = append(out, a.files[c]...)
	}
	return out
}

// Clear drops every entry.
func (a *Aggregator) Clear() {
	a.files = make(map[model.Category][]model.FileRef, len(model.Categories))
}

func (a *Aggregator) indexOf(c model.Category, handle string) int {
	for i, f := range a.files[c] {
		if f.Handle == handle {
			return i
		}
	}
	return -1
}

func (a *Aggregator) snapshot() map[model.Category][]model.FileRef {
	out := make(map[model.Category][]model.FileRef, len(model.Categories))
	for _, c := range model.Categories {
		if n := len(a.files[c]); n > 0 {
			out[c] = a.Files(c)
		}
	}
	return out
}
