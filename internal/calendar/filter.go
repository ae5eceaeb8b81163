package calendar

import (
	"opscal/internal/model"
)

// FilterState is the view's category inclusion mask plus optional type and
// priority selectors. The zero value behaves like DefaultFilter.
type FilterState struct {
	// Categories is the inclusion mask. A nil map includes everything; once
	// non-nil, a missing key counts as excluded.
	Categories map[model.Category]bool `json:"categories"`
	Type       *model.Type            `json:"type,omitempty"`
	Priority   *model.Priority        `json:"priority,omitempty"`
}

// DefaultFilter includes every category and selects no type or priority.
func DefaultFilter() FilterState {
	cats := make(map[model.Category]bool, len(model.AllCategories()))
	for _, c := range model.AllCategories() {
		cats[c] = true
	}
	return FilterState{Categories: cats}
}

// Reset restores every category and clears the type and priority selectors.
func (f *FilterState) Reset() {
	*f = DefaultFilter()
}

// SetCategory includes or excludes one category.
func (f *FilterState) SetCategory(c model.Category, included bool) {
	if f.Categories == nil {
		f.Categories = DefaultFilter().Categories
	}
	f.Categories[c] = included
}

// Toggle flips one category's inclusion.
func (f *FilterState) Toggle(c model.Category) {
	f.SetCategory(c, !f.Includes(c))
}

func (f *FilterState) SetType(t *model.Type) {
	f.Type = t
}

func (f *FilterState) SetPriority(p *model.Priority) {
	f.Priority = p
}

func (f FilterState) Includes(c model.Category) bool {
	if f.Categories == nil {
		return true
	}
	return f.Categories[c]
}

// Match reports whether e passes all three conditions.
func (f FilterState) Match(e model.CalendarEvent) bool {
	if !f.Includes(e.Category) {
		return false
	}
	if f.Type != nil && *f.Type != e.Type {
		return false
	}
	if f.Priority != nil && *f.Priority != e.Priority {
		return false
	}
	return true
}

// Clone returns a deep copy, so a caller-owned state can be handed out safely.
func (f FilterState) Clone() FilterState {
	out := FilterState{}
	if f.Categories != nil {
		out.Categories = make(map[model.Category]bool, len(f.Categories))
		for k, v := range f.Categories {
			out.Categories[k] = v
		}
	}
	if f.Type != nil {
		t := *f.Type
		out.Type = &t
	}
	if f.Priority != nil {
		p := *f.Priority
		out.Priority = &p
	}
	return out
}

// Filter returns the events that pass f, in their original order.
func Filter(events []model.CalendarEvent, f FilterState) []model.CalendarEvent {
	out := make([]model.CalendarEvent, 0, len(events))
	for _, e := range events {
		if f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}
