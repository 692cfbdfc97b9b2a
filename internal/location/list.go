package location

import "fmt"

// List is an ordered sequence of locations with an active index
type List struct {
	Locations []Location `json:"locations"`
	Active    int        `json:"active"`
}

// Len returns the number of locations
func (l List) Len() int {
	return len(l.Locations)
}

// ActiveIndex returns the active index clamped to the list bounds
func (l List) ActiveIndex() int {
	return clamp(l.Active, len(l.Locations))
}

// SetActive stores a clamped active index
func (l *List) SetActive(i int) {
	l.Active = clamp(i, len(l.Locations))
}

// ActiveLocation returns the active location; false on an empty list
func (l List) ActiveLocation() (Location, bool) {
	if len(l.Locations) == 0 {
		return Location{}, false
	}
	return l.Locations[l.ActiveIndex()], true
}

// Add appends a location
func (l *List) Add(loc Location) {
	l.Locations = append(l.Locations, loc)
}

// Update replaces the location at index i
func (l *List) Update(i int, loc Location) error {
	if i < 0 || i >= len(l.Locations) {
		return fmt.Errorf("location index %d out of range [0,%d)", i, len(l.Locations))
	}
	l.Locations[i] = loc
	return nil
}

// Remove deletes the location at index i and keeps the active index on the
// same entry where possible. Removing the active entry selects the first one.
func (l *List) Remove(i int) (Location, error) {
	if i < 0 || i >= len(l.Locations) {
		return Location{}, fmt.Errorf("location index %d out of range [0,%d)", i, len(l.Locations))
	}

	active := l.ActiveIndex()
	removed := l.Locations[i]
	l.Locations = append(l.Locations[:i], l.Locations[i+1:]...)

	switch {
	case i == active:
		l.Active = 0
	case i < active:
		l.Active = active - 1
	}
	l.SetActive(l.Active)

	return removed, nil
}

// Clone returns a deep copy of the list
func (l List) Clone() List {
	out := List{Active: l.Active}
	if l.Locations != nil {
		out.Locations = make([]Location, len(l.Locations))
		copy(out.Locations, l.Locations)
	}
	return out
}

func clamp(i, length int) int {
	max := length - 1
	if max < 0 {
		max = 0
	}
	if i < 0 {
		return 0
	}
	if i > max {
		return max
	}
	return i
}
