package domain

import "strings"

// ActiveFilter narrows lists by the active flag.
type ActiveFilter string

const (
	ActiveAll      ActiveFilter = "all"
	ActiveOnly     ActiveFilter = "true"
	ActiveInactive ActiveFilter = "false"
)

// ParseActiveFilter reads the active query parameter; anything unrecognized
// means all.
func ParseActiveFilter(raw string) ActiveFilter {
	switch f := ActiveFilter(strings.ToLower(strings.TrimSpace(raw))); f {
	case ActiveOnly, ActiveInactive:
		return f
	}
	return ActiveAll
}

// Wanted returns the active value to match and whether to filter at all.
func (f ActiveFilter) Wanted() (active bool, ok bool) {
	switch f {
	case ActiveOnly:
		return true, true
	case ActiveInactive:
		return false, true
	}
	return false, false
}
