package model

import (
	"sort"
	"strings"
)

// FieldErrors maps a JSON field name to a human-readable validation message.
// It is returned by the domain Validate methods and rendered inline by the
// handlers.
type FieldErrors map[string]string

func (fe FieldErrors) Error() string {
	keys := make([]string, 0, len(fe))
	for k := range fe {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+fe[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// orNil keeps the typed-nil map out of the error interface.
func (fe FieldErrors) orNil() error {
	if len(fe) == 0 {
		return nil
	}
	return fe
}
