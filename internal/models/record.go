// Package models defines the data shapes exchanged with the upstream portal
// and the aggregated views served by this API, together with the error
// taxonomy shared across the service.
package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Placeholder values substituted when a classification field is absent or
// malformed on a portal record. The values are part of the served API and
// match what the portal's own dashboard displays.
const (
	// NoArea is the placeholder for records without an area.
	NoArea = "Sin área"
	// NoSite is the placeholder for records without a site.
	NoSite = "Sin sede"
	// NoShift is the placeholder for records without a shift.
	NoShift = "Sin turno"
)

// Record is one raw portal row (a student enrollment or a seat allocation).
// The portal's envelope is passed through verbatim, so fields of interest
// are accessed defensively; unknown shapes fall back to placeholders.
type Record map[string]any

// classification reads the "denominacion" field of a nested object such as
// area, sede or turno, returning the placeholder when the object or the
// field is missing or has an unexpected shape.
func (r Record) classification(key, placeholder string) string {
	nested, ok := r[key].(map[string]any)
	if !ok {
		return placeholder
	}
	name, ok := nested["denominacion"].(string)
	if !ok || name == "" {
		return placeholder
	}
	return name
}

// Area returns the record's area name or the "Sin área" placeholder.
func (r Record) Area() string {
	return r.classification("area", NoArea)
}

// Site returns the record's site name or the "Sin sede" placeholder.
func (r Record) Site() string {
	return r.classification("sede", NoSite)
}

// Shift returns the record's shift name or the "Sin turno" placeholder.
func (r Record) Shift() string {
	return r.classification("turno", NoShift)
}

// Quantity returns the seat count carried by a seat-allocation record.
// The portal serializes it inconsistently (number or string), so both are
// accepted; anything else yields zero.
func (r Record) Quantity() int {
	switch v := r["cantidad"].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// ID returns the record's own identifier, read from "id" or
// "estudiante_id". It returns ErrMissingIdentifier when neither is present.
func (r Record) ID() (string, error) {
	for _, key := range []string{"id", "estudiante_id"} {
		if v, ok := r[key]; ok {
			return stringify(v), nil
		}
	}
	return "", ErrMissingIdentifier
}

// stringify renders a portal field value the way the portal's own frontend
// does: numbers without a decimal point, everything else via fmt.
func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		// JSON numbers decode as float64; identifiers are integral.
		return strconv.FormatInt(int64(t), 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// FieldString returns the record field under key rendered as a trimmed
// string, with ok reporting whether the key was present.
func (r Record) FieldString(key string) (string, bool) {
	v, ok := r[key]
	if !ok {
		return "", false
	}
	return strings.TrimSpace(stringify(v)), true
}

// Nested returns the nested object under key, if present.
func (r Record) Nested(key string) (Record, bool) {
	nested, ok := r[key].(map[string]any)
	if !ok {
		return nil, false
	}
	return Record(nested), true
}
