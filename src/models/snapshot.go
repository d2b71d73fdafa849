package models

import (
	"encoding/json"
	"math"
	"slices"
)

// DefaultScope is used when neither the previous snapshot nor the update names a scope.
const DefaultScope = "GLOBAL"

// MTotal is one category row of a snapshot.
type MTotal struct {
	MoodType string  `json:"moodType"`
	Count    int64   `json:"count"`
	Percent  float64 `json:"percent"`
	Emoji    string  `json:"emoji,omitempty"`
}

// -----------------------------------------------------------------------------

// MSnapshot is the authoritative live statistics view.
// Values are never mutated after they have been published.
type MSnapshot struct {
	Scope      string   `json:"scope"`
	Country    *string  `json:"country"`
	Date       string   `json:"date"`
	TotalCount int64    `json:"totalCount"`
	Top        []string `json:"top"`
	Totals     []MTotal `json:"totals"`
}

// Clone returns a deep copy, so the copy's slices can be modified freely.
func (s *MSnapshot) Clone() *MSnapshot {
	if s == nil {
		return nil
	}
	out := *s
	if s.Country != nil {
		c := *s.Country
		out.Country = &c
	}
	out.Top = append([]string{}, s.Top...)
	out.Totals = append([]MTotal{}, s.Totals...)
	return &out
}

// Equal reports whether both snapshots carry the same fields.
func (s *MSnapshot) Equal(o *MSnapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if (s.Country == nil) != (o.Country == nil) || (s.Country != nil && *s.Country != *o.Country) {
		return false
	}
	return s.Scope == o.Scope && s.Date == o.Date && s.TotalCount == o.TotalCount &&
		slices.Equal(s.Top, o.Top) && slices.Equal(s.Totals, o.Totals)
}

// SumCounts adds up the per-category counts.
func (s *MSnapshot) SumCounts() int64 {
	var sum int64
	for _, t := range s.Totals {
		sum += t.Count
	}
	return sum
}

// -----------------------------------------------------------------------------

// MPartialUpdate is a stream payload. A nil field means "unchanged".
// Country is tracked separately because an explicit null is a value.
type MPartialUpdate struct {
	ID         string
	Scope      *string
	Country    *string
	HasCountry bool
	Date       *string
	TotalCount *int64
	Top        []string
	HasTop     bool
	Totals     []MTotal
	HasTotals  bool
}

// IsComplete reports whether every snapshot field is present.
func (u MPartialUpdate) IsComplete() bool {
	return u.Scope != nil && u.HasCountry && u.Date != nil && u.TotalCount != nil && u.HasTop && u.HasTotals
}

// UnmarshalJSON keeps track of which keys were present.
// Fields with the wrong JSON type are treated as absent.
func (u *MPartialUpdate) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*u = MPartialUpdate{}

	if v, ok := raw["id"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil {
			u.ID = s
		} else {
			var n json.Number
			if json.Unmarshal(v, &n) == nil {
				u.ID = n.String()
			}
		}
	}
	if v, ok := raw["scope"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil && string(v) != "null" {
			u.Scope = &s
		}
	}
	if v, ok := raw["country"]; ok {
		var s *string
		if json.Unmarshal(v, &s) == nil {
			u.HasCountry = true
			u.Country = s
		}
	}
	if v, ok := raw["date"]; ok {
		var s string
		if json.Unmarshal(v, &s) == nil && string(v) != "null" {
			u.Date = &s
		}
	}
	if v, ok := raw["totalCount"]; ok {
		if n, ok := decodeCount(v); ok {
			u.TotalCount = &n
		}
	}
	if v, ok := raw["top"]; ok && string(v) != "null" {
		var top []string
		if json.Unmarshal(v, &top) == nil {
			u.Top = top
			u.HasTop = true
		}
	}
	if v, ok := raw["totals"]; ok && string(v) != "null" {
		var totals []MTotal
		if json.Unmarshal(v, &totals) == nil {
			u.Totals = totals
			u.HasTotals = true
		}
	}
	return nil
}

// decodeCount accepts a JSON number holding a non-negative integer that fits
// in int64. "1e3" counts; "2.9", "-4" and "1e19" do not.
func decodeCount(v json.RawMessage) (int64, bool) {
	if len(v) == 0 || v[0] == '"' || string(v) == "null" {
		return 0, false
	}
	var num json.Number
	if json.Unmarshal(v, &num) != nil {
		return 0, false
	}
	if n, err := num.Int64(); err == nil {
		return n, n >= 0
	}
	f, err := num.Float64()
	if err != nil || f < 0 || f >= math.MaxInt64 || f != math.Trunc(f) {
		return 0, false
	}
	return int64(f), true
}
