// Package logicaltime implements the totally ordered logical time domains a
// federation execution can select: HLAinteger64Time and HLAfloat64Time.
//
// A Time is a point in the domain and an Interval is a non-negative distance
// between two points. Adding an interval to a time saturates at the domain's
// final value.
package logicaltime

import (
	"fmt"
	"math"
	"strconv"
)

// Domain selects the representation of logical times in a federation.
type Domain uint8

const (
	// Integer64 is the HLAinteger64Time domain.
	Integer64 Domain = iota
	// Float64 is the HLAfloat64Time domain.
	Float64
)

// String ...
func (d Domain) String() string {
	switch d {
	case Integer64:
		return "HLAinteger64Time"
	case Float64:
		return "HLAfloat64Time"
	default:
		return "Unknown"
	}
}

// ParseDomain maps a time factory name to a Domain.
func ParseDomain(s string) (Domain, error) {
	switch s {
	case "HLAinteger64Time", "integer", "int64", "":
		return Integer64, nil
	case "HLAfloat64Time", "float", "float64":
		return Float64, nil
	default:
		return 0, fmt.Errorf("unknown logical time implementation %q", s)
	}
}

// Time is a point in a logical time domain.
type Time struct {
	Domain Domain  `codec:"d"`
	Int    int64   `codec:"i"`
	Float  float64 `codec:"f"`
}

// Interval is a distance between two logical times.
type Interval struct {
	Domain Domain  `codec:"d"`
	Int    int64   `codec:"i"`
	Float  float64 `codec:"f"`
}

// Initial returns the smallest time of the domain.
func (d Domain) Initial() Time {
	return Time{Domain: d}
}

// Final returns the greatest time of the domain.
func (d Domain) Final() Time {
	if d == Float64 {
		return Time{Domain: d, Float: math.MaxFloat64}
	}
	return Time{Domain: d, Int: math.MaxInt64}
}

// Zero returns the zero interval.
func (d Domain) Zero() Interval {
	return Interval{Domain: d}
}

// Epsilon returns the smallest positive interval of the domain.
func (d Domain) Epsilon() Interval {
	if d == Float64 {
		return Interval{Domain: d, Float: math.SmallestNonzeroFloat64}
	}
	return Interval{Domain: d, Int: 1}
}

// Time builds a time of the domain from a float64 value. Integer domains
// truncate.
func (d Domain) Time(v float64) Time {
	if d == Float64 {
		return Time{Domain: d, Float: v}
	}
	return Time{Domain: d, Int: int64(v)}
}

// Interval builds an interval of the domain from a float64 value.
func (d Domain) Interval(v float64) Interval {
	if d == Float64 {
		return Interval{Domain: d, Float: v}
	}
	return Interval{Domain: d, Int: int64(v)}
}

// CheckTime reports whether t belongs to the domain.
func (d Domain) CheckTime(t Time) error {
	if t.Domain != d {
		return fmt.Errorf("logical time %s is not a %s", t, d)
	}
	if d == Float64 {
		if math.IsNaN(t.Float) || t.Float < 0 {
			return fmt.Errorf("logical time %s out of range", t)
		}
		return nil
	}
	if t.Int < 0 {
		return fmt.Errorf("logical time %s out of range", t)
	}
	return nil
}

// CheckInterval reports whether iv is a valid non-negative interval of the
// domain.
func (d Domain) CheckInterval(iv Interval) error {
	if iv.Domain != d {
		return fmt.Errorf("logical time interval %s is not a %s interval", iv, d)
	}
	if d == Float64 {
		if math.IsNaN(iv.Float) || math.IsInf(iv.Float, 0) || iv.Float < 0 {
			return fmt.Errorf("logical time interval %s out of range", iv)
		}
		return nil
	}
	if iv.Int < 0 {
		return fmt.Errorf("logical time interval %s out of range", iv)
	}
	return nil
}

func (t Time) value() float64 {
	if t.Domain == Float64 {
		return t.Float
	}
	return float64(t.Int)
}

// Compare returns -1, 0 or 1 if t is less than, equal to or greater than o.
func (t Time) Compare(o Time) int {
	if t.Domain == Integer64 && o.Domain == Integer64 {
		switch {
		case t.Int < o.Int:
			return -1
		case t.Int > o.Int:
			return 1
		default:
			return 0
		}
	}
	a, b := t.value(), o.value()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// Less ...
func (t Time) Less(o Time) bool { return t.Compare(o) < 0 }

// LessEqual ...
func (t Time) LessEqual(o Time) bool { return t.Compare(o) <= 0 }

// Equal ...
func (t Time) Equal(o Time) bool { return t.Compare(o) == 0 }

// IsFinal reports whether t is the greatest time of its domain.
func (t Time) IsFinal() bool {
	return t.Equal(t.Domain.Final())
}

// Add returns t+iv, saturating at the domain's final time.
func (t Time) Add(iv Interval) Time {
	if t.Domain == Float64 {
		s := t.Float + iv.value()
		if math.IsInf(s, 1) || s > math.MaxFloat64 {
			return t.Domain.Final()
		}
		return Time{Domain: t.Domain, Float: s}
	}
	if iv.Int > 0 && t.Int > math.MaxInt64-iv.Int {
		return t.Domain.Final()
	}
	return Time{Domain: t.Domain, Int: t.Int + iv.Int}
}

// Sub returns the interval t-o. The result is negative if o is after t.
func (t Time) Sub(o Time) Interval {
	if t.Domain == Float64 {
		return Interval{Domain: t.Domain, Float: t.Float - o.value()}
	}
	return Interval{Domain: t.Domain, Int: t.Int - o.Int}
}

// String ...
func (t Time) String() string {
	if t.Domain == Float64 {
		return strconv.FormatFloat(t.Float, 'g', -1, 64)
	}
	return strconv.FormatInt(t.Int, 10)
}

// Float64 returns the time as a float64, for metrics and logs.
func (t Time) Float64() float64 {
	return t.value()
}

func (iv Interval) value() float64 {
	if iv.Domain == Float64 {
		return iv.Float
	}
	return float64(iv.Int)
}

// Compare returns -1, 0 or 1 if iv is less than, equal to or greater than o.
func (iv Interval) Compare(o Interval) int {
	if iv.Domain == Integer64 && o.Domain == Integer64 {
		switch {
		case iv.Int < o.Int:
			return -1
		case iv.Int > o.Int:
			return 1
		default:
			return 0
		}
	}
	a, b := iv.value(), o.value()
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero ...
func (iv Interval) IsZero() bool {
	return iv.value() == 0
}

// String ...
func (iv Interval) String() string {
	if iv.Domain == Float64 {
		return strconv.FormatFloat(iv.Float, 'g', -1, 64)
	}
	return strconv.FormatInt(iv.Int, 10)
}

// Min returns the smaller of a and b.
func Min(a, b Time) Time {
	if b.Less(a) {
		return b
	}
	return a
}

// Max returns the greater of a and b.
func Max(a, b Time) Time {
	if a.Less(b) {
		return b
	}
	return a
}
