// Package units parses measurement units and converts values between
// SI-prefixed forms of the same base unit.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Base unit symbols
const (
	Volt    = "V"
	Ampere  = "A"
	Meter   = "m"
	Tesla   = "T"
	Farad   = "F"
	Ohm     = "Ohm"
	Hertz   = "Hz"
	Second  = "s"
	Kelvin  = "K"
	Phi0    = "Phi0"
	Arb     = "arb"
	Percent = "%"
)

// ErrIncompatible is returned when a conversion is requested between
// units with different base dimensions.
var ErrIncompatible = errors.New("incompatible units")

// prefixExponents maps SI prefix symbols to powers of ten. Prefix symbols
// are case-sensitive (m is milli, M is mega).
var prefixExponents = map[string]int{
	"f": -15,
	"p": -12,
	"n": -9,
	"µ": -6,
	"u": -6,
	"m": -3,
	"":  0,
	"k": 3,
	"M": 6,
	"G": 9,
}

// prefixWords maps spelled-out prefixes to their symbols.
var prefixWords = map[string]string{
	"femto": "f",
	"pico":  "p",
	"nano":  "n",
	"micro": "µ",
	"milli": "m",
	"kilo":  "k",
	"mega":  "M",
	"giga":  "G",
}

// baseWords maps spelled-out base units (and symbol aliases) to symbols.
var baseWords = map[string]string{
	"volt":    Volt,
	"ampere":  Ampere,
	"amp":     Ampere,
	"meter":   Meter,
	"metre":   Meter,
	"tesla":   Tesla,
	"farad":   Farad,
	"ohm":     Ohm,
	"hertz":   Hertz,
	"second":  Second,
	"kelvin":  Kelvin,
	"phi0":    Phi0,
	"φ0":      Phi0,
	"arb":     Arb,
	"percent": Percent,
}

// baseSymbols is the set of recognized base symbols.
var baseSymbols = map[string]bool{
	Volt: true, Ampere: true, Meter: true, Tesla: true, Farad: true,
	Ohm: true, Hertz: true, Second: true, Kelvin: true, Phi0: true,
	Arb: true, Percent: true,
}

// displaySymbols overrides the printed form of a base symbol.
var displaySymbols = map[string]string{
	Phi0: "Φ0",
}

// Unit is a parsed unit: an SI prefix applied to a base symbol. Strings
// that do not parse are preserved verbatim with an arb base so they can
// still label axes and round-trip through exports.
type Unit struct {
	Prefix string
	Base   string
	raw    string
}

// Parse interprets a unit string. It accepts symbol form ("uV", "µV",
// "mPhi0") and word form ("microvolt", "milli phi0"). Parse never fails:
// unrecognized input yields a verbatim arb unit.
func Parse(s string) Unit {
	t := strings.TrimSpace(s)
	if t == "" {
		return Unit{Base: Arb}
	}
	// Bare base symbol or word, no prefix.
	if baseSymbols[t] {
		return Unit{Base: t}
	}
	if b, ok := baseWords[strings.ToLower(t)]; ok {
		return Unit{Base: b}
	}
	// Word form: prefix word + base word, optionally space-separated.
	lower := strings.ReplaceAll(strings.ToLower(t), " ", "")
	for word, sym := range prefixWords {
		rest, ok := strings.CutPrefix(lower, word)
		if !ok {
			continue
		}
		if b, ok := baseWords[rest]; ok {
			return Unit{Prefix: sym, Base: b}
		}
	}
	// Symbol form: one prefix rune + base symbol. Prefixes are
	// case-sensitive here so mm parses as millimeter, not an error.
	for sym := range prefixExponents {
		if sym == "" {
			continue
		}
		rest, ok := strings.CutPrefix(t, sym)
		if !ok || rest == "" {
			continue
		}
		if baseSymbols[rest] {
			return Unit{Prefix: normalizePrefix(sym), Base: rest}
		}
		if b, ok := baseWords[strings.ToLower(rest)]; ok {
			return Unit{Prefix: normalizePrefix(sym), Base: b}
		}
	}
	return Unit{Base: Arb, raw: t}
}

// normalizePrefix collapses prefix aliases (ASCII u) to the canonical symbol.
func normalizePrefix(p string) string {
	if p == "u" {
		return "µ"
	}
	return p
}

// String renders the display abbreviation, e.g. "µV" or "Φ0".
func (u Unit) String() string {
	if u.raw != "" {
		return u.raw
	}
	base := u.Base
	if d, ok := displaySymbols[base]; ok {
		base = d
	}
	return u.Prefix + base
}

// IsKnown reports whether the unit parsed to a recognized base symbol.
func (u Unit) IsKnown() bool {
	return u.raw == "" && u.Base != ""
}

// Compatible reports whether values can convert between u and v.
// Verbatim units are only compatible with themselves.
func (u Unit) Compatible(v Unit) bool {
	if u.raw != "" || v.raw != "" {
		return u.raw == v.raw && u.Base == v.Base
	}
	return u.Base == v.Base
}

// Factor returns the multiplier taking values in from-units to to-units.
func Factor(from, to Unit) (float64, error) {
	if !from.Compatible(to) {
		return 0, fmt.Errorf("%w: %s -> %s", ErrIncompatible, from, to)
	}
	exp := prefixExponents[from.Prefix] - prefixExponents[to.Prefix]
	return math.Pow10(exp), nil
}

// Convert returns a copy of values scaled from from-units to to-units.
// The input slice is never modified.
func Convert(values []float64, from, to Unit) ([]float64, error) {
	f, err := Factor(from, to)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v * f
	}
	return out, nil
}

// Format abbreviates a unit string for axis labels: word spellings
// collapse to symbols ("microvolt" -> "µV"), unknown strings pass through.
func Format(s string) string {
	return Parse(s).String()
}
