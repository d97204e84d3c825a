// Package fit performs peak-profile fits on slice data using
// Levenberg-Marquardt least squares. Profiles are parameterized as
// (amplitude, center, FWHM, offset); a negative amplitude fits a dip.
package fit

import (
	"fmt"
	"math"

	"github.com/maorshutman/lm"
)

// Profile selects the peak model.
type Profile int

// Supported profiles.
const (
	Lorentzian Profile = iota
	Gaussian
)

// String returns the lower-case profile name.
func (p Profile) String() string {
	if p == Gaussian {
		return "gaussian"
	}
	return "lorentzian"
}

// ParseProfile parses a profile name. An empty string means Lorentzian.
func ParseProfile(s string) (Profile, error) {
	switch s {
	case "", "lorentzian":
		return Lorentzian, nil
	case "gaussian":
		return Gaussian, nil
	}
	return Lorentzian, fmt.Errorf("unknown profile %q", s)
}

// MarshalJSON encodes the profile by name.
func (p Profile) MarshalJSON() ([]byte, error) {
	return []byte(`"` + p.String() + `"`), nil
}

// Result holds fitted peak parameters and the model curve evaluated on
// the input coordinates.
type Result struct {
	Profile   Profile   `json:"profile"`
	Amplitude float64   `json:"amplitude"`
	Center    float64   `json:"center"`
	Width     float64   `json:"fwhm"`
	Offset    float64   `json:"offset"`
	Fitted    []float64 `json:"fitted"`
}

// model evaluates a profile at x for params p = (amp, center, fwhm, offset).
func (pr Profile) model(x float64, p []float64) float64 {
	amp, cen, wid, off := p[0], p[1], p[2], p[3]
	d := x - cen
	if pr == Gaussian {
		if wid == 0 {
			return off
		}
		return off + amp*math.Exp(-4*math.Ln2*d*d/(wid*wid))
	}
	q := 0.25 * wid * wid
	return off + amp*q/(d*d+q)
}

// Fit fits the profile to the (coords, values) pairs where both are
// finite. It needs at least five such pairs. The returned curve is
// evaluated on every input coordinate, finite or not.
func Fit(profile Profile, coords, values []float64) (*Result, error) {
	n := len(coords)
	if len(values) < n {
		n = len(values)
	}
	cx := make([]float64, 0, n)
	cv := make([]float64, 0, n)
	for i := 0; i < n; i++ {
		if finite(coords[i]) && finite(values[i]) {
			cx = append(cx, coords[i])
			cv = append(cv, values[i])
		}
	}
	if len(cx) < 5 {
		return nil, fmt.Errorf("fit needs at least 5 finite points, have %d", len(cx))
	}

	init := guess(cx, cv)
	residuals := func(dst, p []float64) {
		for i, xi := range cx {
			dst[i] = profile.model(xi, p) - cv[i]
		}
	}
	jac := lm.NumJac{Func: residuals}
	prob := lm.LMProblem{
		Dim:        4,
		Size:       len(cx),
		Func:       residuals,
		Jac:        jac.Jac,
		InitParams: init,
		Tau:        1e-6,
		Eps1:       1e-8,
		Eps2:       1e-8,
	}
	res, err := lm.LM(prob, &lm.Settings{Iterations: 200, ObjectiveTol: 1e-16})
	if err != nil {
		return nil, fmt.Errorf("fit %s: %w", profile, err)
	}
	p := res.X
	out := &Result{
		Profile:   profile,
		Amplitude: p[0],
		Center:    p[1],
		Width:     math.Abs(p[2]),
		Offset:    p[3],
		Fitted:    make([]float64, len(coords)),
	}
	for i, xi := range coords {
		out.Fitted[i] = profile.model(xi, p)
	}
	return out, nil
}

// guess derives initial parameters from the data: the offset from the
// baseline extreme, the amplitude and center from the opposing extreme,
// and the width from the half-maximum extent.
func guess(cx, cv []float64) []float64 {
	iMin, iMax := 0, 0
	for i, v := range cv {
		if v < cv[iMin] {
			iMin = i
		}
		if v > cv[iMax] {
			iMax = i
		}
	}
	// Peak up when the maximum sits farther from the mean than the
	// minimum; otherwise fit a dip.
	amp := cv[iMax] - cv[iMin]
	cen := cx[iMax]
	off := cv[iMin]
	if peakDown(cv, iMin, iMax) {
		amp = cv[iMin] - cv[iMax]
		cen = cx[iMin]
		off = cv[iMax]
	}

	half := off + amp/2
	lo, hi := math.Inf(1), math.Inf(-1)
	for i, v := range cv {
		inside := v >= half
		if amp < 0 {
			inside = v <= half
		}
		if inside {
			if cx[i] < lo {
				lo = cx[i]
			}
			if cx[i] > hi {
				hi = cx[i]
			}
		}
	}
	wid := hi - lo
	if !finite(wid) || wid <= 0 {
		span := spread(cx)
		wid = span / 4
		if wid <= 0 {
			wid = 1
		}
	}
	return []float64{amp, cen, wid, off}
}

func peakDown(cv []float64, iMin, iMax int) bool {
	var sum float64
	for _, v := range cv {
		sum += v
	}
	mean := sum / float64(len(cv))
	return mean-cv[iMin] > cv[iMax]-mean
}

func spread(xs []float64) float64 {
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		if x < lo {
			lo = x
		}
		if x > hi {
			hi = x
		}
	}
	return hi - lo
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
