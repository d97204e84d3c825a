package render

import (
	"fmt"
	"image/color"
	"sort"
	"strings"
)

// rampColors is how many interpolated colors a Ramp hands to the heatmap.
const rampColors = 256

// rampStops holds the named colormaps as ordered hex stops. The first five
// follow the matplotlib ramps, the last three the pyqtgraph ones.
var rampStops = map[string][]string{
	"viridis": {
		"#440154", "#482878", "#3e4989", "#31688e", "#26828e",
		"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
	},
	"plasma": {
		"#0d0887", "#46039f", "#7201a8", "#9c179e", "#bd3786",
		"#d8576b", "#ed7953", "#fb9f3a", "#fdca26", "#f0f921",
	},
	"inferno": {
		"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60",
		"#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4",
	},
	"magma": {
		"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f",
		"#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf",
	},
	"grey":    {"#000000", "#ffffff"},
	"thermal": {"#000000", "#b90000", "#ffdc00", "#ffffff"},
	"flame":   {"#000000", "#0700dc", "#ec0086", "#f6f600", "#ffffff"},
	"bipolar": {"#00ffff", "#0000ff", "#000000", "#ff0000", "#ffff00"},
}

// DefaultColormap is used when a requested name is unknown or empty.
const DefaultColormap = "viridis"

// Ramp is a named colormap interpolated between fixed stops. It implements
// gonum/plot/palette.Palette.
type Ramp struct {
	name  string
	stops []color.NRGBA
}

// ByName looks up a colormap, falling back to viridis for unknown names.
func ByName(name string) Ramp {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "gray" {
		key = "grey"
	}
	stops, ok := rampStops[key]
	if !ok {
		key = DefaultColormap
		stops = rampStops[key]
	}
	r := Ramp{name: key, stops: make([]color.NRGBA, len(stops))}
	for i, s := range stops {
		r.stops[i] = mustHex(s)
	}
	return r
}

// Names lists the available colormaps in sorted order.
func Names() []string {
	names := make([]string, 0, len(rampStops))
	for name := range rampStops {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Name returns the resolved colormap name.
func (r Ramp) Name() string { return r.name }

// HexStops returns the ramp's stops as hex strings, lowest value first.
// ECharts visual maps take the ramp in this form.
func (r Ramp) HexStops() []string {
	out := make([]string, len(r.stops))
	for i, c := range r.stops {
		out[i] = fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
	}
	return out
}

// Colors interpolates the stops into the palette handed to the heatmap.
func (r Ramp) Colors() []color.Color {
	out := make([]color.Color, rampColors)
	last := len(r.stops) - 1
	for i := range out {
		pos := float64(i) / float64(rampColors-1) * float64(last)
		k := int(pos)
		if k >= last {
			out[i] = r.stops[last]
			continue
		}
		frac := pos - float64(k)
		out[i] = lerp(r.stops[k], r.stops[k+1], frac)
	}
	return out
}

func lerp(a, b color.NRGBA, t float64) color.NRGBA {
	mix := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t + 0.5)
	}
	return color.NRGBA{R: mix(a.R, b.R), G: mix(a.G, b.G), B: mix(a.B, b.B), A: 255}
}

func mustHex(s string) color.NRGBA {
	var c color.NRGBA
	c.A = 255
	if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B); err != nil {
		panic(fmt.Sprintf("bad colormap stop %q: %v", s, err))
	}
	return c
}
