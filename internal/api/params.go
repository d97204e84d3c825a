package api

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/loganbvh/ssm-analyze/internal/transform"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

// viewRequest builds a view.Request from query parameters, with config
// defaults filled in for colormap, bins, and coordinate units.
//
// Recognized parameters: array, backsub, linebyline, axis, rotate, slice,
// index, unit, xyunit, bins, cmap.
func (s *Server) viewRequest(q url.Values) (view.Request, error) {
	req := view.Request{
		Array:       q.Get("array"),
		DisplayUnit: q.Get("unit"),
		XYUnit:      q.Get("xyunit"),
		Colormap:    q.Get("cmap"),
		Bins:        s.cfg.GetDefaultBins(),
	}
	if req.XYUnit == "" {
		req.XYUnit = s.cfg.GetXYUnit()
	}
	if req.Colormap == "" {
		req.Colormap = s.cfg.GetDefaultColormap()
	}

	reduction, err := transform.ParseReduction(q.Get("backsub"))
	if err != nil {
		return view.Request{}, fmt.Errorf("invalid 'backsub' parameter: %w", err)
	}
	req.Background.Reduction = reduction

	if lbl := q.Get("linebyline"); lbl != "" {
		v, err := strconv.ParseBool(lbl)
		if err != nil {
			return view.Request{}, fmt.Errorf("invalid 'linebyline' parameter: %w", err)
		}
		req.Background.LineByLine = v
	}
	axis, err := transform.ParseAxis(q.Get("axis"))
	if err != nil {
		return view.Request{}, fmt.Errorf("invalid 'axis' parameter: %w", err)
	}
	req.Background.Axis = axis

	if deg := q.Get("rotate"); deg != "" {
		v, err := strconv.ParseFloat(deg, 64)
		if err != nil {
			return view.Request{}, fmt.Errorf("invalid 'rotate' parameter: %w", err)
		}
		req.RotateDeg = v
	}

	if sl := q.Get("slice"); sl != "" {
		sliceAxis, err := transform.ParseAxis(sl)
		if err != nil {
			return view.Request{}, fmt.Errorf("invalid 'slice' parameter: %w", err)
		}
		req.Slice = view.SliceSpec{Enabled: true, Axis: sliceAxis}
		if idx := q.Get("index"); idx != "" {
			v, err := strconv.Atoi(idx)
			if err != nil {
				return view.Request{}, fmt.Errorf("invalid 'index' parameter: %w", err)
			}
			req.Slice.Index = v
		}
	}

	if bins := q.Get("bins"); bins != "" {
		v, err := strconv.Atoi(bins)
		if err != nil || v < 1 {
			return view.Request{}, fmt.Errorf("invalid 'bins' parameter: %q", bins)
		}
		req.Bins = v
	}

	return req, nil
}
