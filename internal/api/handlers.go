package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/loganbvh/ssm-analyze/internal/catalog"
	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/export"
	"github.com/loganbvh/ssm-analyze/internal/fit"
	"github.com/loganbvh/ssm-analyze/internal/httputil"
	"github.com/loganbvh/ssm-analyze/internal/render"
	"github.com/loganbvh/ssm-analyze/internal/security"
	"github.com/loganbvh/ssm-analyze/internal/version"
	"github.com/loganbvh/ssm-analyze/internal/view"
)

// jsonFloat encodes non-finite values as null. Grids carry NaN for
// masked and rotation-fill cells, which encoding/json refuses.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

func floatsJSON(vs []float64) []jsonFloat {
	out := make([]jsonFloat, len(vs))
	for i, v := range vs {
		out[i] = jsonFloat(v)
	}
	return out
}

type itemJSON struct {
	Name   string      `json:"name"`
	Unit   string      `json:"unit"`
	Values []jsonFloat `json:"values"`
}

type gridJSON struct {
	Name   string        `json:"name"`
	Unit   string        `json:"unit"`
	Values [][]jsonFloat `json:"values"`
}

type sliceJSON struct {
	Axis   string   `json:"axis"`
	Index  int      `json:"index"`
	Coords itemJSON `json:"coords"`
	Values itemJSON `json:"values"`
}

type histogramJSON struct {
	Edges  []jsonFloat `json:"edges"`
	Counts []jsonFloat `json:"counts"`
	Unit   string      `json:"unit"`
}

type snapshotJSON struct {
	Title       string         `json:"title"`
	Location    string         `json:"location"`
	Kind        string         `json:"kind"`
	Is2D        bool           `json:"is_2d"`
	X           itemJSON       `json:"x"`
	Y           itemJSON       `json:"y"`
	Z           *gridJSON      `json:"z,omitempty"`
	Slice       *sliceJSON     `json:"slice,omitempty"`
	Histogram   *histogramJSON `json:"histogram,omitempty"`
	DisplayUnit string         `json:"display_unit"`
	XYUnit      string         `json:"xy_unit,omitempty"`
	Colormap    string         `json:"colormap"`
	Bins        int            `json:"bins"`
}

func itemToJSON(it dataset.DataItem) itemJSON {
	return itemJSON{Name: it.Name, Unit: it.Unit.String(), Values: floatsJSON(it.Values)}
}

func snapshotToJSON(snap *view.Snapshot) snapshotJSON {
	out := snapshotJSON{
		Title:       snap.Title,
		Location:    snap.Location,
		Kind:        snap.Kind,
		Is2D:        snap.Is2D,
		X:           itemToJSON(snap.X),
		Y:           itemToJSON(snap.Y),
		DisplayUnit: snap.DisplayUnit,
		XYUnit:      snap.XYUnit,
		Colormap:    snap.Colormap,
		Bins:        snap.Bins,
	}
	if snap.Z != nil {
		rows, cols := snap.Z.Z.Dims()
		values := make([][]jsonFloat, rows)
		for i := 0; i < rows; i++ {
			row := make([]jsonFloat, cols)
			for j := 0; j < cols; j++ {
				row[j] = jsonFloat(snap.Z.Z.At(i, j))
			}
			values[i] = row
		}
		out.Z = &gridJSON{Name: snap.Z.Name, Unit: snap.Z.Unit.String(), Values: values}
	}
	if s := snap.Slice; s != nil {
		out.Slice = &sliceJSON{
			Axis:   s.Axis.String(),
			Index:  s.Index,
			Coords: itemToJSON(s.Coords),
			Values: itemToJSON(s.Values),
		}
	}
	if h := snap.Histogram; h != nil {
		out.Histogram = &histogramJSON{
			Edges:  floatsJSON(h.Edges),
			Counts: floatsJSON(h.Counts),
			Unit:   h.Unit.String(),
		}
	}
	return out
}

func (s *Server) listDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	entries, err := s.catalog.List(r.Context(), r.URL.Query().Get("kind"))
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to list datasets: %v", err))
		return
	}
	if entries == nil {
		entries = []catalog.Entry{}
	}
	httputil.WriteJSONOK(w, entries)
}

func (s *Server) showDataset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/api/datasets/")
	if id == "" || strings.Contains(id, "/") {
		httputil.BadRequest(w, "Invalid dataset id")
		return
	}

	entry, err := s.catalog.Get(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to look up dataset: %v", err))
		return
	}

	m, err := dataset.ReadManifest(entry.Path)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to read manifest: %v", err))
		return
	}

	detail := struct {
		catalog.Entry
		Loop      dataset.Loop                 `json:"loop"`
		ArrayInfo map[string]dataset.ArrayInfo `json:"array_info"`
	}{Entry: entry, Loop: m.Loop, ArrayInfo: m.Arrays}
	httputil.WriteJSONOK(w, detail)
}

// buildSnapshot resolves the dataset query parameter and assembles the
// requested view. The bool reports whether a response was already written.
func (s *Server) buildSnapshot(w http.ResponseWriter, r *http.Request) (*view.Snapshot, bool) {
	id := r.URL.Query().Get("dataset")
	if id == "" {
		httputil.BadRequest(w, "Missing 'dataset' parameter")
		return nil, true
	}

	req, err := s.viewRequest(r.URL.Query())
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, true
	}

	ds, err := s.catalog.Load(r.Context(), id)
	if errors.Is(err, catalog.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return nil, true
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Failed to load dataset: %v", err))
		return nil, true
	}

	snap, err := view.Build(ds, req)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return nil, true
	}
	return snap, false
}

func (s *Server) plotHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	snap, done := s.buildSnapshot(w, r)
	if done {
		return
	}

	switch format := r.URL.Query().Get("format"); format {
	case "", "json":
		httputil.WriteJSONOK(w, snapshotToJSON(snap))
	case "png":
		s.servePNG(w, r, snap)
	case "html":
		s.serveCharts(w, snap)
	default:
		httputil.BadRequest(w, fmt.Sprintf("Unknown format %q, want json, png, or html", format))
	}
}

func (s *Server) servePNG(w http.ResponseWriter, r *http.Request, snap *view.Snapshot) {
	var err error
	switch figure := r.URL.Query().Get("figure"); figure {
	case "", "main":
		w.Header().Set("Content-Type", "image/png")
		err = render.WritePNG(w, snap)
	case "slice":
		w.Header().Set("Content-Type", "image/png")
		err = render.WriteSlicePNG(w, snap)
	case "hist":
		w.Header().Set("Content-Type", "image/png")
		err = render.WriteHistogramPNG(w, snap)
	default:
		httputil.BadRequest(w, fmt.Sprintf("Unknown figure %q, want main, slice, or hist", figure))
		return
	}
	if err != nil {
		s.logger.WithError(err).Error("failed to render figure")
	}
}

func (s *Server) sliceFitHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	profile, err := fit.ParseProfile(r.URL.Query().Get("profile"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	snap, done := s.buildSnapshot(w, r)
	if done {
		return
	}
	if snap.Slice == nil {
		httputil.BadRequest(w, "Fit requires 'slice' (and optional 'index') parameters")
		return
	}

	result, err := fit.Fit(profile, snap.Slice.Coords.Values, snap.Slice.Values.Values)
	if err != nil {
		httputil.BadRequest(w, fmt.Sprintf("Fit failed: %v", err))
		return
	}

	resp := struct {
		Profile   string      `json:"profile"`
		Amplitude jsonFloat   `json:"amplitude"`
		Center    jsonFloat   `json:"center"`
		FWHM      jsonFloat   `json:"fwhm"`
		Offset    jsonFloat   `json:"offset"`
		Fitted    []jsonFloat `json:"fitted"`
		Coords    []jsonFloat `json:"coords"`
		Unit      string      `json:"unit"`
	}{
		Profile:   result.Profile.String(),
		Amplitude: jsonFloat(result.Amplitude),
		Center:    jsonFloat(result.Center),
		FWHM:      jsonFloat(result.Width),
		Offset:    jsonFloat(result.Offset),
		Fitted:    floatsJSON(result.Fitted),
		Coords:    floatsJSON(snap.Slice.Coords.Values),
		Unit:      snap.Slice.Values.Unit.String(),
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) exportHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "mat"
	}
	supported := false
	for _, f := range export.Formats() {
		if f == format {
			supported = true
			break
		}
	}
	if !supported {
		httputil.BadRequest(w, fmt.Sprintf("Unknown export format %q, want one of %v", format, export.Formats()))
		return
	}

	snap, done := s.buildSnapshot(w, r)
	if done {
		return
	}

	name := snap.Y.Name
	if snap.Is2D {
		name = snap.Z.Name
	}
	// Dataset and array names come from disk and may carry characters
	// that break an unquoted Content-Disposition value.
	base := security.SanitizeFilename(fmt.Sprintf("%s_%s", path.Base(snap.Location), name))
	filename := fmt.Sprintf("%s.%s", base, format)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	w.Header().Set("Content-Type", "application/octet-stream")

	if err := export.Write(w, format, export.BuildPayload(snap)); err != nil {
		s.logger.WithError(err).Error("failed to write export")
	}
}

func (s *Server) rescanHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}

	n, err := s.catalog.Rescan(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("Rescan failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]int{"indexed": n})
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	cfg := map[string]interface{}{
		"version":            version.Version,
		"listen":             s.cfg.GetListen(),
		"data_root":          s.cfg.GetDataRoot(),
		"default_colormap":   s.cfg.GetDefaultColormap(),
		"default_bins":       s.cfg.GetDefaultBins(),
		"renderer":           s.cfg.GetRenderer(),
		"xy_unit":            s.cfg.GetXYUnit(),
		"live_poll_interval": s.cfg.GetLivePollInterval().String(),
	}
	httputil.WriteJSONOK(w, cfg)
}

func (s *Server) listColormaps(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httputil.MethodNotAllowed(w)
		return
	}

	type colormap struct {
		Name  string   `json:"name"`
		Stops []string `json:"stops"`
	}
	maps := make([]colormap, 0, len(render.Names()))
	for _, name := range render.Names() {
		maps = append(maps, colormap{Name: name, Stops: render.ByName(name).HexStops()})
	}
	httputil.WriteJSONOK(w, maps)
}
