// Package api serves the plotting and export HTTP endpoints over the
// dataset catalog.
package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loganbvh/ssm-analyze/internal/catalog"
	"github.com/loganbvh/ssm-analyze/internal/config"
	"github.com/loganbvh/ssm-analyze/internal/live"
)

// ANSI escape codes for cyan and reset
const colorCyan = "\033[36m"
const colorReset = "\033[0m"
const colorYellow = "\033[33m"
const colorBoldGreen = "\033[1;32m"
const colorBoldRed = "\033[1;31m"

type Server struct {
	catalog *catalog.Catalog
	cfg     *config.Config
	logger  logrus.FieldLogger

	// Broadcasters for in-progress sweeps, one per dataset id. Entries
	// persist after their stream ends so late clients replay the buffer.
	liveMu sync.Mutex
	live   map[string]*live.Broadcaster
}

func NewServer(c *catalog.Catalog, cfg *config.Config) *Server {
	return &Server{
		catalog: c,
		cfg:     cfg,
		logger:  logrus.WithField("tag", "api"),
		live:    make(map[string]*live.Broadcaster),
	}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

func statusCodeColor(statusCode int) string {
	switch {
	case statusCode >= 200 && statusCode < 300:
		return colorBoldGreen + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 300 && statusCode < 400:
		return colorYellow + strconv.Itoa(statusCode) + colorReset
	case statusCode >= 400:
		return colorBoldRed + strconv.Itoa(statusCode) + colorReset
	default:
		return strconv.Itoa(statusCode)
	}
}

// LoggingMiddleware logs method, path, query, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		logrus.WithField("tag", "http").Infof(
			"[%s] %s %s%s%s %vms",
			statusCodeColor(lrw.statusCode), r.Method,
			colorCyan, r.RequestURI, colorReset,
			float64(time.Since(start).Nanoseconds())/1e6,
		)
	})
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/datasets", s.listDatasets)
	mux.HandleFunc("/api/datasets/", s.showDataset)
	mux.HandleFunc("/api/plot", s.plotHandler)
	mux.HandleFunc("/api/slice/fit", s.sliceFitHandler)
	mux.HandleFunc("/api/export", s.exportHandler)
	mux.HandleFunc("/api/rescan", s.rescanHandler)
	mux.HandleFunc("/api/config", s.showConfig)
	mux.HandleFunc("/api/colormaps", s.listColormaps)
	mux.HandleFunc("/live/", s.liveHandler)
	return mux
}
