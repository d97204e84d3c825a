package live

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/loganbvh/ssm-analyze/internal/dataset"
	"github.com/loganbvh/ssm-analyze/internal/timeutil"
)

// Watcher tails a growing 1D sweep by polling its coordinate and value
// files. Writers are expected to append whole rows; a partially written
// trailing line is picked up on a later poll.
type Watcher struct {
	xPath, yPath string
	want         int // declared rows; the sweep is complete at this count
	interval     time.Duration
	clock        timeutil.Clock

	next    int
	pending []Row

	logger logrus.FieldLogger
}

// NewWatcher follows the named dependent array of the dataset in dir.
// An empty array name selects the first dependent array. The array's
// declared shape bounds the sweep: once that many rows have been read,
// ReadRow returns io.EOF.
func NewWatcher(dir, array string, interval time.Duration) (*Watcher, error) {
	m, err := dataset.ReadManifest(dir)
	if err != nil {
		return nil, err
	}

	indep := m.IndependentVars()
	xName := indep[0]

	if array == "" {
		coords := make(map[string]bool, len(indep))
		for _, n := range indep {
			coords[n] = true
		}
		var deps []string
		for name := range m.Arrays {
			if !coords[name] {
				deps = append(deps, name)
			}
		}
		if len(deps) == 0 {
			return nil, fmt.Errorf("dataset %s has no dependent arrays", m.Location)
		}
		sort.Strings(deps)
		array = deps[0]
	}

	yInfo, ok := m.Arrays[array]
	if !ok {
		return nil, fmt.Errorf("no array %q in %s", array, m.Location)
	}
	if len(yInfo.Shape) != 1 {
		return nil, fmt.Errorf("array %q has shape %v, watching needs 1D", array, yInfo.Shape)
	}
	xInfo, ok := m.Arrays[xName]
	if !ok {
		return nil, fmt.Errorf("dataset %s has no %q coordinate", m.Location, xName)
	}

	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &Watcher{
		xPath:    filepath.Join(dir, xInfo.File),
		yPath:    filepath.Join(dir, yInfo.File),
		want:     yInfo.Shape[0],
		interval: interval,
		clock:    timeutil.RealClock{},
		logger:   logrus.WithField("tag", "watch"),
	}, nil
}

// ReadRow returns the next appended row, polling until one appears. It
// returns io.EOF once the declared number of rows has been read, or
// ctx's error if the context ends while waiting.
func (w *Watcher) ReadRow(ctx context.Context) (Row, error) {
	for {
		if len(w.pending) > 0 {
			row := w.pending[0]
			w.pending = w.pending[1:]
			return row, nil
		}
		if w.want > 0 && w.next >= w.want {
			return Row{}, io.EOF
		}
		if w.poll() == 0 {
			select {
			case <-ctx.Done():
				return Row{}, ctx.Err()
			case <-w.clock.After(w.interval):
			}
		}
	}
}

// poll re-reads both files and queues rows beyond those already seen.
// Unreadable or still-empty files count as no new data.
func (w *Watcher) poll() int {
	xs, err := dataset.ReadArrayFile(w.xPath)
	if err != nil {
		w.logger.WithError(err).Debug("coordinate file not readable yet")
		return 0
	}
	ys, err := dataset.ReadArrayFile(w.yPath)
	if err != nil {
		w.logger.WithError(err).Debug("value file not readable yet")
		return 0
	}

	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	if w.want > 0 && n > w.want {
		n = w.want
	}

	added := 0
	for ; w.next < n; w.next++ {
		w.pending = append(w.pending, Row{Index: w.next, X: xs[w.next], Y: ys[w.next]})
		added++
	}
	return added
}
