package live

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/loganbvh/ssm-analyze/internal/testutil"
	"github.com/loganbvh/ssm-analyze/internal/timeutil"
)

// scriptedReader yields a fixed sequence of rows or errors, then io.EOF.
type scriptedReader struct {
	items []interface{}
	i     int
}

func (r *scriptedReader) ReadRow(ctx context.Context) (Row, error) {
	if r.i >= len(r.items) {
		return Row{}, io.EOF
	}
	v := r.items[r.i]
	r.i++
	switch vv := v.(type) {
	case Row:
		return vv, nil
	case error:
		return Row{}, vv
	default:
		return Row{}, fmt.Errorf("invalid seq item")
	}
}

// blockingReader releases one row per Proceed call, then io.EOF.
type blockingReader struct {
	rows    []Row
	proceed chan struct{}
	i       int
}

func (r *blockingReader) ReadRow(ctx context.Context) (Row, error) {
	if r.i >= len(r.rows) {
		return Row{}, io.EOF
	}
	select {
	case <-r.proceed:
	case <-ctx.Done():
		return Row{}, ctx.Err()
	}
	row := r.rows[r.i]
	r.i++
	return row, nil
}

func (r *blockingReader) Proceed() {
	r.proceed <- struct{}{}
}

// recvRow reads one row from ch, failing the test after timeout.
func recvRow(t *testing.T, ch <-chan Row, timeout time.Duration) Row {
	t.Helper()
	select {
	case row := <-ch:
		return row
	case <-time.After(timeout):
		t.Fatal("timed out waiting for row")
		return Row{}
	}
}

// collectUntilEnd receives rows from ch until the End marker and returns
// the data rows and the marker.
func collectUntilEnd(t *testing.T, ch <-chan Row, timeout time.Duration) ([]Row, Row) {
	t.Helper()
	deadline := time.After(timeout)
	var rows []Row
	for {
		select {
		case row := <-ch:
			if row.End {
				return rows, row
			}
			rows = append(rows, row)
		case <-deadline:
			t.Fatalf("timed out after %d rows without an end marker", len(rows))
		}
	}
}

func TestBroadcasterForwardsRows(t *testing.T) {
	rows := []Row{
		{Index: 0, X: 0, Y: 10},
		{Index: 1, X: 1, Y: 20},
		{Index: 2, X: 2, Y: 30},
	}
	items := make([]interface{}, len(rows))
	for i, r := range rows {
		items[i] = r
	}

	b := NewBroadcaster(&scriptedReader{items: items}, 10)
	ch := make(chan Row, 10)
	b.RegisterChannel(ch)
	b.Start(context.Background())

	got, end := collectUntilEnd(t, ch, time.Second)
	if len(got) != len(rows) {
		t.Fatalf("received %d rows, want %d", len(got), len(rows))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Errorf("row %d = %+v, want %+v", i, got[i], rows[i])
		}
	}
	if end.Error != "" {
		t.Errorf("end marker error = %q, want clean end", end.Error)
	}

	b.Wait()
	if err := b.Err(); err != nil {
		t.Errorf("Err() = %v, want nil", err)
	}
}

func TestBroadcasterReplaysBuffer(t *testing.T) {
	rows := []Row{
		{Index: 0, X: 0, Y: 10},
		{Index: 1, X: 1, Y: 20},
		{Index: 2, X: 2, Y: 30},
	}
	br := &blockingReader{rows: rows, proceed: make(chan struct{})}
	b := NewBroadcaster(br, 10)
	b.Start(context.Background())

	// Emit two rows before anyone is connected.
	br.Proceed()
	br.Proceed()

	// A late channel gets the history replayed on registration, then the
	// remaining live rows.
	ch := make(chan Row, 10)
	b.RegisterChannel(ch)
	for i := 0; i < 2; i++ {
		if got := recvRow(t, ch, time.Second); got != rows[i] {
			t.Errorf("replayed row %d = %+v, want %+v", i, got, rows[i])
		}
	}

	br.Proceed()
	if got := recvRow(t, ch, time.Second); got != rows[2] {
		t.Errorf("live row = %+v, want %+v", got, rows[2])
	}
	if end := recvRow(t, ch, time.Second); !end.End {
		t.Errorf("expected end marker, got %+v", end)
	}
	b.Wait()

	// A channel registered after the end replays everything including the
	// end marker.
	late := make(chan Row, 10)
	b.RegisterChannel(late)
	got, end := collectUntilEnd(t, late, time.Second)
	if len(got) != 3 {
		t.Errorf("late replay returned %d rows, want 3", len(got))
	}
	if end.Error != "" {
		t.Errorf("late end marker error = %q", end.Error)
	}
	if !b.Ended() {
		t.Error("Ended() = false after stream end")
	}
}

func TestBroadcasterStreamError(t *testing.T) {
	streamErr := errors.New("device gone")
	b := NewBroadcaster(&scriptedReader{items: []interface{}{
		Row{Index: 0, X: 0, Y: 10},
		streamErr,
	}}, 10)
	ch := make(chan Row, 10)
	b.RegisterChannel(ch)
	b.Start(context.Background())

	got, end := collectUntilEnd(t, ch, time.Second)
	if len(got) != 1 {
		t.Errorf("received %d rows, want 1", len(got))
	}
	if end.Error != "device gone" {
		t.Errorf("end marker error = %q, want device gone", end.Error)
	}

	b.Wait()
	if !errors.Is(b.Err(), streamErr) {
		t.Errorf("Err() = %v, want %v", b.Err(), streamErr)
	}
}

func TestRingOverwrite(t *testing.T) {
	r := newRing[int](3)
	if got := r.ordered(); len(got) != 0 {
		t.Errorf("empty ring ordered() = %v", got)
	}

	r.push(1)
	if got := r.ordered(); len(got) != 1 || got[0] != 1 {
		t.Errorf("ordered() = %v, want [1]", got)
	}

	for v := 2; v <= 5; v++ {
		r.push(v)
	}
	got := r.ordered()
	want := []int{3, 4, 5}
	if len(got) != len(want) {
		t.Fatalf("ordered() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("ordered()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

const sweepManifest = `{
  "location": "sweep0001",
  "kind": "td_cap",
  "loop": {"direction": {"x": "pos", "y": "pos"}},
  "arrays": {
    "height": {"unit": "um", "shape": [4], "file": "height.dat"},
    "cap":    {"unit": "fF", "shape": [4], "file": "cap.dat"}
  }
}`

func writeSweepFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestWatcherReadsAppendedRows(t *testing.T) {
	dir := t.TempDir()
	writeSweepFile(t, dir, "snapshot.json", sweepManifest)
	writeSweepFile(t, dir, "height.dat", "0\n1\n")
	writeSweepFile(t, dir, "cap.dat", "10\n11\n")

	w, err := NewWatcher(dir, "cap", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		row, err := w.ReadRow(ctx)
		if err != nil {
			t.Fatalf("ReadRow %d failed: %v", i, err)
		}
		want := Row{Index: i, X: float64(i), Y: float64(10 + i)}
		if row != want {
			t.Errorf("row %d = %+v, want %+v", i, row, want)
		}
	}

	// The sweep grows to its declared four rows.
	writeSweepFile(t, dir, "height.dat", "0\n1\n2\n3\n")
	writeSweepFile(t, dir, "cap.dat", "10\n11\n12\n13\n")

	for i := 2; i < 4; i++ {
		row, err := w.ReadRow(ctx)
		if err != nil {
			t.Fatalf("ReadRow %d failed: %v", i, err)
		}
		want := Row{Index: i, X: float64(i), Y: float64(10 + i)}
		if row != want {
			t.Errorf("row %d = %+v, want %+v", i, row, want)
		}
	}

	if _, err := w.ReadRow(ctx); err != io.EOF {
		t.Errorf("ReadRow after declared shape = %v, want io.EOF", err)
	}
}

func TestWatcherContextCanceled(t *testing.T) {
	dir := t.TempDir()
	writeSweepFile(t, dir, "snapshot.json", sweepManifest)
	// Data files intentionally absent: the sweep has not started.

	w, err := NewWatcher(dir, "cap", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if _, err := w.ReadRow(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("ReadRow = %v, want deadline exceeded", err)
	}
}

func TestWatcherPollsOnClock(t *testing.T) {
	dir := t.TempDir()
	writeSweepFile(t, dir, "snapshot.json", sweepManifest)

	w, err := NewWatcher(dir, "cap", time.Hour)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	clock := timeutil.NewMockClock(time.Now())
	w.clock = clock

	rows := make(chan Row, 1)
	go func() {
		row, err := w.ReadRow(context.Background())
		if err != nil {
			t.Errorf("ReadRow failed: %v", err)
			return
		}
		rows <- row
	}()

	// The first poll finds no data files and parks on the hour-long
	// timer, which only the mock clock can fire.
	writeSweepFile(t, dir, "height.dat", "0\n")
	writeSweepFile(t, dir, "cap.dat", "10\n")

	deadline := time.After(2 * time.Second)
	for {
		clock.Advance(time.Hour)
		select {
		case row := <-rows:
			want := Row{Index: 0, X: 0, Y: 10}
			if row != want {
				t.Errorf("row = %+v, want %+v", row, want)
			}
			return
		case <-deadline:
			t.Fatal("watcher never woke on the mock clock")
		case <-time.After(time.Millisecond):
		}
	}
}

func TestWatcherDefaultsToFirstDependent(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteTouchdownFixture(t, dir, "td0001")

	w, err := NewWatcher(filepath.Join(dir, "td0001"), "", 5*time.Millisecond)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	row, err := w.ReadRow(context.Background())
	if err != nil {
		t.Fatalf("ReadRow failed: %v", err)
	}
	if row.Y != 10 {
		t.Errorf("row.Y = %v, want 10 (cap array)", row.Y)
	}
}

func TestNewWatcherErrors(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteScanFixture(t, dir, "scan0001", "pos", "pos")
	scanDir := filepath.Join(dir, "scan0001")

	if _, err := NewWatcher(scanDir, "nope", time.Millisecond); err == nil {
		t.Error("expected error for unknown array")
	}
	if _, err := NewWatcher(scanDir, "mag", time.Millisecond); err == nil {
		t.Error("expected error for 2D array")
	}
	if _, err := NewWatcher(filepath.Join(dir, "missing"), "", time.Millisecond); err == nil {
		t.Error("expected error for missing dataset")
	}
}
