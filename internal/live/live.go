// Package live streams the rows of an in-progress 1D sweep to
// connected clients. A Watcher tails the sweep's array files and a
// Broadcaster fans the rows out to registered channels, replaying a
// bounded buffer of history to clients that connect late.
package live

import (
	"context"
	"io"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Row is one acquired point of a sweep. End marks the final message of
// a stream; Error carries the stream failure, if any.
type Row struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	End   bool    `json:"end,omitempty"`
	Error string  `json:"error,omitempty"`
}

// RowReader produces successive sweep rows. ReadRow blocks until a row
// is available, returns io.EOF when the sweep is complete, or returns
// ctx's error when the context ends first.
type RowReader interface {
	ReadRow(ctx context.Context) (Row, error)
}

// Broadcaster reads rows from a single input and fans them out to
// registered channels. A single mutex guards both the replay buffer and
// the channel list so a client registered mid-stream sees every row
// exactly once: history first, then live updates.
type Broadcaster struct {
	input RowReader

	mutex sync.Mutex
	wg    sync.WaitGroup

	// streamEnded releases err for concurrent readers; err must only be
	// read after it reports true.
	streamEnded atomic.Bool
	err         error

	// Channels must be buffered: a blocked channel blocks the fan-out.
	channels []chan<- Row

	buffer *ring[Row]

	rowsEmitted int

	logger logrus.FieldLogger
}

// NewBroadcaster wraps input with a replay buffer of bufferCapacity
// rows. Call Start to begin reading.
func NewBroadcaster(input RowReader, bufferCapacity int) *Broadcaster {
	return &Broadcaster{
		input:    input,
		channels: make([]chan<- Row, 0),
		buffer:   newRing[Row](bufferCapacity),
		logger:   logrus.WithField("tag", "live"),
	}
}

// Start launches the read loop. When the input ends, an End row is
// buffered and broadcast so both connected and future clients observe
// the stream close.
func (b *Broadcaster) Start(ctx context.Context) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		err := b.run(ctx)
		b.err = err
		b.streamEnded.Store(true)

		end := Row{End: true}
		if err != nil {
			end.Error = err.Error()
		}
		b.cacheAndBroadcast(end)

		logger := b.logger.WithField("rows", b.rowsEmitted)
		if err != nil {
			logger = logger.WithError(err)
		}
		logger.Info("live stream ended")
	}()
}

// Wait blocks until the read loop has finished.
func (b *Broadcaster) Wait() {
	b.wg.Wait()
}

// Ended reports whether the stream has finished.
func (b *Broadcaster) Ended() bool {
	return b.streamEnded.Load()
}

// Err returns the stream error. It is nil while the stream is running
// and after a clean end.
func (b *Broadcaster) Err() error {
	if !b.streamEnded.Load() {
		return nil
	}
	return b.err
}

// RegisterChannel replays the buffered history into c and then adds it
// to the fan-out. c must have capacity for the full replay buffer. The
// replay happens under the broadcaster lock so no row falls between the
// history and the live updates.
func (b *Broadcaster) RegisterChannel(c chan<- Row) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	for _, row := range b.buffer.ordered() {
		c <- row
	}
	b.channels = append(b.channels, c)
	b.logger.WithField("channels", len(b.channels)).Info("registered live channel")
}

// DeregisterChannel removes c from the fan-out. The caller must not
// close c before this returns, or a concurrent broadcast may panic.
func (b *Broadcaster) DeregisterChannel(c chan<- Row) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	keep := make([]chan<- Row, 0, len(b.channels))
	for _, ch := range b.channels {
		if ch != c {
			keep = append(keep, ch)
		}
	}
	b.channels = keep
	b.logger.WithField("channels", len(b.channels)).Info("deregistered live channel")
}

func (b *Broadcaster) run(ctx context.Context) error {
	for {
		row, err := b.input.ReadRow(ctx)
		if err == io.EOF {
			// Sweep complete. Channels stay registered so the buffered
			// history remains replayable to late clients.
			return nil
		}
		if err != nil {
			return err
		}
		b.cacheAndBroadcast(row)
	}
}

func (b *Broadcaster) cacheAndBroadcast(row Row) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if !row.End {
		b.rowsEmitted++
	}
	b.buffer.push(row)
	for _, c := range b.channels {
		c <- row
	}
}
