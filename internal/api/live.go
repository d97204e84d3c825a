package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/loganbvh/ssm-analyze/internal/catalog"
	"github.com/loganbvh/ssm-analyze/internal/httputil"
	"github.com/loganbvh/ssm-analyze/internal/live"
)

// liveBufferSize bounds both the replay ring and each client's send
// queue. The queue must hold a full replay so registration cannot block.
const liveBufferSize = 10000

// liveBroadcaster returns the broadcaster streaming the given array of
// the dataset, starting one on first use. Streams run on a background
// context: they outlive any single client and end when the sweep
// reaches its declared length.
func (s *Server) liveBroadcaster(entry catalog.Entry, array string) (*live.Broadcaster, error) {
	key := entry.ID + "/" + array

	s.liveMu.Lock()
	defer s.liveMu.Unlock()

	if b, ok := s.live[key]; ok {
		return b, nil
	}
	watcher, err := live.NewWatcher(entry.Path, array, s.cfg.GetLivePollInterval())
	if err != nil {
		return nil, err
	}
	b := live.NewBroadcaster(watcher, liveBufferSize)
	b.Start(context.Background())
	s.live[key] = b
	s.logger.Infof("started live stream for %s array=%q", entry.Location, array)
	return b, nil
}

func (s *Server) liveHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/live/")
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

	b, err := s.liveBroadcaster(entry, r.URL.Query().Get("array"))
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.logger.WithError(err).Warn("failed to accept new websocket connection")
		return
	}

	// Write-only socket: reads are discarded and cancel ctx on close.
	ctx := c.CloseRead(r.Context())

	channel := make(chan live.Row, liveBufferSize)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case row, open := <-channel:
				if !open {
					c.Close(websocket.StatusNormalClosure, "channel closed")
					return
				}
				if err := wsjson.Write(ctx, c, row); err != nil {
					s.logger.Warn("websocket write failed and closed")
					return
				}
				if row.End {
					c.Close(websocket.StatusNormalClosure, "stream ended")
					return
				}
			case <-ctx.Done():
				c.Close(websocket.StatusNormalClosure, "")
				return
			}
		}
	}()

	// The writer goroutine is already draining the channel, so the replay
	// performed during registration cannot fill it.
	b.RegisterChannel(channel)

	wg.Wait()
	b.DeregisterChannel(channel)
	close(channel)
}
