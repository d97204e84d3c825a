package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/loganbvh/ssm-analyze/internal/catalog"
	"github.com/loganbvh/ssm-analyze/internal/live"
	"github.com/loganbvh/ssm-analyze/internal/testutil"
)

func TestLiveHandlerStreamsRows(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.ServeMux())
	defer ts.Close()

	id := catalog.ID("tds/td0001")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live/" + id + "?array=cap"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	var rows []live.Row
	for {
		var row live.Row
		if err := wsjson.Read(ctx, conn, &row); err != nil {
			t.Fatalf("read failed after %d rows: %v", len(rows), err)
		}
		if row.End {
			if row.Error != "" {
				t.Errorf("stream ended with error %q", row.Error)
			}
			break
		}
		rows = append(rows, row)
	}

	if len(rows) != 4 {
		t.Fatalf("streamed %d rows, want 4", len(rows))
	}
	for i, row := range rows {
		want := live.Row{Index: i, X: float64(i), Y: float64(10 + i)}
		if row != want {
			t.Errorf("row %d = %+v, want %+v", i, row, want)
		}
	}
}

func TestLiveHandlerReplaysToSecondClient(t *testing.T) {
	server := setupTestServer(t)
	ts := httptest.NewServer(server.ServeMux())
	defer ts.Close()

	id := catalog.ID("tds/td0001")
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/live/" + id + "?array=cap"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	readAll := func() int {
		conn, _, err := websocket.Dial(ctx, url, nil)
		if err != nil {
			t.Fatalf("Dial failed: %v", err)
		}
		defer conn.Close(websocket.StatusNormalClosure, "")
		n := 0
		for {
			var row live.Row
			if err := wsjson.Read(ctx, conn, &row); err != nil {
				t.Fatalf("read failed: %v", err)
			}
			if row.End {
				return n
			}
			n++
		}
	}

	if n := readAll(); n != 4 {
		t.Errorf("first client got %d rows, want 4", n)
	}
	// The stream has ended; a second client replays the buffered rows.
	if n := readAll(); n != 4 {
		t.Errorf("second client got %d rows, want 4", n)
	}
}

func TestLiveHandlerErrors(t *testing.T) {
	server := setupTestServer(t)
	id := catalog.ID("tds/td0001")

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"unknown_dataset", "/live/00000000-0000-0000-0000-000000000000", http.StatusNotFound},
		{"bad_id", "/live/a/b", http.StatusBadRequest},
		{"unknown_array", "/live/" + id + "?array=nope", http.StatusBadRequest},
		{"2d_array", "/live/" + catalog.ID("scans/scan0001") + "?array=mag", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := testutil.NewTestRequest(http.MethodGet, tt.path)
			w := testutil.NewTestRecorder()

			server.liveHandler(w, req)

			testutil.AssertStatusCode(t, w.Code, tt.status)
		})
	}
}
