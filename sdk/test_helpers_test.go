package voxa

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/websocket"
)

// newSpeechWebsocketTestServer serves one websocket path, handing each
// connection to handler.
func newSpeechWebsocketTestServer(t *testing.T, path string, handler func(conn *websocket.Conn)) (string, func()) {
	t.Helper()

	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != path {
			http.NotFound(w, r)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		handler(conn)
	}))

	return server.URL, server.Close
}

// readFramesUntilEndOfStream reads decoded JSON frames from conn until an
// end_of_stream envelope arrives, returning everything read before it.
func readFramesUntilEndOfStream(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()
	var frames []map[string]any
	for {
		var frame map[string]any
		if err := conn.ReadJSON(&frame); err != nil {
			t.Logf("read frame: %v", err)
			return frames
		}
		if frame["type"] == "end_of_stream" {
			return frames
		}
		frames = append(frames, frame)
	}
}
