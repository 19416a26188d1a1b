package handlers

import (
	"bytes"
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"go.uber.org/zap"

	"github.com/cymbal-labs/searchdemo/internal/assets/web"
	"github.com/cymbal-labs/searchdemo/internal/metrics"
	"github.com/cymbal-labs/searchdemo/internal/observability"
	"github.com/cymbal-labs/searchdemo/internal/state"
)

const liveWriteTimeout = 10 * time.Second

// LiveMessage is pushed to the page over the websocket.
type LiveMessage struct {
	Type string `json:"type"`
	HTML string `json:"html,omitempty"`
	Busy bool   `json:"busy"`
}

// Live pushes re-rendered results and busy changes to a connected tab.
type Live struct {
	UI             *UI
	OriginPatterns []string

	clients atomic.Int64
}

// ServeHTTP upgrades the request and streams updates until the page goes away.
func (l *Live) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	session, ok := l.UI.session(w, r, r.URL.Query().Get("tab"))
	if !ok {
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: l.OriginPatterns})
	if err != nil {
		// Accept has already written the failure response.
		return
	}
	defer conn.CloseNow() // nolint:errcheck // best-effort cleanup

	metrics.SetLiveClients(l.clients.Add(1))
	defer func() { metrics.SetLiveClients(l.clients.Add(-1)) }()

	ctx := conn.CloseRead(r.Context())

	// Observers run inside store and form setters, so they only flag work.
	results := make(chan struct{}, 1)
	busy := make(chan struct{}, 1)
	signal := func(ch chan struct{}) {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	unsubscribe := session.Store.SubscribeResponse(func(state.Snapshot) { signal(results) })
	defer unsubscribe()
	unsubscribeBusy := session.Form.SubscribeBusy(func(bool) { signal(busy) })
	defer unsubscribeBusy()

	signal(results)
	signal(busy)

	for {
		var msg LiveMessage
		select {
		case <-ctx.Done():
			return
		case <-results:
			var buf bytes.Buffer
			if err := web.RenderResults(&buf, session.View()); err != nil {
				logLive("failed to render live results", session.ID, err)
				continue
			}
			msg = LiveMessage{Type: "results", HTML: buf.String()}
		case <-busy:
			msg = LiveMessage{Type: "busy", Busy: session.Form.Busy()}
		}

		if err := write(ctx, conn, msg); err != nil {
			logLive("live channel write failed", session.ID, err)
			return
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, msg LiveMessage) error {
	ctx, cancel := context.WithTimeout(ctx, liveWriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, msg)
}

func logLive(msg, tab string, err error) {
	if observability.ServerLogger != nil {
		observability.ServerLogger.Debug(msg, zap.String("tab", tab), zap.Error(err))
	}
}
