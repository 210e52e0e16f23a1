package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/themirrorplatform/trading-bot-sub000/internal/bar"
)

// wireMessage is the venue-agnostic tick/quote envelope this package reads
// off the websocket. A real venue's own wire format is translated into
// this shape upstream of the dial loop (out of scope here, spec.md §1
// "broker adapters' wire protocols").
type wireMessage struct {
	Type      string  `json:"type"` // "trade" or "quote"
	Timestamp int64   `json:"ts"`   // unix nanoseconds
	Price     float64 `json:"price"`
	Size      float64 `json:"size"`
	Bid       float64 `json:"bid"`
	Ask       float64 `json:"ask"`
}

const (
	readDeadline  = 30 * time.Second
	redialBackoff = 2 * time.Second
)

// WebSocketFeed streams ticks/quotes from a live venue websocket,
// reconnecting with a fixed backoff on any read/dial error (grounded on
// exchanges/binance/book.go's run() loop: dial, set a read deadline and
// pong handler, read until error, sleep, redial).
type WebSocketFeed struct {
	url string

	out  chan Message
	errs chan error

	closeOnce sync.Once
	done      chan struct{}
}

// NewWebSocketFeed starts streaming from url in a background goroutine.
// Close stops it.
func NewWebSocketFeed(url string) *WebSocketFeed {
	f := &WebSocketFeed{
		url:  url,
		out:  make(chan Message, 256),
		errs: make(chan error, 16),
		done: make(chan struct{}),
	}
	go f.run()
	return f
}

func (f *WebSocketFeed) Out() <-chan Message { return f.out }
func (f *WebSocketFeed) Errs() <-chan error  { return f.errs }

func (f *WebSocketFeed) Close() error {
	f.closeOnce.Do(func() { close(f.done) })
	return nil
}

func (f *WebSocketFeed) run() {
	defer close(f.out)

	for {
		select {
		case <-f.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
		if err != nil {
			f.reportErr(fmt.Errorf("feed: dial: %w", err))
			if f.sleepOrDone(redialBackoff) {
				return
			}
			continue
		}

		f.readLoop(conn)
		_ = conn.Close()

		if f.sleepOrDone(redialBackoff) {
			return
		}
	}
}

func (f *WebSocketFeed) readLoop(conn *websocket.Conn) {
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		select {
		case <-f.done:
			return
		default:
		}

		_, raw, err := conn.ReadMessage()
		if err != nil {
			f.reportErr(fmt.Errorf("feed: read: %w", err))
			return
		}

		var wm wireMessage
		if err := json.Unmarshal(raw, &wm); err != nil {
			log.Warn().Err(err).Msg("feed: dropping unparseable message")
			continue
		}

		msg, ok := toMessage(wm)
		if !ok {
			continue
		}

		select {
		case f.out <- msg:
		case <-f.done:
			return
		}
	}
}

func toMessage(wm wireMessage) (Message, bool) {
	ts := time.Unix(0, wm.Timestamp).UTC()
	switch wm.Type {
	case "trade":
		return Message{Tick: &bar.Tick{Timestamp: ts, Price: wm.Price, Size: wm.Size}}, true
	case "quote":
		return Message{Quote: &bar.Quote{Timestamp: ts, Bid: wm.Bid, Ask: wm.Ask}}, true
	default:
		return Message{}, false
	}
}

func (f *WebSocketFeed) reportErr(err error) {
	select {
	case f.errs <- err:
	default:
		log.Warn().Err(err).Msg("feed: error channel full, dropping")
	}
}

// sleepOrDone waits d or returns true early if Close was called.
func (f *WebSocketFeed) sleepOrDone(d time.Duration) bool {
	select {
	case <-f.done:
		return true
	case <-time.After(d):
		return false
	}
}
