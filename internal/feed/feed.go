// Package feed is the market data sink (spec.md §6): a tick/quote source
// that feeds Thread M's bar aggregator, over either a live websocket
// connection or a historical replay sequence.
package feed

import "github.com/themirrorplatform/trading-bot-sub000/internal/bar"

// Message is one unit handed to the aggregator: exactly one of Tick or
// Quote is non-nil.
type Message struct {
	Tick  *bar.Tick
	Quote *bar.Quote
}

// Feed produces a stream of Messages on Out until Close is called or the
// underlying source ends. Out is closed when the feed stops producing.
type Feed interface {
	Out() <-chan Message
	Errs() <-chan error
	Close() error
}
