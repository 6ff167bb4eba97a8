package fetch

import (
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/log"

	"dexbft/types"
)

// Worker issues the actual network fetch request for a hash to one
// peer. Its retry policy is out of the core's scope: the core only
// needs the context to stay alive until delivery, however long that
// takes.
type Worker interface {
	// AddRequest asks the worker to fetch hash from its peer. May
	// block boundedly on the worker's inbound queue.
	AddRequest(hash types.Hash)
}

// ChanWorker is a minimal channel-backed Worker, used in tests: it
// just records requested hashes on a buffered channel for a caller (or
// a test) to drain.
type ChanWorker struct {
	Requests chan types.Hash
}

// NewChanWorker creates a ChanWorker with the given inbound buffer
// size.
func NewChanWorker(buffer int) *ChanWorker {
	return &ChanWorker{Requests: make(chan types.Hash, buffer)}
}

func (w *ChanWorker) AddRequest(hash types.Hash) {
	w.Requests <- hash
}

// WSWorker dispatches fetch requests over a websocket connection to a
// single peer replica's fetch endpoint. gorilla/websocket is a direct
// teacher dependency that the teacher itself only exercises from
// tools/rpc_test; this is the component that gives it a real,
// exercised home inside the core (see SPEC_FULL.md §4.C).
//
// The wire format is intentionally minimal: each request is the raw
// 32-byte hash. A production deployment would authenticate and
// version this; that is explicitly out of scope here (SPEC_FULL.md
// §11).
type WSWorker struct {
	peerURL string
	logger  log.Logger
	onBlock func(*types.Block)

	conn *websocket.Conn
}

// NewWSWorker builds a worker that dials peerURL lazily, on the first
// AddRequest call. onBlock is invoked, off the caller's goroutine, for
// every block the peer's fetch.Server answers with.
func NewWSWorker(peerURL string, onBlock func(*types.Block), logger log.Logger) *WSWorker {
	return &WSWorker{peerURL: peerURL, onBlock: onBlock, logger: logger}
}

func (w *WSWorker) AddRequest(hash types.Hash) {
	conn, err := w.dial()
	if err != nil {
		w.logger.Error("fetch worker: dial failed", "peer", w.peerURL, "err", err)
		return
	}
	if err := conn.WriteMessage(websocket.BinaryMessage, hash.Bytes()); err != nil {
		w.logger.Error("fetch worker: write failed", "peer", w.peerURL, "err", err)
		w.conn = nil
		conn.Close()
	}
}

func (w *WSWorker) dial() (*websocket.Conn, error) {
	if w.conn != nil {
		return w.conn, nil
	}
	u, err := url.Parse(w.peerURL)
	if err != nil {
		return nil, err
	}
	dialer := &websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(u.String(), nil)
	if err != nil {
		return nil, err
	}
	w.conn = conn
	go w.readLoop(conn)
	return conn, nil
}

// readLoop drains responses from the peer for as long as the
// connection lives, handing each decoded block to onBlock.
func (w *WSWorker) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var block types.Block
		if err := tmjson.Unmarshal(msg, &block); err != nil {
			w.logger.Error("fetch worker: decode block failed", "err", err)
			continue
		}
		if w.onBlock != nil {
			w.onBlock(&block)
		}
	}
}

// Close releases the underlying connection, if any.
func (w *WSWorker) Close() error {
	if w.conn == nil {
		return nil
	}
	err := w.conn.Close()
	w.conn = nil
	return err
}
