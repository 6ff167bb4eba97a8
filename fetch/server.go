package fetch

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	tmjson "github.com/tendermint/tendermint/libs/json"
	"github.com/tendermint/tendermint/libs/log"

	"dexbft/types"
)

// BlockSource answers a fetch request with the full block for hash, if
// this replica happens to hold it.
type BlockSource func(hash types.Hash) (*types.Block, bool)

// Server is the WSWorker's counterpart: it accepts the websocket
// connections WSWorker dials, reads each requested hash, and writes
// back the matching block when BlockSource has one. A miss is silent;
// the requester's BlockFetchManager simply stays outstanding until
// another peer answers.
type Server struct {
	source   BlockSource
	logger   log.Logger
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// NewServer builds a fetch server that answers requests from source.
func NewServer(source BlockSource, logger log.Logger) *Server {
	return &Server{
		source: source,
		logger: logger,
	}
}

// Listen starts serving websocket fetch connections on addr in the
// background. Call Close to shut it down.
func (s *Server) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/fetch", s.handle)
	s.httpServer = &http.Server{Handler: mux}
	go func() {
		if err := s.httpServer.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Error("fetch server: serve failed", "err", err)
		}
	}()
	return nil
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("fetch server: upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		hash, ok := types.HashFromBytes(msg)
		if !ok {
			s.logger.Error("fetch server: malformed request", "len", len(msg))
			continue
		}
		block, ok := s.source(hash)
		if !ok {
			continue
		}
		bz, err := tmjson.Marshal(block)
		if err != nil {
			s.logger.Error("fetch server: marshal block failed", "err", err)
			continue
		}
		if err := conn.WriteMessage(websocket.BinaryMessage, bz); err != nil {
			return
		}
	}
}

// Close shuts the server down, releasing its listener within a
// five-second grace period.
func (s *Server) Close() error {
	if s.httpServer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
