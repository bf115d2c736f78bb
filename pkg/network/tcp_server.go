package network

import (
	"encoding/json"
	"errors"
	"io"
	"net"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	"primegap/pkg/model"
	"primegap/pkg/monitor"
	"primegap/pkg/protocol"
)

type TCPServer struct {
	predictor model.Predictor
	stats     *monitor.PredictionStats
	logger    *zap.Logger
	maxConns  int

	mu       sync.Mutex
	listener net.Listener
	conns    map[net.Conn]struct{}
	closed   bool
	wg       sync.WaitGroup
}

func NewTCPServer(p model.Predictor, stats *monitor.PredictionStats, logger *zap.Logger) *TCPServer {
	if stats == nil {
		stats = monitor.NewPredictionStats()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TCPServer{
		predictor: p,
		stats:     stats,
		logger:    logger,
		conns:     make(map[net.Conn]struct{}),
	}
}

// SetMaxConns caps concurrently served connections; n <= 0 means no cap.
// Must be called before Start.
func (s *TCPServer) SetMaxConns(n int) {
	s.maxConns = n
}

func (s *TCPServer) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if s.maxConns > 0 {
		listener = netutil.LimitListener(listener, s.maxConns)
	}
	return s.Serve(listener)
}

// Serve accepts connections until Close is called, then returns nil.
func (s *TCPServer) Serve(listener net.Listener) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		listener.Close()
		return nil
	}
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("listening (binary protocol)", zap.String("addr", listener.Addr().String()))

	for {
		conn, err := listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept error", zap.Error(err))
			continue
		}
		if !s.track(conn) {
			conn.Close()
			return nil
		}
		s.wg.Add(1)
		go s.handleConn(conn)
	}
}

func (s *TCPServer) track(conn net.Conn) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	s.conns[conn] = struct{}{}
	return true
}

func (s *TCPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Close stops accepting, drops open connections and waits for their handlers.
func (s *TCPServer) Close() error {
	s.mu.Lock()
	s.closed = true
	var err error
	if s.listener != nil {
		err = s.listener.Close()
	}
	for conn := range s.conns {
		conn.Close()
	}
	s.mu.Unlock()

	s.wg.Wait()
	return err
}

func (s *TCPServer) handleConn(conn net.Conn) {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		delete(s.conns, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		req, err := protocol.Decode(conn)
		if err != nil {
			if err != io.EOF && !errors.Is(err, net.ErrClosed) {
				s.logger.Debug("decode error", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			}
			return
		}

		if err := s.dispatch(conn, req); err != nil {
			s.logger.Debug("write error", zap.Error(err))
			return
		}
	}
}

func (s *TCPServer) dispatch(w io.Writer, req *protocol.Packet) error {
	switch req.Op {
	case protocol.OpPredict:
		obs, err := protocol.ParsePredictRequest(req)
		if err != nil {
			s.stats.RecordInvalid()
			return writeErr(w, err)
		}
		pred, err := s.predictor.Observe(obs)
		if err != nil {
			s.stats.RecordInvalid()
			return writeErr(w, err)
		}
		s.stats.RecordPrediction(pred.Regime)
		return protocol.Encode(w, protocol.RespVal, nil, protocol.EncodePrediction(pred))

	case protocol.OpStats:
		data, err := json.Marshal(s.stats.Snapshot())
		if err != nil {
			return writeErr(w, err)
		}
		return protocol.Encode(w, protocol.RespVal, nil, data)

	case protocol.OpCalibration:
		data, err := json.Marshal(s.predictor.Calibration())
		if err != nil {
			return writeErr(w, err)
		}
		return protocol.Encode(w, protocol.RespVal, nil, data)

	default:
		return protocol.Encode(w, protocol.RespErr, []byte{protocol.ErrCodeInternal}, []byte("unknown op"))
	}
}

func writeErr(w io.Writer, err error) error {
	code := byte(protocol.ErrCodeInternal)
	if errors.Is(err, model.ErrInvalidArgument) {
		code = protocol.ErrCodeInvalidArgument
	}
	return protocol.Encode(w, protocol.RespErr, []byte{code}, []byte(err.Error()))
}
