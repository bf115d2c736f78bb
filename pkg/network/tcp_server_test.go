package network

import (
	"bytes"
	"net"
	"testing"
	"time"

	"go.uber.org/goleak"
	"go.uber.org/zap"

	"primegap/pkg/common"
	"primegap/pkg/model"
	"primegap/pkg/monitor"
	"primegap/pkg/protocol"
)

func newServer(t *testing.T) *TCPServer {
	t.Helper()
	m, err := model.NewGapModel(model.SieveV2())
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	return NewTCPServer(m, monitor.NewPredictionStats(), zap.NewNop())
}

func TestDispatchPredict(t *testing.T) {
	s := newServer(t)
	var buf bytes.Buffer

	key, val := protocol.PredictRequest(400, 2753)
	if err := s.dispatch(&buf, &protocol.Packet{Op: protocol.OpPredict, Key: key, Value: val}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	resp, err := protocol.Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Op != protocol.RespVal {
		t.Fatalf("expected RespVal, got %#x (%s)", resp.Op, resp.Value)
	}
	p, err := protocol.DecodePrediction(resp.Value)
	if err != nil {
		t.Fatalf("decode prediction: %v", err)
	}
	if p.Gap != 60 || p.Regime != common.RegimeSieve {
		t.Errorf("unexpected prediction %+v", p)
	}
}

func TestDispatchErrors(t *testing.T) {
	s := newServer(t)
	tests := []struct {
		name string
		req  *protocol.Packet
		code byte
	}{
		{"value below two", func() *protocol.Packet {
			k, v := protocol.PredictRequest(1, 1)
			return &protocol.Packet{Op: protocol.OpPredict, Key: k, Value: v}
		}(), protocol.ErrCodeInvalidArgument},
		{"short payload", &protocol.Packet{Op: protocol.OpPredict, Key: []byte{1}}, protocol.ErrCodeInternal},
		{"unknown op", &protocol.Packet{Op: 0x7F}, protocol.ErrCodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := s.dispatch(&buf, tt.req); err != nil {
				t.Fatalf("dispatch: %v", err)
			}
			resp, err := protocol.Decode(&buf)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Op != protocol.RespErr || len(resp.Key) != 1 || resp.Key[0] != tt.code {
				t.Errorf("got op=%#x key=%v msg=%q", resp.Op, resp.Key, resp.Value)
			}
		})
	}
}

func TestServeAndClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	s := newServer(t)
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	done := make(chan error, 1)
	go func() { done <- s.Serve(l) }()

	conn, err := net.DialTimeout("tcp", l.Addr().String(), time.Second)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := protocol.Encode(conn, protocol.OpStats, nil, nil); err != nil {
		t.Fatalf("encode: %v", err)
	}
	resp, err := protocol.Decode(conn)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Op != protocol.RespVal || !bytes.Contains(resp.Value, []byte(`"coverage"`)) {
		t.Fatalf("unexpected stats response op=%#x body=%s", resp.Op, resp.Value)
	}
	if s.Addr() == nil {
		t.Error("Addr should be set while serving")
	}

	// Close must unblock Serve and the open connection's handler.
	s.Close()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Serve returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after Close")
	}
}

func TestMaxConns(t *testing.T) {
	s := newServer(t)
	s.SetMaxConns(1)
	done := make(chan error, 1)
	go func() { done <- s.Start("127.0.0.1:0") }()
	defer func() {
		s.Close()
		<-done
	}()

	var addr string
	for i := 0; i < 100 && addr == ""; i++ {
		if a := s.Addr(); a != nil {
			addr = a.String()
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if addr == "" {
		t.Fatal("server did not start")
	}

	stats := func(conn net.Conn, wait time.Duration) error {
		conn.SetDeadline(time.Now().Add(wait))
		if err := protocol.Encode(conn, protocol.OpStats, nil, nil); err != nil {
			return err
		}
		_, err := protocol.Decode(conn)
		return err
	}

	first, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial first: %v", err)
	}
	if err := stats(first, time.Second); err != nil {
		t.Fatalf("first connection: %v", err)
	}

	second, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial second: %v", err)
	}
	defer second.Close()
	if err := stats(second, 200*time.Millisecond); err == nil {
		t.Fatal("second connection served while the first still holds the only slot")
	}

	first.Close()
	second.SetDeadline(time.Now().Add(2 * time.Second))
	if _, err := protocol.Decode(second); err != nil {
		t.Fatalf("second connection not served after the slot freed: %v", err)
	}
}
