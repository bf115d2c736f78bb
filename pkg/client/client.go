package client

import (
	"encoding/json"
	"errors"
	"net"
	"time"

	"primegap/pkg/model"
	"primegap/pkg/monitor"
	"primegap/pkg/protocol"
)

const dialTimeout = 5 * time.Second

type Client struct {
	conn net.Conn
	addr string
}

func Dial(addr string) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, err
	}
	return &Client{
		conn: conn,
		addr: addr,
	}, nil
}

// RemoteError is a RespErr frame. errors.Is(err, model.ErrInvalidArgument)
// holds when the server rejected the input.
type RemoteError struct {
	Code    byte
	Message string
}

func (e *RemoteError) Error() string { return e.Message }

func (e *RemoteError) Is(target error) bool {
	return target == model.ErrInvalidArgument && e.Code == protocol.ErrCodeInvalidArgument
}

func (c *Client) Predict(index int, value int64) (model.GapPrediction, error) {
	key, val := protocol.PredictRequest(index, value)
	data, err := c.call(protocol.OpPredict, key, val)
	if err != nil {
		return model.GapPrediction{}, err
	}
	return protocol.DecodePrediction(data)
}

func (c *Client) Stats() (monitor.Snapshot, error) {
	var snap monitor.Snapshot
	data, err := c.call(protocol.OpStats, nil, nil)
	if err != nil {
		return snap, err
	}
	err = json.Unmarshal(data, &snap)
	return snap, err
}

func (c *Client) Calibration() (model.Calibration, error) {
	var cal model.Calibration
	data, err := c.call(protocol.OpCalibration, nil, nil)
	if err != nil {
		return cal, err
	}
	err = json.Unmarshal(data, &cal)
	return cal, err
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// call sends one request; a broken connection is redialled and the request sent once more.
func (c *Client) call(op byte, key, val []byte) ([]byte, error) {
	pkg, err := c.roundTrip(op, key, val)
	if err != nil {
		if rerr := c.reconnect(); rerr != nil {
			return nil, rerr
		}
		if pkg, err = c.roundTrip(op, key, val); err != nil {
			return nil, err
		}
	}

	switch pkg.Op {
	case protocol.RespVal, protocol.RespOK:
		return pkg.Value, nil
	case protocol.RespErr:
		rerr := &RemoteError{Code: protocol.ErrCodeInternal, Message: string(pkg.Value)}
		if len(pkg.Key) > 0 {
			rerr.Code = pkg.Key[0]
		}
		return nil, rerr
	default:
		return nil, errors.New("unknown response")
	}
}

func (c *Client) roundTrip(op byte, key, val []byte) (*protocol.Packet, error) {
	if err := protocol.Encode(c.conn, op, key, val); err != nil {
		return nil, err
	}
	return protocol.Decode(c.conn)
}

func (c *Client) reconnect() error {
	c.conn.Close()
	conn, err := net.DialTimeout("tcp", c.addr, dialTimeout)
	if err != nil {
		return err
	}
	c.conn = conn
	return nil
}
