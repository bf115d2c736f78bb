package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"primegap/pkg/common"
	"primegap/pkg/model"
)

const (
	MagicNumber = 0x50

	OpPredict     = 0x01
	OpStats       = 0x02
	OpCalibration = 0x03

	RespOK  = 0x00
	RespErr = 0xFF
	RespVal = 0x01

	// RespErr carries one of these in Key[0] and the message in Value.
	ErrCodeInternal        = 0x00
	ErrCodeInvalidArgument = 0x01

	// MaxValueLen bounds a frame body so a corrupt header cannot force a huge allocation.
	MaxValueLen = 1 << 20
)

var ErrFrameTooLarge = errors.New("frame too large")

type Packet struct {
	Op    byte
	Key   []byte
	Value []byte
}

func Encode(w io.Writer, op byte, key []byte, value []byte) error {
	if len(key) > math.MaxUint16 || len(value) > MaxValueLen {
		return ErrFrameTooLarge
	}
	header := make([]byte, 8)
	header[0] = MagicNumber
	header[1] = op
	binary.BigEndian.PutUint16(header[2:4], uint16(len(key)))
	binary.BigEndian.PutUint32(header[4:8], uint32(len(value)))

	if _, err := w.Write(header); err != nil {
		return err
	}
	if len(key) > 0 {
		if _, err := w.Write(key); err != nil {
			return err
		}
	}
	if len(value) > 0 {
		if _, err := w.Write(value); err != nil {
			return err
		}
	}
	return nil
}

func Decode(r io.Reader) (*Packet, error) {
	header := make([]byte, 8)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, err
	}

	if header[0] != MagicNumber {
		return nil, errors.New("invalid magic number")
	}

	op := header[1]
	kLen := binary.BigEndian.Uint16(header[2:4])
	vLen := binary.BigEndian.Uint32(header[4:8])
	if vLen > MaxValueLen {
		return nil, ErrFrameTooLarge
	}

	key := make([]byte, kLen)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, err
	}

	val := make([]byte, vLen)
	if _, err := io.ReadFull(r, val); err != nil {
		return nil, err
	}

	return &Packet{Op: op, Key: key, Value: val}, nil
}

// PredictRequest: Key = index (8B), Value = prime (8B), both big endian.
func PredictRequest(index int, value int64) (key, val []byte) {
	key = make([]byte, 8)
	val = make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(int64(index)))
	binary.BigEndian.PutUint64(val, uint64(value))
	return key, val
}

func ParsePredictRequest(p *Packet) (common.PrimeObservation, error) {
	if len(p.Key) != 8 || len(p.Value) != 8 {
		return common.PrimeObservation{}, fmt.Errorf("predict request: want 8+8 bytes, got %d+%d", len(p.Key), len(p.Value))
	}
	idx := int64(binary.BigEndian.Uint64(p.Key))
	if idx > math.MaxInt || idx < math.MinInt {
		return common.PrimeObservation{}, fmt.Errorf("%w: index %d out of range", model.ErrInvalidArgument, idx)
	}
	return common.PrimeObservation{
		Index: int(idx),
		Value: int64(binary.BigEndian.Uint64(p.Value)),
	}, nil
}

// EncodePrediction: [Gap 8B] + [Regime 1B] + [Raw float64 bits 8B]
func EncodePrediction(p model.GapPrediction) []byte {
	buf := make([]byte, 17)
	binary.BigEndian.PutUint64(buf[0:8], uint64(int64(p.Gap)))
	buf[8] = byte(p.Regime)
	binary.BigEndian.PutUint64(buf[9:17], math.Float64bits(p.Raw))
	return buf
}

func DecodePrediction(b []byte) (model.GapPrediction, error) {
	if len(b) != 17 {
		return model.GapPrediction{}, fmt.Errorf("prediction payload: want 17 bytes, got %d", len(b))
	}
	return model.GapPrediction{
		Gap:    int(int64(binary.BigEndian.Uint64(b[0:8]))),
		Regime: common.Regime(b[8]),
		Raw:    math.Float64frombits(binary.BigEndian.Uint64(b[9:17])),
	}, nil
}
