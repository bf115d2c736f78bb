package report

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"primegap/pkg/common"
)

// JSONL writes one JSON object per record.
type JSONL struct {
	enc *json.Encoder
}

func NewJSONL(w io.Writer) Reporter {
	return &JSONL{enc: json.NewEncoder(w)}
}

func (j *JSONL) Write(rec common.Record) error { return j.enc.Encode(rec) }
func (j *JSONL) Flush() error                  { return nil }

var csvHeader = []string{"index", "value", "regime", "raw", "predicted_gap", "actual_gap", "covered"}

type CSV struct {
	w           *csv.Writer
	wroteHeader bool
}

func NewCSV(w io.Writer) Reporter {
	return &CSV{w: csv.NewWriter(w)}
}

func (c *CSV) Write(rec common.Record) error {
	if !c.wroteHeader {
		if err := c.w.Write(csvHeader); err != nil {
			return err
		}
		c.wroteHeader = true
	}
	act := ""
	if rec.HasActual() {
		act = strconv.Itoa(rec.Actual)
	}
	return c.w.Write([]string{
		strconv.Itoa(rec.Index),
		strconv.FormatInt(rec.Value, 10),
		rec.Regime.String(),
		strconv.FormatFloat(rec.Raw, 'f', -1, 64),
		strconv.Itoa(rec.Predicted),
		act,
		strconv.FormatBool(rec.Covered),
	})
}

func (c *CSV) Flush() error {
	c.w.Flush()
	return c.w.Error()
}
