package report

import (
	"fmt"
	"io"
	"sort"

	"primegap/pkg/common"
)

type Reporter interface {
	Write(rec common.Record) error
	Flush() error
}

type Factory func(w io.Writer) Reporter

var factories = map[string]Factory{}

// Register adds or replaces the reporter for format.
func Register(format string, f Factory) { factories[format] = f }

func New(format string, w io.Writer) (Reporter, error) {
	f, ok := factories[format]
	if !ok {
		return nil, fmt.Errorf("unknown report format %q (have %v)", format, Formats())
	}
	return f(w), nil
}

func Formats() []string {
	out := make([]string, 0, len(factories))
	for name := range factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register("text", NewText)
	Register("jsonl", NewJSONL)
	Register("csv", NewCSV)
}

func check(rec common.Record) string {
	switch {
	case !rec.HasActual():
		return "-"
	case rec.Covered:
		return "PASS"
	default:
		return "FAIL"
	}
}

func actual(rec common.Record) string {
	if !rec.HasActual() {
		return "N/A"
	}
	return fmt.Sprintf("%d", rec.Actual)
}
