package report

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"primegap/pkg/common"
)

var sample = []common.Record{
	{Index: 5, Value: 11, Predicted: 8, Actual: 2, Regime: common.RegimeSieve, Raw: 8.1918, Covered: true},
	{Index: 429, Value: 2971, Predicted: 22, Actual: 28, Regime: common.RegimeEntropy, Raw: 22.4},
	{Index: 1000, Value: 7919, Predicted: 26, Regime: common.RegimeEntropy, Raw: 27.86},
}

func writeAll(t *testing.T, r Reporter) {
	t.Helper()
	for _, rec := range sample {
		if err := r.Write(rec); err != nil {
			t.Fatalf("write %s: %v", rec.String(), err)
		}
	}
	if err := r.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
}

func TestRegistry(t *testing.T) {
	if diff := cmp.Diff([]string{"csv", "jsonl", "text"}, Formats()); diff != "" {
		t.Fatalf("formats mismatch (-want +got):\n%s", diff)
	}
	if _, err := New("xml", &bytes.Buffer{}); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestJSONLRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	r, err := New("jsonl", &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	writeAll(t, r)

	var got []common.Record
	sc := bufio.NewScanner(&buf)
	for sc.Scan() {
		var rec common.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			t.Fatalf("decode %q: %v", sc.Text(), err)
		}
		got = append(got, rec)
	}
	if diff := cmp.Diff(sample, got); diff != "" {
		t.Fatalf("jsonl mismatch (-want +got):\n%s", diff)
	}
}

func TestJSONLOmitsUnknownActual(t *testing.T) {
	var buf bytes.Buffer
	r := NewJSONL(&buf)
	if err := r.Write(sample[2]); err != nil {
		t.Fatalf("write: %v", err)
	}
	line := buf.String()
	if strings.Contains(line, "actual_gap") {
		t.Errorf("unknown actual gap should be omitted: %s", line)
	}
	if !strings.Contains(line, `"regime":"Entropy"`) {
		t.Errorf("regime should be encoded by name: %s", line)
	}
}

func TestCSV(t *testing.T) {
	var buf bytes.Buffer
	r, _ := New("csv", &buf)
	writeAll(t, r)

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header + 3 rows, got %d", len(rows))
	}
	if diff := cmp.Diff(csvHeader, rows[0]); diff != "" {
		t.Errorf("header mismatch (-want +got):\n%s", diff)
	}
	want := []string{"429", "2971", "Entropy", "22.4", "22", "28", "false"}
	if diff := cmp.Diff(want, rows[2]); diff != "" {
		t.Errorf("row mismatch (-want +got):\n%s", diff)
	}
	if rows[3][5] != "" {
		t.Errorf("unknown actual should be empty, got %q", rows[3][5])
	}
}

func TestTextTable(t *testing.T) {
	var buf bytes.Buffer
	r, _ := New("text", &buf)
	writeAll(t, r)

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 5 {
		t.Fatalf("expected header, rule and 3 rows, got %d lines:\n%s", len(lines), out)
	}
	for _, want := range []string{"Index", "Predicted", "P_429", "2971", "FAIL", "PASS", "N/A", "Entropy", "8.1918"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	if err := r.Flush(); err != nil {
		t.Fatalf("second flush: %v", err)
	}
	if buf.Len() != 0 {
		t.Errorf("flush without rows should write nothing, got %q", buf.String())
	}
}
