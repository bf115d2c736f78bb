package common

import "fmt"

// Regime 区分两种预测公式分支
type Regime uint8

const (
	RegimeSieve   Regime = 1 // low density, small index
	RegimeEntropy Regime = 2 // high density, large index
)

func (r Regime) String() string {
	switch r {
	case RegimeSieve:
		return "Sieve"
	case RegimeEntropy:
		return "Entropy"
	default:
		return "Unknown"
	}
}

// ParseRegime 是 String 的逆操作，大小写敏感
func ParseRegime(s string) (Regime, error) {
	switch s {
	case "Sieve":
		return RegimeSieve, nil
	case "Entropy":
		return RegimeEntropy, nil
	}
	return 0, fmt.Errorf("unknown regime %q", s)
}

func (r Regime) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r *Regime) UnmarshalText(b []byte) error {
	v, err := ParseRegime(string(b))
	if err != nil {
		return err
	}
	*r = v
	return nil
}

// PrimeObservation 是素数序列中的一个点 (1-based index, prime value)
type PrimeObservation struct {
	Index int
	Value int64
}

func (o PrimeObservation) String() string {
	return fmt.Sprintf("P_%d=%d", o.Index, o.Value)
}

// Record 是 survey 输出的一行，交给 reporter 和 run log
type Record struct {
	Index     int     `json:"index"`
	Value     int64   `json:"value"`
	Predicted int     `json:"predicted_gap"`
	Actual    int     `json:"actual_gap,omitempty"` // 0 = unknown (last prime of a finite source)
	Regime    Regime  `json:"regime"`
	Raw       float64 `json:"raw"`
	Covered   bool    `json:"covered"`
}

// HasActual 报告该记录是否有已知的真实间隔
func (r *Record) HasActual() bool {
	return r.Actual > 0
}

func (r *Record) String() string {
	return fmt.Sprintf("Record{P_%d=%d, Pred: %d, Actual: %d, %s}", r.Index, r.Value, r.Predicted, r.Actual, r.Regime)
}
