package perf

import (
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	"stratbt/internal/domain"
)

func result(returns []float64) *domain.StrategyResult {
	dates := make([]time.Time, len(returns))
	for i := range returns {
		dates[i] = time.Date(2020, time.Month(i+2), 0, 0, 0, 0, 0, time.UTC)
	}
	return &domain.StrategyResult{Strategy: "test", Dates: dates, Returns: returns}
}

func TestAnalyzeScenario(t *testing.T) {
	// Closed-form check of the defining scenario [0.10, -0.05, 0.02].
	res := result([]float64{0.10, -0.05, 0.02})

	m, err := Analyze(res, 12, 0.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	wantWealth := []float64{1.10, 1.10 * 0.95, 1.10 * 0.95 * 1.02}
	for i, want := range wantWealth {
		if math.Abs(m.Wealth.Values[i]-want) > 1e-12 {
			t.Errorf("wealth[%d] = %v, want %v", i, m.Wealth.Values[i], want)
		}
	}

	final := wantWealth[2]
	if want := math.Pow(final, 12.0/3.0) - 1; math.Abs(m.CAGR-want) > 1e-12 {
		t.Errorf("CAGR = %v, want %v", m.CAGR, want)
	}

	// Sample stddev of the three returns, annualized.
	mean := (0.10 - 0.05 + 0.02) / 3
	var ss float64
	for _, r := range []float64{0.10, -0.05, 0.02} {
		ss += (r - mean) * (r - mean)
	}
	wantVol := math.Sqrt(ss/2) * math.Sqrt(12)
	if !m.VolatilityDefined {
		t.Fatal("volatility should be defined for 3 periods")
	}
	if math.Abs(m.Volatility-wantVol) > 1e-12 {
		t.Errorf("Volatility = %v, want %v", m.Volatility, wantVol)
	}

	if !m.SharpeDefined {
		t.Fatal("Sharpe should be defined for nonzero volatility")
	}
	if want := m.CAGR / wantVol; math.Abs(m.Sharpe-want) > 1e-12 {
		t.Errorf("Sharpe = %v, want %v", m.Sharpe, want)
	}

	// Peak is 1.10 after the first period; the -0.05 return draws down to
	// 1.045/1.10 - 1 = -0.05.
	if math.Abs(m.MaxDrawdown-(-0.05)) > 1e-12 {
		t.Errorf("MaxDrawdown = %v, want -0.05", m.MaxDrawdown)
	}
}

func TestAnalyzeIdempotent(t *testing.T) {
	res := result([]float64{0.03, -0.01, 0.02, 0.04, -0.06})

	a, err := Analyze(res, 12, 0.0425)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	b, err := Analyze(res, 12, 0.0425)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !reflect.DeepEqual(a, b) {
		t.Error("Analyze twice on the same result is not bit-identical")
	}
}

func TestAnalyzeDegenerateSeries(t *testing.T) {
	_, err := Analyze(result(nil), 12, 0.0)
	if !errors.Is(err, domain.ErrDegenerateSeries) {
		t.Fatalf("Analyze on empty series: err = %v, want ErrDegenerateSeries", err)
	}
}

func TestAnalyzeSinglePeriodUndefinedVol(t *testing.T) {
	m, err := Analyze(result([]float64{0.05}), 12, 0.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if m.VolatilityDefined {
		t.Error("volatility should be undefined for a single period")
	}
	if !math.IsNaN(m.Volatility) {
		t.Errorf("Volatility = %v, want NaN sentinel", m.Volatility)
	}
	if m.SharpeDefined {
		t.Error("Sharpe should be undefined when volatility is")
	}
	if !m.Degraded() {
		t.Error("metrics with undefined values must report Degraded")
	}

	// CAGR is still computable from the single period.
	if want := math.Pow(1.05, 12.0) - 1; math.Abs(m.CAGR-want) > 1e-12 {
		t.Errorf("CAGR = %v, want %v", m.CAGR, want)
	}
}

func TestAnalyzeZeroVarianceUndefinedSharpe(t *testing.T) {
	m, err := Analyze(result([]float64{0.01, 0.01, 0.01}), 12, 0.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if !m.VolatilityDefined || m.Volatility != 0 {
		t.Fatalf("Volatility = %v (defined=%v), want 0 and defined", m.Volatility, m.VolatilityDefined)
	}
	if m.SharpeDefined {
		t.Error("Sharpe should be flagged undefined at zero volatility, not divide")
	}
	if !math.IsNaN(m.Sharpe) {
		t.Errorf("Sharpe = %v, want NaN sentinel", m.Sharpe)
	}
}

func TestAnalyzeDrawdownBounds(t *testing.T) {
	// A fully-invested, unlevered series cannot lose more than 100%.
	m, err := Analyze(result([]float64{-0.5, -0.5, 0.2, -0.9}), 12, 0.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}

	if m.MaxDrawdown > 0 || m.MaxDrawdown < -1 {
		t.Errorf("MaxDrawdown = %v, want within [-1, 0]", m.MaxDrawdown)
	}
	for i, v := range m.Drawdown.Values {
		if v > 0 {
			t.Errorf("drawdown[%d] = %v, must never be positive", i, v)
		}
	}
	for i, w := range m.Wealth.Values {
		if w < 0 {
			t.Errorf("wealth[%d] = %v, must never go negative", i, w)
		}
	}
}

func TestAnalyzeLosingFirstPeriod(t *testing.T) {
	// The drawdown peak starts at the initial 1.0 stake, so an immediate
	// loss is already a drawdown.
	m, err := Analyze(result([]float64{-0.10, 0.05}), 12, 0.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(m.Drawdown.Values[0]-(-0.10)) > 1e-12 {
		t.Errorf("drawdown[0] = %v, want -0.10", m.Drawdown.Values[0])
	}
}

func TestAnalyzeNoDeclineZeroDrawdown(t *testing.T) {
	m, err := Analyze(result([]float64{0.01, 0.02, 0.03}), 12, 0.0)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if m.MaxDrawdown != 0 {
		t.Errorf("MaxDrawdown = %v, want 0 for a monotonic series", m.MaxDrawdown)
	}
}
