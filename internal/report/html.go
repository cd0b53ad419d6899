package report

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"html/template"
	"log/slog"
	"math"
	"strings"
	"time"

	"stratbt/internal/domain"
)

// Renderer produces a report document from computed metrics. The core
// pipeline supplies data only; all formatting lives here.
type Renderer interface {
	Render(data *Data) ([]byte, error)
}

// StrategyReport pairs a strategy's display label with its metrics.
type StrategyReport struct {
	Name    string // registry name
	Label   string // human-readable label
	Metrics *domain.PerformanceMetrics
	Err     string // non-empty when the strategy failed and has no metrics
}

// Data is everything the renderer needs for one report.
type Data struct {
	GeneratedAt time.Time
	Start, End  time.Time
	Benchmark   string
	Tickers     []string
	RiskFree    float64

	// Strategies in display order. Failed strategies carry Err and a nil
	// Metrics; they still appear in the report as degraded rows.
	Strategies []StrategyReport

	// BenchmarkReturns feeds the monthly-return histogram.
	BenchmarkReturns []float64
}

// Compile-time interface check.
var _ Renderer = (*HTMLRenderer)(nil)

// HTMLRenderer renders the dark-themed static HTML comparison report with
// embedded PNG charts.
type HTMLRenderer struct {
	log *slog.Logger
}

// NewHTMLRenderer creates an HTMLRenderer.
func NewHTMLRenderer() *HTMLRenderer {
	return &HTMLRenderer{log: slog.Default().With("component", "report")}
}

// section is one chart block in the rendered page.
type section struct {
	Title       string
	Description string
	ImageB64    string
	Highlight   template.HTML
}

// statsView is the formatted statistics table: metrics as rows, strategies
// as columns.
type statsView struct {
	Headers []string
	Rows    []statsRow
	Notes   []string
}

type statsRow struct {
	Name  string
	Cells []string
}

type pageView struct {
	Start, End  string
	Benchmark   string
	TickerHead  string
	TickerRest  int
	RiskFree    string
	Sections    []section
	Stats       statsView
	GeneratedAt string
}

// Render builds all charts and executes the HTML template.
func (r *HTMLRenderer) Render(data *Data) ([]byte, error) {
	view := pageView{
		Start:       data.Start.Format("2006-01-02"),
		End:         data.End.Format("2006-01-02"),
		Benchmark:   data.Benchmark,
		RiskFree:    fmt.Sprintf("%.2f%%", data.RiskFree*100),
		GeneratedAt: data.GeneratedAt.Format("01/02/2006 at 15:04"),
	}
	head := data.Tickers
	if len(head) > 5 {
		head = head[:5]
		view.TickerRest = len(data.Tickers) - 5
	}
	view.TickerHead = strings.Join(head, ", ")

	sections, err := r.buildSections(data)
	if err != nil {
		return nil, err
	}
	view.Sections = sections
	view.Stats = buildStats(data)

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, view); err != nil {
		return nil, fmt.Errorf("executing report template: %w", err)
	}
	return buf.Bytes(), nil
}

// buildSections renders every chart the data allows. Missing strategies
// skip their sections rather than failing the report.
func (r *HTMLRenderer) buildSections(data *Data) ([]section, error) {
	var sections []section

	bench := findStrategy(data, "buy-and-hold")
	ew := findStrategy(data, "equal-weight")

	if bench != nil && bench.Metrics != nil {
		img, err := lineChart("Buy & Hold on Benchmark",
			[]chartSeries{{name: bench.Label, curve: scaled(bench.Metrics.Wealth, 100)}})
		if err != nil {
			return nil, err
		}
		sections = append(sections, section{
			Title: "Buy & Hold Strategy — Benchmark",
			Description: "Performance of a simple buy-and-hold position in the benchmark. " +
				"This strategy is the baseline the other approaches are measured against.",
			ImageB64: base64.StdEncoding.EncodeToString(img),
		})
	}

	if ew != nil && ew.Metrics != nil {
		img, err := lineChart("Equal-Weighted Strategy",
			[]chartSeries{{name: ew.Label, curve: scaled(ew.Metrics.Wealth, 100)}})
		if err != nil {
			return nil, err
		}
		sections = append(sections, section{
			Title: "Equal-Weighted Strategy",
			Description: "Equal weight in every stock of the universe, rebalanced monthly. " +
				"This avoids concentration in the largest names.",
			ImageB64: base64.StdEncoding.EncodeToString(img),
		})
	}

	if bench != nil && bench.Metrics != nil {
		img, err := lineChart("Benchmark Drawdown",
			[]chartSeries{{name: "Drawdown", curve: bench.Metrics.Drawdown}})
		if err != nil {
			return nil, err
		}
		sections = append(sections, section{
			Title: "Benchmark Drawdown",
			Description: "Drawdown measures the decline from the highest prior peak, " +
				"illustrating loss risk along the way.",
			ImageB64: base64.StdEncoding.EncodeToString(img),
			Highlight: template.HTML(fmt.Sprintf("<strong>Maximum Drawdown:</strong> %.2f%%",
				bench.Metrics.MaxDrawdown*100)),
		})
	}

	if len(data.BenchmarkReturns) > 0 {
		img, err := histogramChart("Benchmark Monthly Returns", data.BenchmarkReturns, 30)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section{
			Title: "Returns Distribution",
			Description: "Histogram of the benchmark's monthly returns, showing the " +
				"statistical distribution of outcomes.",
			ImageB64: base64.StdEncoding.EncodeToString(img),
		})
	}

	var comparison []chartSeries
	for _, s := range data.Strategies {
		if s.Metrics == nil {
			continue
		}
		comparison = append(comparison, chartSeries{name: s.Label, curve: scaled(s.Metrics.Wealth, 100)})
	}
	if len(comparison) > 1 {
		img, err := lineChart("Cumulative Returns Comparison", comparison)
		if err != nil {
			return nil, err
		}
		sections = append(sections, section{
			Title: "Strategy Comparison",
			Description: "Cumulative wealth of every strategy on a base-100 axis, " +
				"over the periods the strategies share.",
			ImageB64: base64.StdEncoding.EncodeToString(img),
		})
	}

	return sections, nil
}

// buildStats formats the metrics table and collects degraded-strategy notes.
// Undefined metrics render as "n/a" and are called out per strategy rather
// than silently omitted.
func buildStats(data *Data) statsView {
	v := statsView{}
	rows := []statsRow{
		{Name: "CAGR"}, {Name: "Volatility"}, {Name: "Sharpe"}, {Name: "MaxDD"}, {Name: "Months"},
	}

	for _, s := range data.Strategies {
		v.Headers = append(v.Headers, s.Label)
		if s.Metrics == nil {
			for i := range rows {
				rows[i].Cells = append(rows[i].Cells, "n/a")
			}
			v.Notes = append(v.Notes, fmt.Sprintf("%s: %s", s.Label, s.Err))
			continue
		}
		m := s.Metrics
		rows[0].Cells = append(rows[0].Cells, fmt.Sprintf("%.2f%%", m.CAGR*100))
		rows[1].Cells = append(rows[1].Cells, pctOrNA(m.Volatility, m.VolatilityDefined))
		rows[2].Cells = append(rows[2].Cells, numOrNA(m.Sharpe, m.SharpeDefined))
		rows[3].Cells = append(rows[3].Cells, fmt.Sprintf("%.2f%%", m.MaxDrawdown*100))
		rows[4].Cells = append(rows[4].Cells, fmt.Sprintf("%d", m.Periods))

		if m.Degraded() {
			v.Notes = append(v.Notes,
				fmt.Sprintf("%s: some metrics are undefined for this series", s.Label))
		}
	}
	v.Rows = rows
	return v
}

func findStrategy(data *Data, name string) *StrategyReport {
	for i := range data.Strategies {
		if data.Strategies[i].Name == name {
			return &data.Strategies[i]
		}
	}
	return nil
}

func pctOrNA(v float64, defined bool) string {
	if !defined || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f%%", v*100)
}

func numOrNA(v float64, defined bool) string {
	if !defined || math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.2f", v)
}

var pageTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Backtest Strategies Report</title>
<style>
:root {
  --bg-primary: #0a0e1a;
  --bg-card: #1a1f2e;
  --border-color: #2a3142;
  --text-primary: #ffffff;
  --text-secondary: #8b95a5;
  --accent-blue: #00d4ff;
  --accent-pink: #ff3366;
  --accent-orange: #ffaa00;
}
* { margin: 0; padding: 0; box-sizing: border-box; }
body {
  font-family: sans-serif;
  background: var(--bg-primary);
  color: var(--text-primary);
  line-height: 1.6;
}
.container { max-width: 1400px; margin: 0 auto; padding: 60px 40px; }
header { text-align: center; margin-bottom: 80px; }
h1 {
  font-family: monospace;
  font-size: 3rem;
  background: linear-gradient(135deg, var(--accent-blue) 0%, var(--accent-pink) 100%);
  -webkit-background-clip: text;
  -webkit-text-fill-color: transparent;
  background-clip: text;
}
.subtitle { color: var(--text-secondary); }
.meta {
  font-family: monospace;
  font-size: 0.9rem;
  color: var(--text-secondary);
  margin-top: 20px;
  padding: 15px;
  background: var(--bg-card);
  border-radius: 8px;
  display: inline-block;
  border: 1px solid var(--border-color);
}
.section { margin-bottom: 70px; }
h2 { font-family: monospace; font-size: 1.6rem; color: var(--accent-blue); margin-bottom: 15px; }
.description { color: var(--text-secondary); margin-bottom: 30px; max-width: 800px; }
.chart-container {
  background: var(--bg-card);
  border-radius: 12px;
  padding: 30px;
  margin-bottom: 25px;
  border: 1px solid var(--border-color);
}
.chart-container img { width: 100%; height: auto; display: block; border-radius: 8px; }
.highlight-box {
  background: var(--bg-card);
  border-left: 4px solid var(--accent-pink);
  padding: 20px 25px;
  margin: 25px 0;
  border-radius: 8px;
}
.highlight-box strong { color: var(--accent-orange); font-family: monospace; }
.stats-table {
  width: 100%;
  background: var(--bg-card);
  border-collapse: collapse;
  border: 1px solid var(--border-color);
}
.stats-table th {
  color: var(--accent-blue);
  font-family: monospace;
  padding: 16px 22px;
  text-align: left;
  border-bottom: 2px solid var(--accent-blue);
}
.stats-table td {
  padding: 16px 22px;
  border-bottom: 1px solid var(--border-color);
  font-family: monospace;
  font-size: 0.9rem;
}
.note { color: var(--accent-orange); font-size: 0.9rem; margin-top: 15px; }
.ticker-list { font-family: monospace; color: var(--accent-blue); }
footer {
  text-align: center;
  margin-top: 100px;
  padding: 40px;
  color: var(--text-secondary);
  font-size: 0.9rem;
  border-top: 1px solid var(--border-color);
}
</style>
</head>
<body>
<div class="container">
  <header>
    <h1>Backtest Strategies Report</h1>
    <p class="subtitle">Comparative Analysis of Investment Strategies</p>
    <div class="meta">
      Period: {{.Start}} &rarr; {{.End}}<br>
      Benchmark: <span class="ticker-list">{{.Benchmark}}</span><br>
      Universe: <span class="ticker-list">{{.TickerHead}}</span>{{if .TickerRest}} + {{.TickerRest}} others{{end}}
    </div>
  </header>

  {{range .Sections}}
  <div class="section">
    <h2>{{.Title}}</h2>
    <p class="description">{{.Description}}</p>
    <div class="chart-container">
      <img src="data:image/png;base64,{{.ImageB64}}" alt="{{.Title}}">
    </div>
    {{if .Highlight}}<div class="highlight-box">{{.Highlight}}</div>{{end}}
  </div>
  {{end}}

  <div class="section">
    <h2>Performance Statistics</h2>
    <p class="description">
      Annualized return (CAGR), volatility, Sharpe ratio, and maximum drawdown
      per strategy. Risk-free rate: {{.RiskFree}}.
    </p>
    <div class="chart-container">
      <table class="stats-table">
        <thead>
          <tr><th></th>{{range .Stats.Headers}}<th>{{.}}</th>{{end}}</tr>
        </thead>
        <tbody>
          {{range .Stats.Rows}}
          <tr><td>{{.Name}}</td>{{range .Cells}}<td>{{.}}</td>{{end}}</tr>
          {{end}}
        </tbody>
      </table>
      {{range .Stats.Notes}}<p class="note">&#9888; {{.}}</p>{{end}}
    </div>
  </div>

  <footer>
    <p>Report generated on {{.GeneratedAt}}</p>
    <p>Past performance does not predict future results.</p>
  </footer>
</div>
</body>
</html>
`))
