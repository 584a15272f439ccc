package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"

	"github.com/rustyeddy/backtester/metrics"
)

// PrintRun writes a plain-text summary of r.
func PrintRun(w io.Writer, r RunRecord) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Run ID:        %s\n", r.RunID)
	fmt.Fprintf(w, "Created:       %s\n", r.Created.Format(time.RFC3339))
	fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	fmt.Fprintf(w, "Asset:         %s\n", r.Asset)
	if r.Timeframe != "" {
		fmt.Fprintf(w, "Timeframe:     %s\n", r.Timeframe)
	}
	if r.Dataset != "" {
		fmt.Fprintf(w, "Dataset:       %s\n", r.Dataset)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Bars:          %d\n", r.Bars)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Risk Configuration")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Stop Loss:     %.2f%%\n", r.StopLossPct)
	fmt.Fprintf(w, "Take Profit:   %.2f%%\n", r.TakeProfitPct)
	if r.RR > 0 {
		fmt.Fprintf(w, "Risk/Reward:   %.2f\n", r.RR)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Wins:          %d\n", r.Wins)
	fmt.Fprintf(w, "Losses:        %d\n", r.Losses)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", r.WinRate)
	if r.Rejected > 0 {
		fmt.Fprintf(w, "Rejected:      %d\n", r.Rejected)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Account Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start Capital: %.2f\n", r.InitialCapital)
	fmt.Fprintf(w, "Final Equity:  %.2f\n", r.FinalEquity)
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.NetPL)
	fmt.Fprintf(w, "Return:        %.2f%%\n", r.ReturnPct)
	fmt.Fprintf(w, "CAGR:          %.2f%%\n", r.CAGR*100)

	if r.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %s\n", num(r.ProfitFactor))
	}
	if r.MaxDDPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", r.MaxDDPct)
	}
	fmt.Fprintf(w, "Sharpe:        %s\n", num(r.Sharpe))
	fmt.Fprintf(w, "Sortino:       %s\n", num(r.Sortino))

	if r.OrgPath != "" {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Org Report:    %s\n", r.OrgPath)
	}

	if len(r.Notes) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Observations")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, note := range r.Notes {
			fmt.Fprintf(w, "- %s\n", note)
		}
	}

	fmt.Fprintln(w)
}

// num prints a ratio with two decimals, or "inf" for the unbounded sentinel.
func num(x float64) string {
	if metrics.IsUnbounded(x) {
		return "inf"
	}
	return fmt.Sprintf("%.2f", x)
}

type orgReport struct {
	RunRecord
	TradeLog []TradeRecord
}

var orgFuncs = template.FuncMap{
	"num": num,
	"mul100": func(x float64) float64 { return x * 100.0 },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"trades": FormatTradesOrg,
}

var orgTmpl = template.Must(template.New("run").Funcs(orgFuncs).Parse(runOrgTemplate))

// WriteOrg renders r and its trades as an Org-mode document.
func WriteOrg(w io.Writer, r RunRecord, trades []TradeRecord) error {
	return orgTmpl.Execute(w, orgReport{RunRecord: r, TradeLog: trades})
}

// WriteOrgFile renders to r.OrgPath.
func WriteOrgFile(r RunRecord, trades []TradeRecord) error {
	if r.OrgPath == "" {
		return fmt.Errorf("journal: run %s has no org path", r.RunID)
	}
	var buf bytes.Buffer
	if err := WriteOrg(&buf, r, trades); err != nil {
		return err
	}
	return os.WriteFile(r.OrgPath, buf.Bytes(), 0o644)
}

const runOrgTemplate = `* BACKTEST: {{.Strategy}} {{.Asset}} {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:PROPERTIES:
:RUN_ID:      {{.RunID}}
:STRATEGY:    {{.Strategy}}
:TIMEFRAME:   {{if .Timeframe}}{{.Timeframe}}{{else}}(timeframe?){{end}}
:ASSET:       {{.Asset}}
:DATASET:     {{if .Dataset}}{{.Dataset}}{{else}}(dataset?){{end}}
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:BARS:        {{.Bars}}
:START_CAP:   {{printf "%.2f" .InitialCapital}}
:END_EQUITY:  {{printf "%.2f" .FinalEquity}}
:NET_PL:      {{printf "%.2f" .NetPL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .MaxDDPct}}
:TRADES:      {{.Trades}}
:WINS:        {{.Wins}}
:LOSSES:      {{.Losses}}
:WIN_RATE:    {{printf "%.2f" .WinRate}}
:PROFIT_FAC:  {{num .ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Strategy Parameters
| Parameter     | Value |
|---------------+-------|
| Stop Loss %   | {{printf "%.2f" .StopLossPct}} |
| Take Profit % | {{printf "%.2f" .TakeProfitPct}} |
| R:R           | {{printf "%.2f" .RR}} |
{{- if .Config }}

#+begin_src yaml
{{printf "%s" .Config}}#+end_src
{{- end }}

** Performance Summary
- Net P/L:          *{{printf "%.2f" .NetPL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- CAGR:             *{{printf "%.2f" (mul100 .CAGR)}}%*
- Max Drawdown:     *{{printf "%.2f" .MaxDDPct}}%*
- Win Rate:         *{{printf "%.2f" .WinRate}}%*
- Profit Factor:    *{{num .ProfitFactor}}*
- Sharpe:           *{{num .Sharpe}}*
- Sortino:          *{{num .Sortino}}*

** Trade Distribution
| Outcome  | Count |
|----------+-------|
| Wins     | {{.Wins}} |
| Losses   | {{.Losses}} |
| Rejected | {{.Rejected}} |
| Total    | {{.Trades}} |
{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
{{- if .TradeLog }}

* Trades
{{trades .TradeLog}}
{{- end }}
`
