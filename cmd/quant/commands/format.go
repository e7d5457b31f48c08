package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/fingear/internal/contracts"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

// PrintSeparator prints a visual separator
func PrintSeparator() {
	fmt.Println("───────────────────────────────────────────────────────────")
}

// PrintDoubleSeparator prints a double-line separator
func PrintDoubleSeparator() {
	fmt.Println("═══════════════════════════════════════════════════════════")
}

// PrintWarning prints a warning message
func PrintWarning(message string) {
	fmt.Printf("⚠️  %s\n", message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("✅ %s\n", message)
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Printf("❌ %s\n", message)
}

// PrintTableHeader prints a table header
func PrintTableHeader(columns []string, widths []int) {
	PrintTableRow(columns, widths)

	totalWidth := 0
	for i, width := range widths {
		totalWidth += width
		if i < len(widths)-1 {
			totalWidth += 2 // spacing
		}
	}
	fmt.Println(strings.Repeat("─", totalWidth))
}

// PrintTableRow prints a table row
func PrintTableRow(values []string, widths []int) {
	for i, val := range values {
		fmt.Printf("%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Print("  ")
		}
	}
	fmt.Println()
}

// PrintKeyValue prints key-value pairs
func PrintKeyValue(key string, value string, keyWidth int) {
	fmt.Printf("   %-*s : %s\n", keyWidth, key, value)
}

var (
	reportColumns = []string{"Rank", "Symbol", "Fund", "Chip", "Tech", "Signal", "Bias%", "KD", "Notes"}
	reportWidths  = []int{4, 8, 6, 12, 5, 17, 7, 6, 12}
)

// reportRow renders one result with the classic screener columns:
// symbol, fundamental score, chip status, tech position, signal, bias, KD cross
func reportRow(res contracts.ScreeningResult) []string {
	fund, chip, tech, bias, kd, notes := "-", "-", "-", "-", "-", ""
	if res.Fundamental != nil {
		fund = fmt.Sprintf("%.1f", res.Fundamental.Composite)
	}
	if res.Flow != nil {
		status := "FAIL"
		if res.Flow.Passed {
			status = "PASS"
		}
		chip = fmt.Sprintf("%s %.0f", status, res.Flow.Strength)
	}
	if t := res.Technical; t != nil {
		if t.Insufficient {
			tech = "n/a"
		} else {
			tech = fmt.Sprintf("%.0f", t.Score)
			bias = fmt.Sprintf("%+.2f", t.Bias)
			kd = string(t.Cross)
		}
		notes = strings.Join(t.Notes, ",")
	}
	return []string{
		fmt.Sprintf("%d", res.Rank), res.Symbol, fund, chip, tech,
		string(res.Signal), bias, kd, notes,
	}
}

// PrintReport prints a screening report
func PrintReport(report *contracts.ScreeningReport, showExclusions bool) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  Screening %s\n", report.Date.Format("2006-01-02"))
	PrintSeparator()
	PrintKeyValue("Run ID", report.RunID, 10)
	PrintKeyValue("Universe", fmt.Sprintf("%d", report.UniverseSize), 10)
	PrintKeyValue("Top-K", fmt.Sprintf("%d", report.TopK), 10)
	PrintKeyValue("Signaled", fmt.Sprintf("%d", len(report.Results)), 10)
	PrintKeyValue("Excluded", fmt.Sprintf("%d", len(report.Exclusions)), 10)
	if report.ConfigHash != "" {
		PrintKeyValue("Config", shortHash(report.ConfigHash), 10)
	}
	PrintDoubleSeparator()
	fmt.Println()

	if len(report.Results) == 0 {
		PrintWarning("통과 종목 없음")
	} else {
		PrintTableHeader(reportColumns, reportWidths)
		for _, res := range report.Results {
			PrintTableRow(reportRow(res), reportWidths)
		}
	}

	fmt.Println()
	fmt.Println("Exclusions by reason:")
	counts := report.ExclusionCounts()
	reasons := make([]string, 0, len(counts))
	for reason := range counts {
		reasons = append(reasons, reason)
	}
	sort.Strings(reasons)
	for _, reason := range reasons {
		PrintKeyValue(reason, fmt.Sprintf("%d", counts[reason]), 30)
	}

	if showExclusions && len(report.Exclusions) > 0 {
		fmt.Println()
		widths := []int{8, 16, 30, 30}
		PrintTableHeader([]string{"Symbol", "Stage", "Reason", "Detail"}, widths)
		for _, ex := range report.Exclusions {
			PrintTableRow([]string{ex.Symbol, string(ex.Stage), ex.Reason, ex.Detail}, widths)
		}
	}
}

// PrintExplain prints the full pipeline record of one instrument
func PrintExplain(symbol string, rec contracts.ScreeningResult, exclusion *contracts.Exclusion) {
	fmt.Println()
	PrintDoubleSeparator()
	fmt.Printf("  %s  state=%s  rank=%d\n", symbol, rec.State, rec.Rank)
	fmt.Printf("  %s\n", explainHeadline(rec))
	PrintDoubleSeparator()

	for _, g := range rec.Gates {
		mark := "✅"
		if !g.Passed {
			mark = "❌"
		}
		line := fmt.Sprintf("%s %-16s score=%.2f", mark, g.Stage, g.Score)
		if g.Reason != "" {
			line += "  " + g.Reason
		}
		fmt.Println(line)
	}

	if f := rec.Fundamental; f != nil {
		fmt.Println()
		fmt.Printf("Fundamental composite %.2f\n", f.Composite)
		for _, fs := range f.Factors {
			PrintKeyValue(string(fs.Kind), fmt.Sprintf("value=%.4f tier=%d +%.2f", fs.RawValue, fs.Tier, fs.Contribution), 20)
		}
	}
	if fl := rec.Flow; fl != nil {
		fmt.Println()
		fmt.Printf("Flow strength %.2f (net_sum=%d, holder_delta=%.2f)\n", fl.Strength, fl.NetSum, fl.HolderDelta)
	}
	if t := rec.Technical; t != nil {
		fmt.Println()
		fmt.Printf("Technical %.2f → %s (rsi=%.1f %%b=%.2f vol=%.2f bias=%+.2f kd=%s)\n",
			t.Score, t.Signal, t.RSI, t.PercentB, t.VolumeRatio, t.Bias, t.Cross)
		if len(t.Missing) > 0 {
			PrintWarning("missing: " + strings.Join(t.Missing, ", "))
		}
	}

	if exclusion != nil {
		fmt.Println()
		PrintError(fmt.Sprintf("excluded at %s: %s %s", exclusion.Stage, exclusion.Reason, exclusion.Detail))
	}
}

// explainHeadline summarizes where the instrument stopped
func explainHeadline(rec contracts.ScreeningResult) string {
	g, ok := rec.LastGate()
	if !ok {
		return "no gate evaluated"
	}
	where := fmt.Sprintf("%s (%s)", g.Stage.Description(), g.Stage.ShortName())
	if !g.Passed {
		return fmt.Sprintf("stopped at %s: %s", where, g.Reason)
	}
	return fmt.Sprintf("passed through %s → %s", where, rec.Signal)
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
