package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"net/netip"
	"strconv"
	"time"

	"github.com/pterm/pterm"

	"netprobe/scanner"
)

// openLine formats the verbose line printed as each open port is recorded.
func openLine(o scanner.ProbeOutcome) string {
	return fmt.Sprintf("[+] %s OPEN (%s) %dms", netip.AddrPortFrom(o.Host, o.Port), o.Service, o.Latency.Milliseconds())
}

// outputJSON writes the report as indented JSON.
func outputJSON(w io.Writer, report *scanner.ScanReport) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// outputPlainText prints the summary line followed by a table of open ports.
func outputPlainText(w io.Writer, report *scanner.ScanReport) error {
	fmt.Fprintln(w, pterm.Success.Sprintf("Scanned: %d  Open: %d  Time: %s",
		report.Scanned, report.Open, report.Elapsed.Round(time.Millisecond)))

	if len(report.Results) == 0 {
		fmt.Fprintln(w, pterm.Warning.Sprint("No open ports found."))
		return nil
	}

	data := pterm.TableData{{"HOST", "PORT", "SERVICE", "LATENCY"}}
	for _, r := range report.Results {
		data = append(data, []string{
			r.Host.String(),
			strconv.Itoa(int(r.Port)),
			r.Service,
			r.Latency.Round(time.Microsecond).String(),
		})
	}

	table, err := pterm.DefaultTable.
		WithHasHeader(true).
		WithBoxed(false).
		WithData(data).
		Srender()
	if err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}
	fmt.Fprintln(w, table)
	return nil
}
