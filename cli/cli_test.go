package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"netprobe/scanner"
)

func init() {
	pterm.DisableStyling()
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := executeSplit(t, args...)
	return out, err
}

// executeSplit returns stdout and stderr separately.
func executeSplit(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())

	cmd := NewRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func listenLoopback(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			conn.Close()
		}
	}()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestScanPrintsSummaryAndVerboseLines(t *testing.T) {
	port := listenLoopback(t)

	out, err := execute(t, "-t", "127.0.0.1", "-p", fmt.Sprint(port), "-v", "--timeout", "500")
	require.NoError(t, err)

	assert.Contains(t, out, fmt.Sprintf("[+] 127.0.0.1:%d OPEN (", port))
	assert.Contains(t, out, "Scanned: 1  Open: 1")
	assert.Contains(t, out, "HOST")
	assert.Contains(t, out, fmt.Sprint(port))
}

func TestScanJSONReport(t *testing.T) {
	port := listenLoopback(t)

	out, err := execute(t, "--target", "127.0.0.1", "--ports", fmt.Sprint(port), "--json")
	require.NoError(t, err)

	var report scanner.ScanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 1, report.Scanned)
	assert.EqualValues(t, 1, report.Open)
	require.Len(t, report.Results, 1)
	assert.EqualValues(t, port, report.Results[0].Port)
	assert.Equal(t, netip.MustParseAddr("127.0.0.1"), report.Results[0].Host)
}

func TestVerboseJSONKeepsStdoutParseable(t *testing.T) {
	port := listenLoopback(t)

	out, errOut, err := executeSplit(t, "-t", "127.0.0.1", "-p", fmt.Sprint(port), "-v", "--json")
	require.NoError(t, err)

	var report scanner.ScanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report), out)
	assert.EqualValues(t, 1, report.Open)
	assert.NotContains(t, out, "[+]")
	assert.Contains(t, errOut, fmt.Sprintf("[+] 127.0.0.1:%d OPEN (", port))
}

func TestScanRejectsInvalidRequests(t *testing.T) {
	cases := []struct {
		name string
		args []string
		want error
	}{
		{"no target", nil, scanner.ErrMissingTarget},
		{"bad prefix", []string{"-n", "10.0.0.0/40", "-p", "80"}, scanner.ErrInvalidCIDR},
		{"reversed range", []string{"-t", "127.0.0.1", "-p", "90-80"}, scanner.ErrInvalidRange},
		{"too many threads", []string{"-t", "127.0.0.1", "-p", "80", "-T", "5000"}, scanner.ErrInvalidOptions},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := execute(t, tc.args...)
			require.ErrorIs(t, err, tc.want)
			assert.NotContains(t, out, "Scanned:")
		})
	}
}

func TestThreadsDefaultFromConfig(t *testing.T) {
	port := listenLoopback(t)
	t.Setenv("NETPROBE_SCAN_THREADS", "7")

	out, err := execute(t, "-t", "127.0.0.1", "-p", fmt.Sprint(port))
	require.NoError(t, err)
	assert.Contains(t, out, "with 7 threads")

	out, err = execute(t, "-t", "127.0.0.1", "-p", fmt.Sprint(port), "-T", "3")
	require.NoError(t, err)
	assert.Contains(t, out, "with 3 threads")
}

func TestScanPortList(t *testing.T) {
	port := listenLoopback(t)

	out, err := execute(t, "-t", "127.0.0.1", "-p", fmt.Sprintf("%d,1,%d", port, port), "--json")
	require.NoError(t, err)

	var report scanner.ScanReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.EqualValues(t, 2, report.Scanned)
	assert.EqualValues(t, 1, report.Open)
	require.Len(t, report.Results, 1)
	assert.EqualValues(t, port, report.Results[0].Port)
}

func TestNetworkScanWithNoHosts(t *testing.T) {
	out, err := execute(t, "-n", "10.0.0.5/32", "-p", "22")
	require.NoError(t, err)
	assert.Contains(t, out, "Scanned: 0  Open: 0")
	assert.Contains(t, out, "No open ports found.")
}

func TestOpenLine(t *testing.T) {
	line := openLine(scanner.ProbeOutcome{
		Host:    netip.MustParseAddr("10.0.0.1"),
		Port:    22,
		Open:    true,
		Service: "SSH",
		Latency: 12 * time.Millisecond,
	})
	assert.Equal(t, "[+] 10.0.0.1:22 OPEN (SSH) 12ms", line)
}
