package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"netprobe/config"
	"netprobe/logging"
	"netprobe/scanner"
)

const defaultPorts = "1-1000"

type scanFlags struct {
	target    string
	network   string
	ports     string
	threads   int
	timeoutMs int
	verbose   bool
	json      bool
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd := NewRootCmd()
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), pterm.Error.Sprint(err))
		if errors.Is(err, scanner.ErrMissingTarget) {
			fmt.Fprint(cmd.ErrOrStderr(), cmd.UsageString())
		}
		return 1
	}
	return 0
}

// NewRootCmd builds the netprobe command tree.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		cfg     *config.Config
		flags   scanFlags
	)

	cmd := &cobra.Command{
		Use:   "netprobe",
		Short: "Concurrent TCP reachability prober",
		Long: `netprobe connects to every port of one host, or to one port on every
host of an IPv4 block, and reports which accept a TCP connection.

Examples:
  netprobe -t 192.168.1.10 -p 1-1024
  netprobe -t 192.168.1.10 -p 22,80,443,8000-8010
  netprobe -n 10.0.0.0/24 -p 22 -T 256 --timeout 500
  netprobe serve --config netprobe.yaml`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			cfg = loaded
			logging.Configure(logging.Options{
				Level:  cfg.Log.Level,
				Format: cfg.Log.Format,
				File:   cfg.Log.File,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("threads") {
				flags.threads = cfg.Scan.Threads
			}
			if !cmd.Flags().Changed("timeout") {
				flags.timeoutMs = cfg.Scan.TimeoutMs
			}
			return runScan(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), flags)
		},
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a YAML config file")

	f := cmd.Flags()
	f.StringVarP(&flags.target, "target", "t", "", "IPv4 host to scan")
	f.StringVarP(&flags.network, "network", "n", "", "IPv4 CIDR block, probed on the first port of --ports")
	f.StringVarP(&flags.ports, "ports", "p", defaultPorts, "ports: start-end, a single port, or a comma-separated list such as 22,80,8000-8010")
	f.IntVarP(&flags.threads, "threads", "T", scanner.DefaultThreads, "concurrent probes")
	f.IntVar(&flags.timeoutMs, "timeout", int(scanner.DefaultTimeout.Milliseconds()), "per-probe timeout in milliseconds")
	f.BoolVarP(&flags.verbose, "verbose", "v", false, "print each open port as it is found")
	f.BoolVar(&flags.json, "json", false, "print the report as JSON")

	cmd.AddCommand(newServeCmd(func() *config.Config { return cfg }))
	return cmd
}

// runScan writes the report to out. Verbose open-port lines go to out as
// well, except with --json where they go to errOut so out stays valid JSON.
func runScan(ctx context.Context, out, errOut io.Writer, flags scanFlags) error {
	req, err := scanner.NewRequest(flags.target, flags.network, flags.ports)
	if err != nil {
		return err
	}

	opts := scanner.Options{
		Threads: flags.threads,
		Timeout: time.Duration(flags.timeoutMs) * time.Millisecond,
	}
	if flags.verbose {
		progress := out
		if flags.json {
			progress = errOut
		}
		var mu sync.Mutex
		opts.OnOpen = func(o scanner.ProbeOutcome) {
			mu.Lock()
			defer mu.Unlock()
			fmt.Fprintln(progress, openLine(o))
		}
	}

	if !flags.json {
		fmt.Fprintln(out, pterm.Info.Sprintf("Scanning %s with %d threads", req, opts.Threads))
	}

	report, err := scanner.New(scanner.WithLogger(logging.Logger())).Run(ctx, req, opts)
	if report == nil {
		return err
	}

	var outErr error
	if flags.json {
		outErr = outputJSON(out, report)
	} else {
		outErr = outputPlainText(out, report)
	}
	if err != nil {
		return err
	}
	return outErr
}
