package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/go-drift/radiobridge/cmd/radiobridge/internal/config"
	"github.com/go-drift/radiobridge/cmd/radiobridge/internal/sim"
	"github.com/go-drift/radiobridge/pkg/bluetooth"
	"github.com/go-drift/radiobridge/pkg/platform"
)

type simulateOptions struct {
	enabled    bool
	resultCode int
	delay      time.Duration
	timeout    time.Duration
	reattach   bool
	busy       bool
}

// simulateMethods maps each action to the method called on the main channel.
var simulateMethods = map[string]string{
	"query":        "queryActive",
	"activate":     "requestActivate",
	"discoverable": "requestDiscoverable",
	"version":      "getPlatformVersion",
}

func newSimulateCmd(root *rootOptions) *cobra.Command {
	opts := &simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate {query|activate|discoverable|version}",
		Short: "Run one request against a simulated host",
		Long: `Attach a simulated host session, issue one request on the plugin channel and
print the correlated answer.

--result-code sets the code the simulated activity returns: for activate,
any non-zero code grants; for discoverable, zero refuses and any other value
is the granted duration in seconds.

--busy issues a second request while the first is open and prints the busy
rejection. --reattach recreates the host session while the activity is open;
the answer still reaches the original caller.`,
		Example: `  radiobridge simulate activate --result-code 0
  radiobridge simulate discoverable --result-code 300
  radiobridge simulate activate --reattach`,
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"query", "activate", "discoverable", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, restore, err := root.load(cmd)
			if err != nil {
				return err
			}
			defer restore()
			return runSimulate(cmd, cfg, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.BoolVar(&opts.enabled, "enabled", false, "start with the adapter enabled")
	flags.IntVar(&opts.resultCode, "result-code", 0, "result code the simulated activity returns")
	flags.DurationVar(&opts.delay, "delay", 0, "how long the simulated activity stays open")
	flags.DurationVar(&opts.timeout, "timeout", 10*time.Second, "give up waiting after this long")
	flags.BoolVar(&opts.reattach, "reattach", false, "recreate the host session while the activity is open")
	flags.BoolVar(&opts.busy, "busy", false, "issue a second request while the first is open")
	return cmd
}

func runSimulate(cmd *cobra.Command, cfg *config.Resolved, opts *simulateOptions, action string) error {
	flags := cmd.Flags()
	settings := sim.Settings{
		Enabled:          cfg.Simulator.Enabled,
		ResultCode:       cfg.Simulator.ResultCode,
		DiscoverableCode: cfg.Simulator.DiscoverableCode,
		Delay:            cfg.Simulator.Delay,
		PlatformVersion:  cfg.Simulator.PlatformVersion,
	}
	if flags.Changed("enabled") {
		settings.Enabled = opts.enabled
	}
	if flags.Changed("result-code") {
		if action == "discoverable" {
			settings.DiscoverableCode = opts.resultCode
		} else {
			settings.ResultCode = opts.resultCode
		}
	}
	if flags.Changed("delay") {
		settings.Delay = opts.delay
	}

	staged := opts.busy || opts.reattach
	if staged && action != "activate" && action != "discoverable" {
		return fmt.Errorf("--busy and --reattach apply to activate and discoverable, not %s", action)
	}
	if staged && action == "activate" && settings.Enabled {
		return errors.New("--busy and --reattach need an activity, but the adapter is already enabled")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
	defer cancel()

	host := sim.New(cfg.Channel, settings)
	platform.SetNativeBridge(host)
	defer platform.SetNativeBridge(nil)
	plugin := bluetooth.NewPlugin(bluetooth.Options{Channel: cfg.Channel})
	defer plugin.Close()
	defer host.Close()

	out := cmd.OutOrStdout()
	if err := host.Attach(ctx, "session-1"); err != nil {
		return fmt.Errorf("attach: %w", err)
	}
	fmt.Fprintf(out, "attached session-1 on %s (protocol %s)\n", cfg.Channel, cfg.Protocol)

	method := simulateMethods[action]
	if !staged {
		result, err := host.Invoke(ctx, method)
		if err != nil {
			return fmt.Errorf("%s: %w", method, err)
		}
		return printResult(out, action, result)
	}

	host.Hold()
	type answer struct {
		result any
		err    error
	}
	first := make(chan answer, 1)
	go func() {
		result, err := host.Invoke(ctx, method)
		first <- answer{result, err}
	}()
	if err := host.WaitLaunches(ctx, 1); err != nil {
		return err
	}
	fmt.Fprintf(out, "activity open: request code %d\n", host.Launches()[0].RequestCode)

	if opts.busy {
		_, err := host.Invoke(ctx, method)
		var ce *platform.ChannelError
		if !errors.As(err, &ce) || ce.Code != bluetooth.CodeBusy {
			return fmt.Errorf("second %s: expected busy, got %v", method, err)
		}
		fmt.Fprintf(out, "second request rejected: %s\n", ce.Code)
	}
	if opts.reattach {
		if err := host.Reattach(ctx, "session-2"); err != nil {
			return fmt.Errorf("reattach: %w", err)
		}
		fmt.Fprintln(out, "reattached as session-2")
	}
	host.Release()

	a := <-first
	if a.err != nil {
		return fmt.Errorf("%s: %w", method, a.err)
	}
	return printResult(out, action, a.result)
}

func printResult(w io.Writer, action string, result any) error {
	var err error
	switch action {
	case "query":
		_, err = fmt.Fprintf(w, "enabled: %v\n", result)
	case "activate":
		_, err = fmt.Fprintf(w, "granted: %v\n", result)
	case "discoverable":
		seconds, ok := result.(float64)
		if !ok {
			return fmt.Errorf("unexpected discoverable result %T", result)
		}
		if seconds < 0 {
			_, err = fmt.Fprintln(w, "discoverable: refused")
		} else {
			_, err = fmt.Fprintf(w, "discoverable: %ds\n", int(seconds))
		}
	default:
		_, err = fmt.Fprintf(w, "platform: %v\n", result)
	}
	return err
}
