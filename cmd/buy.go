package cmd

import (
	"fmt"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taquilla-cli/access"
	"taquilla-cli/clock"
	"taquilla-cli/config"
	"taquilla-cli/frame"
	"taquilla-cli/inventory"
	"taquilla-cli/payment"
	"taquilla-cli/selection"
	"taquilla-cli/tui"
	"taquilla-cli/wizard"
)

func newBuyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "buy",
		Short: "Open the ticket purchase wizard",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuy(cmd, opts)
		},
	}
}

func runBuy(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}
	if cfg.Offline {
		return fmt.Errorf("buying needs the platform API; unset TAQUILLA_OFFLINE or use quote --offline")
	}
	closeLog, err := setupLogging(cfg.Debug)
	if err != nil {
		return err
	}
	defer closeLog()

	notifier, closeNotifier, err := openNotifier(cfg)
	if err != nil {
		return err
	}
	defer closeNotifier()

	client := newClient(cfg)
	orchestrator := payment.NewOrchestrator(client, cfg.IframeToken, payment.WithTimeout(cfg.RequestTimeout))
	inv := inventory.NewCatalog(cfg.General(), cfg.Schedule())
	clk := clock.NewSystem()
	machine := wizard.New(
		selection.New(inv),
		access.NewGate(cfg.IframeToken, notifier),
		orchestrator,
		wizard.WithNotifier(notifier),
		wizard.WithClock(clk),
		wizard.WithResetDelay(cfg.ResetDelay),
		wizard.WithVoidOnCancel(cfg.VoidOnCancel),
	)

	program := tea.NewProgram(tui.New(tui.Deps{
		Client:   client,
		Machine:  machine,
		Payments: orchestrator,
		Clock:    clk,
		Schedule: cfg.Schedule(),
		Timeout:  cfg.RequestTimeout,
	}), tea.WithAltScreen())
	_, err = program.Run()
	return err
}

// openNotifier picks where parent-frame messages go: a JSON lines file, or
// nowhere.
func openNotifier(cfg config.Config) (frame.Notifier, func(), error) {
	if cfg.MessagesFile == "" {
		return frame.Discard, func() {}, nil
	}
	var w io.WriteCloser
	if cfg.MessagesFile == "-" {
		w = nopCloser{os.Stderr}
	} else {
		f, err := os.OpenFile(cfg.MessagesFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open messages file: %w", err)
		}
		w = f
	}
	return frame.NewWriterNotifier(w), func() { _ = w.Close() }, nil
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
