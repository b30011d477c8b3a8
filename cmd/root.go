// Package cmd holds the taquilla command line.
package cmd

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"taquilla-cli/config"
	"taquilla-cli/service"
)

const appName = "taquilla-cli"

var (
	version = "dev"
	commit  = "none"
)

type rootOptions struct {
	apiURL string
	token  string
	debug  bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "taquilla",
		Short:         "Concert ticket checkout from the terminal",
		Long:          `Buy concert tickets (general admission, boxes or numbered seats) and pay with Pago Móvil, transfer, Zelle or PayPal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuy(cmd, opts)
		},
	}
	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "platform API base URL (overrides TAQUILLA_API_URL)")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "iframe access token (overrides TAQUILLA_IFRAME_TOKEN)")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "write debug logs to taquilla-debug.log")

	root.AddCommand(
		newBuyCmd(opts),
		newQuoteCmd(opts),
		newTokenCmd(opts),
		newHistoryCmd(),
		newVersionCmd(),
	)
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig(opts *rootOptions) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}
	if v := strings.TrimSpace(opts.apiURL); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	if v := strings.TrimSpace(opts.token); v != "" {
		cfg.IframeToken = v
	}
	if opts.debug {
		cfg.Debug = true
	}
	return cfg, nil
}

func newClient(cfg config.Config) *service.Client {
	return service.NewClient(cfg.APIURL, &http.Client{Timeout: cfg.RequestTimeout})
}

// setupLogging routes the standard logger to a file in debug mode. The
// terminal belongs to the UI otherwise, so logs are dropped.
func setupLogging(debug bool) (func(), error) {
	if !debug {
		log.SetOutput(io.Discard)
		return func() {}, nil
	}
	f, err := tea.LogToFile("taquilla-debug.log", "taquilla")
	if err != nil {
		return nil, fmt.Errorf("open debug log: %w", err)
	}
	return func() { _ = f.Close() }, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of taquilla",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %s", appName, version)
			if commit != "none" && commit != "" {
				fmt.Fprintf(out, " (%s)", commit)
			}
			fmt.Fprintln(out)
		},
	}
}
