package cmd

import (
	"fmt"
	"io"
	"log"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"taquilla-cli/access"
	"taquilla-cli/frame"
)

func newTokenCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "token [TOKEN]",
		Short: "Check an iframe access token",
		Long:  `Look up an access token and show what it allows. Defaults to the configured token.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(root)
			if err != nil {
				return err
			}
			log.SetOutput(io.Discard)
			token := cfg.IframeToken
			if len(args) == 1 {
				token = args[0]
			}

			var signals []frame.Message
			gate := access.NewGate(token, frame.NotifierFunc(func(m frame.Message) {
				signals = append(signals, m)
			}))
			checkErr := gate.Check(cmd.Context(), newClient(cfg))
			renderToken(cmd.OutOrStdout(), gate, signals)
			if checkErr != nil {
				return fmt.Errorf("token check: %w", checkErr)
			}
			return nil
		},
	}
}

func renderToken(out io.Writer, gate *access.Gate, signals []frame.Message) {
	info := gate.Info()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Campo", "Valor"})
	t.AppendRow(table.Row{"Estado", gate.State().String()})
	if info.Message != "" {
		t.AppendRow(table.Row{"Mensaje", info.Message})
	}
	if gate.Allowed() {
		methods := "todos"
		if len(info.AllowedPaymentMethods) > 0 {
			methods = strings.Join(info.AllowedPaymentMethods, ", ")
		}
		t.AppendRow(table.Row{"Métodos de pago", methods})
		t.AppendRow(table.Row{"Captcha", yesNo(info.RequireCaptcha)})
		if info.MaxUses > 0 {
			t.AppendRow(table.Row{"Usos", strconv.Itoa(info.Uses) + "/" + strconv.Itoa(info.MaxUses)})
		}
	}
	for _, s := range signals {
		t.AppendFooter(table.Row{"Señal", string(s.Type) + ": " + s.Message})
	}
	t.Render()
}

func yesNo(v bool) string {
	if v {
		return "sí"
	}
	return "no"
}
