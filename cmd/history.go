package cmd

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"taquilla-cli/store"
)

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List purchases made from this machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			receipts, err := store.LoadReceipts()
			if err != nil {
				return err
			}
			if len(receipts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Sin compras registradas.")
				return nil
			}
			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.AppendHeader(table.Row{"Fecha", "Transacción", "Estado", "Método", "Zona", "Cant.", "Total", "Entradas"})
			for _, r := range receipts {
				t.AppendRow(table.Row{
					r.At.Local().Format("2006-01-02 15:04"),
					r.TransactionId,
					r.Status,
					r.Method,
					r.ZoneName,
					r.Quantity,
					formatUSD(r.TotalUSD),
					strings.Join(r.TicketNumbers, ", "),
				})
			}
			t.Render()
			return nil
		},
	}
}
