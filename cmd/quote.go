package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"golang.org/x/exp/maps"

	"taquilla-cli/config"
	"taquilla-cli/inventory"
	"taquilla-cli/model"
	"taquilla-cli/pricing"
	"taquilla-cli/selection"
	"taquilla-cli/store"
)

type quoteOptions struct {
	offline  bool
	zone     string
	quantity int
	seats    []string
	fullBox  bool
}

func newQuoteCmd(root *rootOptions) *cobra.Command {
	opts := &quoteOptions{}
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a selection without buying",
		Long: `Price a zone, box or set of seats. Without --zone the zone is chosen interactively.
With --offline the fixed catalog and configured prices are used and nothing is fetched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuote(cmd, root, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.offline, "offline", false, "quote from the fixed catalog without contacting the API")
	cmd.Flags().StringVar(&opts.zone, "zone", "", "zone to quote: general, a box code like B5, or a numbered zone id")
	cmd.Flags().IntVar(&opts.quantity, "quantity", 1, "tickets for general admission or a partial box")
	cmd.Flags().StringSliceVar(&opts.seats, "seats", nil, "seat ids for a numbered zone")
	cmd.Flags().BoolVar(&opts.fullBox, "full", false, "buy the whole box")
	return cmd
}

func runQuote(cmd *cobra.Command, root *rootOptions, opts *quoteOptions) error {
	cfg, err := loadConfig(root)
	if err != nil {
		return err
	}
	log.SetOutput(io.Discard)
	offline := opts.offline || cfg.Offline

	inv, rate := quoteSources(cmd.Context(), cfg, offline)
	sel := selection.New(inv)

	zone := strings.TrimSpace(opts.zone)
	if zone == "" {
		if zone, err = promptZone(inv); err != nil {
			return err
		}
	}
	if err := applyQuoteSelection(sel, zone, opts); err != nil {
		return err
	}
	if opts.zone == "" {
		if sel.Selection().ZoneType == selection.ZoneNumbered {
			err = promptSeats(sel)
		} else if !opts.fullBox {
			err = promptQuantity(sel)
		}
		if err != nil {
			return err
		}
	}

	renderQuote(cmd.OutOrStdout(), sel, rate)
	return nil
}

// quoteSources loads the inventory and exchange rate, falling back to the
// fixed catalog and no rate when the API is unreachable.
func quoteSources(ctx context.Context, cfg config.Config, offline bool) (*inventory.Inventory, *float64) {
	catalog := inventory.NewCatalog(cfg.General(), cfg.Schedule())
	if offline {
		return catalog, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	client := newClient(cfg)

	inv := catalog
	if snap, fresh, err := store.LoadInventoryCache(); err == nil && fresh {
		inv = inventory.FromSnapshot(snap, cfg.Schedule())
	} else if snap, err := client.Inventory(ctx); err == nil {
		_ = store.SaveInventoryCache(snap)
		inv = inventory.FromSnapshot(snap, cfg.Schedule())
	}

	var rate *float64
	if cached, fresh, err := store.LoadRateCache(); err == nil && fresh {
		rate = &cached.Rate
	} else if r, err := client.ExchangeRate(ctx); err == nil && r.Rate > 0 {
		_ = store.SaveRateCache(r)
		rate = &r.Rate
	}
	return inv, rate
}

func applyQuoteSelection(sel *selection.Controller, zone string, opts *quoteOptions) error {
	inv := sel.Inventory()
	switch {
	case strings.EqualFold(zone, inventory.GeneralZoneID) || strings.EqualFold(zone, inv.General().Code):
		sel.SelectPreferencial()
		setQuantity(sel, opts.quantity)
		return nil
	case isBoxCode(inv, zone):
		if err := sel.SelectBox(strings.ToUpper(zone)); err != nil {
			return err
		}
		if opts.fullBox {
			return sel.SetFullBox(true)
		}
		setQuantity(sel, opts.quantity)
		return nil
	}

	if err := sel.SelectNumberedZone(zone); err != nil {
		return fmt.Errorf("unknown zone %q: %w", zone, err)
	}
	for _, id := range opts.seats {
		if err := sel.ToggleSeat(strings.TrimSpace(id)); err != nil {
			return fmt.Errorf("seat %s: %w", id, err)
		}
	}
	return nil
}

func isBoxCode(inv *inventory.Inventory, code string) bool {
	_, ok := inv.Box(strings.ToUpper(code))
	return ok
}

func setQuantity(sel *selection.Controller, quantity int) {
	for sel.Quantity() < quantity {
		before := sel.Quantity()
		sel.Increment()
		if sel.Quantity() == before {
			return
		}
	}
}

func promptZone(inv *inventory.Inventory) (string, error) {
	general := inv.General()
	zoneByLabel := map[string]string{
		fmt.Sprintf("%s (%s)", general.Name, formatUSD(general.PriceUSD)): inventory.GeneralZoneID,
	}
	for _, zone := range inv.NumberedZones() {
		zoneByLabel[fmt.Sprintf("%s (%s)", zone.Name, formatUSD(zone.PriceUSD))] = zone.Id
	}
	for _, box := range inv.Boxes() {
		if box.SoldOut() {
			continue
		}
		zoneByLabel[fmt.Sprintf("Box %s (%d libres)", box.Code, box.Available)] = box.Code
	}

	labels := maps.Keys(zoneByLabel)
	sort.Strings(labels)
	prompt := promptui.Select{
		Label: "Zona",
		Items: labels,
		Size:  12,
		Searcher: func(input string, index int) bool {
			return strings.Contains(strings.ToLower(labels[index]), strings.ToLower(input))
		},
	}
	_, label, err := prompt.Run()
	if err != nil {
		return "", err
	}
	return zoneByLabel[label], nil
}

func promptQuantity(sel *selection.Controller) error {
	if sel.Selection().ZoneType == selection.ZoneBox {
		full := promptui.Prompt{Label: "¿Box completo?", IsConfirm: true}
		if _, err := full.Run(); err == nil {
			return sel.SetFullBox(true)
		} else if !errors.Is(err, promptui.ErrAbort) {
			return err
		}
	}
	prompt := promptui.Prompt{
		Label:   "Cantidad",
		Default: "1",
		Validate: func(input string) error {
			n, err := strconv.Atoi(strings.TrimSpace(input))
			if err != nil || n < pricing.MinQuantity || n > pricing.MaxGeneralQuantity {
				return fmt.Errorf("entre %d y %d", pricing.MinQuantity, pricing.MaxGeneralQuantity)
			}
			return nil
		},
	}
	input, err := prompt.Run()
	if err != nil {
		return err
	}
	n, _ := strconv.Atoi(strings.TrimSpace(input))
	setQuantity(sel, n)
	return nil
}

func promptSeats(sel *selection.Controller) error {
	s := sel.Selection()
	var free []string
	for _, seat := range sel.Inventory().Seats(s.Zone.Id) {
		if seat.Status == model.SeatAvailable {
			free = append(free, seat.Id)
		}
	}
	prompt := promptui.Prompt{
		Label: fmt.Sprintf("Asientos separados por coma (%d libres)", len(free)),
	}
	input, err := prompt.Run()
	if err != nil {
		return err
	}
	for _, id := range strings.Split(input, ",") {
		if id = strings.TrimSpace(id); id == "" {
			continue
		}
		if err := sel.ToggleSeat(id); err != nil {
			return fmt.Errorf("seat %s: %w", id, err)
		}
	}
	return nil
}

func renderQuote(out io.Writer, sel *selection.Controller, rate *float64) {
	snap := sel.Snapshot()
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.AppendHeader(table.Row{"Zona", "Tipo", "Cantidad", "Precio unitario", "Total USD", "Total Bs"})
	t.AppendRow(table.Row{
		snap.ZoneName,
		quoteKind(snap),
		snap.Quantity,
		formatUSD(snap.UnitPrice),
		formatUSD(snap.TotalPrice),
		pricing.BsAmount(snap.TotalPrice, rate),
	})
	if len(snap.SeatIds) > 0 {
		t.AppendFooter(table.Row{"Asientos", strings.Join(snap.SeatIds, ", ")})
	}
	if snap.IsBoxPurchase && !snap.BoxFullPurchase {
		if savings := sel.Inventory().Schedule().BoxSavings(); savings > 0 {
			t.AppendFooter(table.Row{"Box completo", "ahorra " + formatUSD(savings)})
		}
	}
	t.Render()
}

func quoteKind(s selection.Snapshot) string {
	switch {
	case s.BoxFullPurchase:
		return "box completo"
	case s.IsBoxPurchase:
		return "box por puesto"
	case s.TicketType == string(model.ZoneTypeVIP):
		return "numerado"
	default:
		return "general"
	}
}

func formatUSD(v float64) string {
	return "US$ " + strconv.FormatFloat(v, 'f', 2, 64)
}
