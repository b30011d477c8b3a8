package tui

import (
	"strconv"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Spanish)

func formatUSD(v float64) string {
	return printer.Sprintf("US$ %.2f", v)
}

func formatBs(v float64) string {
	return printer.Sprintf("Bs. %.2f", v)
}

// formatBsAmount localizes an amount already rendered with two decimals.
func formatBsAmount(amount string) string {
	v, err := strconv.ParseFloat(amount, 64)
	if err != nil {
		return "Bs. " + amount
	}
	return formatBs(v)
}
