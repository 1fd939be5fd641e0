package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/SveinnSSR/lavashow-chat-2024/internal/conversation"
	"github.com/SveinnSSR/lavashow-chat-2024/internal/pricing"
	"github.com/SveinnSSR/lavashow-chat-2024/pkg/engine"
)

func newPriceCmd() *cobra.Command {
	var pkg string

	cmd := &cobra.Command{
		Use:   "price <message>",
		Short: "Price the party described in a message",
		Long: `Parse the visitor counts and package from a message and print the
itemised price, including age reclassification, the family bundle and
group discounts.`,
		Example: `  lavashow-cli price "2 adults and 2 kids"
  lavashow-cli price --package premium "a group of 12 adults"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, err := engine.New(engine.Config{Logger: logger})
			if err != nil {
				return err
			}

			var ctx *conversation.Context
			if pkg != "" {
				ctx = &conversation.Context{BookingInfo: conversation.BookingInfo{PackageType: pkg}}
			}

			b := eng.ComputePricing(strings.Join(args, " "), ctx)
			if outputJSON {
				return ui.JSON(b)
			}

			ui.Section("Price")
			ui.KeyValue("Package", b.Package)
			ui.Table([]string{"Category", "Count", "Each", "Total"}, breakdownRows(b))

			if b.IsFamilyBundle() {
				ui.Info("%s", b.Details)
			}
			if b.GroupDiscount != nil {
				ui.KeyValue("Group discount", fmt.Sprintf("%d%% (-%d %s)", b.GroupDiscount.Percentage, b.GroupDiscount.Amount, b.Currency))
			}
			if b.AgeReclassified > 0 {
				ui.KeyValue("Reclassified by age", b.AgeReclassified)
			}
			for _, f := range b.Flags {
				ui.Warning("%s", f)
			}
			ui.Success("Total: %d %s", b.TotalPrice, b.Currency)
			return nil
		},
	}

	cmd.Flags().StringVarP(&pkg, "package", "p", "", "package to price, overriding the message (classic, premium)")

	return cmd
}

func breakdownRows(b pricing.Breakdown) [][]string {
	if b.IsFamilyBundle() {
		return [][]string{{"family bundle", fmt.Sprint(b.Headcount()), "-", fmt.Sprint(b.BasePrice)}}
	}

	var rows [][]string
	for _, c := range []struct {
		name string
		cat  *pricing.Category
	}{
		{"adults", b.Adults},
		{"children", b.Children},
		{"students", b.Students},
		{"seniors", b.Seniors},
	} {
		if c.cat == nil {
			continue
		}
		rows = append(rows, []string{c.name, fmt.Sprint(c.cat.Count), fmt.Sprint(c.cat.PricePerPerson), fmt.Sprint(c.cat.Total)})
	}
	return rows
}
