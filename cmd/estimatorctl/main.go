package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"trdb-estimator/internal/market"
	"trdb-estimator/internal/pricing"
	"trdb-estimator/pkg/api"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "estimatorctl",
		Short:         "Fit-out cost estimator toolbox",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(estimateCmd(), priceCmd(), quotaCmd(), leadsCmd())
	return root
}

// estimateCmd computes an estimate locally from a market data directory,
// without going through the API.
func estimateCmd() *cobra.Command {
	var (
		dataDir string
		mkt     string
		quality string
		size    float64
		unit    string
		options []string
	)

	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Compute an estimate from local market data",
		RunE: func(cmd *cobra.Command, args []string) error {
			loader := market.NewLoader(dataDir, 10*time.Second, zap.NewNop())
			selector := market.NewSelector(loader)

			m, err := selector.Switch(cmd.Context(), mkt)
			if err != nil {
				return err
			}

			sizeFt2, err := pricing.ToSqft(size, unit)
			if err != nil {
				return err
			}

			result, err := pricing.ComputeCost(pricing.Request{
				Size:    sizeFt2,
				Quality: quality,
				Options: options,
			}, m)
			if err != nil {
				return err
			}

			fmt.Printf("Market:   %s (%s)\n", m.ID, m.Currency)
			fmt.Printf("Size:     %.0f sqft, quality %s\n", sizeFt2, quality)
			fmt.Printf("Base:     %.2f\n", result.Base)
			fmt.Printf("Total:    %.2f\n", result.Total)
			fmt.Printf("Per sqft: %.2f\n", result.PerUnit)
			fmt.Println("Breakdown:")
			for _, line := range result.Breakdown {
				fmt.Printf("  %-24s %14.2f\n", m.SliceLabel(line.Key), line.Amount)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataDir, "data", "data/markets", "market data directory or base URL")
	cmd.Flags().StringVar(&mkt, "market", "uae-dubai", "market id")
	cmd.Flags().StringVar(&quality, "quality", "standard", "quality tier")
	cmd.Flags().Float64Var(&size, "size", 0, "project size")
	cmd.Flags().StringVar(&unit, "unit", "sqft", "area unit (sqft or m2)")
	cmd.Flags().StringSliceVar(&options, "options", nil, "option keys")
	cmd.MarkFlagRequired("size")
	return cmd
}

// priceCmd queries the server-side pricing endpoint.
func priceCmd() *cobra.Command {
	var (
		baseURL string
		mkt     string
		quality string
		size    float64
		options []string
	)

	cmd := &cobra.Command{
		Use:   "price",
		Short: "Query the pricing endpoint",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(baseURL, "", zap.NewNop())
			resp, err := client.GetPricing(cmd.Context(), api.PricingRequest{
				Market:  mkt,
				Quality: quality,
				Size:    size,
				Options: options,
			})
			if err != nil {
				return err
			}

			fmt.Printf("Total:        %.0f (range %.0f – %.0f)\n", resp.Total, resp.Low, resp.High)
			fmt.Printf("Per sqft:     %.0f\n", resp.PerSqft)
			fmt.Printf("Fit-out base: %.0f\n", resp.FitoutBase)
			fmt.Printf("MEP base:     %.0f\n", resp.MEPBase)
			if len(resp.Breakdown) > 0 {
				fmt.Printf("Options:      %.0f\n", resp.OptionsTotal)
				for _, line := range resp.Breakdown {
					fmt.Printf("  %-28s %12.0f\n", line.Label, line.Value)
				}
			}
			fmt.Printf("Checksum:     %s\n", shorten(resp.Checksum))
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "estimator API base URL")
	cmd.Flags().StringVar(&mkt, "market", "uae-dubai", "market id")
	cmd.Flags().StringVar(&quality, "quality", "standard", "quality tier")
	cmd.Flags().Float64Var(&size, "size", 0, "project size in sqft")
	cmd.Flags().StringSliceVar(&options, "options", nil, "option keys")
	cmd.MarkFlagRequired("size")
	return cmd
}

// quotaCmd shows the weekly quota and wallet for a user token.
func quotaCmd() *cobra.Command {
	var (
		baseURL string
		token   string
	)

	cmd := &cobra.Command{
		Use:   "quota",
		Short: "Show weekly quota and wallet balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(baseURL, token, zap.NewNop())
			resp, err := client.GetQuota(cmd.Context())
			if err != nil {
				return err
			}

			fmt.Printf("User:     %s (%s/%s)\n", resp.UserEmail, resp.Tier, resp.Status)
			fmt.Printf("Usage:    %d/%d this week (resets in %d day(s))\n",
				resp.Usage.EstimatesUsed, resp.Usage.EstimatesLimit, resp.Usage.DaysUntilReset)
			fmt.Printf("Wallet:   %.2f credits (spent %.2f lifetime)\n",
				resp.Wallet.Balance, resp.Wallet.LifetimeSpent)
			fmt.Printf("Can create: %v\n", resp.CanCreate)
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "estimator API base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.MarkFlagRequired("token")
	return cmd
}

// leadsCmd lists captured leads, newest first.
func leadsCmd() *cobra.Command {
	var (
		baseURL string
		token   string
	)

	cmd := &cobra.Command{
		Use:   "leads",
		Short: "List captured leads",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(baseURL, token, zap.NewNop())
			resp, err := client.ListLeads(cmd.Context())
			if err != nil {
				return err
			}

			if len(resp.Leads) == 0 {
				fmt.Println("No leads captured yet.")
				return nil
			}
			for _, lead := range resp.Leads {
				fmt.Printf("%s  %-5s %3d  %-24s %-28s %.0f %s\n",
					lead.CreatedAt.Format("2006-01-02 15:04"),
					lead.Tier, lead.Score, lead.Name, lead.Email,
					lead.Total, lead.Currency)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseURL, "url", "http://localhost:8080", "estimator API base URL")
	cmd.Flags().StringVar(&token, "token", "", "bearer token")
	cmd.MarkFlagRequired("token")
	return cmd
}

func shorten(s string) string {
	if len(s) <= 16 {
		return s
	}
	return s[:16] + strings.Repeat(".", 3)
}
