package main

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage/backend"
	"options-breakout-lab/internal/verification"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Replay stored units and compare their rows",
	Long: `Re-simulate every (strategy, trade date) with stored results using the
current strategy settings and market data, and report units whose rows differ.
Replays write nothing back.`,
	RunE: runVerify,
}

func runVerify(cmd *cobra.Command, args []string) error {
	if err := requireDatabase("verify"); err != nil {
		return err
	}
	ctx := cmd.Context()
	stores, err := backend.Open(ctx, cfg.Storage)
	if err != nil {
		return err
	}
	defer stores.Close()

	v := verification.NewReplayVerifier(verification.ReplayVerifierOptions{
		IndexTickStore:      stores.IndexTicks,
		OptionQuoteStore:    stores.OptionQuotes,
		ResultStore:         stores.Results,
		StrategyConfigStore: stores.StrategyConfigs,
	})
	report, err := v.VerifyAll(ctx)
	if err != nil {
		return err
	}

	for _, r := range report.Results {
		if r.Match {
			continue
		}
		fmt.Printf("%s %s: stored %d rows (%s), replayed %d rows (%s)\n",
			r.StrategyName, r.TradeDate.Format(domain.DateLayout),
			r.StoredRows, r.StoredPnL.StringFixed(2), r.ReplayedRows, r.ReplayedPnL.StringFixed(2))
		for _, d := range r.Divergences {
			fmt.Printf("    %s\n", d)
		}
	}
	fmt.Printf("Verified %d units: %d matched, %d diverged\n",
		report.TotalUnits, report.MatchedUnits, report.DivergentUnits)
	log.Info().Int("units", report.TotalUnits).Int("diverged", report.DivergentUnits).Msg("Verification finished")

	if report.DivergentUnits > 0 {
		return fmt.Errorf("%d units diverged", report.DivergentUnits)
	}
	return nil
}
