package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage"
)

// StrategyConfigStore implements storage.StrategyConfigStore using PostgreSQL.
type StrategyConfigStore struct {
	pool *Pool
}

// NewStrategyConfigStore creates a new StrategyConfigStore.
func NewStrategyConfigStore(pool *Pool) *StrategyConfigStore {
	return &StrategyConfigStore{pool: pool}
}

// Compile-time interface check.
var _ storage.StrategyConfigStore = (*StrategyConfigStore)(nil)

const strategyColumns = `
	strategy_name, big_candle_tf, small_candle_tf, one_m_candle_tf,
	preferred_breakout_type, reentry_breakout_type, breakout_threshold_pct,
	option_entry_price_cap, hedge_entry_price_cap, num_entry_legs, num_hedge_legs,
	sl_percentage, sl_type, box_sl_trigger_pct, box_sl_hard_pct, width_sl_pct, switch_pct,
	eod_time, no_of_lots, lot_size,
	hedge_exit_entry_ratio, hedge_exit_multiplier, leg_profit_pct,
	portfolio_profit_target_pct, portfolio_stop_loss_pct, portfolio_capital,
	max_reentry_rounds, entry_candle, from_date, to_date,
	symbol, double_buy_enabled, rehedge_enabled, rehedge_trigger_pct, max_rehedges,
	allow_same_strike_reentry, halt_on_portfolio_threshold`

// Replace swaps the whole configuration set in one transaction.
func (s *StrategyConfigStore) Replace(ctx context.Context, configs []domain.StrategyConfig) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM strategy_settings`); err != nil {
		return fmt.Errorf("clear strategy settings: %w", err)
	}

	query := `INSERT INTO strategy_settings (` + strategyColumns + `) VALUES (
		$1, $2, $3, $4,
		$5, $6, $7,
		$8, $9, $10, $11,
		$12, $13, $14, $15, $16, $17,
		$18, $19, $20,
		$21, $22, $23,
		$24, $25, $26,
		$27, $28, $29, $30,
		$31, $32, $33, $34, $35,
		$36, $37
	)`

	for _, c := range configs {
		if c.StrategyName == "" {
			return storage.ErrInvalidInput
		}
		_, err := tx.Exec(ctx, query,
			c.StrategyName, c.BigCandleTF, c.SmallCandleTF, c.OneMCandleTF,
			c.PreferredBreakoutType, c.ReentryBreakoutType, c.BreakoutThresholdPct,
			c.OptionEntryPriceCap, c.HedgeEntryPriceCap, c.NumEntryLegs, c.NumHedgeLegs,
			c.SLPercentage, c.SLType, c.BoxSLTriggerPct, c.BoxSLHardPct, c.WidthSLPct, c.SwitchPct,
			c.EODTime, c.NoOfLots, c.LotSize,
			c.HedgeExitEntryRatio, c.HedgeExitMultiplier, c.LegProfitPct,
			c.PortfolioProfitTargetPct, c.PortfolioStopLossPct, c.PortfolioCapital,
			c.MaxReentryRounds, c.EntryCandle, c.FromDate, c.ToDate,
			c.UnderlyingSymbol(), c.DoubleBuyEnabled, c.RehedgeEnabled, c.RehedgeTriggerPct, c.MaxRehedges,
			c.AllowSameStrikeReentry, c.HaltOnPortfolioThreshold,
		)
		if err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert strategy %s: %w", c.StrategyName, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// Get retrieves a strategy by name. Returns ErrNotFound if not exists.
func (s *StrategyConfigStore) Get(ctx context.Context, name string) (*domain.StrategyConfig, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategy_settings WHERE strategy_name = $1`

	c, err := scanStrategyConfig(s.pool.QueryRow(ctx, query, name))
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get strategy %s: %w", name, err)
	}
	return c, nil
}

// List returns all strategies ordered by name.
func (s *StrategyConfigStore) List(ctx context.Context) ([]domain.StrategyConfig, error) {
	query := `SELECT ` + strategyColumns + ` FROM strategy_settings ORDER BY strategy_name ASC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	defer rows.Close()

	var configs []domain.StrategyConfig
	for rows.Next() {
		c, err := scanStrategyConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("scan strategy row: %w", err)
		}
		configs = append(configs, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate strategy rows: %w", err)
	}
	return configs, nil
}

// scanStrategyConfig scans a single row into a StrategyConfig.
func scanStrategyConfig(row pgx.Row) (*domain.StrategyConfig, error) {
	var c domain.StrategyConfig

	err := row.Scan(
		&c.StrategyName, &c.BigCandleTF, &c.SmallCandleTF, &c.OneMCandleTF,
		&c.PreferredBreakoutType, &c.ReentryBreakoutType, &c.BreakoutThresholdPct,
		&c.OptionEntryPriceCap, &c.HedgeEntryPriceCap, &c.NumEntryLegs, &c.NumHedgeLegs,
		&c.SLPercentage, &c.SLType, &c.BoxSLTriggerPct, &c.BoxSLHardPct, &c.WidthSLPct, &c.SwitchPct,
		&c.EODTime, &c.NoOfLots, &c.LotSize,
		&c.HedgeExitEntryRatio, &c.HedgeExitMultiplier, &c.LegProfitPct,
		&c.PortfolioProfitTargetPct, &c.PortfolioStopLossPct, &c.PortfolioCapital,
		&c.MaxReentryRounds, &c.EntryCandle, &c.FromDate, &c.ToDate,
		&c.Symbol, &c.DoubleBuyEnabled, &c.RehedgeEnabled, &c.RehedgeTriggerPct, &c.MaxRehedges,
		&c.AllowSameStrikeReentry, &c.HaltOnPortfolioThreshold,
	)
	if err != nil {
		return nil, err
	}

	c.FromDate = domain.TruncateDate(c.FromDate)
	c.ToDate = domain.TruncateDate(c.ToDate)
	return &c, nil
}
