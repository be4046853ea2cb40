package orchestrator

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/storage/memory"
)

var (
	day1   = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	day2   = time.Date(2025, 1, 7, 0, 0, 0, 0, time.UTC)
	day3   = time.Date(2025, 1, 8, 0, 0, 0, 0, time.UTC) // no data
	expiry = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
)

func clock(day time.Time, hh, mm int) time.Time {
	return day.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

// sessionTicks returns flat ticks, with a 65% up breakout on the 09:30 big
// candle when breakout is true.
func sessionTicks(day time.Time, breakout bool) []*domain.Candle {
	var out []*domain.Candle
	for t := clock(day, 9, 15); !t.After(clock(day, 15, 29)); t = t.Add(time.Minute) {
		price := 100.0
		if breakout {
			switch {
			case !t.Before(clock(day, 9, 45)):
				price = 103.25
			case !t.Before(clock(day, 9, 30)):
				price = 110
			}
		}
		c := &domain.Candle{Symbol: "NIFTY", TradeDate: day, Time: t, Open: price, High: price, Low: price, Close: price}
		if breakout && t.Equal(clock(day, 9, 30)) {
			c.Open, c.Low = 106, 100
		}
		out = append(out, c)
	}
	return out
}

func chain(day time.Time) []*domain.OptionQuote {
	prices := map[float64]float64{22000: 120, 22100: 80, 22200: 75, 22300: 70, 22400: 66, 22500: 45, 22600: 30}
	var out []*domain.OptionQuote
	for strike, p := range prices {
		for t := clock(day, 9, 15); !t.After(clock(day, 15, 29)); t = t.Add(time.Minute) {
			out = append(out, &domain.OptionQuote{
				OptionContract: domain.OptionContract{Symbol: "NIFTY", Expiry: expiry, Strike: strike, OptionType: domain.OptionTypeCall},
				TradeDate:      day,
				Time:           t,
				Open:           p, High: p, Low: p, Close: p,
			})
		}
	}
	return out
}

type testStores struct {
	ticks   *memory.IndexTickStore
	quotes  *memory.OptionQuoteStore
	book    *memory.LegBookStore
	results *memory.ResultStore
	pnl     *memory.PnLSnapshotStore
}

func createTestStores(t *testing.T) *testStores {
	t.Helper()
	ctx := context.Background()
	s := &testStores{
		ticks:   memory.NewIndexTickStore(),
		quotes:  memory.NewOptionQuoteStore(),
		book:    memory.NewLegBookStore(),
		results: memory.NewResultStore(),
		pnl:     memory.NewPnLSnapshotStore(),
	}
	require.NoError(t, s.ticks.InsertBulk(ctx, sessionTicks(day1, true)))
	require.NoError(t, s.ticks.InsertBulk(ctx, sessionTicks(day2, false)))
	require.NoError(t, s.quotes.InsertBulk(ctx, chain(day1)))
	require.NoError(t, s.quotes.InsertBulk(ctx, chain(day2)))
	return s
}

func testConfig() domain.StrategyConfig {
	cfg := domain.DefaultStrategyConfig()
	cfg.StrategyName = "breakout_60"
	cfg.FromDate = day1
	cfg.ToDate = day3
	return cfg
}

func (s *testStores) options(configs ...domain.StrategyConfig) Options {
	return Options{
		IndexTickStore:   s.ticks,
		OptionQuoteStore: s.quotes,
		LegBookStore:     s.book,
		ResultSink:       s.results,
		PnLSnapshotStore: s.pnl,
		StrategyConfigs:  configs,
		Workers:          2,
	}
}

func TestOrchestrator_Run_EmptyConfigs(t *testing.T) {
	s := createTestStores(t)

	result, err := New(s.options()).Run(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Zero(t, result.UnitsProcessed)
	assert.Zero(t, result.LegsClosed)
	assert.Empty(t, result.NoTradeDates)
}

func TestOrchestrator_Run_TradesAndNoTradeDates(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t)

	var reports []UnitReport
	opts := s.options(testConfig())
	opts.Workers = 1
	opts.Progress = func(r UnitReport) { reports = append(reports, r) }

	result, err := New(opts).Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 2, result.UnitsProcessed)
	assert.Equal(t, 1, result.UnitsTraded)
	assert.Equal(t, 5, result.LegsClosed)
	assert.Empty(t, result.Failures)
	assert.Len(t, reports, 2)

	rows, err := s.results.GetResults(ctx, "breakout_60")
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for _, r := range rows {
		assert.True(t, r.TradeDate.Equal(day1))
	}

	noTrade, err := s.results.GetNoTradeDates(ctx, "breakout_60")
	require.NoError(t, err)
	require.Len(t, noTrade, 2)
	assert.True(t, noTrade[0].TradeDate.Equal(day2))
	assert.Equal(t, domain.NoTradeNoBreakout, noTrade[0].Reason)
	assert.True(t, noTrade[1].TradeDate.Equal(day3))
	assert.Equal(t, domain.NoTradeNonTradingDay, noTrade[1].Reason)

	snaps, err := s.pnl.GetByStrategyDate(ctx, "breakout_60", day1)
	require.NoError(t, err)
	require.NotEmpty(t, snaps)
	assert.True(t, snaps[len(snaps)-1].Settled)
}

func TestOrchestrator_Run_InvalidConfigIsReported(t *testing.T) {
	s := createTestStores(t)
	bad := testConfig()
	bad.StrategyName = "bad"
	bad.SLType = "bogus"

	result, err := New(s.options(bad, testConfig())).Run(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.Equal(t, "bad", result.Failures[0].StrategyName)
	assert.Equal(t, "config", result.Failures[0].Stage)
	assert.Equal(t, 2, result.UnitsProcessed)
}

func TestOrchestrator_Run_RerunRebuilds(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t)
	orch := New(s.options(testConfig()))

	_, err := orch.Run(ctx)
	require.NoError(t, err)
	_, err = orch.Run(ctx)
	require.NoError(t, err)

	rows, err := s.results.GetResults(ctx, "breakout_60")
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	noTrade, err := s.results.GetNoTradeDates(ctx, "breakout_60")
	require.NoError(t, err)
	assert.Len(t, noTrade, 2)
}

// failingSink rejects result writes for one trade date.
type failingSink struct {
	*memory.ResultStore
	failOn time.Time
}

var errSinkDown = errors.New("sink unavailable")

func (f *failingSink) WriteResults(ctx context.Context, rows []*domain.StrategyRunResult) error {
	for _, r := range rows {
		if r.TradeDate.Equal(f.failOn) {
			return errSinkDown
		}
	}
	return f.ResultStore.WriteResults(ctx, rows)
}

func TestOrchestrator_Run_FailedUnitIsContained(t *testing.T) {
	ctx := context.Background()
	s := createTestStores(t)
	sink := &failingSink{ResultStore: s.results, failOn: day1}

	opts := s.options(testConfig())
	opts.ResultSink = sink

	result, err := New(opts).Run(ctx)
	require.NoError(t, err)

	require.Len(t, result.Failures, 1)
	assert.True(t, result.Failures[0].TradeDate.Equal(day1))
	assert.Contains(t, result.Failures[0].Err, errSinkDown.Error())

	noTrade, err := s.results.GetNoTradeDates(ctx, "breakout_60")
	require.NoError(t, err)
	require.Len(t, noTrade, 3)
	assert.Equal(t, domain.NoTradeFailed, noTrade[0].Reason)
}

func TestOrchestrator_Run_Cancelled(t *testing.T) {
	s := createTestStores(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(s.options(testConfig())).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
