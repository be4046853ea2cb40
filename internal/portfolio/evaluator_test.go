package portfolio

import (
	"testing"
	"time"

	"options-breakout-lab/internal/domain"
	"options-breakout-lab/internal/marketdata"
)

var (
	testDay    = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	testExpiry = time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
)

func at(hh, mm int) time.Time {
	return testDay.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func quotes(strike float64, start time.Time, closes ...float64) []*domain.OptionQuote {
	out := make([]*domain.OptionQuote, len(closes))
	for i, c := range closes {
		out[i] = &domain.OptionQuote{
			OptionContract: domain.OptionContract{Symbol: "NIFTY", Expiry: testExpiry, Strike: strike, OptionType: domain.OptionTypeCall},
			TradeDate:      testDay,
			Time:           start.Add(time.Duration(i) * time.Minute),
			Open:           c,
			High:           c,
			Low:            c,
			Close:          c,
		}
	}
	return out
}

func timeline(from time.Time, n int) []time.Time {
	out := make([]time.Time, n)
	for i := range out {
		out[i] = from.Add(time.Duration(i) * time.Minute)
	}
	return out
}

func leg(strike float64, tx domain.TransactionType, entry time.Time, price float64) *domain.Leg {
	lt := domain.LegTypeEntry
	if tx == domain.TransactionSell {
		lt = domain.LegTypeHedge
	}
	key := domain.LegKey{Strategy: "s1", TradeDate: testDay, ExpiryDate: testExpiry, Strike: strike, OptionType: domain.OptionTypeCall, EntryRound: 1, LegType: lt}
	return domain.NewLeg(key, "NIFTY", tx, domain.LegOriginPrimary, 75, entry, entry, price)
}

func testConfig() domain.StrategyConfig {
	cfg := domain.DefaultStrategyConfig()
	cfg.StrategyName = "s1"
	cfg.PortfolioCapital = 100000
	cfg.PortfolioProfitTargetPct = 2
	cfg.PortfolioStopLossPct = 2
	return cfg
}

func TestThresholds(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	target, stop := Thresholds(cfg)
	if target.StringFixed(2) != "18000.00" || stop.StringFixed(2) != "18000.00" {
		t.Errorf("expected 18000.00/18000.00, got %s/%s", target.StringFixed(2), stop.StringFixed(2))
	}
}

func TestEvaluate_ProfitTargetCrossing(t *testing.T) {
	chain := marketdata.NewChain(testExpiry, quotes(22000, at(9, 30), 80, 90, 110, 111))
	l := leg(22000, domain.TransactionBuy, at(9, 30), 80)
	_ = l.Close(at(9, 32), 110, domain.ExitReasonProfit)

	res := NewEvaluator(testConfig(), testDay, chain, timeline(at(9, 15), 60)).Evaluate([]*domain.Leg{l})

	if len(res.Records) != 4 {
		t.Fatalf("expected 3 ticks and a settled record, got %d", len(res.Records))
	}
	want := []string{"0.00", "750.00", "2250.00"}
	for i, w := range want {
		if got := res.Records[i].MTMPnL.StringFixed(2); got != w {
			t.Errorf("tick %d: expected %s, got %s", i, w, got)
		}
	}

	settled := res.Settled()
	if settled == nil || !settled.Timestamp.Equal(at(9, 32)) || settled.RealizedPnL.StringFixed(2) != "2250.00" {
		t.Fatalf("unexpected settled record: %+v", settled)
	}

	if len(res.Events) != 1 {
		t.Fatalf("expected one threshold event, got %d", len(res.Events))
	}
	ev := res.Events[0]
	if ev.Kind != domain.ThresholdProfitTarget || !ev.Time.Equal(at(9, 32)) || ev.Threshold.StringFixed(2) != "2000.00" {
		t.Errorf("unexpected event: %+v", ev)
	}
}

func TestEvaluate_StopLossAndLaterEntries(t *testing.T) {
	q := quotes(22000, at(9, 30), 80, 70, 50, 52, 52)
	q = append(q, quotes(22500, at(9, 30), 40, 40, 40, 40, 20)...)
	chain := marketdata.NewChain(testExpiry, q)

	entry := leg(22000, domain.TransactionBuy, at(9, 30), 80)
	_ = entry.Close(at(9, 33), 52, domain.ExitReasonSL)
	hedge := leg(22500, domain.TransactionSell, at(9, 34), 40)
	_ = hedge.Close(at(9, 34), 20, domain.ExitReasonHedgeTriggered)

	e := NewEvaluator(testConfig(), testDay, chain, timeline(at(9, 15), 60))
	res := e.Evaluate([]*domain.Leg{entry, hedge})

	// 09:32 entry at 50: -2250.
	var stop *domain.PortfolioThresholdEvent
	for _, ev := range res.Events {
		if ev.Kind == domain.ThresholdStopLoss {
			stop = ev
		}
	}
	if stop == nil || !stop.Time.Equal(at(9, 32)) || stop.PnL.StringFixed(2) != "-2250.00" {
		t.Fatalf("unexpected stop event: %+v", stop)
	}

	// Hedge is excluded before its entry.
	mtm, _ := e.MTM([]*domain.Leg{entry, hedge}, at(9, 33))
	if mtm.StringFixed(2) != "-2100.00" {
		t.Errorf("expected -2100.00 at 09:33, got %s", mtm.StringFixed(2))
	}

	settled := res.Settled()
	if settled == nil || settled.MTMPnL.StringFixed(2) != "-600.00" {
		t.Errorf("expected settled -600.00, got %+v", settled)
	}

	if !e.Crossed([]*domain.Leg{entry, hedge}, at(9, 32)) {
		t.Error("expected crossing by 09:32")
	}
	if e.Crossed([]*domain.Leg{entry, hedge}, at(9, 31)) {
		t.Error("no crossing expected by 09:31")
	}
}

func TestEvaluate_NoLegs(t *testing.T) {
	res := NewEvaluator(testConfig(), testDay, marketdata.NewChain(testExpiry, nil), timeline(at(9, 15), 10)).Evaluate(nil)
	if len(res.Records) != 0 || len(res.Events) != 0 || res.Settled() != nil {
		t.Error("expected empty result")
	}
}
