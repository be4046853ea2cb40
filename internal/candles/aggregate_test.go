package candles

import (
	"errors"
	"testing"
	"time"

	"options-breakout-lab/internal/domain"
)

var testDate = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)

func at(hh, mm int) time.Time {
	return testDate.Add(time.Duration(hh)*time.Hour + time.Duration(mm)*time.Minute)
}

func makeTick(hh, mm int, o, h, l, c float64) *domain.Candle {
	return &domain.Candle{
		Symbol:    "NIFTY",
		TradeDate: testDate,
		Time:      at(hh, mm),
		Open:      o,
		High:      h,
		Low:       l,
		Close:     c,
		Volume:    10,
	}
}

func TestAggregate_BucketsAnchoredAtSessionOpen(t *testing.T) {
	ticks := []*domain.Candle{
		makeTick(9, 14, 1, 1, 1, 1), // before anchor, dropped
		makeTick(9, 15, 100, 105, 99, 104),
		makeTick(9, 20, 104, 110, 103, 108),
		makeTick(9, 29, 108, 109, 95, 97),
		makeTick(9, 30, 97, 98, 96, 96.5),
	}

	got, err := Aggregate(ticks, 15, domain.SessionAnchor(testDate))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}

	first := got[0]
	if !first.Time.Equal(at(9, 15)) {
		t.Errorf("first candle time: got %s, want 09:15", first.Time)
	}
	if first.Open != 100 || first.High != 110 || first.Low != 95 || first.Close != 97 {
		t.Errorf("unexpected OHLC: %+v", first)
	}
	if first.Volume != 30 {
		t.Errorf("volume: got %d, want 30", first.Volume)
	}
	if !got[1].Time.Equal(at(9, 30)) {
		t.Errorf("second candle time: got %s, want 09:30", got[1].Time)
	}
}

func TestAggregate_SkipsEmptyBuckets(t *testing.T) {
	ticks := []*domain.Candle{
		makeTick(9, 15, 1, 1, 1, 1),
		makeTick(9, 47, 2, 2, 2, 2),
	}

	got, err := Aggregate(ticks, 5, domain.SessionAnchor(testDate))
	if err != nil {
		t.Fatalf("Aggregate failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 candles, got %d", len(got))
	}
	if !got[1].Time.Equal(at(9, 45)) {
		t.Errorf("second bucket: got %s, want 09:45", got[1].Time)
	}
}

func TestAggregate_RejectsOutOfOrder(t *testing.T) {
	ticks := []*domain.Candle{
		makeTick(9, 20, 1, 1, 1, 1),
		makeTick(9, 16, 1, 1, 1, 1),
	}

	_, err := Aggregate(ticks, 1, domain.SessionAnchor(testDate))
	if !errors.Is(err, ErrOutOfOrder) {
		t.Errorf("expected ErrOutOfOrder, got %v", err)
	}
}

func TestAggregate_InvalidTimeframe(t *testing.T) {
	_, err := Aggregate(nil, 0, domain.SessionAnchor(testDate))
	if !errors.Is(err, ErrInvalidTimeframe) {
		t.Errorf("expected ErrInvalidTimeframe, got %v", err)
	}
}

func TestAggregateQuotes_PerContract(t *testing.T) {
	expiry := time.Date(2025, 1, 9, 0, 0, 0, 0, time.UTC)
	ce := domain.OptionContract{Symbol: "NIFTY", Expiry: expiry, Strike: 23500, OptionType: domain.OptionTypeCall}
	pe := domain.OptionContract{Symbol: "NIFTY", Expiry: expiry, Strike: 23500, OptionType: domain.OptionTypePut}

	quotes := []*domain.OptionQuote{
		{OptionContract: ce, Time: at(9, 15), Open: 80, High: 82, Low: 79, Close: 81},
		{OptionContract: pe, Time: at(9, 15), Open: 60, High: 61, Low: 58, Close: 59},
		{OptionContract: ce, Time: at(9, 16), Open: 81, High: 85, Low: 80, Close: 84},
		{OptionContract: pe, Time: at(9, 16), Open: 59, High: 60, Low: 55, Close: 56},
	}

	got, err := AggregateQuotes(quotes, 5, domain.SessionAnchor(testDate))
	if err != nil {
		t.Fatalf("AggregateQuotes failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(got))
	}
	if got[0].OptionType != domain.OptionTypeCall || got[0].High != 85 || got[0].Close != 84 {
		t.Errorf("unexpected CE bar: %+v", got[0])
	}
	if got[1].OptionType != domain.OptionTypePut || got[1].Low != 55 || got[1].Close != 56 {
		t.Errorf("unexpected PE bar: %+v", got[1])
	}
}

func TestBuild_DataGap(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	ticks := []*domain.Candle{makeTick(9, 0, 1, 1, 1, 1)}

	_, err := Build(ticks, testDate, cfg)
	if !IsDataGap(err) {
		t.Fatalf("expected DataGapError, got %v", err)
	}
}

func TestBuild_ProducesAllTimeframes(t *testing.T) {
	cfg := domain.DefaultStrategyConfig()
	var ticks []*domain.Candle
	for m := 0; m < 30; m++ {
		p := 100 + float64(m)
		ticks = append(ticks, makeTick(9, 15+m, p, p+1, p-1, p+0.5))
	}

	frames, err := Build(ticks, testDate, cfg)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(frames.OneM) != 30 || len(frames.Small) != 6 || len(frames.Big) != 2 {
		t.Errorf("unexpected counts: 1m=%d small=%d big=%d", len(frames.OneM), len(frames.Small), len(frames.Big))
	}
	if len(frames.HABig) != len(frames.Big) {
		t.Errorf("HA big count mismatch")
	}
}
