package contracts

import (
	"encoding/json"
	"fmt"
	"time"
)

// FeatureColumns lists the engineered columns in output order
var FeatureColumns = []string{
	"daily_return",
	"rolling_volatility_5",
	"moving_avg_10",
	"macd",
	"rsi_14",
	"volume_change",
	"avg_volume_10",
	"best_buy_sell_spread",
	"close_to_best_buy",
	"market_type_NM",
	"asset_type_ON",
	"day_of_week",
	"price_momentum_5",
	"high_breakout_20",
	"bollinger_upper",
	"stochastic_14",
}

// FeaturedRecord is one engineered row of b3_featured.
// Every feature is finite; rows that are not are never built.
// ⭐ SSOT: b3_featured 한 행
type FeaturedRecord struct {
	Date    time.Time `json:"-"`
	Ticker  string    `json:"ticker"`
	Company string    `json:"company"`

	DailyReturn        float64 `json:"daily_return"`
	RollingVolatility5 float64 `json:"rolling_volatility_5"`
	MovingAvg10        float64 `json:"moving_avg_10"`
	MACD               float64 `json:"macd"`
	RSI14              float64 `json:"rsi_14"`
	VolumeChange       float64 `json:"volume_change"`
	AvgVolume10        float64 `json:"avg_volume_10"`
	BestBuySellSpread  float64 `json:"best_buy_sell_spread"`
	CloseToBestBuy     float64 `json:"close_to_best_buy"`
	MarketTypeNM       int     `json:"market_type_NM"`
	AssetTypeON        int     `json:"asset_type_ON"`
	DayOfWeek          int     `json:"day_of_week"`
	PriceMomentum5     float64 `json:"price_momentum_5"`
	HighBreakout20     int     `json:"high_breakout_20"`
	BollingerUpper     float64 `json:"bollinger_upper"`
	Stochastic14       float64 `json:"stochastic_14"`
}

// Features returns the engineered values in FeatureColumns order
func (r *FeaturedRecord) Features() []float64 {
	return []float64{
		r.DailyReturn,
		r.RollingVolatility5,
		r.MovingAvg10,
		r.MACD,
		r.RSI14,
		r.VolumeChange,
		r.AvgVolume10,
		r.BestBuySellSpread,
		r.CloseToBestBuy,
		float64(r.MarketTypeNM),
		float64(r.AssetTypeON),
		float64(r.DayOfWeek),
		r.PriceMomentum5,
		float64(r.HighBreakout20),
		r.BollingerUpper,
		r.Stochastic14,
	}
}

// SetFeatures assigns values given in FeatureColumns order
func (r *FeaturedRecord) SetFeatures(v []float64) error {
	if len(v) != len(FeatureColumns) {
		return fmt.Errorf("expected %d feature values, got %d", len(FeatureColumns), len(v))
	}
	r.DailyReturn = v[0]
	r.RollingVolatility5 = v[1]
	r.MovingAvg10 = v[2]
	r.MACD = v[3]
	r.RSI14 = v[4]
	r.VolumeChange = v[5]
	r.AvgVolume10 = v[6]
	r.BestBuySellSpread = v[7]
	r.CloseToBestBuy = v[8]
	r.MarketTypeNM = int(v[9])
	r.AssetTypeON = int(v[10])
	r.DayOfWeek = int(v[11])
	r.PriceMomentum5 = v[12]
	r.HighBreakout20 = int(v[13])
	r.BollingerUpper = v[14]
	r.Stochastic14 = v[15]
	return nil
}

type featuredJSON FeaturedRecord

// MarshalJSON renders the date as YYYY-MM-DD ahead of the other fields
func (r FeaturedRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Date string `json:"date"`
		featuredJSON
	}{
		Date:         r.Date.Format(DateLayout),
		featuredJSON: featuredJSON(r),
	})
}

// UnmarshalJSON is the inverse of MarshalJSON (cache reads)
func (r *FeaturedRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		Date string `json:"date"`
		featuredJSON
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = FeaturedRecord(aux.featuredJSON)
	if aux.Date != "" {
		d, err := ParseDate(aux.Date)
		if err != nil {
			return fmt.Errorf("featured date: %w", err)
		}
		r.Date = d
	}
	return nil
}

// AssetSummary is one distinct (ticker, company) pair of b3_featured
type AssetSummary struct {
	Ticker  string `json:"ticker"`
	Company string `json:"company"`
}

// AssetFilter narrows a ListAssets query. Search is already normalized.
type AssetFilter struct {
	Search string
	Limit  int
	Offset int
}
