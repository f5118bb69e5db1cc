package models

import "time"

// Quote is a point-in-time price snapshot for one symbol.
// Prices are integer currency units, ChangeRate is a percentage vs. prior close.
type Quote struct {
	Symbol      string
	Name        string
	Price       int64
	Change      int64
	ChangeRate  float64
	Open        int64
	High        int64
	Low         int64
	Volume      int64 // cumulative for the session
	TradeAmount int64
	Timestamp   time.Time
}

// Bar is one daily OHLCV candle.
type Bar struct {
	Symbol    string    `json:"symbol"`
	Date      time.Time `json:"date"`
	Open      int64     `json:"open"`
	High      int64     `json:"high"`
	Low       int64     `json:"low"`
	Close     int64     `json:"close"`
	Volume    int64     `json:"volume"`
	PrevClose int64     `json:"prev_close,omitempty"`
}

// DayKey - календарный день в формате 20060102.
func DayKey(t time.Time) string { return t.Format("20060102") }

// AvgVolume - средний дневной объём по свечам, 0 для пустого среза.
func AvgVolume(bars []Bar) int64 {
	if len(bars) == 0 {
		return 0
	}
	var sum int64
	for _, b := range bars {
		sum += b.Volume
	}
	return sum / int64(len(bars))
}
