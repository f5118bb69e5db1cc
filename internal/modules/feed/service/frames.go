package service

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"

	"momentum_bot/internal/models"
)

// wire-формат фида:
//   -> {"op":"subscribe","args":["005930", ...]}
//   -> {"op":"ping"}
//   <- {"channel":"quote"|"ranking","data":[{...quote...}]}
//   <- {"op":"pong"}

const (
	channelQuote   = "quote"
	channelRanking = "ranking"
)

type opFrame struct {
	Op   string   `json:"op"`
	Args []string `json:"args,omitempty"`
}

type quoteRow struct {
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Price       int64   `json:"price"`
	Change      int64   `json:"change"`
	ChangeRate  float64 `json:"change_rate"`
	Open        int64   `json:"open"`
	High        int64   `json:"high"`
	Low         int64   `json:"low"`
	Volume      int64   `json:"volume"`
	TradeAmount int64   `json:"trade_amount"`
	TsMs        int64   `json:"ts"`
}

type dataFrame struct {
	Op      string     `json:"op"`
	Channel string     `json:"channel"`
	Data    []quoteRow `json:"data"`
}

func subscribeFrame(symbols []string) ([]byte, error) {
	return sonic.Marshal(opFrame{Op: "subscribe", Args: symbols})
}

func pingFrame() ([]byte, error) {
	return sonic.Marshal(opFrame{Op: "ping"})
}

// decodeFrame возвращает nil без ошибки для служебных кадров (pong, ack).
func decodeFrame(msg []byte) ([]models.Quote, error) {
	var f dataFrame
	if err := sonic.Unmarshal(msg, &f); err != nil {
		return nil, errors.Wrap(err, "decode frame")
	}
	if f.Channel != channelQuote && f.Channel != channelRanking {
		return nil, nil
	}

	out := make([]models.Quote, 0, len(f.Data))
	for _, r := range f.Data {
		if r.Code == "" || r.Price <= 0 {
			continue
		}
		q := models.Quote{
			Symbol:      r.Code,
			Name:        r.Name,
			Price:       r.Price,
			Change:      r.Change,
			ChangeRate:  r.ChangeRate,
			Open:        r.Open,
			High:        r.High,
			Low:         r.Low,
			Volume:      r.Volume,
			TradeAmount: r.TradeAmount,
		}
		if r.TsMs > 0 {
			q.Timestamp = time.UnixMilli(r.TsMs)
		}
		out = append(out, q)
	}
	return out, nil
}
