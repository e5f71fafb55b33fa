package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/shopspring/decimal"
)

// Candle is one aggregated price/volume bucket.
//
// The upstream row layout is [time, low, high, open, close, volume] where
// time is the bucket start in unix seconds.
type Candle struct {
	Time   time.Time
	Low    decimal.Decimal
	High   decimal.Decimal
	Open   decimal.Decimal
	Close  decimal.Decimal
	Volume decimal.Decimal
}

const candleColumns = 6

// ErrUpstreamMessage is returned by ParseCandles when the body is an error
// object ({"message": "..."}) instead of a list of rows.
var ErrUpstreamMessage = errors.New("upstream returned a message instead of candles")

// ParseCandles decodes a candles response body into typed rows.
func ParseCandles(raw json.RawMessage) ([]Candle, error) {
	var rows [][]json.Number
	if err := json.Unmarshal(raw, &rows); err != nil {
		var msg struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &msg) == nil && msg.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrUpstreamMessage, msg.Message)
		}
		return nil, fmt.Errorf("decode candles: %w", err)
	}

	out := make([]Candle, 0, len(rows))
	for i, row := range rows {
		if len(row) < candleColumns {
			return nil, fmt.Errorf("row %d: expected %d columns, got %d", i, candleColumns, len(row))
		}
		ts, err := row[0].Int64()
		if err != nil {
			return nil, fmt.Errorf("row %d: time: %w", i, err)
		}
		var vals [candleColumns - 1]decimal.Decimal
		for j := 1; j < candleColumns; j++ {
			d, err := decimal.NewFromString(row[j].String())
			if err != nil {
				return nil, fmt.Errorf("row %d col %d: %w", i, j, err)
			}
			vals[j-1] = d
		}
		out = append(out, Candle{
			Time:   time.Unix(ts, 0).UTC(),
			Low:    vals[0],
			High:   vals[1],
			Open:   vals[2],
			Close:  vals[3],
			Volume: vals[4],
		})
	}
	return out, nil
}
