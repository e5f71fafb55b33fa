package dto

import "github.com/segmentio/encoding/json"

// HistoryRequest is the body of POST /api/v1/history.
type HistoryRequest struct {
	Pairs       []string `json:"pairs" binding:"required" example:"btc-usdt,eth-usdt"`
	Start       string   `json:"start" example:"2023-01-01"`
	End         string   `json:"end" example:"2023-06-30"`
	Granularity string   `json:"granularity" example:"1d"`
}

// PairHistory holds the raw candle rows of one pair.
type PairHistory struct {
	Pair    string          `json:"pair"`
	Candles json.RawMessage `json:"candles"`
}

// HistoryResponse lists results in request order.
type HistoryResponse struct {
	Granularity int           `json:"granularity" example:"86400"`
	Results     []PairHistory `json:"results"`
}
