package models

// HistoryRange bounds a candles request.
//
// Start and End are ISO dates (e.g. "2023-01-01") sent verbatim as the
// start/end query parameters. No ordering check is made; the upstream API
// decides what an inverted range means.
type HistoryRange struct {
	Start string `json:"start" example:"2023-01-01"`
	End   string `json:"end" example:"2023-06-30"`
}
