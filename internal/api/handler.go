package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/encoding/json"

	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/dto"
	"github.com/guttosm/coinbench/internal/domain/models"
	"github.com/guttosm/coinbench/internal/service"
)

// Handler provides HTTP handlers for the market-data endpoints.
//
// Responsibilities:
//   - Validate path, query and body parameters
//   - Call the market service (single requests or the batch driver)
//   - Pass upstream JSON through untouched
//   - Map upstream error objects ({"message": ...}) to 404/502
//   - Map upstream failures to 502 and local failures to 4xx/500
type Handler struct {
	svc         service.MarketService
	defaults    models.HistoryRange
	granularity models.Granularity
}

// NewHandler constructs a Handler.
//
// Parameters:
//   - svc: market service backing every endpoint.
//   - defaults: range used when start/end are omitted.
//   - g: granularity used when none is given.
func NewHandler(svc service.MarketService, defaults models.HistoryRange, g models.Granularity) *Handler {
	return &Handler{svc: svc, defaults: defaults, granularity: g}
}

// ListPairs handles GET /api/v1/pairs.
//
// Responses:
//   - 200 OK: upstream list of pair descriptors.
//   - 502 Bad Gateway: upstream unreachable, returned non-JSON or an error object.
func (h *Handler) ListPairs(c *gin.Context) {
	body, err := h.svc.Pairs(c.Request.Context())
	if err != nil {
		writeUpstreamError(c, "failed to list pairs", err)
		return
	}
	if msg, ok := upstreamMessage(body); ok {
		writeUpstreamMessage(c, "failed to list pairs", msg)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// GetStats handles GET /api/v1/pairs/:pair. An unknown pair is a 404.
func (h *Handler) GetStats(c *gin.Context) {
	pair := strings.ToLower(strings.TrimSpace(c.Param("pair")))
	if pair == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("pair is required", nil))
		return
	}

	body, err := h.svc.Stats(c.Request.Context(), pair)
	if err != nil {
		writeUpstreamError(c, "failed to fetch stats", err)
		return
	}
	if msg, ok := upstreamMessage(body); ok {
		writeUpstreamMessage(c, "failed to fetch stats", msg)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// GetCandles handles GET /api/v1/pairs/:pair/candles.
//
// Query Parameters:
//   - start, end (optional): ISO dates, default to the configured range.
//   - granularity (optional): label ("1d") or seconds ("86400").
//
// Responses:
//   - 200 OK: upstream candle rows.
//   - 400 Bad Request: unknown granularity.
//   - 404 Not Found: the exchange does not know the pair.
//   - 502 Bad Gateway: upstream failure.
func (h *Handler) GetCandles(c *gin.Context) {
	pair := strings.ToLower(strings.TrimSpace(c.Param("pair")))
	if pair == "" {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("pair is required", nil))
		return
	}

	g, err := h.parseGranularity(c.Query("granularity"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid granularity", err))
		return
	}
	rng := h.rangeOrDefault(c.Query("start"), c.Query("end"))

	body, err := h.svc.History(c.Request.Context(), pair, rng, g)
	if err != nil {
		writeUpstreamError(c, "failed to fetch candles", err)
		return
	}
	if msg, ok := upstreamMessage(body); ok {
		writeUpstreamMessage(c, "failed to fetch candles", msg)
		return
	}
	c.Data(http.StatusOK, "application/json; charset=utf-8", body)
}

// PostHistory handles POST /api/v1/history, fetching many pairs through the
// batch driver. One failing pair fails the whole request.
//
// Responses:
//   - 200 OK: dto.HistoryResponse in request order.
//   - 400 Bad Request: malformed body, no pairs, blank pair or unknown granularity.
//   - 404 Not Found: the exchange does not know one of the pairs.
//   - 502 Bad Gateway: any upstream failure.
func (h *Handler) PostHistory(c *gin.Context) {
	var req dto.HistoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid request body", err))
		return
	}
	if len(req.Pairs) == 0 {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("pairs must not be empty", nil))
		return
	}
	pairs := make([]string, len(req.Pairs))
	for i, p := range req.Pairs {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" {
			c.JSON(http.StatusBadRequest, dto.NewErrorResponse("pairs must not contain blanks", nil))
			return
		}
		pairs[i] = p
	}

	g, err := h.parseGranularity(req.Granularity)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.NewErrorResponse("invalid granularity", err))
		return
	}
	rng := h.rangeOrDefault(req.Start, req.End)

	bodies, err := h.svc.BatchHistory(c.Request.Context(), pairs, rng, g)
	if err != nil {
		writeUpstreamError(c, "failed to fetch history", err)
		return
	}

	resp := dto.HistoryResponse{Granularity: g.Seconds(), Results: make([]dto.PairHistory, len(pairs))}
	for i, p := range pairs {
		if msg, ok := upstreamMessage(bodies[i]); ok {
			writeUpstreamMessage(c, "failed to fetch history", "pair "+p+": "+msg)
			return
		}
		resp.Results[i] = dto.PairHistory{Pair: p, Candles: bodies[i]}
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) parseGranularity(s string) (models.Granularity, error) {
	if strings.TrimSpace(s) == "" {
		return h.granularity, nil
	}
	return models.ParseGranularity(s)
}

func (h *Handler) rangeOrDefault(start, end string) models.HistoryRange {
	rng := h.defaults
	if start != "" {
		rng.Start = start
	}
	if end != "" {
		rng.End = end
	}
	return rng
}

// writeUpstreamError maps client errors to a status code.
func writeUpstreamError(c *gin.Context, message string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, coinbase.ErrNetwork), errors.Is(err, coinbase.ErrDecode):
		status = http.StatusBadGateway
	case errors.Is(err, coinbase.ErrEmptyPair), errors.Is(err, models.ErrUnknownGranularity):
		status = http.StatusBadRequest
	}
	c.JSON(status, dto.NewErrorResponse(message, err))
}

// upstreamMessage reports whether body is an exchange error object such as
// {"message":"NotFound"}. The exchange answers errors that way with a non-2xx
// status, and the client passes those bodies through.
func upstreamMessage(body json.RawMessage) (string, bool) {
	var obj struct {
		Message *string `json:"message"`
	}
	if len(body) == 0 || body[0] != '{' || json.Unmarshal(body, &obj) != nil || obj.Message == nil {
		return "", false
	}
	return *obj.Message, true
}

// writeUpstreamMessage answers 404 for "NotFound" and 502 for any other
// exchange error message.
func writeUpstreamMessage(c *gin.Context, message, upstream string) {
	status := http.StatusBadGateway
	if strings.Contains(strings.ToLower(strings.ReplaceAll(upstream, " ", "")), "notfound") {
		status = http.StatusNotFound
	}
	c.JSON(status, dto.NewErrorResponse(message, errors.New(upstream)))
}
