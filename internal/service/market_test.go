package service

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/encoding/json"

	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/models"
)

type stubUpstream struct {
	pools   []*coinbase.Pool
	pingErr error
}

func (s *stubUpstream) ListPairs(_ context.Context, p *coinbase.Pool) (json.RawMessage, error) {
	s.pools = append(s.pools, p)
	return json.RawMessage(`[]`), nil
}
func (s *stubUpstream) GetStats(_ context.Context, p *coinbase.Pool, pair string) (json.RawMessage, error) {
	s.pools = append(s.pools, p)
	return json.RawMessage(`{"id":"` + pair + `"}`), nil
}
func (s *stubUpstream) GetHistory(_ context.Context, p *coinbase.Pool, pair string, _ models.HistoryRange, _ models.Granularity) (json.RawMessage, error) {
	s.pools = append(s.pools, p)
	return json.RawMessage(`[]`), nil
}
func (s *stubUpstream) Ping(_ context.Context, p *coinbase.Pool) error {
	s.pools = append(s.pools, p)
	return s.pingErr
}

type stubBatcher struct{ got []string }

func (b *stubBatcher) FetchHistory(_ context.Context, r []string, _ models.HistoryRange, _ models.Granularity) ([]json.RawMessage, error) {
	b.got = r
	return make([]json.RawMessage, len(r)), nil
}

func TestMarketService_DelegatesWithSharedPool(t *testing.T) {
	pool := coinbase.NewPool()
	defer pool.Close()
	up := &stubUpstream{pingErr: errors.New("down")}
	b := &stubBatcher{}
	svc := NewMarketService(up, b, pool)
	ctx := context.Background()

	if _, err := svc.Pairs(ctx); err != nil {
		t.Fatalf("Pairs: %v", err)
	}
	if out, err := svc.Stats(ctx, "btc-usdt"); err != nil || string(out) != `{"id":"btc-usdt"}` {
		t.Fatalf("Stats = %s, %v", out, err)
	}
	if _, err := svc.History(ctx, "btc-usdt", models.HistoryRange{}, models.OneDay); err != nil {
		t.Fatalf("History: %v", err)
	}
	if err := svc.Ping(ctx); err == nil {
		t.Fatalf("expected ping error to propagate")
	}
	for i, p := range up.pools {
		if p != pool {
			t.Fatalf("call %d did not use the shared pool", i)
		}
	}

	out, err := svc.BatchHistory(ctx, []string{"a", "b"}, models.HistoryRange{}, models.OneDay)
	if err != nil || len(out) != 2 || len(b.got) != 2 {
		t.Fatalf("BatchHistory = %v, %v", out, err)
	}
}
