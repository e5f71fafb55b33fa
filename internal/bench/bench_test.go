package bench

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/encoding/json"

	"github.com/guttosm/coinbench/internal/coinbase"
	"github.com/guttosm/coinbench/internal/domain/models"
)

func TestResources(t *testing.T) {
	if got := Resources(0); len(got) != 0 {
		t.Fatalf("Resources(0) = %v", got)
	}
	got := Resources(3)
	if len(got) != 12 {
		t.Fatalf("len = %d, want 12", len(got))
	}
	for i, p := range got {
		if p != basePairs[i%4] {
			t.Fatalf("got[%d]=%s, want %s", i, p, basePairs[i%4])
		}
	}
}

func TestParseRequestCount(t *testing.T) {
	cases := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{in: "5", want: 5},
		{in: " 12\r", want: 12},
		{in: "0", want: 0},
		{in: "-1", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, c := range cases {
		got, err := ParseRequestCount(c.in)
		if c.wantErr {
			var ie *InputError
			if !errors.As(err, &ie) {
				t.Fatalf("ParseRequestCount(%q) err=%v, want *InputError", c.in, err)
			}
			continue
		}
		if err != nil || got != c.want {
			t.Fatalf("ParseRequestCount(%q)=%d,%v want %d", c.in, got, err, c.want)
		}
	}
}

func TestReadRequestCount_RepromptsUntilValid(t *testing.T) {
	in := strings.NewReader("abc\n-3\n\n7\n")
	var out bytes.Buffer
	n, err := ReadRequestCount(in, &out)
	if err != nil || n != 7 {
		t.Fatalf("got %d, %v", n, err)
	}
	if c := strings.Count(out.String(), "Enter the number of requests"); c != 4 {
		t.Fatalf("expected 4 prompts, got %d: %q", c, out.String())
	}
	if c := strings.Count(out.String(), "Please enter a whole number."); c != 3 {
		t.Fatalf("expected 3 re-prompts, got %d", c)
	}
}

func TestReadRequestCount_EOF(t *testing.T) {
	_, err := ReadRequestCount(strings.NewReader("nope\n"), io.Discard)
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected ErrUnexpectedEOF, got %v", err)
	}
}

// fakeMarket records how the runner drives the client.
type fakeMarket struct {
	historyCalls []string
	pools        []*coinbase.Pool
	historyErr   error
	pairsErr     error
}

func (f *fakeMarket) ListPairs(context.Context, *coinbase.Pool) (json.RawMessage, error) {
	if f.pairsErr != nil {
		return nil, f.pairsErr
	}
	return json.RawMessage(`[{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"},{"id":"e"},{"id":"f"}]`), nil
}

func (f *fakeMarket) GetStats(_ context.Context, _ *coinbase.Pool, pair string) (json.RawMessage, error) {
	return json.RawMessage(`{"id":"` + pair + `"}`), nil
}

func (f *fakeMarket) GetHistory(_ context.Context, pool *coinbase.Pool, pair string, _ models.HistoryRange, _ models.Granularity) (json.RawMessage, error) {
	f.historyCalls = append(f.historyCalls, pair)
	f.pools = append(f.pools, pool)
	if f.historyErr != nil {
		return nil, f.historyErr
	}
	return json.RawMessage(`[]`), nil
}

type fakeBatch struct {
	got []string
	err error
}

func (f *fakeBatch) FetchHistory(_ context.Context, resources []string, _ models.HistoryRange, _ models.Granularity) ([]json.RawMessage, error) {
	f.got = append([]string(nil), resources...)
	if f.err != nil {
		return nil, f.err
	}
	return make([]json.RawMessage, len(resources)), nil
}

// stepClock advances one second per reading.
func stepClock() func() time.Time {
	t0 := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	i := 0
	return func() time.Time {
		i++
		return t0.Add(time.Duration(i) * time.Second)
	}
}

func TestRunner_Run(t *testing.T) {
	m := &fakeMarket{}
	b := &fakeBatch{}
	var out bytes.Buffer
	r := NewRunner(m, b, models.HistoryRange{Start: "2023-01-01", End: "2023-06-30"}, models.OneDay, &out, zerolog.Nop())
	r.now = stepClock()

	rep, err := r.Run(context.Background(), 2)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Requests != 8 {
		t.Fatalf("requests=%d, want 8", rep.Requests)
	}
	if rep.Sequential != time.Second || rep.Concurrent != time.Second {
		t.Fatalf("unexpected durations %+v", rep)
	}
	if strings.Join(m.historyCalls, ",") != strings.Join(Resources(2), ",") {
		t.Fatalf("sequential calls out of order: %v", m.historyCalls)
	}
	for _, p := range m.pools {
		if p != nil {
			t.Fatalf("sequential path must not share a pool")
		}
	}
	if strings.Join(b.got, ",") != strings.Join(Resources(2), ",") {
		t.Fatalf("batch got %v", b.got)
	}

	s := out.String()
	for _, want := range []string{
		`[{"id":"a"},{"id":"b"},{"id":"c"},{"id":"d"},{"id":"e"}]`,
		`{"id":"btc-usdt"}`,
		"Sequential time: 1s",
		"Concurrent time: 1s",
	} {
		if !strings.Contains(s, want) {
			t.Fatalf("output missing %q:\n%s", want, s)
		}
	}
	if strings.Contains(s, `{"id":"f"}`) {
		t.Fatalf("preview should stop at five pairs")
	}
}

func TestRunner_Errors(t *testing.T) {
	boom := errors.New("boom")
	cases := []struct {
		name  string
		m     *fakeMarket
		b     *fakeBatch
		batch bool
	}{
		{name: "list pairs", m: &fakeMarket{pairsErr: boom}, b: &fakeBatch{}},
		{name: "sequential", m: &fakeMarket{historyErr: boom}, b: &fakeBatch{}},
		{name: "batch", m: &fakeMarket{}, b: &fakeBatch{err: boom}, batch: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := NewRunner(tc.m, tc.b, models.HistoryRange{}, models.OneDay, io.Discard, zerolog.Nop())
			_, err := r.Run(context.Background(), 1)
			if !errors.Is(err, boom) {
				t.Fatalf("expected boom, got %v", err)
			}
			if !tc.batch && tc.b.got != nil {
				t.Fatalf("batch must not run after an earlier failure")
			}
		})
	}
}

func TestPreview_NonList(t *testing.T) {
	if got := preview(json.RawMessage(`{"message":"x"}`), 5); got != `{"message":"x"}` {
		t.Fatalf("preview = %s", got)
	}
}
