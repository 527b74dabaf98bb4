package store

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
)

func TestStore_SetGet(t *testing.T) {
	s := New("")

	if _, ok := s.Get("Binance", "BTCUSDT"); ok {
		t.Fatal("expected no entry before first Set")
	}

	s.Set("Binance", "BTCUSDT", 50000.5)

	v, ok := s.Get("Binance", "BTCUSDT")
	if !ok {
		t.Fatal("expected entry after Set")
	}
	if v != 50000.5 {
		t.Errorf("Get = %v, want 50000.5", v)
	}
}

func TestStore_Overwrite(t *testing.T) {
	s := New("")

	s.Set("Binance", "ETHUSDT", 3000)
	s.Set("Binance", "ETHUSDT", 3001.25)

	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
	v, _ := s.Get("Binance", "ETHUSDT")
	if v != 3001.25 {
		t.Errorf("Get = %v, want 3001.25", v)
	}
}

func TestStore_SnapshotOrdered(t *testing.T) {
	s := New("")
	s.Set("Binance", "SOLUSDT", 150)
	s.Set("Binance", "BTCUSDT", 50000)
	s.Set("Alpha", "ZECUSDT", 30)

	got := s.Snapshot()
	want := []Sample{
		{Source: "Alpha", Symbol: "ZECUSDT", Value: 30},
		{Source: "Binance", Symbol: "BTCUSDT", Value: 50000},
		{Source: "Binance", Symbol: "SOLUSDT", Value: 150},
	}

	if len(got) != len(want) {
		t.Fatalf("len(Snapshot) = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Snapshot[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	s := New("")
	s.Set("Binance", "BTCUSDT", 1)

	snap := s.Snapshot()
	s.Set("Binance", "BTCUSDT", 2)

	if snap[0].Value != 1 {
		t.Errorf("snapshot mutated by later Set: %v", snap[0].Value)
	}
}

func TestStore_CollectExposition(t *testing.T) {
	s := New("")
	s.Set("Binance", "BTCUSDT", 50000.5)

	expected := `
# HELP price The price for a given symbol
# TYPE price gauge
price{exchange="Binance",symbol="BTCUSDT"} 50000.5
`
	if err := testutil.CollectAndCompare(s, strings.NewReader(expected), "price"); err != nil {
		t.Errorf("unexpected exposition: %v", err)
	}
}

func TestStore_CustomMetricName(t *testing.T) {
	s := New("mid_price")
	s.Set("Binance", "BTCUSDT", 10)

	if n := testutil.CollectAndCount(s, "mid_price"); n != 1 {
		t.Errorf("CollectAndCount = %d, want 1", n)
	}
}

func TestStore_Gather(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New("")
	reg.MustRegister(s)

	s.Set("Binance", "BTCUSDT", 50000.5)
	s.Set("Binance", "ETHUSDT", 3000.25)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}

	var fam *dto.MetricFamily
	for _, f := range families {
		if f.GetName() == DefaultMetricName {
			fam = f
		}
	}
	if fam == nil {
		t.Fatal("price family not gathered")
	}
	if fam.GetType() != dto.MetricType_GAUGE {
		t.Errorf("type = %v, want GAUGE", fam.GetType())
	}

	got := make(map[string]float64)
	for _, m := range fam.GetMetric() {
		var symbol string
		for _, lp := range m.GetLabel() {
			if lp.GetName() == LabelSymbol {
				symbol = lp.GetValue()
			}
		}
		got[symbol] = m.GetGauge().GetValue()
	}

	if got["BTCUSDT"] != 50000.5 {
		t.Errorf("BTCUSDT = %v, want 50000.5", got["BTCUSDT"])
	}
	if got["ETHUSDT"] != 3000.25 {
		t.Errorf("ETHUSDT = %v, want 3000.25", got["ETHUSDT"])
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	reg := prometheus.NewRegistry()
	s := New("")
	reg.MustRegister(s)

	const writers = 4
	const readers = 8
	const iterations = 500

	var wg sync.WaitGroup
	errs := make(chan error, readers)

	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			symbol := fmt.Sprintf("SYM%d", w)
			for i := 0; i < iterations; i++ {
				s.Set("Binance", symbol, float64(i))
			}
		}(w)
	}

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < iterations/10; i++ {
				if _, err := reg.Gather(); err != nil {
					errs <- err
					return
				}
				for _, sample := range s.Snapshot() {
					if sample.Value < 0 || sample.Value >= iterations {
						errs <- fmt.Errorf("torn value %v for %s", sample.Value, sample.Symbol)
						return
					}
				}
			}
		}()
	}

	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}

	for w := 0; w < writers; w++ {
		v, ok := s.Get("Binance", fmt.Sprintf("SYM%d", w))
		if !ok || v != iterations-1 {
			t.Errorf("SYM%d = %v (ok=%v), want %d", w, v, ok, iterations-1)
		}
	}
}
