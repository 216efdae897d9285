package status

import (
	"sync"
	"testing"

	"github.com/battrelay/battrelay/core/model"
)

func TestEmptyStore(t *testing.T) {
	s := NewStore()
	if _, ok := s.Last(); ok {
		t.Fatalf("empty store should report no state")
	}
}

func TestSetAndLast(t *testing.T) {
	s := NewStore()
	s.Set(model.BatteryState{Voltage: 24.2, SOC: 60})
	st, ok := s.Last()
	if !ok {
		t.Fatalf("expected a stored state")
	}
	if st.Voltage != 24.2 || st.SOC != 60 {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	s := NewStore()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 1000; i++ {
			s.Set(model.BatteryState{Voltage: float64(i), SOC: float64(i % 100)})
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				s.Last()
			}
		}()
	}
	wg.Wait()
}
