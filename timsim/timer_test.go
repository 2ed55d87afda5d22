package timsim

import (
	"testing"

	"timitr/core"
)

func TestGatedWritesIgnored(t *testing.T) {
	sim := New(core.PeripheralTIM6)
	gate := core.ClockGateFunc(func(core.PeripheralID) {})
	drv := core.NewPeriodicTimer(sim, gate, core.TimerConfig{
		Peripheral: core.PeripheralTIM6,
		InputHz:    48000000,
	})
	drv.Init(100)

	writes := sim.Writes()
	if len(writes) != 6 {
		t.Fatalf("got %d writes, expected 6", len(writes))
	}
	for _, w := range writes {
		if !w.Ignored {
			t.Errorf("%s write reached a gated peripheral", w.Reg)
		}
	}

	// the other timer's clock does not open this one
	sim.EnableClock(core.PeripheralTIM7)
	if sim.ClockEnabled() {
		t.Fatal("TIM7 enable opened TIM6")
	}

	sim.EnableClock(core.PeripheralTIM6)
	if got := sim.ARR().Get(); got != 0xFFFF {
		t.Errorf("ARR = 0x%X, expected reset value 0xFFFF", got)
	}
	if sim.PSC().Get() != 0 || sim.DIER().Get() != 0 || sim.CR1().Get() != 0 {
		t.Error("gated Init changed registers")
	}
}

func TestGatedReadsZero(t *testing.T) {
	sim := New(core.PeripheralTIM6)
	if got := sim.ARR().Get(); got != 0 {
		t.Errorf("gated ARR read 0x%X", got)
	}
}

func TestForcedUpdateWithURS(t *testing.T) {
	sim := New(core.PeripheralTIM6)
	sim.EnableClock(core.PeripheralTIM6)

	sim.CR1().Set(core.CR1_URS | core.CR1_ARPE)
	sim.PSC().Set(9)
	sim.ARR().Set(99)
	if psc, arr := sim.Shadows(); psc != 0 || arr != 0xFFFF {
		t.Fatalf("shadows loaded early: psc=%d arr=%d", psc, arr)
	}

	sim.EGR().Set(core.EGR_UG)
	if psc, arr := sim.Shadows(); psc != 9 || arr != 99 {
		t.Errorf("shadows psc=%d arr=%d after UG", psc, arr)
	}
	if sim.Pending() {
		t.Error("UG with URS set raised UIF")
	}

	sim.CR1().Set(0)
	sim.EGR().Set(core.EGR_UG)
	if !sim.Pending() {
		t.Error("UG with URS clear did not raise UIF")
	}
	writes := sim.Writes()
	if last := writes[len(writes)-1]; last.Reg != RegEGR || !last.SetUIF {
		t.Errorf("last write %+v", last)
	}
	if sim.Updates() != 2 {
		t.Errorf("updates %d, expected 2", sim.Updates())
	}
}

func TestUpdateDisable(t *testing.T) {
	sim := New(core.PeripheralTIM6)
	sim.EnableClock(core.PeripheralTIM6)

	sim.ARR().Set(9)
	sim.CR1().Set(core.CR1_UDIS | core.CR1_CEN)
	sim.Step(1000)
	sim.EGR().Set(core.EGR_UG)

	if sim.Updates() != 0 || sim.Pending() {
		t.Errorf("UDIS: updates=%d pending=%v", sim.Updates(), sim.Pending())
	}
	if !sim.Running() {
		t.Error("counter stopped")
	}
}

func TestAutoReloadPreload(t *testing.T) {
	testCases := []struct {
		name      string
		cr1       uint32
		shadowArr uint32 // right after the second ARR write
	}{
		{"buffered", core.CR1_ARPE | core.CR1_CEN, 9},
		{"direct", core.CR1_CEN, 4},
	}

	for _, tc := range testCases {
		sim := New(core.PeripheralTIM6)
		sim.EnableClock(core.PeripheralTIM6)
		sim.ARR().Set(9)
		sim.CR1().Set(tc.cr1)
		sim.ARR().Set(4)

		if _, arr := sim.Shadows(); arr != tc.shadowArr {
			t.Errorf("%s: shadow ARR %d, expected %d", tc.name, arr, tc.shadowArr)
		}

		// the period in use counts ARR+1 input cycles
		sim.Step(uint64(tc.shadowArr) + 1)
		if sim.Updates() != 1 {
			t.Errorf("%s: updates %d, expected 1", tc.name, sim.Updates())
		}
		if _, arr := sim.Shadows(); arr != 4 {
			t.Errorf("%s: shadow ARR %d after update", tc.name, arr)
		}
		if sim.PeriodCycles() != 5 {
			t.Errorf("%s: period %d cycles", tc.name, sim.PeriodCycles())
		}
	}
}

func TestStatusWriteOneNoEffect(t *testing.T) {
	sim := New(core.PeripheralTIM6)
	sim.EnableClock(core.PeripheralTIM6)

	sim.SR().Set(core.SR_UIF)
	if sim.Pending() {
		t.Error("writing 1 to SR set UIF")
	}

	sim.EGR().Set(core.EGR_UG)
	sim.SR().Set(0xFFFF &^ 0x2)
	if !sim.Pending() {
		t.Error("writing 1 to UIF cleared it")
	}
	sim.SR().ClearBits(core.SR_UIF)
	if sim.Pending() {
		t.Error("ClearBits did not clear UIF")
	}
}

func TestOnePulseClearsEnable(t *testing.T) {
	sim := New(core.PeripheralTIM6)
	sim.EnableClock(core.PeripheralTIM6)
	sim.ARR().Set(9)
	sim.CR1().Set(core.CR1_OPM | core.CR1_CEN)

	sim.Step(100)
	if sim.Running() || sim.Updates() != 1 {
		t.Errorf("running=%v updates=%d", sim.Running(), sim.Updates())
	}
	if sim.Counter() != 0 {
		t.Errorf("counter %d after one-pulse update", sim.Counter())
	}
}
