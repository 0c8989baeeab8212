package classify

import (
	"testing"

	"github.com/arbwatch/pmspread/pkg/types"
)

func obs(tickCount int, trade bool, volumeTicks int, priceShifted bool) types.WindowObservables {
	return types.WindowObservables{
		TickCount:         tickCount,
		TradeEventFired:   trade,
		VolumeChangeTicks: volumeTicks,
		PriceShifted:      priceShifted,
	}
}

func TestSingleTickIsNoise(t *testing.T) {
	class, reason, prio := Classify(obs(1, true, 3, true))
	if class != types.SingleTick || reason != types.CloseReasonNone || prio != types.PriorityNoise {
		t.Errorf("got (%v, %v, %v)", class, reason, prio)
	}
}

func TestMultiTickGradualSpike(t *testing.T) {
	class, reason, prio := Classify(obs(3, true, 2, false))
	if class != types.MultiTick || reason != types.CloseReasonVolumeSpikeGradual || prio != types.PriorityVolumeSpikeGradual {
		t.Errorf("got (%v, %v, %v)", class, reason, prio)
	}
}

func TestMultiTickInstantSpike(t *testing.T) {
	class, reason, prio := Classify(obs(3, true, 1, false))
	if class != types.MultiTick || reason != types.CloseReasonVolumeSpikeInstant || prio != types.PriorityVolumeSpikeInstant {
		t.Errorf("got (%v, %v, %v)", class, reason, prio)
	}
}

func TestMultiTickPriceDrift(t *testing.T) {
	class, reason, prio := Classify(obs(4, false, 0, true))
	if class != types.MultiTick || reason != types.CloseReasonPriceDrift || prio != types.PriorityPriceDrift {
		t.Errorf("got (%v, %v, %v)", class, reason, prio)
	}
}

func TestMultiTickOrderVanished(t *testing.T) {
	class, reason, prio := Classify(obs(2, false, 0, false))
	if class != types.MultiTick || reason != types.CloseReasonOrderVanished || prio != types.PriorityOrderVanished {
		t.Errorf("got (%v, %v, %v)", class, reason, prio)
	}
}
