// Package classify holds the Window Classifier: a pure function from
// a closed window's frozen observables to its (open-class, close-reason,
// priority) triple.
package classify

import "github.com/arbwatch/pmspread/pkg/types"

// MinArbTicks is the minimum number of consecutive positive-spread ticks
// before a window is confirmed open rather than single-tick noise.
const MinArbTicks = 2

// Classify scores a window's frozen observables on both axes and
// derives the dense opportunity priority. Single-tick windows are
// always noise and carry no close reason.
func Classify(obs types.WindowObservables) (types.OpenDurationClass, types.CloseReason, types.OpportunityClass) {
	if obs.TickCount < MinArbTicks {
		return types.SingleTick, types.CloseReasonNone, types.PriorityNoise
	}

	if obs.TradeEventFired {
		if obs.VolumeChangeTicks > 1 {
			return types.MultiTick, types.CloseReasonVolumeSpikeGradual, types.PriorityVolumeSpikeGradual
		}
		return types.MultiTick, types.CloseReasonVolumeSpikeInstant, types.PriorityVolumeSpikeInstant
	}

	if obs.PriceShifted {
		return types.MultiTick, types.CloseReasonPriceDrift, types.PriorityPriceDrift
	}

	return types.MultiTick, types.CloseReasonOrderVanished, types.PriorityOrderVanished
}
