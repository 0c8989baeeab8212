package subscription

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ControlChannelFullTotal counts control messages dropped because the
// control channel was full; shared by every producer via TrySend.
var ControlChannelFullTotal = promauto.NewCounter(prometheus.CounterOpts{
	Name: "subscription_control_channel_full_total",
	Help: "Total number of control messages dropped because the control channel was full",
})
