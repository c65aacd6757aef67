package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	OrdersPlaced      Counter
	OrdersSimulated   Counter
	OrdersFailed      Counter
	Signals           Counter
	ResolutionFailed  Counter
	AdmissionRejected Counter
	EntryFailed       Counter
	ExitFailed        Counter
	ExitStopLoss      Counter
	ExitTarget        Counter
	ExitOperatorStop  Counter
	ScheduledStops    Counter
	CycleFaults       Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		OrdersPlaced:      n,
		OrdersSimulated:   n,
		OrdersFailed:      n,
		Signals:           n,
		ResolutionFailed:  n,
		AdmissionRejected: n,
		EntryFailed:       n,
		ExitFailed:        n,
		ExitStopLoss:      n,
		ExitTarget:        n,
		ExitOperatorStop:  n,
		ScheduledStops:    n,
		CycleFaults:       n,
	}
}
