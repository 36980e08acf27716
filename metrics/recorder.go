package metrics

import "time"

// Recorder is the nil-safe handle a peer.Session holds onto: every
// method is safe to call on a nil *Recorder, so a session constructed
// without metrics wiring pays no cost and needs no separate check at
// every call site.
type Recorder struct{}

// NewRecorder returns a Recorder bound to this package's metrics.
// Since the metrics themselves are package-level collectors (not
// per-instance), every Recorder observes the same registry; the type
// exists so peer.Session has a single nil-able field to hold instead
// of depending on the metrics package directly at every call site.
func NewRecorder() *Recorder { return &Recorder{} }

func (r *Recorder) SessionCreated() {
	if r == nil {
		return
	}
	SessionsCreated.Inc()
	SessionsActive.Inc()
}

func (r *Recorder) SessionClosed(reason string) {
	if r == nil {
		return
	}
	SessionsActive.Dec()
	SessionsClosed.WithLabelValues(reason).Inc()
}

func (r *Recorder) BanScoreFinal(score int) {
	if r == nil {
		return
	}
	BanScore.Observe(float64(score))
}

func (r *Recorder) HandshakePhase(phase, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	HandshakesCompleted.WithLabelValues(phase, outcome).Inc()
	HandshakeDuration.WithLabelValues(phase).Observe(d.Seconds())
}

func (r *Recorder) MessageReceived(command string) {
	if r == nil {
		return
	}
	MessagesReceived.WithLabelValues(command).Inc()
}

func (r *Recorder) MessageSent(command string) {
	if r == nil {
		return
	}
	MessagesSent.WithLabelValues(command).Inc()
}

func (r *Recorder) Misbehavior(reason string) {
	if r == nil {
		return
	}
	MisbehaviorScored.WithLabelValues(reason).Inc()
}

func (r *Recorder) PingRTT(d time.Duration) {
	if r == nil {
		return
	}
	PingRTT.Observe(d.Seconds())
}

func (r *Recorder) CompactBlockFill(outcome string) {
	if r == nil {
		return
	}
	CompactBlockFills.WithLabelValues(outcome).Inc()
}

func (r *Recorder) CompactBlockShortIDRetry() {
	if r == nil {
		return
	}
	CompactBlockShortIDRetries.Inc()
}

func (r *Recorder) MerkleBlockReassembled(outcome string) {
	if r == nil {
		return
	}
	MerkleBlocksReassembled.WithLabelValues(outcome).Inc()
}
