package submit

// notifier delivers button-state snapshots to the single UI consumer over
// a bounded channel. Publishing never blocks a producer: when the consumer
// lags, the stale pending snapshot is replaced by the newest one, which is
// the only state a repaint cares about.
type notifier struct {
	ch chan ButtonState
}

func newNotifier() *notifier {
	return &notifier{ch: make(chan ButtonState, 1)}
}

func (n *notifier) publish(state ButtonState) {
	for {
		select {
		case n.ch <- state:
			return
		default:
		}
		select {
		case <-n.ch:
		default:
		}
	}
}

func (n *notifier) states() <-chan ButtonState {
	return n.ch
}
