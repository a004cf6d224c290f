package watcher

import (
	"context"
	"time"

	"github.com/ritzau/heatnet/pkg/logging"
)

// Debouncer batches rapid file system events so a burst of writes triggers a single rebuild
type Debouncer struct {
	input       <-chan ChangeEvent
	output      chan ChangeEvent
	quietPeriod time.Duration
	maxWait     time.Duration
}

// NewDebouncer creates a new event debouncer.
// Events are flushed after quietPeriod without new input, or maxWait after the first one.
func NewDebouncer(input <-chan ChangeEvent, quietPeriod, maxWait time.Duration) *Debouncer {
	return &Debouncer{
		input:       input,
		output:      make(chan ChangeEvent, 10),
		quietPeriod: quietPeriod,
		maxWait:     maxWait,
	}
}

// Start begins processing events with debouncing
func (d *Debouncer) Start(ctx context.Context) {
	go d.run(ctx)
}

func (d *Debouncer) run(ctx context.Context) {
	defer close(d.output)

	quiet := time.NewTimer(d.quietPeriod)
	quiet.Stop()
	deadline := time.NewTimer(d.maxWait)
	deadline.Stop()

	pending := make(map[ChangeType][]string)
	count := 0

	flush := func() {
		quiet.Stop()
		deadline.Stop()
		if count == 0 {
			return
		}
		logging.Debug("Flushing accumulated changes", "count", count)

		// Config first: it changes how the graph is built
		for _, t := range []ChangeType{ChangeTypeConfig, ChangeTypeGraph} {
			if paths := pending[t]; len(paths) > 0 {
				select {
				case d.output <- ChangeEvent{Type: t, Paths: paths, Timestamp: time.Now()}:
				case <-ctx.Done():
				}
			}
		}
		pending = make(map[ChangeType][]string)
		count = 0
	}

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-d.input:
			if !ok {
				flush()
				return
			}
			pending[event.Type] = appendUnique(pending[event.Type], event.Paths...)
			if count == 0 {
				deadline.Reset(d.maxWait)
			}
			count++
			quiet.Reset(d.quietPeriod)

		case <-quiet.C:
			flush()

		case <-deadline.C:
			flush()
		}
	}
}

// Output returns the channel of debounced events
func (d *Debouncer) Output() <-chan ChangeEvent {
	return d.output
}

func appendUnique(list []string, items ...string) []string {
	for _, item := range items {
		found := false
		for _, existing := range list {
			if existing == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
