package attribution

import "log/slog"

// Option configures an Instance.
type Option func(*Instance)

func WithLogger(l *slog.Logger) Option {
	return func(i *Instance) {
		if l != nil {
			i.logger = l
		}
	}
}

// WithQueue pre-loads tasks submitted before the instance existed. They run
// after initialization, before anything passed to Enqueue.
func WithQueue(tasks ...Task) Option {
	return func(i *Instance) {
		i.queued = append(i.queued, tasks...)
	}
}
