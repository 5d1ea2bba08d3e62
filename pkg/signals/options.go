package signals

// Option is a functional option for signal creation.
type Option func(*cellOptions)

type cellOptions struct {
	// transient cells are skipped by snapshot/restore.
	transient bool
}

// Transient marks a signal as excluded from persistence. Use it for
// ephemeral state such as cursor positions or in-flight flags.
func Transient() Option {
	return func(o *cellOptions) {
		o.transient = true
	}
}

func applyOptions(opts []Option) cellOptions {
	var options cellOptions
	for _, opt := range opts {
		opt(&options)
	}
	return options
}
