package wait

import (
	"time"

	"github.com/maxgio92/xstack/pkg/cmd/options"
)

type Options struct {
	socketPath    string
	timeout       time.Duration
	retryInterval time.Duration

	*options.CommonOptions
}

type Option func(o *Options)

func NewOptions(opts ...Option) *Options {
	o := new(Options)
	o.CommonOptions = new(options.CommonOptions)

	for _, f := range opts {
		f(o)
	}

	return o
}

func WithCommonOptions(common *options.CommonOptions) Option {
	return func(o *Options) {
		o.CommonOptions = common
	}
}

func WithSocketPath(path string) Option {
	return func(o *Options) {
		o.socketPath = path
	}
}

func WithTimeout(timeout time.Duration) Option {
	return func(o *Options) {
		o.timeout = timeout
	}
}
