package vm

import (
	"io"
	"net"

	"github.com/jcorbin/voz/internal/flushio"
)

// Option customizes a VM under construction.
type Option interface{ apply(vm *VM) }

// Options combines any number of options into one, dropping nils.
func Options(opts ...Option) Option {
	var res options
	for _, opt := range opts {
		switch impl := opt.(type) {
		case nil:
		case options:
			res = append(res, impl...)
		default:
			res = append(res, impl)
		}
	}
	if len(res) == 1 {
		return res[0]
	}
	return res
}

type options []Option

func (opts options) apply(vm *VM) {
	for _, opt := range opts {
		opt.apply(vm)
	}
}

var defaultOptions = Options(
	WithOutput(io.Discard),
	WithError(io.Discard),
)

// WithInput queues readers as the machine's input buffer 0, in the order
// given, after any consumed by a prior WithInput.
func WithInput(rs ...io.Reader) Option { return inputOption(rs) }

// WithOutput sets the machine's output buffer 1.
func WithOutput(w io.Writer) Option { return outputOption{w} }

// WithError sets the machine's error buffer 2.
func WithError(w io.Writer) Option { return errorOption{w} }

// WithTee copies everything written to buffer 1 to w as well.
func WithTee(w io.Writer) Option { return teeOption{w} }

// WithLogf enables per-step trace logging.
func WithLogf(logfn func(mess string, args ...interface{})) Option { return withLogfn(logfn) }

// WithListenNotify sets a function to be called with the bound address of
// every Listen before it blocks waiting for a connection.
func WithListenNotify(notify func(net.Addr)) Option { return listenNotify(notify) }

type inputOption []io.Reader
type outputOption struct{ io.Writer }
type errorOption struct{ io.Writer }
type teeOption struct{ io.Writer }
type withLogfn func(mess string, args ...interface{})
type listenNotify func(net.Addr)

func (rs inputOption) apply(vm *VM) {
	vm.in.Queue = append(vm.in.Queue, rs...)
}

func (o outputOption) apply(vm *VM) {
	if vm.out != nil {
		vm.out.Flush()
	}
	vm.out = flushio.NewWriteFlusher(o.Writer)
}

func (o errorOption) apply(vm *VM) {
	if vm.errOut != nil {
		vm.errOut.Flush()
	}
	vm.errOut = flushio.NewWriteFlusher(o.Writer)
}

func (o teeOption) apply(vm *VM) {
	vm.out = flushio.WriteFlushers(vm.out, flushio.NewWriteFlusher(o.Writer))
}

func (logfn withLogfn) apply(vm *VM) { vm.logfn = logfn }

func (notify listenNotify) apply(vm *VM) { vm.notify = notify }
