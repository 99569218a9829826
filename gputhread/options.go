package gputhread

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/stratoshift/duckstation/gpubackend"
	"github.com/stratoshift/duckstation/gpudevice"
	"github.com/stratoshift/duckstation/host"
)

// Options configures a Thread at construction time.
type Options struct {
	// DeviceFactories maps each gpudevice.RenderAPI this Thread can create
	// to the Factory that builds it. Must contain at least one entry.
	DeviceFactories map[gpudevice.RenderAPI]gpudevice.Factory
	// BackendFactories maps each gpubackend.Kind to the Factory that builds
	// it. Must contain at least one entry if any backend will ever be
	// requested.
	BackendFactories map[gpubackend.Kind]gpubackend.Factory

	// Host receives window-release/error/OSD notifications from the worker.
	// Required; pass host.NewLogHost() for headless use.
	Host host.Host

	// InitialAPI is the gpudevice.RenderAPI to create a Device for at
	// startup.
	InitialAPI gpudevice.RenderAPI
	// InitialBackend, if HasInitialBackend is true, is the Backend kind to
	// create right after the device. With HasInitialBackend false, the
	// thread starts with a Device but no Backend, matching
	// s_requested_renderer having no value.
	InitialBackend    gpubackend.Kind
	HasInitialBackend bool

	InitialVSync         gpudevice.VSyncMode
	AllowPresentThrottle bool

	WindowWidth  int
	WindowHeight int
	WindowTitle  string

	// RingSize overrides cmdring.DefaultSize; zero uses the default.
	RingSize uint32

	// RunIdle, when true, makes the worker keep presenting frames instead
	// of sleeping when the ring is empty (GPUThread::SetRunIdle(true)).
	RunIdle bool

	// MetricsRegisterer receives the GPU usage/frame-time gauges. Nil skips
	// registration.
	MetricsRegisterer prometheus.Registerer

	// Logger overrides the package default zerolog.Logger.
	Logger *zerolog.Logger

	// FatalHook, if set, receives conditions the worker loop cannot recover
	// from (see FatalError) instead of the default behavior of reporting to
	// Host and calling zerolog's Fatal level, which terminates the process.
	// Go has no direct analogue of the original's Panic(); this hook is how
	// an embedder (or a test) can intercept that boundary.
	FatalHook func(err *FatalError)
}
