package gputhread

import (
	"errors"
	"fmt"

	"github.com/stratoshift/duckstation/gpudevice"
)

// errNoFactory is wrapped by DeviceCreateError when the caller never
// registered a gpudevice.Factory for the requested RenderAPI.
var errNoFactory = errors.New("no factory registered for this render API")

// DeviceCreateError wraps a failure to create the underlying gpudevice.Device
// for a given API, matching the descriptive error the original populates
// into its Error* out-parameter in CreateDeviceOnThread.
type DeviceCreateError struct {
	API gpudevice.RenderAPI
	Err error
}

func (e *DeviceCreateError) Error() string {
	return fmt.Sprintf("gputhread: failed to create %s device: %v", e.API, e.Err)
}

func (e *DeviceCreateError) Unwrap() error { return e.Err }

// FatalError reports a condition the worker loop cannot recover from, e.g.
// the device-lost reset throttle tripping twice within its window. Go has no
// direct analogue of the original's Panic() (process abort); FatalError is
// delivered to the configured fatal handler instead of being returned, since
// nothing downstream of the worker goroutine is in a position to "return" an
// error from a loop that never otherwise exits.
type FatalError struct {
	Reason string
	Err    error
}

func (e *FatalError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("gputhread: fatal: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("gputhread: fatal: %s", e.Reason)
}

func (e *FatalError) Unwrap() error { return e.Err }
