package gputhread

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/stratoshift/duckstation/gpubackend"
	"github.com/stratoshift/duckstation/gpudevice"
	"github.com/stratoshift/duckstation/host"
)

const criticalErrorDuration = host.CriticalErrorDuration

// minTimeBetweenResets mirrors HandleGPUDeviceLost's MIN_TIME_BETWEEN_RESETS:
// if the device is lost again within this window of the last recovery, the
// worker gives up rather than spin recreating a wedged device.
const minTimeBetweenResets = 15 * time.Second

func (t *Thread) createDeviceOnThread(api gpudevice.RenderAPI) error {
	factory, ok := t.deviceFactories[api]
	if !ok {
		return &DeviceCreateError{API: api, Err: errNoFactory}
	}

	vsync, allowThrottle := t.cfg.getVSync()
	opts := gpudevice.CreateOptions{
		VSync:                vsync,
		AllowPresentThrottle: allowThrottle,
		WindowWidth:          t.windowWidth,
		WindowHeight:         t.windowHeight,
		WindowTitle:          t.windowTitle,
	}

	t.log.Info().Str("api", api.String()).Msg("creating GPU device")
	dev, err := factory(api, opts)
	if err != nil {
		return &DeviceCreateError{API: api, Err: err}
	}

	t.device = dev
	t.renderAPI = dev.RenderAPI()
	t.accumulatedGPUTime = 0
	t.presentsSinceUpdate = 0
	dev.SetGPUTimingEnabled(false)
	return nil
}

func (t *Thread) destroyDeviceOnThread() {
	if t.device == nil {
		return
	}
	t.log.Info().Str("api", t.device.RenderAPI().String()).Msg("destroying GPU device")
	t.device.Destroy()
	t.device = nil
}

// handleGPUDeviceLost mirrors GPUThread::HandleGPUDeviceLost: tear down and
// recreate both the backend and device, preserving VRAM across the swap.
// Unlike the original's single CreateDeviceOnThread retry, recreation here
// is wrapped in a bounded exponential backoff (grounded on
// pomerium-pomerium's internal/retry/backoff.go) so a transient driver hiccup
// gets a few chances before the MIN_TIME_BETWEEN_RESETS fatal gate trips.
func (t *Thread) handleGPUDeviceLost() {
	now := time.Now()
	if !t.lastDeviceLostReset.IsZero() && now.Sub(t.lastDeviceLostReset) < minTimeBetweenResets {
		t.fatal("host GPU lost too many times, device is probably wedged", nil)
		return
	}
	t.lastDeviceLostReset = now

	lostAPI := t.renderAPI
	var snapshot []byte
	if t.backend != nil {
		snapshot = t.backend.VRAMSnapshot()
	}

	t.destroyBackendOnThread()
	t.destroyDeviceOnThread()

	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = minTimeBetweenResets

	err := backoff.Retry(func() error {
		if err := t.createDeviceOnThread(lostAPI); err != nil {
			t.log.Warn().Err(err).Msg("failed to recreate GPU device after loss, retrying")
			return err
		}
		return nil
	}, backoff.WithContext(b, context.Background()))
	if err != nil {
		t.fatal("failed to recreate GPU device after loss", err)
		return
	}

	if kind, has := t.cfg.getRequestedBackend(); has {
		t.createBackendOnThread(kind)
		if snapshot != nil && t.backend != nil {
			if err := t.backend.RestoreVRAM(snapshot); err != nil {
				t.log.Warn().Err(err).Msg("failed to restore VRAM after device loss")
			}
		}
	}

	t.host.AddIconOSDWarning("HostGPUDeviceLost", "warning",
		"Host GPU device encountered an error and has recovered. This may cause broken rendering.",
		criticalErrorDuration)
}

func (t *Thread) fatal(reason string, err error) {
	fe := &FatalError{Reason: reason, Err: err}
	if t.fatalHook != nil {
		t.fatalHook(fe)
		return
	}
	t.host.ReportErrorAsync("Fatal error", reason)
	t.log.Fatal().Err(err).Msg(reason)
}

func (t *Thread) createBackendOnThread(kind gpubackend.Kind) {
	factory, ok := t.backendFactories[kind]
	if !ok {
		t.log.Error().Str("kind", kind.String()).Msg("no backend factory registered for requested kind")
		return
	}

	backend, err := factory(kind)
	if err != nil {
		t.log.Error().Err(err).Str("kind", kind.String()).Msg("failed to create backend")
		if kind == gpubackend.KindHardware {
			t.host.AddIconOSDMessage("GPUBackendCreationFailed", "paint-roller",
				"Failed to initialize hardware renderer, falling back to software renderer.",
				criticalErrorDuration)
			t.cfg.setRequestedBackend(gpubackend.KindSoftware, true)
			t.createBackendOnThread(gpubackend.KindSoftware)
		}
		return
	}

	if err := backend.AttachDevice(t.device); err != nil {
		t.log.Error().Err(err).Msg("failed to attach device to backend")
		backend.Destroy()
		if kind == gpubackend.KindHardware {
			t.host.AddIconOSDMessage("GPUBackendCreationFailed", "paint-roller",
				"Failed to initialize hardware renderer, falling back to software renderer.",
				criticalErrorDuration)
			t.cfg.setRequestedBackend(gpubackend.KindSoftware, true)
			t.createBackendOnThread(gpubackend.KindSoftware)
		}
		return
	}
	t.backend = backend
}

func (t *Thread) destroyBackendOnThread() {
	if t.backend == nil {
		return
	}
	t.backend.Destroy()
	t.backend = nil
}

// changeBackendOnThread mirrors GPUThread::ChangeGPUBackendOnThread. Software
// swaps are cheap (destroy and recreate against the same device, whatever
// its API); switching to the hardware backend requires the device itself to
// be recreated
// for the matching RenderAPI, and the window must be released first because
// most platforms cannot rebind a live surface across graphics APIs.
func (t *Thread) changeBackendOnThread() {
	kind, has := t.cfg.getRequestedBackend()
	if !has {
		t.destroyBackendOnThread()
		return
	}

	var snapshot []byte
	if t.backend != nil {
		snapshot = t.backend.VRAMSnapshot()
	}

	if kind == gpubackend.KindSoftware {
		t.destroyBackendOnThread()
		t.createBackendOnThread(gpubackend.KindSoftware)
	} else {
		t.destroyBackendOnThread()

		expectedAPI := gpudevice.RenderAPIWGPU
		if t.renderAPI != expectedAPI {
			t.destroyDeviceOnThread()
			t.host.ReleaseRenderWindow()

			if err := t.createDeviceOnThread(expectedAPI); err != nil {
				t.log.Error().Err(err).Msg("failed to switch GPU device, reverting")
				t.host.AddIconOSDMessage("DeviceSwitchFailed", "paint-roller",
					"Failed to create hardware GPU device, reverting to previous renderer.",
					criticalErrorDuration)

				t.host.ReleaseRenderWindow()
				if err := t.createDeviceOnThread(t.renderAPI); err != nil {
					t.fatal("failed to switch back to previous API after creation failure", err)
					return
				}
			}
		}

		t.createBackendOnThread(kind)
	}

	if snapshot != nil && t.backend != nil {
		if err := t.backend.RestoreVRAM(snapshot); err != nil {
			t.log.Warn().Err(err).Msg("failed to restore VRAM across backend switch")
		}
	}
}

func (t *Thread) updateVSyncOnThread() {
	if t.device == nil {
		return
	}
	mode, allowThrottle := t.cfg.getVSync()
	t.device.SetVSyncMode(mode, allowThrottle)
}
