package gputhread

import (
	"time"

	"github.com/stratoshift/duckstation/gpudevice"
)

// presentFrame mirrors GPUThread::Internal::PresentFrame, minus the
// ImGui/FullscreenUI overlay rendering the original interleaves here: this
// package has no UI surface of its own, so it is reduced to flush, present,
// GPU-timing accounting, and device-lost handling.
func (t *Thread) presentFrame(allowSkipPresent bool, presentTime time.Time) {
	if t.device == nil {
		// A FatalHook can leave the device torn down (handleGPUDeviceLost
		// gave up recreating it) without stopping the worker loop itself;
		// nothing to present to until a future ChangeBackend/device create.
		return
	}

	if t.backend != nil {
		if err := t.backend.Flush(); err != nil {
			t.log.Error().Err(err).Msg("backend flush failed")
		}
	}

	t.presentsSinceUpdate++
	t.updatePerformanceCountersOnThread()

	skipPresent := allowSkipPresent && t.device.ShouldSkipFrame()
	explicitPresent := !presentTime.IsZero() && t.device.Features().ExplicitPresent

	if skipPresent {
		return
	}

	result, err := t.device.BeginPresent()
	if err != nil {
		t.log.Error().Err(err).Msg("present failed")
		return
	}

	switch result {
	case gpudevice.PresentOK:
		t.device.EndPresent(explicitPresent, presentTime)
		if t.device.IsGPUTimingEnabled() {
			t.accumulatedGPUTime += t.device.AccumulatedGPUTimeMS()
		}
		if explicitPresent {
			t.device.SubmitPresent()
		}
	case gpudevice.PresentDeviceLost:
		t.handleGPUDeviceLost()
	default:
		// PresentSkipped/PresentError: nothing further to do this frame.
	}
}

// updatePerformanceCountersOnThread mirrors
// GPUThread::UpdatePerformanceCountersOnThread, publishing the results via
// the atomics GPUUsage/GPUAverageTime read and the Prometheus gauges in
// metrics.go.
func (t *Thread) updatePerformanceCountersOnThread() {
	now := time.Now()
	frames := t.presentsSinceUpdate
	t.presentsSinceUpdate = 0
	elapsed := now.Sub(t.lastPerfUpdate).Seconds()
	t.lastPerfUpdate = now

	if t.device == nil || !t.device.IsGPUTimingEnabled() {
		return
	}

	divisor := frames
	if divisor == 0 {
		divisor = 1
	}
	avg := t.accumulatedGPUTime / float32(divisor)
	usage := float32(0)
	if elapsed > 0 {
		usage = float32(float64(t.accumulatedGPUTime) / (elapsed * 10.0))
	}
	t.accumulatedGPUTime = 0

	storeFloat32(&t.avgTimeBits, avg)
	storeFloat32(&t.gpuUsageBits, usage)
	t.metrics.gpuAvgFrameTimeMS.Set(float64(avg))
	t.metrics.gpuUsagePercent.Set(float64(usage))
}
