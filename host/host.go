// Package host provides the narrow set of application callbacks the GPU
// worker thread needs but must not own itself: releasing the OS window,
// surfacing fatal/non-fatal errors to the user, and posting on-screen
// display messages. Grounded on original_source/src/core/host.cpp's
// Host:: namespace, translated into a single interface a caller injects
// rather than a set of free functions the thread package links against
// directly.
package host

import "time"

// CriticalErrorDuration is how long an OSD warning posted for a critical,
// but non-fatal, GPU condition (e.g. a device-lost recovery) stays on
// screen. Matches gpu_thread.cpp's device-lost warning lifetime.
const CriticalErrorDuration = 15 * time.Second

// Host is everything gputhread needs from the embedding application.
type Host interface {
	// ReleaseRenderWindow tells the application the render window/surface
	// is about to be destroyed and must be recreated before the next
	// present, e.g. because the backend or renderer is changing.
	ReleaseRenderWindow()

	// ReportErrorAsync surfaces a fatal-to-the-user error without blocking
	// the calling (worker) goroutine.
	ReportErrorAsync(title, message string)

	// AddIconOSDMessage posts a transient on-screen message identified by
	// key, replacing any previous message with the same key.
	AddIconOSDMessage(key, icon, message string, duration time.Duration)

	// AddIconOSDWarning posts an on-screen warning identified by key for
	// duration, replacing any previous warning with the same key.
	AddIconOSDWarning(key, icon, message string, duration time.Duration)
}
