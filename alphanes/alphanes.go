package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"github.com/stratoshift/duckstation/framesource"
	"github.com/stratoshift/duckstation/gpubackend"
	"github.com/stratoshift/duckstation/gpudevice"
	"github.com/stratoshift/duckstation/gputhread"
	"github.com/stratoshift/duckstation/host"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/veandco/go-sdl2/sdl"
)

const framesPerSecond = 60
const frameTime = time.Second / framesPerSecond

type Emulator struct {
	Running       bool
	Paused        bool
	lastFrameTime time.Time
	renderCounter int
}

var (
	frameSkipPercent *int
	rendererFlag     *string
	vsyncFlag        *bool
	Alphanes         Emulator
	GPU              *gputhread.Thread
	Source           *framesource.Generator
)

func main() {
	defer cleanup()

	frameSkipPercent = flag.Int("skip", 0, "Percentage of frames to skip rendering (0-99)")
	rendererFlag = flag.String("renderer", "software", "GPU renderer to use: software or hardware")
	vsyncFlag = flag.Bool("vsync", false, "Enable vsync")
	flag.Parse()

	if *frameSkipPercent < 0 || *frameSkipPercent > 99 {
		log.Fatalf("Error: Frame skip percentage must be between 0 and 99.")
	}

	fmt.Printf("Starting Alphanes (Frame Skip: %d%%)\n", *frameSkipPercent)

	if err := startGPUThread(); err != nil {
		log.Fatalf("Failed to start GPU thread: %v", err)
	}
	initializeEmulator()
	emulate()
}

// startGPUThread creates and starts the GPU worker thread the emulation loop
// submits finished frames to, replacing the old direct ShowScreen call the
// PPU used to make on the emulation goroutine itself.
func startGPUThread() error {
	requestedBackend := gpubackend.KindSoftware
	if *rendererFlag == "hardware" {
		requestedBackend = gpubackend.KindHardware
	}
	requestedAPI := gpudevice.RenderAPISDLSoftware
	if requestedBackend == gpubackend.KindHardware {
		requestedAPI = gpudevice.RenderAPIWGPU
	}

	vsync := gpudevice.VSyncDisabled
	if *vsyncFlag {
		vsync = gpudevice.VSyncEnabled
	}

	t, err := gputhread.New(gputhread.Options{
		DeviceFactories: map[gpudevice.RenderAPI]gpudevice.Factory{
			gpudevice.RenderAPISDLSoftware: gpudevice.NewSDLDevice,
			gpudevice.RenderAPIWGPU:        gpudevice.NewWGPUDevice,
		},
		BackendFactories: map[gpubackend.Kind]gpubackend.Factory{
			gpubackend.KindSoftware: gpubackend.NewSoftwareBackend,
			gpubackend.KindHardware: gpubackend.NewHardwareBackend,
		},
		Host:                 host.NewLogHost(),
		InitialAPI:           requestedAPI,
		InitialBackend:       requestedBackend,
		HasInitialBackend:    true,
		InitialVSync:         vsync,
		AllowPresentThrottle: true,
		WindowWidth:          framesource.ScreenWidth,
		WindowHeight:         framesource.ScreenHeight,
		WindowTitle:          "Alphanes",
		MetricsRegisterer:    prometheus.DefaultRegisterer,
	})
	if err != nil {
		return err
	}

	if err := t.Start(context.Background()); err != nil {
		return err
	}
	GPU = t
	return nil
}

func initializeEmulator() {
	Source = framesource.New()
	Alphanes = Emulator{
		Running:       true,
		Paused:        false,
		lastFrameTime: time.Now(),
		renderCounter: 0,
	}
}

func cleanup() {
	if GPU != nil {
		GPU.Shutdown()
	}
}

func emulate() {
	lastPerformanceReport := time.Now()
	framesProcessed := uint64(0)

	for Alphanes.Running {
		now := time.Now()
		elapsedSinceLastFrame := now.Sub(Alphanes.lastFrameTime)

		if !Alphanes.Paused {
			if elapsedSinceLastFrame >= frameTime {
				sdl.PumpEvents()
				for processed := 0; processed < 6; processed++ {
					currentEvent := sdl.PollEvent()
					if currentEvent == nil {
						break
					}

					switch e := currentEvent.(type) {
					case sdl.KeyboardEvent:
						keyName := sdl.GetKeyName(e.Keysym.Sym)
						isPressed := (e.State == sdl.PRESSED)

						if keyName == "Escape" && isPressed {
							fmt.Printf("DEBUG: Escape key pressed, quitting application\n")
							return
						}
					}
				}

				shouldRender := true
				if *frameSkipPercent > 0 {
					renderDecisionValue := 100 - *frameSkipPercent
					if Alphanes.renderCounter >= renderDecisionValue {
						shouldRender = false
					}
					Alphanes.renderCounter++
					if Alphanes.renderCounter >= 100 {
						Alphanes.renderCounter = 0
					}
				}
				frame := Source.Next()
				if shouldRender && GPU != nil {
					GPU.SubmitFrame(frame)
				}

				framesProcessed++
				Alphanes.lastFrameTime = now

				if time.Since(lastPerformanceReport) >= 5*time.Second {
					timeElapsed := time.Since(lastPerformanceReport).Seconds()
					fps := float64(framesProcessed) / timeElapsed

					gpuUsage := float32(0)
					if GPU != nil {
						gpuUsage = GPU.GPUUsage()
					}

					fmt.Printf("Performance: %.2f FPS (target: %d) - GPU usage: %.1f%%\n",
						fps, framesPerSecond, gpuUsage)

					lastPerformanceReport = time.Now()
					framesProcessed = 0
				}
			} else {
				sleepDuration := frameTime - elapsedSinceLastFrame
				if sleepDuration > time.Millisecond {
					time.Sleep(sleepDuration / 2)
				} else {
					time.Sleep(time.Millisecond)
				}
			}
		} else {
			time.Sleep(16 * time.Millisecond)
		}
	}
}
