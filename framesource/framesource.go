// Package framesource stands in for the emulation core's pixel pipeline:
// it synthesizes ARGB8888 frames at NES display resolution so alphanes has
// something to hand gputhread.Thread.SubmitFrame without carrying a full
// 6502/PPU/APU emulator whose correctness is outside this repo's scope.
//
// The resolution and palette are grounded in the teacher's own
// ppu_state.go (SCREEN_WIDTH/SCREEN_HEIGHT, the standard NES ARGB8888
// palette); the per-frame pattern itself is new.
package framesource

const (
	ScreenWidth  = 256
	ScreenHeight = 240
)

// Generator produces one animated test-card frame per call to Next,
// scrolling a band of the NES palette across the screen so consecutive
// frames are visibly distinct for anything observing presentation (a
// window, a screenshot, a VRAM-write test).
type Generator struct {
	palette [64]uint32
	frame   uint64
	buf     []uint32
}

// New returns a Generator with its buffer preallocated to one frame.
func New() *Generator {
	return &Generator{
		palette: nesPalette(),
		buf:     make([]uint32, ScreenWidth*ScreenHeight),
	}
}

// Next renders the next frame into the Generator's internal buffer and
// returns it. The slice is reused across calls; callers that need to retain
// a frame past the next Next call must copy it.
func (g *Generator) Next() []uint32 {
	shift := int(g.frame % uint64(len(g.palette)))
	for y := 0; y < ScreenHeight; y++ {
		bandHeight := ScreenHeight / 8
		band := y / bandHeight
		row := y * ScreenWidth
		for x := 0; x < ScreenWidth; x++ {
			col := (x/16 + band*4 + shift) % len(g.palette)
			g.buf[row+x] = g.palette[col]
		}
	}
	g.frame++
	return g.buf
}

// nesPalette is the standard NES PPU palette in ARGB8888, the same 64
// hardware colors the teacher's ppu_state.go pre-computed for rendering.
func nesPalette() [64]uint32 {
	return [64]uint32{
		0xFF7C7C7C, 0xFF0000FC, 0xFF0000BC, 0xFF4428BC, 0xFF940084, 0xFFA80020, 0xFFA81000, 0xFF881400,
		0xFF503000, 0xFF007800, 0xFF006800, 0xFF005800, 0xFF004058, 0xFF000000, 0xFF000000, 0xFF000000,
		0xFFBCBCBC, 0xFF0078F8, 0xFF0058F8, 0xFF6844FC, 0xFFD800CC, 0xFFE40058, 0xFFF83800, 0xFFE45C10,
		0xFFAC7C00, 0xFF00B800, 0xFF00A800, 0xFF00A844, 0xFF008888, 0xFF000000, 0xFF000000, 0xFF000000,
		0xFFF8F8F8, 0xFF3CBCFC, 0xFF6888FC, 0xFF9878F8, 0xFFF878F8, 0xFFF85898, 0xFFF87858, 0xFFFCA044,
		0xFFF8B800, 0xFFB8F818, 0xFF58D854, 0xFF58F898, 0xFF00E8D8, 0xFF787878, 0xFF000000, 0xFF000000,
		0xFFFCFCFC, 0xFFA4E4FC, 0xFFB8B8F8, 0xFFD8B8F8, 0xFFF8B8F8, 0xFFF8A4C0, 0xFFF0D0B0, 0xFFFCE0A8,
		0xFFF8D878, 0xFFD8F878, 0xFFB8F8B8, 0xFFB8F8D8, 0xFF00FCFC, 0xFFF8D8F8, 0xFF000000, 0xFF000000,
	}
}
