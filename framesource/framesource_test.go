package framesource

import "testing"

func TestNextReturnsFullFrame(t *testing.T) {
	g := New()
	frame := g.Next()
	if len(frame) != ScreenWidth*ScreenHeight {
		t.Fatalf("frame length = %d, want %d", len(frame), ScreenWidth*ScreenHeight)
	}
}

func TestNextChangesAcrossFrames(t *testing.T) {
	g := New()
	first := append([]uint32(nil), g.Next()...)
	second := g.Next()

	same := true
	for i := range first {
		if first[i] != second[i] {
			same = false
			break
		}
	}
	if same {
		t.Fatal("consecutive frames were identical, expected the pattern to animate")
	}
}
