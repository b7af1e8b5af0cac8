package playback

// The viewing surface is split into three equal horizontal thirds. The zones
// are an input mapping only; the session itself knows nothing about taps.
type Zone uint8

const (
	ZoneRetreat Zone = iota // left third
	ZoneHold                // center third: pause while held, resume on release
	ZoneSkip                // right third
)

// HitZone maps a horizontal tap coordinate onto its zone. Coordinates outside
// [0, width) clamp to the nearest edge zone.
func HitZone(x, width float64) Zone {
	if width <= 0 || x < width/3 {
		return ZoneRetreat
	}
	if x < 2*width/3 {
		return ZoneHold
	}
	return ZoneSkip
}

// HandleTap drives the session from a tap release at coordinate x. A tap in
// the hold zone is a no-op; holds go through HandleHoldStart/HandleHoldEnd.
func (s *Session) HandleTap(x, width float64) {
	switch HitZone(x, width) {
	case ZoneRetreat:
		s.Retreat()
	case ZoneSkip:
		s.Skip()
	}
}

// HandleHoldStart pauses playback while the center of the surface is held.
func (s *Session) HandleHoldStart() {
	s.Pause()
}

// HandleHoldEnd resumes playback when the hold is released.
func (s *Session) HandleHoldEnd() {
	s.Resume()
}
