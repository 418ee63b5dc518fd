package roulette

// Frame is the read-only projection handed to a drawing surface each animation step
type Frame struct {
	SessionID     string
	ProfileID     string
	Title         string
	TransparentBg bool
	Stage         Stage
	Angle         float64  // Rotation applied to the whole wheel
	Sectors       []Sector // Layout before rotation
	LitIndex      int      // Chase-light position, -1 when unused
	LightOn       bool
	Outcome       *WinnerOutcome // Set on the frame that finished a session
}

// PointerSector returns the index of the sector under the pointer in this frame
func (f Frame) PointerSector() int {
	local := PointerAngle + NormalizeAngle(-f.Angle)
	for i, s := range f.Sectors {
		if s.Width() > 0 && local >= s.Start && local < s.End {
			return i
		}
	}
	return -1
}
