package breevsgame

import "fmt"

// WheelTurns is the fixed number of full rotations the wheel makes before
// settling on the eliminated participant's segment. Fixed rather than
// randomized so a spin resolution is fully determined by (index, count) and
// replays land on the same target.
const WheelTurns = 6

// WheelTarget returns the angular position, in degrees from the wheel's
// zero mark, of segment index on a wheel of count equal segments. Pure and
// time-independent.
func WheelTarget(index, count int) (float64, error) {
	if count <= 0 {
		return 0, fmt.Errorf("wheel needs at least one segment, got %d", count)
	}
	if index < 0 || index >= count {
		return 0, fmt.Errorf("segment index %d out of range [0,%d)", index, count)
	}
	anglePerSegment := 360.0 / float64(count)
	return float64(index) * anglePerSegment, nil
}

// FinalRotation is the total rotation the presentation layer should end on:
// WheelTurns full revolutions plus the target segment angle. The easing
// curve and spin duration are the presentation's choice; only the landing
// angle matters for correctness.
func FinalRotation(index, count int) (float64, error) {
	target, err := WheelTarget(index, count)
	if err != nil {
		return 0, err
	}
	return 360.0*WheelTurns + target, nil
}
