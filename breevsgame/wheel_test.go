package breevsgame

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWheelTarget(t *testing.T) {
	// Six segments, 60 degrees each.
	angle, err := WheelTarget(0, 6)
	require.NoError(t, err)
	assert.Equal(t, 0.0, angle)

	angle, err = WheelTarget(3, 6)
	require.NoError(t, err)
	assert.Equal(t, 180.0, angle)

	angle, err = WheelTarget(5, 6)
	require.NoError(t, err)
	assert.Equal(t, 300.0, angle)

	// Shrinking wheel: 5 segments of 72 degrees.
	angle, err = WheelTarget(2, 5)
	require.NoError(t, err)
	assert.Equal(t, 144.0, angle)

	// Two segments left.
	angle, err = WheelTarget(1, 2)
	require.NoError(t, err)
	assert.Equal(t, 180.0, angle)
}

func TestWheelTargetRejectsBadInput(t *testing.T) {
	_, err := WheelTarget(0, 0)
	assert.Error(t, err)

	_, err = WheelTarget(-1, 6)
	assert.Error(t, err)

	_, err = WheelTarget(6, 6)
	assert.Error(t, err)
}

func TestWheelTargetDeterministic(t *testing.T) {
	// Same inputs, same target, every time.
	first, err := WheelTarget(4, 6)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := WheelTarget(4, 6)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestFinalRotation(t *testing.T) {
	final, err := FinalRotation(2, 6)
	require.NoError(t, err)
	assert.Equal(t, 360.0*WheelTurns+120.0, final)

	_, err = FinalRotation(9, 6)
	assert.Error(t, err)
}
