package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStepsPerSecond(t *testing.T) {
	assert.Equal(t, 0, SecondHandQuartzSweep.StepsPerSecond())
	assert.Equal(t, 1, SecondHandQuartzTick.StepsPerSecond())
	assert.Equal(t, 2, SecondHandTraditionalEscapement.StepsPerSecond())
	assert.Equal(t, 8, SecondHandHighFreqEscapement.StepsPerSecond())
	assert.Equal(t, 1, SecondHandStyle("unknown").StepsPerSecond())
}

func TestIsEscapement(t *testing.T) {
	assert.True(t, SecondHandTraditionalEscapement.IsEscapement())
	assert.True(t, SecondHandHighFreqEscapement.IsEscapement())
	assert.False(t, SecondHandQuartzTick.IsEscapement())
	assert.False(t, SecondHandQuartzSweep.IsEscapement())
}
