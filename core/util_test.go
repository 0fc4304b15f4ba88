package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentage(t *testing.T) {
	tests := []struct {
		part, whole int
		want        float64
	}{
		{0, 0, 0},
		{3, 0, 0},
		{0, 4, 0},
		{1, 3, 33.33},
		{2, 3, 66.67},
		{1, 8, 12.5},
		{7, 7, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Percentage(tt.part, tt.whole), "%d/%d", tt.part, tt.whole)
	}
}

func TestCleanString(t *testing.T) {
	assert.Equal(t, "Awe", CleanString("  Awe \n"))
	assert.Equal(t, "awe", CleanString("  AWE ", true))
}
