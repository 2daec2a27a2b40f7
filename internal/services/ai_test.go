package services

import (
	"testing"

	"github.com/pmpulse/backend/internal/models"
)

func TestEffectiveTemperature(t *testing.T) {
	tests := []struct {
		name      string
		config    float64
		requested float64
		expected  float32
	}{
		{
			name:      "requested wins over config",
			config:    0.7,
			requested: 0.3,
			expected:  0.3,
		},
		{
			name:      "config used when nothing requested",
			config:    0.7,
			requested: 0,
			expected:  0.7,
		},
		{
			name:      "default when neither set",
			config:    0,
			requested: 0,
			expected:  0.3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &models.LLMConfig{Temperature: tt.config}
			got := effectiveTemperature(cfg, tt.requested)
			if got != tt.expected {
				t.Errorf("effectiveTemperature() = %v, expected %v", got, tt.expected)
			}
		})
	}
}
