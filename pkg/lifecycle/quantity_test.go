package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecotrace/collect-api/pkg/lifecycle"
	"github.com/ecotrace/collect-api/pkg/models"
)

func TestQuantityForBand(t *testing.T) {
	tests := []struct {
		band string
		want float64
	}{
		{models.QuantityBand1To5, 3.0},
		{models.QuantityBand5To10, 7.5},
		{models.QuantityBand10To20, 15.0},
		{models.QuantityBand20Plus, 25.0},
		{"", 5.0},
		{"a-lot", 5.0},
	}

	for _, tt := range tests {
		t.Run(tt.band, func(t *testing.T) {
			assert.Equal(t, tt.want, lifecycle.QuantityForBand(tt.band))
		})
	}
}
