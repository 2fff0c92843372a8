package lifecycle

import "github.com/ecotrace/collect-api/pkg/models"

// DefaultQuantityKg is used when the quantity band is missing or unparseable.
const DefaultQuantityKg = 5.0

var bandMidpoints = map[string]float64{
	models.QuantityBand1To5:   3.0,
	models.QuantityBand5To10:  7.5,
	models.QuantityBand10To20: 15.0,
	models.QuantityBand20Plus: 25.0,
}

// QuantityForBand maps an estimated quantity band to its midpoint estimate in
// kilograms.
func QuantityForBand(band string) float64 {
	if kg, ok := bandMidpoints[band]; ok {
		return kg
	}
	return DefaultQuantityKg
}
