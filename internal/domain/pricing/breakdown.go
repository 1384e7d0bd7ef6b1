package pricing

import (
	"fmt"
	"math"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
)

// LaborItem is a single labor line on a quote.
type LaborItem struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	AmountClp   int64  `json:"amount_clp"`
}

// MaterialItem is a single materials line on a quote. SubtotalClp is derived
// from quantity and unit price, never mutated independently.
type MaterialItem struct {
	Name            string  `json:"name"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	PricePerUnitClp int64   `json:"price_per_unit_clp"`
	SubtotalClp     int64   `json:"subtotal_clp"`
}

// CustomCharge is an additional fee line on a quote.
type CustomCharge struct {
	Label     string `json:"label"`
	AmountClp int64  `json:"amount_clp"`
}

// QuoteBreakdown is the composed, integer-money price breakdown of a quote.
// SubtotalClp is always the exact integer sum of its parts.
type QuoteBreakdown struct {
	LaborItems    []LaborItem    `json:"labor_items"`
	MaterialItems []MaterialItem `json:"material_items"`
	CustomCharges []CustomCharge `json:"custom_charges"`
	TravelFeeClp  int64          `json:"travel_fee_clp"`
	SubtotalClp   int64          `json:"subtotal_clp"`
}

// ComposeBreakdown validates all line items and assembles the breakdown. It is
// a pure function: callers own persistence of the result. Material subtotals
// are recomputed from quantity and unit price; the subtotal is recomputed as
// integer addition every time so repeated edits cannot drift.
func ComposeBreakdown(labor []LaborItem, materials []MaterialItem, charges []CustomCharge, travelFeeClp int64) (QuoteBreakdown, error) {
	if travelFeeClp < 0 {
		return QuoteBreakdown{}, domain.NewFieldValidationError("travel_fee_clp", "must be non-negative")
	}

	var subtotal int64

	outLabor := make([]LaborItem, len(labor))
	for i, item := range labor {
		if item.Name == "" {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("labor_items[%d].name", i), "must not be empty")
		}
		if item.AmountClp < 0 {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("labor_items[%d].amount_clp", i), "must be non-negative")
		}
		outLabor[i] = item
		subtotal += item.AmountClp
	}

	outMaterials := make([]MaterialItem, len(materials))
	for i, item := range materials {
		if item.Name == "" {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("material_items[%d].name", i), "must not be empty")
		}
		if math.IsNaN(item.Quantity) || math.IsInf(item.Quantity, 0) || item.Quantity <= 0 {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("material_items[%d].quantity", i), "must be a positive finite number")
		}
		if item.PricePerUnitClp < 0 {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("material_items[%d].price_per_unit_clp", i), "must be non-negative")
		}

		derived := int64(math.Floor(item.Quantity*float64(item.PricePerUnitClp) + 0.5))
		if item.SubtotalClp != 0 && item.SubtotalClp != derived {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("material_items[%d].subtotal_clp", i), "does not equal quantity times price per unit")
		}
		item.SubtotalClp = derived
		outMaterials[i] = item
		subtotal += derived
	}

	outCharges := make([]CustomCharge, len(charges))
	for i, charge := range charges {
		if charge.Label == "" {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("custom_charges[%d].label", i), "must not be empty")
		}
		if charge.AmountClp < 0 {
			return QuoteBreakdown{}, domain.NewFieldValidationError(
				fmt.Sprintf("custom_charges[%d].amount_clp", i), "must be non-negative")
		}
		outCharges[i] = charge
		subtotal += charge.AmountClp
	}

	subtotal += travelFeeClp

	return QuoteBreakdown{
		LaborItems:    outLabor,
		MaterialItems: outMaterials,
		CustomCharges: outCharges,
		TravelFeeClp:  travelFeeClp,
		SubtotalClp:   subtotal,
	}, nil
}
