package pricing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
)

func TestComposeBreakdown(t *testing.T) {
	labor := []LaborItem{
		{Name: "Instalación eléctrica", AmountClp: 45000},
		{Name: "Revisión de tablero", AmountClp: 15000},
	}
	materials := []MaterialItem{
		{Name: "Cable 2.5mm", Quantity: 10, Unit: "m", PricePerUnitClp: 890},
		{Name: "Automático 16A", Quantity: 2, Unit: "un", PricePerUnitClp: 6490},
	}
	charges := []CustomCharge{
		{Label: "Retiro de escombros", AmountClp: 8000},
	}

	breakdown, err := ComposeBreakdown(labor, materials, charges, 3500)
	require.NoError(t, err)

	// Material subtotals derived from quantity * unit price.
	assert.Equal(t, int64(8900), breakdown.MaterialItems[0].SubtotalClp)
	assert.Equal(t, int64(12980), breakdown.MaterialItems[1].SubtotalClp)

	// 45000 + 15000 + 8900 + 12980 + 8000 + 3500
	assert.Equal(t, int64(93380), breakdown.SubtotalClp)
	assert.Equal(t, int64(3500), breakdown.TravelFeeClp)
}

func TestComposeBreakdown_FractionalQuantityRoundsHalfUp(t *testing.T) {
	materials := []MaterialItem{
		{Name: "Pintura", Quantity: 2.5, Unit: "l", PricePerUnitClp: 3333},
	}

	breakdown, err := ComposeBreakdown(nil, materials, nil, 0)
	require.NoError(t, err)

	// 2.5 * 3333 = 8332.5, rounds to 8333.
	assert.Equal(t, int64(8333), breakdown.MaterialItems[0].SubtotalClp)
	assert.Equal(t, int64(8333), breakdown.SubtotalClp)
}

func TestComposeBreakdown_Idempotent(t *testing.T) {
	labor := []LaborItem{{Name: "Gasfitería", AmountClp: 30000}}
	materials := []MaterialItem{{Name: "Llave de paso", Quantity: 1, Unit: "un", PricePerUnitClp: 12990}}

	first, err := ComposeBreakdown(labor, materials, nil, 2000)
	require.NoError(t, err)

	// Re-composing from the already-composed items never drifts.
	second, err := ComposeBreakdown(first.LaborItems, first.MaterialItems, first.CustomCharges, first.TravelFeeClp)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestComposeBreakdown_EmptyItems(t *testing.T) {
	breakdown, err := ComposeBreakdown(nil, nil, nil, 0)
	require.NoError(t, err)
	assert.Zero(t, breakdown.SubtotalClp)
}

func TestComposeBreakdown_ValidationErrors(t *testing.T) {
	tests := []struct {
		name      string
		labor     []LaborItem
		materials []MaterialItem
		charges   []CustomCharge
		travelFee int64
		wantField string
	}{
		{
			name:      "negative travel fee",
			travelFee: -1,
			wantField: "travel_fee_clp",
		},
		{
			name:      "labor item without name",
			labor:     []LaborItem{{AmountClp: 1000}},
			wantField: "labor_items[0].name",
		},
		{
			name:      "negative labor amount",
			labor:     []LaborItem{{Name: "ok", AmountClp: 100}, {Name: "bad", AmountClp: -5}},
			wantField: "labor_items[1].amount_clp",
		},
		{
			name:      "material item without name",
			materials: []MaterialItem{{Quantity: 1, PricePerUnitClp: 100}},
			wantField: "material_items[0].name",
		},
		{
			name:      "zero material quantity",
			materials: []MaterialItem{{Name: "x", Quantity: 0, PricePerUnitClp: 100}},
			wantField: "material_items[0].quantity",
		},
		{
			name:      "negative unit price",
			materials: []MaterialItem{{Name: "x", Quantity: 1, PricePerUnitClp: -100}},
			wantField: "material_items[0].price_per_unit_clp",
		},
		{
			name:      "material subtotal does not match",
			materials: []MaterialItem{{Name: "x", Quantity: 2, PricePerUnitClp: 100, SubtotalClp: 999}},
			wantField: "material_items[0].subtotal_clp",
		},
		{
			name:      "custom charge without label",
			charges:   []CustomCharge{{AmountClp: 100}},
			wantField: "custom_charges[0].label",
		},
		{
			name:      "negative custom charge",
			charges:   []CustomCharge{{Label: "x", AmountClp: -100}},
			wantField: "custom_charges[0].amount_clp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ComposeBreakdown(tt.labor, tt.materials, tt.charges, tt.travelFee)
			require.Error(t, err)

			var appErr *domain.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, domain.CodeValidation, appErr.Code)
			assert.Equal(t, tt.wantField, appErr.Field)
		})
	}
}

func TestComposeBreakdown_MatchingSubtotalAccepted(t *testing.T) {
	materials := []MaterialItem{
		{Name: "x", Quantity: 2, PricePerUnitClp: 100, SubtotalClp: 200},
	}

	breakdown, err := ComposeBreakdown(nil, materials, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(200), breakdown.MaterialItems[0].SubtotalClp)
}
