package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTax_StandardRate(t *testing.T) {
	profile := TaxProfile{VATRatePercent: 19.0, DocumentType: DocumentBoleta}

	tests := []struct {
		name     string
		subtotal int64
		wantIVA  int64
	}{
		{"round subtotal", 100000, 19000},
		{"rounds half up", 50, 10},      // 9.5 rounds to 10
		{"rounds down below half", 49, 9}, // 9.31 rounds to 9
		{"zero subtotal", 0, 0},
		{"one peso", 1, 0}, // 0.19 rounds to 0
		{"typical quote", 93380, 17742}, // 17742.2
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ApplyTax(tt.subtotal, profile)
			require.NoError(t, err)
			assert.Equal(t, tt.wantIVA, result.IVAAmountClp)
			assert.Equal(t, tt.subtotal+tt.wantIVA, result.TotalClp)
		})
	}
}

func TestApplyTax_Exempt(t *testing.T) {
	profile := TaxProfile{VATExempt: true, VATRatePercent: 19.0, DocumentType: DocumentBoleta}

	result, err := ApplyTax(100000, profile)
	require.NoError(t, err)
	assert.Zero(t, result.IVAAmountClp)
	assert.Equal(t, int64(100000), result.TotalClp)
}

func TestApplyTax_Deterministic(t *testing.T) {
	profile := TaxProfile{VATRatePercent: 19.0, DocumentType: DocumentFactura}

	first, err := ApplyTax(123457, profile)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := ApplyTax(123457, profile)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestApplyTax_Errors(t *testing.T) {
	valid := TaxProfile{VATRatePercent: 19.0, DocumentType: DocumentBoleta}

	_, err := ApplyTax(-1, valid)
	assert.Error(t, err)

	_, err = ApplyTax(100, TaxProfile{VATRatePercent: -1, DocumentType: DocumentBoleta})
	assert.Error(t, err)

	_, err = ApplyTax(100, TaxProfile{VATRatePercent: 19, DocumentType: "nota"})
	assert.Error(t, err)
}

func TestDocumentType_IsValid(t *testing.T) {
	assert.True(t, DocumentBoleta.IsValid())
	assert.True(t, DocumentFactura.IsValid())
	assert.False(t, DocumentType("invoice").IsValid())
	assert.False(t, DocumentType("").IsValid())
}
