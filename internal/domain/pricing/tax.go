package pricing

import (
	"math"

	"github.com/oficio-marketplace/service-quoting/internal/common/domain"
)

// DocumentType is the Chilean tax document issued for a quote.
type DocumentType string

const (
	DocumentBoleta  DocumentType = "boleta"
	DocumentFactura DocumentType = "factura"
)

// IsValid returns true if the document type is recognized.
func (d DocumentType) IsValid() bool {
	switch d {
	case DocumentBoleta, DocumentFactura:
		return true
	}
	return false
}

// TaxProfile is the jurisdiction tax configuration for the quoting entity.
// Resolved once at quote creation and immutable for that quote.
type TaxProfile struct {
	VATExempt      bool         `json:"vat_exempt"`
	VATRatePercent float64      `json:"vat_rate_percent"`
	DocumentType   DocumentType `json:"document_type"`
}

// Validate checks the profile invariants.
func (p TaxProfile) Validate() error {
	if math.IsNaN(p.VATRatePercent) || math.IsInf(p.VATRatePercent, 0) || p.VATRatePercent < 0 {
		return domain.NewFieldValidationError("vat_rate_percent", "must be a non-negative number")
	}
	if !p.DocumentType.IsValid() {
		return domain.NewFieldValidationError("document_type", "must be boleta or factura")
	}
	return nil
}

// TaxResult is the outcome of applying VAT to a subtotal.
type TaxResult struct {
	IVAAmountClp int64 `json:"iva_amount_clp"`
	TotalClp     int64 `json:"total_clp"`
}

// ApplyTax applies the VAT rule for the profile to an integer subtotal.
//
// The rate is converted to integer basis points so the computation is pure
// integer arithmetic, round-half-up to the nearest peso. Re-applying to the
// same inputs yields the same result bit for bit.
func ApplyTax(subtotalClp int64, profile TaxProfile) (TaxResult, error) {
	if subtotalClp < 0 {
		return TaxResult{}, domain.NewFieldValidationError("subtotal_clp", "must be non-negative")
	}
	if err := profile.Validate(); err != nil {
		return TaxResult{}, err
	}

	if profile.VATExempt {
		return TaxResult{IVAAmountClp: 0, TotalClp: subtotalClp}, nil
	}

	rateBps := int64(math.Floor(profile.VATRatePercent*100 + 0.5))
	iva := (subtotalClp*rateBps + 5000) / 10000

	return TaxResult{
		IVAAmountClp: iva,
		TotalClp:     subtotalClp + iva,
	}, nil
}
