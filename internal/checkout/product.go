package checkout

import (
	"context"

	"github.com/shopspring/decimal"
)

// Product is the item being bought. It is fixed for the lifetime of a Machine.
type Product struct {
	Name  string
	Price int64
}

// Credential is the authorized payment instrument handed over by the
// payment authority. The checkout flow never looks inside it.
type Credential struct {
	Data    []byte
	Network string
}

// Token is a tokenized credential, ready to be charged.
// The empty Token means no token.
type Token string

// TokenProvider exchanges an authorized credential for a token.
//
// Implementations return a non-empty token or a non-nil error.
// Returning neither breaks the contract and is treated as fatal.
type TokenProvider interface {
	CreateToken(ctx context.Context, cred Credential) (Token, error)
}

// ChargeService charges a token for a product and reports whether the
// charge went through. A decline is reported as false, not as an error.
type ChargeService interface {
	ProcessToken(ctx context.Context, token Token, product Product) bool
}

// Payment sheet parameters of the demo merchant.
const (
	MerchantIdentifier = "merchant.io.objc.applepaytest"
	MerchantLabel      = "objc.io"
	CountryCode        = "US"
	CurrencyCode       = "USD"
)

// SummaryItem is one line on the payment sheet.
type SummaryItem struct {
	Label  string          `json:"label"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentRequest describes what the payment sheet should ask the user to
// authorize.
type PaymentRequest struct {
	MerchantIdentifier   string        `json:"merchant_identifier"`
	SupportedNetworks    []string      `json:"supported_networks"`
	CountryCode          string        `json:"country_code"`
	CurrencyCode         string        `json:"currency_code"`
	MerchantCapabilities []string      `json:"merchant_capabilities"`
	SummaryItems         []SummaryItem `json:"summary_items"`
}

// PaymentRequest builds the sheet request for p. The last summary item
// is the total, labelled with the merchant name.
func (p Product) PaymentRequest() PaymentRequest {
	amount := decimal.NewFromInt(p.Price)
	return PaymentRequest{
		MerchantIdentifier:   MerchantIdentifier,
		SupportedNetworks:    []string{"visa", "masterCard", "amex"},
		CountryCode:          CountryCode,
		CurrencyCode:         CurrencyCode,
		MerchantCapabilities: []string{"credit"},
		SummaryItems: []SummaryItem{
			{Label: p.Name, Amount: amount},
			{Label: MerchantLabel, Amount: amount},
		},
	}
}
