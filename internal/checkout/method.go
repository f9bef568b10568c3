package checkout

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/cinema-checkout/internal/backend"
	"github.com/iliyamo/cinema-checkout/internal/model"
)

// Method is a payment method offered on the checkout page.
type Method string

const (
	MethodMomo    Method = "momo"
	MethodVNPay   Method = "vnpay"
	MethodZaloPay Method = "zalopay"
	MethodCard    Method = "card"
)

// DefaultMethod is preselected and the one the page reverts to.
const DefaultMethod = MethodMomo

// Offered lists the methods presented to the viewer, enabled or not.
var Offered = []Method{MethodMomo, MethodVNPay, MethodZaloPay, MethodCard}

// ParseMethod accepts any offered method.
func ParseMethod(s string) (Method, bool) {
	for _, m := range Offered {
		if string(m) == s {
			return m, true
		}
	}
	return "", false
}

// PaymentInitiator starts a payment with one provider.
type PaymentInitiator interface {
	Initiate(ctx context.Context, id *model.Identity, booking model.Booking, amount decimal.Decimal) (model.PaymentSession, error)
}

// PaymentAPI is the backend call behind MoMo payments.
type PaymentAPI interface {
	CreateMomoPayment(ctx context.Context, token string, req backend.PaymentRequest) (model.PaymentSession, error)
}

// MomoInitiator requests a MoMo redirect through the backend.
type MomoInitiator struct {
	API PaymentAPI
}

func (m MomoInitiator) Initiate(ctx context.Context, id *model.Identity, booking model.Booking, amount decimal.Decimal) (model.PaymentSession, error) {
	return m.API.CreateMomoPayment(ctx, id.Token, backend.PaymentRequest{
		BookingID: booking.ID,
		Amount:    json.Number(amount.String()),
	})
}
