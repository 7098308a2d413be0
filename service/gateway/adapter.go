package gateway

import (
	"github.com/stripe/stripe-go/v82/client"
)

// NewStripeAPI returns an IntentAPI backed by the Stripe API.
// The secret key is bound to this client only; the package-level stripe.Key
// is never set.
func NewStripeAPI(secretKey string) IntentAPI {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return sc.PaymentIntents
}
