package domain

type PaymentIntentStatus string

const (
	PaymentIntentSucceeded      PaymentIntentStatus = "succeeded"
	PaymentIntentRequiresAction PaymentIntentStatus = "requires_action"
	PaymentIntentCanceled       PaymentIntentStatus = "canceled"
)

// PaymentIntent mirrors the provider-side charge attempt. It is created once
// by this system and mutated only by the provider afterwards.
type PaymentIntent struct {
	ID           string              `json:"id"`
	ClientSecret string              `json:"clientSecret,omitempty"`
	Status       PaymentIntentStatus `json:"status"`
	AmountCents  int64               `json:"amountCents"`
	Currency     string              `json:"currency"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
}
