package payment

import (
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"

	"storefront-api/internal/domain"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testWebhookSecret = "whsec_test_secret"

func signedHeader(t time.Time, payload []byte, secret string) string {
	sig := webhook.ComputeSignature(t, payload, secret)
	return fmt.Sprintf("t=%d,v1=%s", t.Unix(), hex.EncodeToString(sig))
}

func testGateway() *StripeGateway {
	return NewStripe("sk_test_key", testWebhookSecret, 5*time.Minute, nil)
}

func succeededPayload() []byte {
	return []byte(`{
  "id": "evt_1",
  "type": "payment_intent.succeeded",
  "data": {"object": {"id": "pi_123", "object": "payment_intent"}}
}`)
}

func TestVerifyWebhookValidSignature(t *testing.T) {
	g := testGateway()
	payload := succeededPayload()
	header := signedHeader(time.Now(), payload, testWebhookSecret)

	event, err := g.VerifyWebhook(payload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.Type != "payment_intent.succeeded" {
		t.Fatalf("type = %q", event.Type)
	}
	if event.IntentID != "pi_123" {
		t.Fatalf("intent id = %q, want pi_123", event.IntentID)
	}
}

func TestVerifyWebhookWrongSecret(t *testing.T) {
	g := testGateway()
	payload := succeededPayload()
	header := signedHeader(time.Now(), payload, "whsec_other")

	_, err := g.VerifyWebhook(payload, header)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookTamperedPayload(t *testing.T) {
	g := testGateway()
	payload := succeededPayload()
	header := signedHeader(time.Now(), payload, testWebhookSecret)

	tampered := append([]byte(nil), payload...)
	tampered[len(tampered)-2] = ' '
	_, err := g.VerifyWebhook(tampered, header)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyWebhookStaleTimestamp(t *testing.T) {
	g := testGateway()
	payload := succeededPayload()
	header := signedHeader(time.Now().Add(-time.Hour), payload, testWebhookSecret)

	_, err := g.VerifyWebhook(payload, header)
	if !errors.Is(err, domain.ErrInvalidSignature) {
		t.Fatalf("expected ErrInvalidSignature for stale event, got %v", err)
	}
}

func TestVerifyWebhookGarbageHeader(t *testing.T) {
	g := testGateway()
	for _, header := range []string{"", "t=abc,v1=zz", "v1=deadbeef"} {
		if _, err := g.VerifyWebhook(succeededPayload(), header); !errors.Is(err, domain.ErrInvalidSignature) {
			t.Fatalf("header %q: expected ErrInvalidSignature, got %v", header, err)
		}
	}
}
