package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"testing"
	"time"
)

const testSecret = "whsec_test"

var paidPayload = []byte(`{
	"id": "evt_1",
	"type": "invoice.paid",
	"created": 1700000000,
	"data": {
		"object": {
			"id": "in_123",
			"amount_paid": 50000,
			"metadata": {"trip_id": "trip-1", "supplier_id": "supplier-1"}
		}
	}
}`)

func signPayload(secret string, ts int64, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", ts)
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyAndParse_ValidSignature(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier(testSecret, 5*time.Minute)
	header := signPayload(testSecret, time.Now().Unix(), paidPayload)

	event, err := verifier.VerifyAndParse(paidPayload, header)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if event.Type != EventInvoicePaid {
		t.Errorf("expected type invoice.paid, got %q", event.Type)
	}
	if event.InvoiceID != "in_123" {
		t.Errorf("expected invoice in_123, got %q", event.InvoiceID)
	}
	if event.TripID != "trip-1" || event.SupplierID != "supplier-1" {
		t.Errorf("expected trip/supplier metadata, got %q / %q", event.TripID, event.SupplierID)
	}
	if event.AmountPaid != 50000 {
		t.Errorf("expected amount 50000, got %d", event.AmountPaid)
	}
}

func TestVerifyAndParse_WrongSecret(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier(testSecret, 5*time.Minute)
	header := signPayload("whsec_other", time.Now().Unix(), paidPayload)

	_, err := verifier.VerifyAndParse(paidPayload, header)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyAndParse_TamperedPayload(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier(testSecret, 5*time.Minute)
	header := signPayload(testSecret, time.Now().Unix(), paidPayload)

	tampered := append([]byte(nil), paidPayload...)
	tampered[len(tampered)-2] = ' '

	_, err := verifier.VerifyAndParse(tampered, header)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyAndParse_StaleTimestamp(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier(testSecret, 5*time.Minute)
	old := time.Now().Add(-time.Hour).Unix()
	header := signPayload(testSecret, old, paidPayload)

	_, err := verifier.VerifyAndParse(paidPayload, header)
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature for stale timestamp, got %v", err)
	}
}

func TestVerifyAndParse_MissingHeader(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier(testSecret, 5*time.Minute)

	_, err := verifier.VerifyAndParse(paidPayload, "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}
}

func TestVerifyAndParse_NoSecretRejectedByDefault(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier("", 5*time.Minute)

	_, err := verifier.VerifyAndParse(paidPayload, "")
	if !errors.Is(err, ErrInvalidSignature) {
		t.Errorf("expected unsigned events to be rejected, got %v", err)
	}
}

func TestVerifyAndParse_UnsignedAllowedWhenOptedIn(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier("", 5*time.Minute)
	verifier.AllowUnsigned = true

	event, err := verifier.VerifyAndParse(paidPayload, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if event.InvoiceID != "in_123" {
		t.Errorf("expected parsed event, got %+v", event)
	}
}

func TestVerifyAndParse_MalformedPayload(t *testing.T) {
	t.Parallel()

	verifier := NewWebhookVerifier(testSecret, 5*time.Minute)
	payload := []byte(`{"type": `)
	header := signPayload(testSecret, time.Now().Unix(), payload)

	_, err := verifier.VerifyAndParse(payload, header)
	if err == nil {
		t.Error("expected error for malformed payload")
	}
	if errors.Is(err, ErrInvalidSignature) {
		t.Error("a correctly signed but malformed payload is not a signature failure")
	}
}
