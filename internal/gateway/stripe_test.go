package gateway

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCreateInvoice_SendsFormAndAuth(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth, gotCustomer, gotCollection, gotDue, gotTripMeta string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("unexpected form parse error: %v", err)
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		gotCustomer = r.PostFormValue("customer")
		gotCollection = r.PostFormValue("collection_method")
		gotDue = r.PostFormValue("days_until_due")
		gotTripMeta = r.PostFormValue("metadata[trip_id]")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "in_test_1"}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test_abc", server.URL, 5*time.Second)

	invoiceID, err := client.CreateInvoice(context.Background(), "cus_1", 25, map[string]string{"trip_id": "trip-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if invoiceID != "in_test_1" {
		t.Errorf("expected in_test_1, got %q", invoiceID)
	}
	if gotPath != "/v1/invoices" {
		t.Errorf("expected /v1/invoices, got %q", gotPath)
	}
	if gotAuth != "Bearer sk_test_abc" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotCustomer != "cus_1" || gotCollection != "send_invoice" || gotDue != "25" {
		t.Errorf("unexpected form values: customer=%q collection=%q due=%q", gotCustomer, gotCollection, gotDue)
	}
	if gotTripMeta != "trip-1" {
		t.Errorf("expected trip metadata, got %q", gotTripMeta)
	}
}

func TestFinalizeAndSendInvoice_FinalizesThenSends(t *testing.T) {
	t.Parallel()

	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "in_1", "hosted_invoice_url": "https://pay.stripe.example/in_1"}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test", server.URL, 5*time.Second)

	url, err := client.FinalizeAndSendInvoice(context.Background(), "in_1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if url != "https://pay.stripe.example/in_1" {
		t.Errorf("expected hosted url, got %q", url)
	}
	if len(paths) != 2 || paths[0] != "/v1/invoices/in_1/finalize" || paths[1] != "/v1/invoices/in_1/send" {
		t.Errorf("expected finalize then send, got %v", paths)
	}
}

func TestCreateConnectedAccount_RequestsTransferCapability(t *testing.T) {
	t.Parallel()

	var gotType, gotCountry, gotCapability string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotType = r.PostFormValue("type")
		gotCountry = r.PostFormValue("country")
		gotCapability = r.PostFormValue("capabilities[transfers][requested]")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id": "acct_test_1"}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test", server.URL, 5*time.Second)

	accountID, err := client.CreateConnectedAccount(context.Background(), "BR", "driver@example.com", "individual", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if accountID != "acct_test_1" {
		t.Errorf("expected acct_test_1, got %q", accountID)
	}
	if gotType != "express" || gotCountry != "BR" || gotCapability != "true" {
		t.Errorf("unexpected account params: type=%q country=%q capability=%q", gotType, gotCountry, gotCapability)
	}
}

func TestPost_APIErrorDecoded(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusPaymentRequired)
		w.Write([]byte(`{"error": {"type": "card_error", "code": "balance_insufficient", "message": "Insufficient funds."}}`))
	}))
	defer server.Close()

	client := NewStripeClientWithBaseURL("sk_test", server.URL, 5*time.Second)

	_, err := client.CreateTransfer(context.Background(), 35000, "brl", "acct_1", nil)
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %T: %v", err, err)
	}
	if apiErr.StatusCode != http.StatusPaymentRequired || apiErr.Code != "balance_insufficient" {
		t.Errorf("unexpected error fields: %+v", apiErr)
	}
}
