package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.stripe.com"

// StripeClient talks to the Stripe REST API. It is the only component that
// reaches the payment provider's network; everything else depends on the
// service-layer Gateway interface, which this type satisfies.
type StripeClient struct {
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// NewStripeClient creates a Stripe client with a bounded request timeout.
// A timed-out call has an unknown outcome; callers rely on store-level
// idempotency guards rather than assuming failure.
func NewStripeClient(secretKey string, timeout time.Duration) *StripeClient {
	return &StripeClient{
		secretKey:  secretKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// NewStripeClientWithBaseURL creates a client pointed at a non-default API
// host (used by tests against a stub server).
func NewStripeClientWithBaseURL(secretKey, baseURL string, timeout time.Duration) *StripeClient {
	c := NewStripeClient(secretKey, timeout)
	c.baseURL = strings.TrimRight(baseURL, "/")
	return c
}

// APIError is a structured error returned by the Stripe API.
type APIError struct {
	StatusCode int
	Type       string `json:"type"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("stripe: %s (type=%s, status=%d)", e.Message, e.Type, e.StatusCode)
}

// CreateCustomer creates a customer and returns its id.
func (c *StripeClient) CreateCustomer(ctx context.Context, email, name string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("name", name)
	addMetadata(form, metadata)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/customers", form, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// CreateInvoice creates a send_invoice-collection invoice for the customer
// and returns its id.
func (c *StripeClient) CreateInvoice(ctx context.Context, customerID string, daysUntilDue int, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("collection_method", "send_invoice")
	form.Set("days_until_due", strconv.Itoa(daysUntilDue))
	addMetadata(form, metadata)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/invoices", form, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// AddInvoiceLine attaches a single line item to a draft invoice.
func (c *StripeClient) AddInvoiceLine(ctx context.Context, customerID, invoiceID string, amountMinor int64, currency, description string) error {
	form := url.Values{}
	form.Set("customer", customerID)
	form.Set("invoice", invoiceID)
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Set("description", description)

	return c.post(ctx, "/v1/invoiceitems", form, nil)
}

// FinalizeAndSendInvoice finalizes a draft invoice, emails it to the
// customer, and returns the hosted invoice URL.
func (c *StripeClient) FinalizeAndSendInvoice(ctx context.Context, invoiceID string) (string, error) {
	var finalized struct {
		ID               string `json:"id"`
		HostedInvoiceURL string `json:"hosted_invoice_url"`
	}
	if err := c.post(ctx, "/v1/invoices/"+invoiceID+"/finalize", url.Values{}, &finalized); err != nil {
		return "", err
	}

	if err := c.post(ctx, "/v1/invoices/"+invoiceID+"/send", url.Values{}, nil); err != nil {
		return "", err
	}

	return finalized.HostedInvoiceURL, nil
}

// CreateTransfer moves funds to a connected account and returns the
// transfer id.
func (c *StripeClient) CreateTransfer(ctx context.Context, amountMinor int64, currency, destination string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinor, 10))
	form.Set("currency", currency)
	form.Set("destination", destination)
	addMetadata(form, metadata)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/transfers", form, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// CreateConnectedAccount creates an Express connected account capable of
// receiving transfers and returns the account id.
func (c *StripeClient) CreateConnectedAccount(ctx context.Context, country, email, businessType string, metadata map[string]string) (string, error) {
	form := url.Values{}
	form.Set("type", "express")
	form.Set("country", country)
	form.Set("email", email)
	form.Set("business_type", businessType)
	form.Set("capabilities[transfers][requested]", "true")
	addMetadata(form, metadata)

	var resp struct {
		ID string `json:"id"`
	}
	if err := c.post(ctx, "/v1/accounts", form, &resp); err != nil {
		return "", err
	}

	return resp.ID, nil
}

// CreateAccountOnboardingLink returns a one-time onboarding URL for a
// connected account.
func (c *StripeClient) CreateAccountOnboardingLink(ctx context.Context, accountID, refreshURL, returnURL string) (string, error) {
	form := url.Values{}
	form.Set("account", accountID)
	form.Set("refresh_url", refreshURL)
	form.Set("return_url", returnURL)
	form.Set("type", "account_onboarding")

	var resp struct {
		URL string `json:"url"`
	}
	if err := c.post(ctx, "/v1/account_links", form, &resp); err != nil {
		return "", err
	}

	return resp.URL, nil
}

// post issues a form-encoded POST and decodes the JSON response into out.
func (c *StripeClient) post(ctx context.Context, path string, form url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stripe request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("stripe response read failed: %w", err)
	}

	if resp.StatusCode >= 400 {
		var wrapper struct {
			Error APIError `json:"error"`
		}
		if err := json.Unmarshal(body, &wrapper); err == nil && wrapper.Error.Message != "" {
			wrapper.Error.StatusCode = resp.StatusCode
			return &wrapper.Error
		}
		return fmt.Errorf("stripe: unexpected status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.Unmarshal(body, out)
}

func addMetadata(form url.Values, metadata map[string]string) {
	for k, v := range metadata {
		form.Set("metadata["+k+"]", v)
	}
}
