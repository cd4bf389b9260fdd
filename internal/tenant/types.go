package tenant

import "time"

// Tenant holds one business account's provider credentials and routing
// identifiers. The webhook secret is the sole key used to resolve inbound
// deliveries to a tenant; it is opaque and never derived from any other field.
type Tenant struct {
	ID                string    `json:"id"`
	Name              string    `json:"name"`
	AccessToken       string    `json:"-"`
	PhoneNumberID     string    `json:"phone_number_id"`
	BusinessAccountID string    `json:"business_account_id,omitempty"`
	WebhookSecret     string    `json:"-"`
	VerifyToken       string    `json:"-"`
	Verified          bool      `json:"verified"`
	APIVersion        string    `json:"api_version"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// CreateInput carries the fields needed to onboard a tenant.
type CreateInput struct {
	Name              string
	AccessToken       string
	PhoneNumberID     string
	BusinessAccountID string
	VerifyToken       string
	APIVersion        string
}
