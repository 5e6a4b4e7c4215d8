// Package identity holds the tenant and API-key types shared across the
// discovery engine, and the salted-hash verification used to authenticate
// requests.
package identity

import "time"

// TenantID uniquely identifies a tenant. Opaque to discourage accidental
// mixing with WalletID/AssetID at call boundaries.
type TenantID string

// WalletID uniquely identifies a wallet within a tenant.
type WalletID string

// AssetID uniquely identifies an asset within a tenant.
type AssetID string

// CollectionID uniquely identifies an asset collection within a tenant.
type CollectionID string

// RateLimitConfig holds the three sliding-window dimensions enforced by
// infrastructure/quota.
type RateLimitConfig struct {
	DiscoveryPerMinute     int `json:"discoveryPerMinute" yaml:"discoveryPerMinute"`
	AssetSubmissionsPerDay int `json:"assetSubmissionsPerDay" yaml:"assetSubmissionsPerDay"`
	WebhookCallsPerMinute  int `json:"webhookCallsPerMinute" yaml:"webhookCallsPerMinute"`
}

// DefaultRateLimitConfig mirrors the defaults documented in spec.md §6.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		DiscoveryPerMinute:     60,
		AssetSubmissionsPerDay: 10000,
		WebhookCallsPerMinute:  120,
	}
}

// TenantConfig is the per-tenant algorithm and security configuration,
// set by the admin at tenant creation and mutable only by the admin.
type TenantConfig struct {
	MaxCycleLength      int             `json:"maxCycleLength" yaml:"maxCycleLength"`
	MinEfficiency       float64         `json:"minEfficiency" yaml:"minEfficiency"`
	MaxCyclesPerRequest int             `json:"maxCyclesPerRequest" yaml:"maxCyclesPerRequest"`
	MaxAssetsPerWallet  int             `json:"maxAssetsPerWallet" yaml:"maxAssetsPerWallet"`
	MaxWantsPerWallet   int             `json:"maxWantsPerWallet" yaml:"maxWantsPerWallet"`
	BundleDetection     bool            `json:"bundleDetection" yaml:"bundleDetection"`
	RateLimits          RateLimitConfig `json:"rateLimits" yaml:"rateLimits"`
}

// DefaultTenantConfig mirrors spec.md §3's documented defaults: max cycle
// length 10, min efficiency 0.6.
func DefaultTenantConfig() TenantConfig {
	return TenantConfig{
		MaxCycleLength:      10,
		MinEfficiency:       0.6,
		MaxCyclesPerRequest: 50,
		MaxAssetsPerWallet:  1000,
		MaxWantsPerWallet:   1000,
		BundleDetection:     false,
		RateLimits:          DefaultRateLimitConfig(),
	}
}

// Tenant is an isolated customer of the service with its own graph, cache,
// config, and rate limits (spec.md GLOSSARY).
type Tenant struct {
	ID            TenantID     `json:"id"`
	Name          string       `json:"name"`
	ContactEmail  string       `json:"contactEmail"`
	Config        TenantConfig `json:"config"`
	APIKeyHash    []byte       `json:"-"`
	APIKeySalt    []byte       `json:"-"`
	WebhookURL    string       `json:"webhookUrl,omitempty"`
	WebhookSecret string       `json:"-"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

// HasWebhook reports whether this tenant has an active webhook destination.
func (t *Tenant) HasWebhook() bool {
	return t.WebhookURL != ""
}
