package domain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Names of the singleton configuration documents.
const (
	ConfigFilters  = "filters"
	ConfigSocials  = "socials"
	ConfigDonation = "donation"
)

// FilterVocabulary lists the values offered in the catalogue filter menus.
type FilterVocabulary struct {
	Subjects   []string `json:"subjects"`
	Categories []string `json:"categories"`
	Parts      []string `json:"parts"`
	Languages  []string `json:"languages"`
	Years      []int    `json:"years"`
}

type Socials struct {
	Links map[string]string `json:"links"`
}

// DonationSettings configures the donation banner. Payments themselves are
// handled by the external provider behind ProviderURL.
type DonationSettings struct {
	Enabled     bool   `json:"enabled"`
	Currency    string `json:"currency,omitempty"`
	Amounts     []int  `json:"amounts,omitempty"`
	Message     string `json:"message,omitempty"`
	ProviderURL string `json:"provider_url,omitempty"`
}

type ConfigDocument struct {
	Name      string          `json:"name"`
	Data      json.RawMessage `json:"data"`
	UpdatedBy *uuid.UUID      `json:"updated_by,omitempty"`
	UpdatedAt time.Time       `json:"updated_at"`
}

type ConfigRepository interface {
	// Get returns the named document or nil when it was never written.
	Get(ctx context.Context, name string) (*ConfigDocument, error)
	Put(ctx context.Context, doc *ConfigDocument) error
}
