package model

import "time"

// MasterData is one row of a small reference table (site categories,
// tour types, amenities), with per-language translations.
type MasterData struct {
	ID           string        `json:"id"`
	Kind         string        `json:"kind"`
	Code         string        `json:"code"`
	Name         string        `json:"name"`
	Description  *string       `json:"description,omitempty"`
	SortOrder    int           `json:"sort_order"`
	Active       bool          `json:"active"`
	Translations []Translation `json:"translations,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Translation is the localized value of one master-data field.
type Translation struct {
	MasterDataID string    `json:"master_data_id"`
	Language     string    `json:"language"`
	Field        string    `json:"field"`
	Value        string    `json:"value"`
	Machine      bool      `json:"machine"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Translatable master-data fields.
const (
	FieldName        = "name"
	FieldDescription = "description"
)

// MasterDataRequest creates or updates a master-data row.
type MasterDataRequest struct {
	Kind        string  `json:"kind"`
	Code        string  `json:"code"`
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
	SortOrder   int     `json:"sort_order"`
}

// TranslationRequest sets a translation by hand.
type TranslationRequest struct {
	Language string `json:"language"`
	Field    string `json:"field"`
	Value    string `json:"value"`
}

// AutoTranslateRequest asks for a machine translation of a field.
type AutoTranslateRequest struct {
	Language string `json:"language"`
	Field    string `json:"field"`
}
