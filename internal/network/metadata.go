package network

import (
	"encoding/json"
	"time"
)

// metadataVersion is the schema version written into every comment. Bump it
// when a field changes meaning so old records stay distinguishable.
const metadataVersion = 1

// AccountMetadata is the structured payload stored in the router account's
// free-text comment field. The router does not interpret it; this codec is
// the only place that reads or writes the format.
type AccountMetadata struct {
	Version    int        `json:"v"`
	Plan       string     `json:"plan,omitempty"`
	Phone      string     `json:"phone,omitempty"`
	Expires    *time.Time `json:"expires,omitempty"`
	Created    *time.Time `json:"created,omitempty"`
	Disabled   bool       `json:"disabled,omitempty"`
	DisabledAt *time.Time `json:"disabledAt,omitempty"`

	// Legacy carries a pre-schema comment verbatim so disabling an account
	// written by older tooling does not destroy whatever was there.
	Legacy string `json:"legacy,omitempty"`
}

// Encode serializes the metadata for storage in the comment field.
func (m AccountMetadata) Encode() string {
	m.Version = metadataVersion
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// ParseAccountMetadata decodes a comment previously written by Encode.
// A non-JSON comment is not an error: it is preserved in Legacy so the
// caller can merge new fields without losing it. Unknown fields from newer
// schema versions are ignored.
func ParseAccountMetadata(comment string) AccountMetadata {
	if comment == "" {
		return AccountMetadata{Version: metadataVersion}
	}

	var meta AccountMetadata
	if err := json.Unmarshal([]byte(comment), &meta); err != nil {
		return AccountMetadata{Version: metadataVersion, Legacy: comment}
	}
	if meta.Version == 0 {
		meta.Version = metadataVersion
	}
	return meta
}

// MarkDisabled merges a disabled marker into an existing comment, keeping
// every field already present.
func MarkDisabled(comment string, at time.Time) string {
	meta := ParseAccountMetadata(comment)
	meta.Disabled = true
	meta.DisabledAt = &at
	return meta.Encode()
}
