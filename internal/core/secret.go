package core

const redacted = "[REDACTED]"

// Secret wraps a credential so that it never shows up in logs or
// serialized output. Use Expose to get the value for an auth header.
type Secret struct {
	value string
}

// NewSecret creates a Secret from value.
func NewSecret(value string) Secret {
	return Secret{value: value}
}

func (s Secret) String() string   { return redacted }
func (s Secret) GoString() string { return "core.Secret{" + redacted + "}" }

// MarshalJSON always emits the redacted placeholder.
func (s Secret) MarshalJSON() ([]byte, error) {
	return []byte(`"` + redacted + `"`), nil
}

// MarshalText always emits the redacted placeholder (YAML, zap.Stringer).
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Expose returns the underlying value.
func (s Secret) Expose() string {
	return s.value
}

// IsEmpty reports whether no credential is set.
func (s Secret) IsEmpty() bool {
	return s.value == ""
}
