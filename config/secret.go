package config

const redacted = "[REDACTED]"

// Secret is a credential loaded from configuration. It formats as
// [REDACTED] in logs, fmt verbs and JSON so a config dump never leaks it.
type Secret string

// Reveal returns the raw value for the one place that needs it.
func (s Secret) Reveal() string { return string(s) }

// IsEmpty reports whether no secret was configured.
func (s Secret) IsEmpty() bool { return s == "" }

func (s Secret) String() string { return redacted }

func (s Secret) GoString() string { return redacted }

func (s Secret) MarshalJSON() ([]byte, error) { return []byte(`"` + redacted + `"`), nil }

func (s Secret) MarshalText() ([]byte, error) { return []byte(redacted), nil }
