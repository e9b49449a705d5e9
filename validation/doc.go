// Package validation checks configuration structs and request input.
//
// Struct tag validation covers configuration loaded from YAML and env:
//
//	type ProviderConfig struct {
//	    ClientID string `mapstructure:"client_id" validate:"required"`
//	    Issuer   string `mapstructure:"issuer" validate:"required,url"`
//	}
//	err := validation.Validate(cfg)
//
// Programmatic validation covers request input such as callback forms:
//
//	v := validation.New()
//	v.Required("code", form.Code).MaxLength("state", form.State, 512)
//	if appErr := v.Validate(); appErr != nil { ... }
package validation
