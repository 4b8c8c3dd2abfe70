// Package validation checks resource descriptors before they are used.
//
// Struct tags cover single fields:
//
//	type Config struct {
//	    UpdateMethod string `yaml:"update_method" validate:"omitempty,oneof=put patch"`
//	}
//	err := validation.Validate(cfg)
//
// Rules spanning several fields use the collecting Validator:
//
//	v := validation.New()
//	v.Custom(cfg.URL != "" || cfg.URLFunc != nil, "url", "is required")
//	err := v.Merge(validation.Validate(cfg)).Validate()
package validation
