package schedule

import (
	"fmt"
)

// Resolver maps schedule flags to templates. Adding a template is a matter
// of registering it here; pairing and reporting never branch on the flag.
type Resolver struct {
	templates map[Flag]Template
	fallback  Flag
}

// NewResolver builds a resolver over templates. fallback must be one of them.
func NewResolver(fallback Flag, templates ...Template) (*Resolver, error) {
	r := &Resolver{
		templates: make(map[Flag]Template, len(templates)),
		fallback:  fallback,
	}

	for _, t := range templates {
		if err := validateTemplate(t); err != nil {
			return nil, err
		}
		r.templates[t.Flag] = t
	}

	if _, ok := r.templates[fallback]; !ok {
		return nil, fmt.Errorf("%w: fallback flag %q is not registered", ErrInvalidTemplate, fallback)
	}

	return r, nil
}

// DefaultResolver knows the Standard and Reduced templates and falls back to Standard.
func DefaultResolver() *Resolver {
	r, err := NewResolver(FlagStandard, Standard, Reduced)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the template for flag. Unknown or empty flags get the fallback template.
func (r *Resolver) Resolve(flag Flag) Template {
	if t, ok := r.templates[flag]; ok {
		return t
	}
	return r.templates[r.fallback]
}

// Lookup returns the template registered for flag without any fallback.
func (r *Resolver) Lookup(employeeID string, flag Flag) (Template, error) {
	t, ok := r.templates[flag]
	if !ok {
		return Template{}, &ConfigurationError{EmployeeID: employeeID, Flag: flag}
	}
	return t, nil
}

// Flags lists the registered flags.
func (r *Resolver) Flags() []Flag {
	flags := make([]Flag, 0, len(r.templates))
	for f := range r.templates {
		flags = append(flags, f)
	}
	return flags
}

func validateTemplate(t Template) error {
	if t.Flag == "" {
		return fmt.Errorf("%w: empty flag", ErrInvalidTemplate)
	}
	if len(t.CanonicalKinds) == 0 {
		return fmt.Errorf("%w: %s has no canonical kinds", ErrInvalidTemplate, t.Flag)
	}
	if t.DailyTargetMinutes < 0 {
		return fmt.Errorf("%w: %s has a negative daily target", ErrInvalidTemplate, t.Flag)
	}
	for _, k := range t.CanonicalKinds {
		c, ok := t.DefaultTimes[k]
		if !ok {
			return fmt.Errorf("%w: %s has no default time for %s", ErrInvalidTemplate, t.Flag, k)
		}
		if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 {
			return fmt.Errorf("%w: %s default time %s for %s is out of range", ErrInvalidTemplate, t.Flag, c, k)
		}
	}
	return nil
}
