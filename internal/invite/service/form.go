package service

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"
)

// DefaultFormRef names the form used when none is configured.
const DefaultFormRef = "invitation.PasswordForm"

// MinConfirmedPasswordLength applies to ConfirmedPasswordForm only.
const MinConfirmedPasswordLength = 8

// FormField describes one input for rendering. Values are never echoed back,
// since every field holds a secret.
type FormField struct {
	Name     string
	Label    string
	Type     string
	Required bool
	Errors   []string
}

// Form collects the password chosen during redemption. Implementations keep
// their own bound state, so each request needs a fresh one from a FormFactory.
type Form interface {
	Bind(values url.Values)
	Valid() bool
	Errors() map[string][]string
	Password() string
	Fields() []FormField
}

type FormFactory func() Form

// ConfigurationError reports a setting that cannot be honoured. It is fatal
// at startup.
type ConfigurationError struct {
	Setting string
	Value   string
	Reason  string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration: %s=%q: %s", e.Setting, e.Value, e.Reason)
}

// FormRegistry maps form references, as written in configuration, to
// factories.
type FormRegistry struct {
	mu        sync.RWMutex
	factories map[string]FormFactory
}

// NewFormRegistry returns a registry holding the built-in forms.
func NewFormRegistry() *FormRegistry {
	r := &FormRegistry{factories: make(map[string]FormFactory)}
	r.Register(DefaultFormRef, func() Form { return &PasswordForm{} })
	r.Register("invitation.ConfirmedPasswordForm", func() Form { return &ConfirmedPasswordForm{} })
	return r
}

func (r *FormRegistry) Register(ref string, f FormFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[ref] = f
}

// Resolve returns the factory for ref. An empty ref means the default form.
func (r *FormRegistry) Resolve(ref string) (FormFactory, error) {
	if ref == "" {
		ref = DefaultFormRef
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.factories[ref]
	if !ok {
		known := make([]string, 0, len(r.factories))
		for k := range r.factories {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, &ConfigurationError{
			Setting: "INVITATION_FORM",
			Value:   ref,
			Reason:  "unknown form, expected one of " + strings.Join(known, ", "),
		}
	}
	return f, nil
}

// PasswordForm asks for a single password.
type PasswordForm struct {
	password string
	errors   map[string][]string
	bound    bool
}

func (f *PasswordForm) Bind(values url.Values) {
	f.bound = true
	f.password = values.Get("password")
	f.errors = map[string][]string{}
	if f.password == "" {
		f.errors["password"] = append(f.errors["password"], "This field is required.")
	}
}

func (f *PasswordForm) Valid() bool { return f.bound && len(f.errors) == 0 }

func (f *PasswordForm) Errors() map[string][]string { return f.errors }

func (f *PasswordForm) Password() string { return f.password }

func (f *PasswordForm) Fields() []FormField {
	return []FormField{
		{Name: "password", Label: "Password", Type: "password", Required: true, Errors: f.errors["password"]},
	}
}

// ConfirmedPasswordForm asks for the password twice and enforces a minimum
// length.
type ConfirmedPasswordForm struct {
	password string
	confirm  string
	errors   map[string][]string
	bound    bool
}

func (f *ConfirmedPasswordForm) Bind(values url.Values) {
	f.bound = true
	f.password = values.Get("password")
	f.confirm = values.Get("password_confirm")
	f.errors = map[string][]string{}

	switch {
	case f.password == "":
		f.errors["password"] = append(f.errors["password"], "This field is required.")
	case utf8.RuneCountInString(f.password) < MinConfirmedPasswordLength:
		f.errors["password"] = append(f.errors["password"],
			fmt.Sprintf("Ensure this value has at least %d characters.", MinConfirmedPasswordLength))
	}

	if f.confirm == "" {
		f.errors["password_confirm"] = append(f.errors["password_confirm"], "This field is required.")
	} else if f.password != "" && f.confirm != f.password {
		f.errors["password_confirm"] = append(f.errors["password_confirm"], "The two password fields didn't match.")
	}
}

func (f *ConfirmedPasswordForm) Valid() bool { return f.bound && len(f.errors) == 0 }

func (f *ConfirmedPasswordForm) Errors() map[string][]string { return f.errors }

func (f *ConfirmedPasswordForm) Password() string { return f.password }

func (f *ConfirmedPasswordForm) Fields() []FormField {
	return []FormField{
		{Name: "password", Label: "Password", Type: "password", Required: true, Errors: f.errors["password"]},
		{Name: "password_confirm", Label: "Confirm password", Type: "password", Required: true, Errors: f.errors["password_confirm"]},
	}
}
