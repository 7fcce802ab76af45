package model

import (
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// UnknownName is the name given to a contact when no name could be inferred
// from the text surrounding its email address.
const UnknownName = "Unknown"

// emailShape is the simple local@domain.tld shape every persisted email
// must satisfy. It is looser than the extraction pattern on purpose.
var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Contact is the unit of persisted knowledge.
// The email is the natural key: ID always equals Email.
type Contact struct {
	// ID is the uniqueness key. It is always equal to Email.
	ID string `json:"id"`

	// Name is the best-effort human name, UnknownName when none was found.
	Name string `json:"name"`

	// Email is the discovered address.
	Email string `json:"email"`

	// Phone is the first phone-shaped text near the email.
	// Empty means absent and is omitted from JSON.
	Phone string `json:"phone,omitempty"`
}

// NewContact assembles a candidate record from raw extraction output.
// Name and phone are trimmed; an empty name becomes UnknownName.
func NewContact(email, name, phone string) Contact {
	name = strings.TrimSpace(name)
	if name == "" {
		name = UnknownName
	}
	return Contact{
		ID:    email,
		Name:  name,
		Email: email,
		Phone: strings.TrimSpace(phone),
	}
}

// HasPhone reports whether a phone number was found for the contact.
func (c Contact) HasPhone() bool {
	return c.Phone != ""
}

// Validate checks the contact invariants: a non-empty ID equal to the email
// and a well-formed email without whitespace.
func (c Contact) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.ID, validation.Required, validation.In(c.Email).Error("must equal email")),
		validation.Field(&c.Email, validation.Required, validation.Match(emailShape).Error("must be a local@domain.tld address")),
	)
}

// IsValid is a shorthand for Validate() == nil.
func (c Contact) IsValid() bool {
	return c.Validate() == nil
}

// IsEmailShaped reports whether s has the local@domain.tld shape.
func IsEmailShaped(s string) bool {
	return emailShape.MatchString(s)
}

// Emails returns the email addresses of the given contacts in order.
func Emails(contacts []Contact) []string {
	emails := make([]string, len(contacts))
	for i, c := range contacts {
		emails[i] = c.Email
	}
	return emails
}
