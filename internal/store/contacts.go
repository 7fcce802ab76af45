package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nao1215/contactscan/internal/model"
)

// ContactsKey is the key holding the contact collection.
const ContactsKey = "customers"

// scanFlagPrefix prefixes the per-target scanning flag key.
const scanFlagPrefix = "isScanning_"

// ErrCorrupt is returned when a stored value cannot be decoded.
var ErrCorrupt = errors.New("stored value is corrupt")

// Contacts is the typed view of the contact collection.
type Contacts struct {
	kv KV
}

// NewContacts wraps kv.
func NewContacts(kv KV) *Contacts {
	return &Contacts{kv: kv}
}

// Load returns the stored contacts in discovery order.
// A missing key is an empty collection.
func (c *Contacts) Load(ctx context.Context) ([]model.Contact, error) {
	raw, ok, err := c.kv.Get(ctx, ContactsKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read contacts: %w", err)
	}
	if !ok || len(raw) == 0 {
		return []model.Contact{}, nil
	}

	var contacts []model.Contact
	if err := json.Unmarshal(raw, &contacts); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrCorrupt, ContactsKey, err)
	}
	if contacts == nil {
		contacts = []model.Contact{}
	}
	return contacts, nil
}

// Save replaces the stored collection with contacts in a single write.
func (c *Contacts) Save(ctx context.Context, contacts []model.Contact) error {
	if contacts == nil {
		contacts = []model.Contact{}
	}
	raw, err := json.Marshal(contacts)
	if err != nil {
		return fmt.Errorf("failed to encode contacts: %w", err)
	}
	if err := c.kv.Set(ctx, ContactsKey, raw); err != nil {
		return fmt.Errorf("failed to write contacts: %w", err)
	}
	return nil
}

// Clear empties the collection.
func (c *Contacts) Clear(ctx context.Context) error {
	return c.Save(ctx, nil)
}

// ScanFlagKey returns the key of the scanning flag for target.
func ScanFlagKey(target string) string {
	return scanFlagPrefix + target
}

// ScanFlag is the typed view of a per-target scanning flag.
type ScanFlag struct {
	kv  KV
	key string
}

// NewScanFlag returns the flag for target.
func NewScanFlag(kv KV, target string) *ScanFlag {
	return &ScanFlag{kv: kv, key: ScanFlagKey(target)}
}

// Get returns the stored flag, false when unset.
func (f *ScanFlag) Get(ctx context.Context) (bool, error) {
	raw, ok, err := f.kv.Get(ctx, f.key)
	if err != nil {
		return false, fmt.Errorf("failed to read %s: %w", f.key, err)
	}
	if !ok {
		return false, nil
	}

	var v bool
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCorrupt, f.key, err)
	}
	return v, nil
}

// Set stores the flag.
func (f *ScanFlag) Set(ctx context.Context, v bool) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", f.key, err)
	}
	if err := f.kv.Set(ctx, f.key, raw); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.key, err)
	}
	return nil
}
