package roulette

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Default document contents
const (
	DefaultProfileID    = "profile-1"
	DefaultProfileName  = "Default"
	DefaultProfileTitle = "Roulette"
	DefaultItemName     = "Sample"
	NewItemName         = "New item"
)

// ProfileSettings is the per-profile presentation and behaviour switches
type ProfileSettings struct {
	Title         string `json:"title"`
	FakeEnabled   bool   `json:"fakeEnabled"`
	TransparentBg bool   `json:"transparentBg"`
}

// Profile is a named, independently configured set of items
type Profile struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Items    []Item          `json:"items"`
	Settings ProfileSettings `json:"settings"`
}

// Clone returns a deep copy of the profile
func (p *Profile) Clone() *Profile {
	c := *p
	c.Items = make([]Item, len(p.Items))
	for i, it := range p.Items {
		c.Items[i] = it
		if it.Probability != nil {
			c.Items[i].Probability = Fixed(*it.Probability)
		}
	}
	return &c
}

// Distribution resolves the profile's items into a spin snapshot
func (p *Profile) Distribution() (*Distribution, error) {
	d, err := NewDistribution(p.Items)
	if err != nil {
		var re *RouletteError
		if errors.As(err, &re) {
			return nil, re.WithMetadata("profile_id", p.ID)
		}
		return nil, err
	}
	return d, nil
}

// Document is the whole persisted settings file
type Document struct {
	ActiveProfileID string    `json:"activeProfileId"`
	Profiles        []Profile `json:"profiles"`
}

// DefaultDocument returns the document written on first start
func DefaultDocument() *Document {
	return &Document{
		ActiveProfileID: DefaultProfileID,
		Profiles: []Profile{{
			ID:   DefaultProfileID,
			Name: DefaultProfileName,
			Items: []Item{{
				Name:        DefaultItemName,
				Probability: Fixed(TotalProbability),
				Color:       Palette[0],
			}},
			Settings: ProfileSettings{Title: DefaultProfileTitle},
		}},
	}
}

// Clone returns a deep copy of the document
func (d *Document) Clone() *Document {
	c := &Document{ActiveProfileID: d.ActiveProfileID, Profiles: make([]Profile, len(d.Profiles))}
	for i := range d.Profiles {
		c.Profiles[i] = *d.Profiles[i].Clone()
	}
	return c
}

// Profile returns the profile with id
func (d *Document) Profile(id string) (*Profile, bool) {
	for i := range d.Profiles {
		if d.Profiles[i].ID == id {
			return &d.Profiles[i], true
		}
	}
	return nil, false
}

// ResolveProfile returns a copy of the requested profile, falling back to the active one,
// then the first one, then the default profile.
func (d *Document) ResolveProfile(id string) *Profile {
	if d != nil {
		if id != "" {
			if p, ok := d.Profile(id); ok {
				return p.Clone()
			}
		}
		if p, ok := d.Profile(d.ActiveProfileID); ok {
			return p.Clone()
		}
		if len(d.Profiles) > 0 {
			return d.Profiles[0].Clone()
		}
	}
	return DefaultDocument().Profiles[0].Clone()
}

// Validate checks the structural integrity of the document
func (d *Document) Validate() error {
	if len(d.Profiles) == 0 {
		return ErrDocumentInvalid.WithDetails("document has no profiles")
	}
	seen := make(map[string]struct{}, len(d.Profiles))
	for _, p := range d.Profiles {
		if p.ID == "" {
			return ErrDocumentInvalid.WithDetails(fmt.Sprintf("profile %q has no id", p.Name))
		}
		if _, dup := seen[p.ID]; dup {
			return ErrDocumentInvalid.WithDetails(fmt.Sprintf("duplicate profile id %q", p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	if _, ok := seen[d.ActiveProfileID]; !ok {
		return ErrDocumentInvalid.WithDetails(fmt.Sprintf("active profile %q does not exist", d.ActiveProfileID))
	}
	return nil
}

// EncodeDocument serializes a document as indented JSON
func EncodeDocument(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, ErrSerializationFailed.WithCause(err)
	}
	if len(data) > MaxDocumentSize {
		return nil, ErrSerializationFailed.WithDetails(fmt.Sprintf("document size %d exceeds %d bytes", len(data), MaxDocumentSize))
	}
	return data, nil
}

// DecodeDocument parses and validates a serialized document
func DecodeDocument(data []byte) (*Document, error) {
	if len(data) > MaxDocumentSize {
		return nil, ErrDeserializationFailed.WithDetails(fmt.Sprintf("document size %d exceeds %d bytes", len(data), MaxDocumentSize))
	}
	doc := &Document{}
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, ErrDeserializationFailed.WithCause(err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}
