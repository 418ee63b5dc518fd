package roulette

import (
	"math"
	"strings"

	"github.com/google/uuid"
)

// EditorSummary is the totals line shown under the item list
type EditorSummary struct {
	FixedTotal float64
	Total      float64 // Rounded to 2 decimals
	AutoCount  int
	Problems   error // Joined validation failures, nil when the profile can be saved
}

// ProfileEditor is the single writer of the profile document.
// It works on its own deep copy; spins only ever see what Publish or Snapshot hand out.
type ProfileEditor struct {
	doc       *Document
	currentID string
	logger    Logger
}

// NewProfileEditor creates an editor over a copy of doc. A nil or empty document starts
// from DefaultDocument.
func NewProfileEditor(doc *Document, logger Logger) *ProfileEditor {
	var working *Document
	if doc == nil || len(doc.Profiles) == 0 {
		working = DefaultDocument()
	} else {
		working = doc.Clone()
	}

	e := &ProfileEditor{doc: working, logger: orDefaultLogger(logger)}
	e.currentID = working.ResolveProfile(working.ActiveProfileID).ID
	if _, ok := working.Profile(e.currentID); !ok {
		e.currentID = working.Profiles[0].ID
	}
	return e
}

func (e *ProfileEditor) current() *Profile {
	p, _ := e.doc.Profile(e.currentID)
	return p
}

func (e *ProfileEditor) item(index int) (*Item, error) {
	p := e.current()
	if index < 0 || index >= len(p.Items) {
		return nil, ErrItemNotFound.WithMetadata("index", index)
	}
	return &p.Items[index], nil
}

// CurrentID returns the id of the profile being edited
func (e *ProfileEditor) CurrentID() string { return e.currentID }

// Current returns a copy of the profile being edited
func (e *ProfileEditor) Current() *Profile { return e.current().Clone() }

// Document returns a copy of the working document
func (e *ProfileEditor) Document() *Document { return e.doc.Clone() }

// SelectProfile switches the profile being edited
func (e *ProfileEditor) SelectProfile(id string) error {
	if _, ok := e.doc.Profile(id); !ok {
		return ErrProfileNotFound.WithMetadata("profile_id", id)
	}
	e.currentID = id
	return nil
}

// AddProfile appends a profile with one auto item and a transparent background, and selects it
func (e *ProfileEditor) AddProfile(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrDocumentInvalid.WithDetails("profile name cannot be empty")
	}
	id := "profile-" + uuid.NewString()
	e.doc.Profiles = append(e.doc.Profiles, Profile{
		ID:       id,
		Name:     name,
		Items:    []Item{{Name: NewItemName}},
		Settings: ProfileSettings{Title: name, TransparentBg: true},
	})
	e.currentID = id
	AssignColors(e.current().Items)
	e.logger.Debug("profile %s (%s) added", id, name)
	return id, nil
}

// RenameProfile renames the current profile
func (e *ProfileEditor) RenameProfile(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrDocumentInvalid.WithDetails("profile name cannot be empty")
	}
	e.current().Name = name
	return nil
}

// DeleteProfile removes the current profile and selects the first remaining one.
// The last profile cannot be deleted.
func (e *ProfileEditor) DeleteProfile() error {
	if len(e.doc.Profiles) <= 1 {
		return ErrLastProfile
	}
	kept := e.doc.Profiles[:0]
	for _, p := range e.doc.Profiles {
		if p.ID != e.currentID {
			kept = append(kept, p)
		}
	}
	e.doc.Profiles = kept
	e.logger.Debug("profile %s deleted", e.currentID)
	e.currentID = e.doc.Profiles[0].ID
	if _, ok := e.doc.Profile(e.doc.ActiveProfileID); !ok {
		e.doc.ActiveProfileID = e.currentID
	}
	return nil
}

// AddItem appends an auto-probability item and returns its index
func (e *ProfileEditor) AddItem() int {
	p := e.current()
	p.Items = append(p.Items, Item{Name: NewItemName})
	index := len(p.Items) - 1
	p.Items[index].Color = ResolveColor(p.Items[index], index)
	return index
}

// UpdateItemName renames an item
func (e *ProfileEditor) UpdateItemName(index int, name string) error {
	it, err := e.item(index)
	if err != nil {
		return err
	}
	it.Name = name
	return nil
}

// UpdateItemProbability sets a fixed probability; nil switches the item to auto
func (e *ProfileEditor) UpdateItemProbability(index int, probability *float64) error {
	it, err := e.item(index)
	if err != nil {
		return err
	}
	if probability == nil {
		it.Probability = nil
		return nil
	}
	if math.IsNaN(*probability) || math.IsInf(*probability, 0) {
		return ErrInvalidProbability
	}
	it.Probability = Fixed(*probability)
	return nil
}

// SetItemColor sets a user-picked colour
func (e *ProfileEditor) SetItemColor(index int, color string) error {
	it, err := e.item(index)
	if err != nil {
		return err
	}
	if _, err := ParseHexColor(color); err != nil {
		return err
	}
	it.Color = color
	it.IsCustomColor = true
	return nil
}

// ResetItemColor returns an item to the automatic palette
func (e *ProfileEditor) ResetItemColor(index int) error {
	it, err := e.item(index)
	if err != nil {
		return err
	}
	it.IsCustomColor = false
	it.Color = ResolveColor(*it, index)
	return nil
}

// DeleteItem removes an item. The last item cannot be deleted.
func (e *ProfileEditor) DeleteItem(index int) error {
	p := e.current()
	if _, err := e.item(index); err != nil {
		return err
	}
	if len(p.Items) <= 1 {
		return ErrLastItem
	}
	p.Items = append(p.Items[:index], p.Items[index+1:]...)
	AssignColors(p.Items)
	return nil
}

// UpdateSettings replaces the settings of the current profile
func (e *ProfileEditor) UpdateSettings(settings ProfileSettings) {
	e.current().Settings = settings
}

// Validate reports every problem blocking a save of the current profile
func (e *ProfileEditor) Validate() error { return ValidateItems(e.current().Items) }

// Summary returns the totals of the current profile
func (e *ProfileEditor) Summary() EditorSummary {
	n := Normalize(e.current().Items)
	return EditorSummary{
		FixedTotal: n.FixedTotal,
		Total:      math.Round(n.Total*100) / 100,
		AutoCount:  n.AutoCount,
		Problems:   ValidateItems(e.current().Items),
	}
}

// Publish validates the current profile, makes it active and returns a copy of the document
// ready to save
func (e *ProfileEditor) Publish() (*Document, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	AssignColors(e.current().Items)
	e.doc.ActiveProfileID = e.currentID
	if err := e.doc.Validate(); err != nil {
		return nil, err
	}
	e.logger.Info("document published, active profile %s", e.currentID)
	return e.doc.Clone(), nil
}

// Snapshot returns the read-only distribution of a profile; empty id means the current one
func (e *ProfileEditor) Snapshot(profileID string) (*Distribution, error) {
	if profileID == "" {
		profileID = e.currentID
	}
	p, ok := e.doc.Profile(profileID)
	if !ok {
		return nil, ErrProfileNotFound.WithMetadata("profile_id", profileID)
	}
	return p.Clone().Distribution()
}
