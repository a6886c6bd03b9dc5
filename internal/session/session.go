// Package session holds the per-bill editing state: the extracted items,
// the participants, the designated payer and the assignment store.
//
// A Session is an explicit value passed through the service layer; there
// is no ambient global state. Every mutator takes the current session and
// returns the next one (plus any user-facing notices), which keeps the
// whole editing flow pure and testable.
package session

import (
	"fmt"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/mmynk/billsnap/internal/assignment"
	"github.com/mmynk/billsnap/internal/models"
)

// avatarPalette rotates over participant creation order.
var avatarPalette = []string{
	"#F44336", "#2196F3", "#4CAF50", "#FF9800",
	"#9C27B0", "#00BCD4", "#FFC107", "#795548",
}

// Session is the complete state of one bill-splitting session.
type Session struct {
	// ID is the unique identifier for the session (UUID format).
	ID string

	// Items are the receipt line items, indexed by position.
	Items []models.Item

	// People are the participants splitting the bill.
	People []models.Participant

	// PaidBy is the participant ID of the payer, or empty if none.
	PaidBy string

	// Assignments links items to participants.
	Assignments assignment.Store

	// ReceiptImageURL is the archived receipt image location, when image
	// archival is configured.
	ReceiptImageURL string

	// CreatedAt is the Unix timestamp when the session was created.
	CreatedAt int64
}

// New returns an empty session with a fresh ID.
func New() Session {
	return Session{
		ID:          uuid.New().String(),
		Assignments: assignment.New(),
		CreatedAt:   time.Now().Unix(),
	}
}

func (s Session) clonePeople() []models.Participant {
	out := make([]models.Participant, len(s.People))
	copy(out, s.People)
	return out
}

func (s Session) cloneItems() []models.Item {
	out := make([]models.Item, len(s.Items))
	copy(out, s.Items)
	return out
}

func (s Session) findPerson(id string) (models.Participant, bool) {
	for _, p := range s.People {
		if p.ID == id {
			return p, true
		}
	}
	return models.Participant{}, false
}

// AddPerson registers a new participant. The display initial is the first
// rune of the name, uppercased, and the avatar color rotates through a
// fixed palette. The first participant added is automatically designated
// as the payer.
func (s Session) AddPerson(name string) (Session, models.Participant, error) {
	if name == "" {
		return s, models.Participant{}, fmt.Errorf("participant name is required")
	}

	initial := ""
	for _, r := range name {
		initial = string(unicode.ToUpper(r))
		break
	}

	p := models.Participant{
		ID:      uuid.New().String(),
		Name:    name,
		Initial: initial,
		Color:   avatarPalette[len(s.People)%len(avatarPalette)],
	}
	if len(s.People) == 0 {
		p.IsPayer = true
	}

	next := s
	next.People = append(s.clonePeople(), p)
	if p.IsPayer {
		next.PaidBy = p.ID
	}
	return next, p, nil
}

// RemovePerson deletes a participant. If they were the payer, the first
// remaining participant becomes the payer (or nobody, if the session is
// now empty). The participant is purged from every assignment structure.
func (s Session) RemovePerson(id string) (Session, error) {
	if _, ok := s.findPerson(id); !ok {
		return s, fmt.Errorf("participant %s not found", id)
	}

	next := s
	people := make([]models.Participant, 0, len(s.People)-1)
	for _, p := range s.People {
		if p.ID != id {
			people = append(people, p)
		}
	}
	next.People = people
	next.Assignments = s.Assignments.RemoveParticipant(id)

	if next.PaidBy == id {
		next.PaidBy = ""
		if len(next.People) > 0 {
			next.People[0].IsPayer = true
			next.PaidBy = next.People[0].ID
		}
	}
	return next, nil
}

// SetPayer designates the payer, clearing any previous payer flag.
// Idempotent when the participant is already the payer.
func (s Session) SetPayer(id string) (Session, error) {
	if _, ok := s.findPerson(id); !ok {
		return s, fmt.Errorf("participant %s not found", id)
	}

	next := s
	next.People = s.clonePeople()
	for i := range next.People {
		next.People[i].IsPayer = next.People[i].ID == id
	}
	next.PaidBy = id
	return next, nil
}

// SetItems replaces the session's items, typically after a receipt
// extraction. Any existing assignments refer to the old items and are
// cleared.
func (s Session) SetItems(items []models.Item) Session {
	next := s
	next.Items = make([]models.Item, len(items))
	copy(next.Items, items)
	next.Assignments = assignment.New()
	return next
}

// AddItem appends a manually entered line item.
func (s Session) AddItem(raw models.RawItem) (Session, models.Item, error) {
	item, err := models.NewItem(len(s.Items), raw)
	if err != nil {
		return s, models.Item{}, err
	}
	next := s
	next.Items = append(s.cloneItems(), item)
	return next, item, nil
}

// ChangeItemQuantity adjusts an item's quantity by delta (floored at 1)
// and reconciles the item's assignments against the new quantity.
func (s Session) ChangeItemQuantity(index, delta int) (Session, []assignment.Notice, error) {
	if index < 0 || index >= len(s.Items) {
		return s, nil, fmt.Errorf("item %d not found", index)
	}

	next := s
	next.Items = s.cloneItems()
	next.Items[index] = next.Items[index].WithQuantityDelta(delta)

	store, notices := s.Assignments.ItemQuantityChanged(next.Items[index])
	next.Assignments = store
	return next, notices, nil
}

// ToggleParticipant links or unlinks a participant from an item.
func (s Session) ToggleParticipant(index int, participantID string) (Session, []assignment.Notice, error) {
	item, err := s.item(index)
	if err != nil {
		return s, nil, err
	}
	if _, ok := s.findPerson(participantID); !ok {
		return s, nil, fmt.Errorf("participant %s not found", participantID)
	}

	next := s
	store, notices := s.Assignments.ToggleParticipant(item, participantID)
	next.Assignments = store
	return next, notices, nil
}

// IncrementUnits raises a participant's claimed-unit count for an item.
func (s Session) IncrementUnits(index int, participantID string) (Session, []assignment.Notice, error) {
	item, err := s.item(index)
	if err != nil {
		return s, nil, err
	}
	if _, ok := s.findPerson(participantID); !ok {
		return s, nil, fmt.Errorf("participant %s not found", participantID)
	}

	next := s
	store, notices := s.Assignments.IncrementUnits(item, participantID)
	next.Assignments = store
	return next, notices, nil
}

// DecrementUnits lowers a participant's claimed-unit count for an item.
func (s Session) DecrementUnits(index int, participantID string) (Session, []assignment.Notice, error) {
	item, err := s.item(index)
	if err != nil {
		return s, nil, err
	}

	next := s
	store, notices := s.Assignments.DecrementUnits(item, participantID)
	next.Assignments = store
	return next, notices, nil
}

// SetShared toggles an item's shared flag.
func (s Session) SetShared(index int, shared bool) (Session, []assignment.Notice, error) {
	item, err := s.item(index)
	if err != nil {
		return s, nil, err
	}

	next := s
	store, notices := s.Assignments.SetShared(item, shared)
	next.Assignments = store
	return next, notices, nil
}

// SavePortions commits a per-unit portion table for a shared item.
func (s Session) SavePortions(index int, portions [][]string) (Session, []assignment.Notice, error) {
	item, err := s.item(index)
	if err != nil {
		return s, nil, err
	}
	for _, unit := range portions {
		for _, id := range unit {
			if _, ok := s.findPerson(id); !ok {
				return s, nil, fmt.Errorf("participant %s not found", id)
			}
		}
	}

	next := s
	store, notices, err := s.Assignments.SavePortions(item, portions)
	if err != nil {
		return s, nil, err
	}
	next.Assignments = store
	return next, notices, nil
}

func (s Session) item(index int) (models.Item, error) {
	if index < 0 || index >= len(s.Items) {
		return models.Item{}, fmt.Errorf("item %d not found", index)
	}
	return s.Items[index], nil
}
