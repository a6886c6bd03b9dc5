package models

// Participant represents one person splitting the bill.
type Participant struct {
	// ID is the unique identifier for the participant (UUID format).
	ID string

	// Name is the display name as entered by the user.
	Name string

	// Initial is the display initial: the first rune of Name, uppercased.
	Initial string

	// Color is an opaque color tag for the participant's avatar, assigned
	// from a rotating palette on creation.
	Color string

	// IsPayer marks the participant who fronted the money. At most one
	// participant in a session has IsPayer set; the session registry
	// enforces this.
	IsPayer bool
}
