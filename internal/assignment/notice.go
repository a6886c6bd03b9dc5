package assignment

// NoticeKind classifies a user-facing notice emitted by a store command.
type NoticeKind string

const (
	// NoticeLimitExceeded means an increment was blocked because it would
	// assign more units than the item has. The store is unchanged.
	NoticeLimitExceeded NoticeKind = "limit_exceeded"

	// NoticeAssignmentsReset means a structural change (quantity decrease,
	// shared toggle) invalidated an item's assignments and they were
	// cleared.
	NoticeAssignmentsReset NoticeKind = "assignments_reset"
)

// Notice is a user-facing message produced by a store command. Commands
// never fail on user input; blocked or auto-corrected operations degrade
// to no-ops or resets and describe themselves through notices.
type Notice struct {
	Kind    NoticeKind `json:"kind"`
	Message string     `json:"message"`
}
