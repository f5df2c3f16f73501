package models

// Status is the moderation state shared by every content kind.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusSubmitted Status = "submitted"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusPublished Status = "published"
)

// Action is the moderation log vocabulary. Every transition writes exactly one.
type Action string

const (
	ActionSubmitted   Action = "submitted"
	ActionApproved    Action = "approved"
	ActionRejected    Action = "rejected"
	ActionPublished   Action = "published"
	ActionUnpublished Action = "unpublished"
	ActionRevised     Action = "revised"
)

type transition struct {
	from []Status
	to   Status
	hint string
}

var transitions = map[Action]transition{
	ActionSubmitted: {
		from: []Status{StatusDraft},
		to:   StatusSubmitted,
		hint: "only draft content can be submitted for review",
	},
	ActionApproved: {
		from: []Status{StatusSubmitted, StatusApproved, StatusRejected},
		to:   StatusApproved,
		hint: "only submitted content can be approved",
	},
	ActionRejected: {
		from: []Status{StatusSubmitted, StatusApproved, StatusRejected},
		to:   StatusRejected,
		hint: "only submitted content can be rejected",
	},
	ActionPublished: {
		from: []Status{StatusApproved},
		to:   StatusPublished,
		hint: "only approved content can be published",
	},
	ActionUnpublished: {
		from: []Status{StatusPublished},
		to:   StatusApproved,
		hint: "only published content can be unpublished",
	},
	ActionRevised: {
		from: []Status{StatusRejected},
		to:   StatusDraft,
		hint: "only rejected content can be returned to draft",
	},
}

// Transition returns the status reached by applying action to from.
// ok is false when the action is not allowed from that status; hint then
// carries a human-readable reason.
func Transition(from Status, action Action) (to Status, hint string, ok bool) {
	t, known := transitions[action]
	if !known {
		return from, "unknown moderation action", false
	}
	for _, s := range t.from {
		if s == from {
			return t.to, "", true
		}
	}
	return from, t.hint, false
}

// Valid reports whether s is one of the five moderation states.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusPublished:
		return true
	}
	return false
}
