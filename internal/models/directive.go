package models

// DirectiveKind discriminates the Directive union.
type DirectiveKind int

const (
	DirectiveReply DirectiveKind = iota
	DirectiveSilence
	DirectiveSchedule
	DirectiveUpdate
	DirectiveCancel
)

// Directive is the structured outcome extracted from a completion response:
// a plain reply, an explicit silence, or one calendar operation. Exactly one
// payload field is set, matching Kind.
type Directive struct {
	Kind     DirectiveKind
	Reply    string
	Schedule *ScheduleEvent
	Update   *UpdateEvent
	Cancel   *CancelEvent
}

// ScheduleEvent is the JSON payload of a [SCHEDULE_EVENT] block.
type ScheduleEvent struct {
	Title        string   `json:"title"`
	Description  string   `json:"description"`
	Participants []string `json:"participants"`
	Datetime     string   `json:"datetime"`
	Timezone     string   `json:"timezone"`
}

// UpdateEvent is the JSON payload of an [UPDATE_EVENT] block. Title and
// Datetime are fuzzy hints used to locate the event, not its identity.
type UpdateEvent struct {
	Title          string            `json:"title"`
	Datetime       string            `json:"datetime"`
	FieldsToUpdate map[string]string `json:"fields_to_update"`
}

// CancelEvent is the JSON payload of a [CANCEL_EVENT] block.
type CancelEvent struct {
	Title    string `json:"title"`
	Datetime string `json:"datetime"`
}
