package models

// Persona selects the system prompt used for a completion call.
type Persona string

const (
	PersonaAssistant Persona = "assistant"
	PersonaDeveloper Persona = "developer"
)
