package synthesis

// State tracks one synthesis run. Idle → RequestBuilt → ResponseReceived →
// one of the three terminal states; there is no way back.
type State int

const (
	StateIdle State = iota
	StateRequestBuilt
	StateResponseReceived
	StateDocumentValid
	StateSchemaInvalid
	StateGenerationServiceFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequestBuilt:
		return "request_built"
	case StateResponseReceived:
		return "response_received"
	case StateDocumentValid:
		return "document_valid"
	case StateSchemaInvalid:
		return "schema_invalid"
	case StateGenerationServiceFailed:
		return "generation_service_failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateDocumentValid || s == StateSchemaInvalid || s == StateGenerationServiceFailed
}

func (s State) canMoveTo(next State) bool {
	switch s {
	case StateIdle:
		return next == StateRequestBuilt
	case StateRequestBuilt:
		return next == StateResponseReceived || next == StateGenerationServiceFailed
	case StateResponseReceived:
		return next == StateDocumentValid || next == StateSchemaInvalid
	default:
		return false
	}
}
