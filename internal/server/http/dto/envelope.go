package dto

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Status  string `json:"status"`
	Kind    string `json:"kind,omitempty"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// Success wraps data in a success envelope.
func Success(message string, data any) Envelope {
	return Envelope{Status: StatusSuccess, Message: message, Data: data}
}

// Error builds an error envelope of the given kind.
func Error(kind, message string) Envelope {
	return Envelope{Status: StatusError, Kind: kind, Message: message}
}
