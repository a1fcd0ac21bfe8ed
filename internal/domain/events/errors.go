package events

// InvalidRequestError reports a client error in the request parameters.
// Message is safe to show to the caller.
type InvalidRequestError struct {
	Field   string
	Message string
}

func (e InvalidRequestError) Error() string {
	return e.Message
}
