package widget

// Confirmer asks the user to confirm a destructive action and blocks until answered
type Confirmer interface {
	Confirm(message string) bool
}

// ConfirmFunc adapts a function to the Confirmer interface
type ConfirmFunc func(message string) bool

// Confirm calls f(message)
func (f ConfirmFunc) Confirm(message string) bool {
	return f(message)
}
