package domain

import "fmt"

// ValidationError marks input the user can correct and retry. It never
// reaches the network layer.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}
