// Package education implements the educational content domain.
// It stores named text overrides per topic; at most one override per topic is
// active, and topics without an active override deliver the built-in text.
package education

import "github.com/google/uuid"

// Content is a named text override for an educational topic.
type Content struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Topic       Topic     `json:"topic"`
	Text        string    `json:"content"`
	Description *string   `json:"description"`
	Active      bool      `json:"active"`
}

// CreateCommand carries the data needed to create a content override.
type CreateCommand struct {
	Name        string  `json:"name"`
	Topic       Topic   `json:"topic"`
	Text        string  `json:"content"`
	Description *string `json:"description"`
}

// UpdateCommand carries the data needed to update a content override.
type UpdateCommand struct {
	Name        string  `json:"name"`
	Topic       Topic   `json:"topic"`
	Text        string  `json:"content"`
	Description *string `json:"description"`
}

func (c CreateCommand) validate() error {
	if c.Name == "" || c.Text == "" {
		return ErrInvalidContent
	}
	return nil
}

func (c UpdateCommand) validate() error {
	if c.Name == "" || c.Text == "" {
		return ErrInvalidContent
	}
	return nil
}
