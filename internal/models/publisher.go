package models

// MessagePublisher interface for publishing events and reports
type MessagePublisher interface {
	Publish(subject string, data interface{}) error
}
