package models

import (
	"net/http"
)

const (
	TopicSession = "session"
	TopicChart   = "chart"
)

type NewSubscription struct {
	ResponseWriter http.ResponseWriter
	Request        *http.Request
	Greeting       *Notification // sent first, e.g. the current session
}

// Notification is a message pushed to websocket subscribers.
type Notification struct {
	Topic   string      `json:"topic"`
	Message interface{} `json:"message"`
}
