package api

import (
	"time"

	"github.com/rubiojr/bookexplorer/pkg/session"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type CreateSessionResponse struct {
	ID   string       `json:"id"`
	View session.View `json:"view"`
}

type TextRequest struct {
	Text string `json:"text"`
}

type SortRequest struct {
	Mode string `json:"mode"`
}

type SortMode struct {
	Mode  string `json:"mode"`
	Label string `json:"label"`
}

type SortModesResponse struct {
	Modes []SortMode `json:"modes"`
}

type RecentResponse struct {
	Terms []string `json:"terms"`
	Count int      `json:"count"`
}

// StreamMessage is the first frame sent on an events connection.
type StreamMessage struct {
	Type string       `json:"type"`
	View session.View `json:"view"`
}

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
	Sessions  int       `json:"sessions"`
}
