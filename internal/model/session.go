package model

import (
	"encoding/json"
	"time"
)

// WizardSession is the stored form of one intake wizard. Snapshot holds the
// serialised controller; State is duplicated for querying.
type WizardSession struct {
	ID        string          `json:"id"`
	State     string          `json:"state"`
	Snapshot  json.RawMessage `json:"snapshot"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
