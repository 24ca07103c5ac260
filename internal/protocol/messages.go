package protocol

import "time"

// FaceMatch is published by the face recognizer when it identifies a
// person near the installation. Name is "Unknown" when no enrolled face
// matched.
type FaceMatch struct {
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// DisplayText carries marquee lines for the installation's display.
// HoldMS is how long the display should keep the text up.
type DisplayText struct {
	Lines  []string `json:"lines"`
	HoldMS int      `json:"hold_ms,omitempty"`
}

// WordSpoken announces each lyric word as the speech channel voices it,
// so the display can follow along.
type WordSpoken struct {
	SessionID string    `json:"session_id"`
	Word      string    `json:"word"`
	Timestamp time.Time `json:"timestamp"`
}

// SessionStatus reports session lifecycle transitions.
type SessionStatus struct {
	SessionID string    `json:"session_id"`
	Song      string    `json:"song"`
	State     string    `json:"state"` // started, completed, failed
	Detail    string    `json:"detail,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	SubjectFaceMatch     = "looker.face.match"
	SubjectDisplayText   = "looker.display.text"
	SubjectLyricWord     = "looker.lyric.word"
	SubjectSessionStatus = "looker.session.status"
)
