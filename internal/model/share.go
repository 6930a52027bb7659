package model

import (
	"time"
)

type ShareLinkRequest struct {
	Type string `json:"type" binding:"required"`
	ID   string `json:"id" binding:"required"`
}

type ShareEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Type  string `json:"type" binding:"required"`
	ID    string `json:"id" binding:"required"`
}

type ShareLink struct {
	URL       string    `json:"share_link"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SharedDocument is what a redeemed link resolves to.
type SharedDocument struct {
	Type   RecordKind `json:"type"`
	Record *Record    `json:"record"`
}

// ShareEvent is the payload published when a link is issued.
type ShareEvent struct {
	Type      RecordKind `json:"type"`
	RecordID  string     `json:"record_id"`
	ExpiresAt time.Time  `json:"expires_at"`
	Emailed   bool       `json:"emailed"`
}
