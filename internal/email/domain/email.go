package domain

import (
	"context"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

// EmailRecord is a read-only view of a fetched message. The digest pipeline
// never mutates it.
type EmailRecord struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	From       string    `json:"from"`      // sender address
	FromName   string    `json:"from_name"` // display name, may be empty
	To         []string  `json:"to"`
	Body       string    `json:"body"`
	Snippet    string    `json:"snippet"`
	ReceivedAt time.Time `json:"received_at"`
	Labels     []string  `json:"labels,omitempty"`
}

// SenderDomain returns the part of the sender address after '@', lowercased.
func (e *EmailRecord) SenderDomain() string {
	addr := strings.ToLower(e.From)
	if idx := strings.LastIndex(addr, "@"); idx >= 0 && idx < len(addr)-1 {
		return addr[idx+1:]
	}
	return ""
}

// TokenUpdateFunc is called when an OAuth token is refreshed so the new
// token can be persisted.
type TokenUpdateFunc func(token *oauth2.Token) error

// MailProvider lists and fetches messages from an OAuth-backed mail backend.
type MailProvider interface {
	// ListCandidateMessages returns messages received after since, newest
	// first, up to limit.
	ListCandidateMessages(ctx context.Context, accessToken, refreshToken string, since time.Time, limit int, onTokenRefresh TokenUpdateFunc) ([]*EmailRecord, error)
	// GetEmailByID fetches a single full message.
	GetEmailByID(ctx context.Context, accessToken, refreshToken, id string, onTokenRefresh TokenUpdateFunc) (*EmailRecord, error)
}
