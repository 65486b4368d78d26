package domain

import "time"

// Mail connection kinds a user can attach to their account
const (
	MailProviderGmail = "gmail"
	MailProviderIMAP  = "imap"
)

type User struct {
	ID        string    `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;not null"`
	Password  string    `json:"-"` // Never return password in JSON
	Name      string    `json:"name"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	Provider  string    `json:"provider"` // "email" or "google"

	// Mail connection used by the digest pipeline. Gmail accounts carry
	// OAuth tokens; IMAP accounts carry host/port plus an encrypted password.
	MailProvider     string     `json:"mail_provider,omitempty"`
	GoogleAccessTok  string     `json:"-"`
	GoogleRefreshTok string     `json:"-"`
	GoogleTokenExp   *time.Time `json:"-"`
	IMAPHost         string     `json:"imap_host,omitempty"`
	IMAPPort         int        `json:"imap_port,omitempty"`
	IMAPUsername     string     `json:"imap_username,omitempty"`
	IMAPPasswordEnc  string     `json:"-"` // AES-GCM ciphertext, base64

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// HasMailConnection reports whether the digest pipeline can fetch mail for
// this user.
func (u *User) HasMailConnection() bool {
	switch u.MailProvider {
	case MailProviderGmail:
		return u.GoogleRefreshTok != ""
	case MailProviderIMAP:
		return u.IMAPHost != "" && u.IMAPUsername != "" && u.IMAPPasswordEnc != ""
	default:
		return false
	}
}

type RefreshToken struct {
	Token     string    `json:"token" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"index"`
	ExpiresAt time.Time `json:"expires_at"`
}
