package usecase

import (
	"context"
	"fmt"
	"time"

	authdomain "maildigest-backend/internal/auth/domain"
	authrepo "maildigest-backend/internal/auth/repository"
	emaildomain "maildigest-backend/internal/email/domain"
	"maildigest-backend/pkg/gmail"
	"maildigest-backend/pkg/imap"
	"maildigest-backend/pkg/utils/crypto"

	"golang.org/x/oauth2"
)

// Fetcher retrieves digest candidates from whichever mail backend the user
// has connected.
type Fetcher interface {
	FetchCandidates(ctx context.Context, user *authdomain.User, since time.Time, limit int) ([]*emaildomain.EmailRecord, error)
}

type fetcher struct {
	gmailService  *gmail.Service
	userRepo      authrepo.UserRepository
	encryptionKey string
}

// NewFetcher creates a new Fetcher
func NewFetcher(gmailService *gmail.Service, userRepo authrepo.UserRepository, encryptionKey string) Fetcher {
	return &fetcher{
		gmailService:  gmailService,
		userRepo:      userRepo,
		encryptionKey: encryptionKey,
	}
}

func (f *fetcher) FetchCandidates(ctx context.Context, user *authdomain.User, since time.Time, limit int) ([]*emaildomain.EmailRecord, error) {
	switch user.MailProvider {
	case authdomain.MailProviderGmail:
		return f.fetchGmail(ctx, user, since, limit)
	case authdomain.MailProviderIMAP:
		return f.fetchIMAP(ctx, user, since, limit)
	default:
		return nil, fmt.Errorf("user %s has no mail connection", user.ID)
	}
}

func (f *fetcher) fetchGmail(ctx context.Context, user *authdomain.User, since time.Time, limit int) ([]*emaildomain.EmailRecord, error) {
	// Persist refreshed tokens so the next cycle does not re-refresh
	onTokenRefresh := func(token *oauth2.Token) error {
		var expiry *time.Time
		if !token.Expiry.IsZero() {
			expiry = &token.Expiry
		}
		return f.userRepo.UpdateGoogleTokens(user.ID, token.AccessToken, token.RefreshToken, expiry)
	}

	return f.gmailService.ListCandidateMessages(ctx, user.GoogleAccessTok, user.GoogleRefreshTok, since, limit, onTokenRefresh)
}

func (f *fetcher) fetchIMAP(ctx context.Context, user *authdomain.User, since time.Time, limit int) ([]*emaildomain.EmailRecord, error) {
	password, err := crypto.Decrypt(user.IMAPPasswordEnc, f.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt IMAP password for user %s: %w", user.ID, err)
	}

	svc := imap.NewService(user.IMAPHost, user.IMAPPort)
	return svc.ListCandidateMessages(ctx, user.IMAPUsername, password, since, limit, nil)
}
