package gmail

import (
	"context"
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	emaildomain "maildigest-backend/internal/email/domain"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// TokenUpdateFunc is a callback function that handles token updates
type TokenUpdateFunc = emaildomain.TokenUpdateFunc

// Service fetches digest candidates from Gmail. Implements
// emaildomain.MailProvider.
type Service struct {
	clientID     string
	clientSecret string
}

type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			fmt.Printf("Failed to update token: %v\n", err)
		}
	}
	return t, nil
}

func NewService(clientID, clientSecret string) *Service {
	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
	}
}

// getGmailService creates a Gmail client with the user's access token,
// wrapping the token source so refreshed tokens are persisted via callback
func (s *Service) getGmailService(ctx context.Context, accessToken, refreshToken string, onTokenRefresh TokenUpdateFunc) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if refreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	tokenSource := config.TokenSource(ctx, token)

	wrappedSource := &notifyTokenSource{
		src:      tokenSource,
		current:  token,
		callback: onTokenRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %v", err)
	}

	return srv, nil
}

// ListCandidateMessages retrieves inbox messages received after `since`,
// newest first, up to `limit`.
func (s *Service) ListCandidateMessages(ctx context.Context, accessToken, refreshToken string, since time.Time, limit int, onTokenRefresh TokenUpdateFunc) ([]*emaildomain.EmailRecord, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	user := "me"
	q := fmt.Sprintf("in:inbox after:%d", since.Unix())

	requestLimit := int64(limit)
	if requestLimit <= 0 {
		requestLimit = 50
	}
	if requestLimit > 500 {
		requestLimit = 500 // Gmail API maximum
	}

	listResp, err := srv.Users.Messages.List(user).Q(q).MaxResults(requestLimit).Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve messages: %v", err)
	}

	// Fetch full messages in parallel with a concurrency cap
	type fetchResult struct {
		email *emaildomain.EmailRecord
		err   error
	}

	resultChan := make(chan fetchResult, len(listResp.Messages))
	semaphore := make(chan struct{}, 10)

	for _, msg := range listResp.Messages {
		go func(msgID string) {
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			fullMsg, err := srv.Users.Messages.Get(user, msgID).Format("full").Do()
			if err != nil {
				resultChan <- fetchResult{nil, err}
				return
			}
			resultChan <- fetchResult{convertGmailMessage(fullMsg), nil}
		}(msg.Id)
	}

	emails := make([]*emaildomain.EmailRecord, 0, len(listResp.Messages))
	for i := 0; i < len(listResp.Messages); i++ {
		result := <-resultChan
		if result.err == nil && result.email != nil {
			emails = append(emails, result.email)
		}
	}

	// Parallel fetching returns emails in random order
	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})

	return emails, nil
}

// GetEmailByID retrieves a specific email by ID
func (s *Service) GetEmailByID(ctx context.Context, accessToken, refreshToken, id string, onTokenRefresh TokenUpdateFunc) (*emaildomain.EmailRecord, error) {
	srv, err := s.getGmailService(ctx, accessToken, refreshToken, onTokenRefresh)
	if err != nil {
		return nil, err
	}

	msg, err := srv.Users.Messages.Get("me", id).Format("full").Do()
	if err != nil {
		return nil, fmt.Errorf("unable to retrieve message: %v", err)
	}

	return convertGmailMessage(msg), nil
}

// Helper functions

func convertGmailMessage(msg *gmail.Message) *emaildomain.EmailRecord {
	from, fromName := parseFromHeader(getHeader(msg.Payload.Headers, "From"))

	toHeader := getHeader(msg.Payload.Headers, "To")
	toArray := []string{}
	if toHeader != "" {
		toArray = []string{toHeader}
	}

	body, isHTML := getEmailBody(msg.Payload)
	if isHTML {
		body = stripHTML(body)
	}

	snippet := msg.Snippet
	if snippet == "" {
		snippet = makeSnippet(body)
	}

	return &emaildomain.EmailRecord{
		ID:         msg.Id,
		Subject:    getHeader(msg.Payload.Headers, "Subject"),
		From:       from,
		FromName:   fromName,
		To:         toArray,
		Body:       body,
		Snippet:    snippet,
		ReceivedAt: time.Unix(msg.InternalDate/1000, 0),
		Labels:     msg.LabelIds,
	}
}

// parseFromHeader splits "Name <email@example.com>" into bare address and
// display name.
func parseFromHeader(header string) (addr, name string) {
	addr = strings.TrimSpace(header)
	name = addr
	if open := strings.Index(header, "<"); open >= 0 {
		if close := strings.Index(header[open:], ">"); close > 0 {
			addr = strings.TrimSpace(header[open+1 : open+close])
		}
		name = strings.Trim(strings.TrimSpace(header[:open]), `"`)
		if name == "" {
			name = addr
		}
	}
	return addr, name
}

func getHeader(headers []*gmail.MessagePartHeader, name string) string {
	for _, header := range headers {
		if header.Name == name {
			return header.Value
		}
	}
	return ""
}

func getEmailBody(payload *gmail.MessagePart) (string, bool) {
	// If the payload itself is the body
	if payload.Body != nil && payload.Body.Data != "" {
		data, err := base64.URLEncoding.DecodeString(payload.Body.Data)
		if err == nil {
			return string(data), payload.MimeType == "text/html"
		}
	}

	var htmlBody string
	var plainBody string

	var findBody func(parts []*gmail.MessagePart)
	findBody = func(parts []*gmail.MessagePart) {
		for _, part := range parts {
			if part.MimeType == "text/html" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						htmlBody = string(data)
					}
				}
			} else if part.MimeType == "text/plain" {
				if part.Body != nil && part.Body.Data != "" {
					data, err := base64.URLEncoding.DecodeString(part.Body.Data)
					if err == nil {
						plainBody = string(data)
					}
				}
			}

			if len(part.Parts) > 0 {
				findBody(part.Parts)
			}
		}
	}

	findBody(payload.Parts)

	// Summarization wants plain text; prefer it when both exist
	if plainBody != "" {
		return plainBody, false
	}
	return htmlBody, true
}

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

func stripHTML(text string) string {
	text = htmlTagRe.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	text = strings.ReplaceAll(text, "&lt;", "<")
	text = strings.ReplaceAll(text, "&gt;", ">")
	text = strings.ReplaceAll(text, "&amp;", "&")
	text = strings.ReplaceAll(text, "&quot;", "\"")
	return strings.Join(strings.Fields(text), " ")
}

func makeSnippet(body string) string {
	snippet := strings.Join(strings.Fields(body), " ")
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return snippet
}
