package imap

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	emaildomain "maildigest-backend/internal/email/domain"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message/mail"
)

// Service fetches digest candidates from a generic IMAP mailbox. Implements
// emaildomain.MailProvider; the OAuth token arguments are repurposed as
// username and password, and the refresh callback is unused.
type Service struct {
	host string
	port int
}

func NewService(host string, port int) *Service {
	if port == 0 {
		port = 993
	}
	return &Service{host: host, port: port}
}

func (s *Service) addr() string {
	return fmt.Sprintf("%s:%d", s.host, s.port)
}

func (s *Service) connect(username, password string) (*client.Client, error) {
	c, err := client.DialTLS(s.addr(), nil)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to %s: %w", s.addr(), err)
	}
	if err := c.Login(username, password); err != nil {
		c.Logout()
		return nil, fmt.Errorf("IMAP login failed: %w", err)
	}
	return c, nil
}

// ListCandidateMessages retrieves inbox messages received after `since`,
// newest first, up to `limit`.
func (s *Service) ListCandidateMessages(ctx context.Context, username, password string, since time.Time, limit int, _ emaildomain.TokenUpdateFunc) ([]*emaildomain.EmailRecord, error) {
	c, err := s.connect(username, password)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Since = since
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(ids) == 0 {
		return []*emaildomain.EmailRecord{}, nil
	}

	// Highest sequence numbers are the newest messages
	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids...)

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, len(ids))
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	emails := make([]*emaildomain.EmailRecord, 0, len(ids))
	for msg := range messages {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		if record := convertIMAPMessage(msg, section); record != nil {
			emails = append(emails, record)
		}
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}

	sort.Slice(emails, func(i, j int) bool {
		return emails[i].ReceivedAt.After(emails[j].ReceivedAt)
	})

	return emails, nil
}

// GetEmailByID retrieves a specific email by Message-ID header
func (s *Service) GetEmailByID(ctx context.Context, username, password, id string, _ emaildomain.TokenUpdateFunc) (*emaildomain.EmailRecord, error) {
	c, err := s.connect(username, password)
	if err != nil {
		return nil, err
	}
	defer c.Logout()

	if _, err := c.Select("INBOX", true); err != nil {
		return nil, fmt.Errorf("unable to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	criteria.Header.Set("Message-Id", id)
	ids, err := c.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("IMAP search failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(ids[len(ids)-1])

	section := &imap.BodySectionName{Peek: true}
	items := []imap.FetchItem{imap.FetchEnvelope, imap.FetchInternalDate, section.FetchItem()}

	messages := make(chan *imap.Message, 1)
	done := make(chan error, 1)
	go func() {
		done <- c.Fetch(seqset, items, messages)
	}()

	var record *emaildomain.EmailRecord
	for msg := range messages {
		record = convertIMAPMessage(msg, section)
	}
	if err := <-done; err != nil {
		return nil, fmt.Errorf("IMAP fetch failed: %w", err)
	}

	return record, nil
}

func convertIMAPMessage(msg *imap.Message, section *imap.BodySectionName) *emaildomain.EmailRecord {
	if msg == nil || msg.Envelope == nil {
		return nil
	}

	record := &emaildomain.EmailRecord{
		ID:         msg.Envelope.MessageId,
		Subject:    msg.Envelope.Subject,
		ReceivedAt: msg.InternalDate,
	}
	if record.ReceivedAt.IsZero() {
		record.ReceivedAt = msg.Envelope.Date
	}

	if len(msg.Envelope.From) > 0 {
		addr := msg.Envelope.From[0]
		record.From = addr.Address()
		record.FromName = addr.PersonalName
		if record.FromName == "" {
			record.FromName = record.From
		}
	}
	for _, addr := range msg.Envelope.To {
		record.To = append(record.To, addr.Address())
	}

	if body := msg.GetBody(section); body != nil {
		record.Body = extractBody(body)
	}
	record.Snippet = makeSnippet(record.Body)

	return record
}

// extractBody walks the MIME tree and returns the first text part, preferring
// text/plain over text/html.
func extractBody(r io.Reader) string {
	mr, err := mail.CreateReader(r)
	if err != nil {
		return ""
	}

	var plainBody, htmlBody string
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		contentType, _, _ := header.ContentType()
		data, err := io.ReadAll(part.Body)
		if err != nil {
			continue
		}

		switch contentType {
		case "text/plain":
			if plainBody == "" {
				plainBody = string(data)
			}
		case "text/html":
			if htmlBody == "" {
				htmlBody = string(data)
			}
		}
	}

	if plainBody != "" {
		return plainBody
	}
	return stripHTML(htmlBody)
}

func stripHTML(text string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range text {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
			sb.WriteRune(' ')
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.Join(strings.Fields(sb.String()), " ")
}

func makeSnippet(body string) string {
	snippet := strings.Join(strings.Fields(body), " ")
	if len(snippet) > 200 {
		snippet = snippet[:200] + "..."
	}
	return snippet
}
