package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	authdomain "maildigest-backend/internal/auth/domain"
	digestdomain "maildigest-backend/internal/digest/domain"
	emaildomain "maildigest-backend/internal/email/domain"
	personadomain "maildigest-backend/internal/persona/domain"
	"maildigest-backend/pkg/ai"
)

type mockUserRepo struct {
	users     []*authdomain.User
	findCalls int
}

func (m *mockUserRepo) Create(user *authdomain.User) error           { return nil }
func (m *mockUserRepo) FindByEmail(string) (*authdomain.User, error) { return nil, nil }
func (m *mockUserRepo) Update(user *authdomain.User) error           { return nil }

func (m *mockUserRepo) FindByID(id string) (*authdomain.User, error) {
	for _, u := range m.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, nil
}
func (m *mockUserRepo) FindActiveWithMailConnection() ([]*authdomain.User, error) {
	m.findCalls++
	return m.users, nil
}
func (m *mockUserRepo) UpdateGoogleTokens(string, string, string, *time.Time) error { return nil }
func (m *mockUserRepo) SaveRefreshToken(*authdomain.RefreshToken) error             { return nil }
func (m *mockUserRepo) FindRefreshToken(string) (*authdomain.RefreshToken, error)   { return nil, nil }
func (m *mockUserRepo) DeleteRefreshToken(string) error                             { return nil }
func (m *mockUserRepo) DeleteRefreshTokensByUser(string) error                      { return nil }

type mockFCMRepo struct{}

func (m *mockFCMRepo) SaveToken(string, string, string) error { return nil }

func (m *mockFCMRepo) GetTokensByUserID(string) ([]authdomain.FCMToken, error) {
	return nil, nil
}

func (m *mockFCMRepo) DeleteToken(string) error          { return nil }
func (m *mockFCMRepo) DeleteTokensByUserID(string) error { return nil }

type mockSummaryRepo struct {
	mu             sync.Mutex
	existing       map[string]bool // keyed by summary type
	dedupErr       error
	emailSummaries []*digestdomain.EmailSummary
	dailySummaries []*digestdomain.DailySummary
}

func (m *mockSummaryRepo) SaveEmailSummary(s *digestdomain.EmailSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailSummaries = append(m.emailSummaries, s)
	return nil
}

func (m *mockSummaryRepo) SaveDailySummary(s *digestdomain.DailySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dailySummaries = append(m.dailySummaries, s)
	return nil
}

func (m *mockSummaryRepo) DailySummaryExistsSince(userID, summaryType string, since time.Time) (bool, error) {
	if m.dedupErr != nil {
		return false, m.dedupErr
	}
	return m.existing[summaryType], nil
}

func (m *mockSummaryRepo) GetLatestDailySummary(string) (*digestdomain.DailySummary, error) {
	return nil, nil
}

func (m *mockSummaryRepo) GetRecentEmailSummaries(string, int) ([]*digestdomain.EmailSummary, error) {
	return nil, nil
}

func (m *mockSummaryRepo) savedDailies() []*digestdomain.DailySummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*digestdomain.DailySummary(nil), m.dailySummaries...)
}

type mockPersonaUC struct {
	persona  personadomain.Persona
	recorded int
}

func (m *mockPersonaUC) GetPersona(userID string) (*personadomain.Persona, error) {
	p := m.persona.Clone()
	p.UserID = userID
	return &p, nil
}

func (m *mockPersonaUC) UpdatePersona(userID string, updated personadomain.Persona) (*personadomain.Persona, error) {
	return &updated, nil
}

func (m *mockPersonaUC) SubmitFeedback(string, personadomain.FeedbackEntry) error { return nil }

func (m *mockPersonaUC) RecordSummaryGenerated(string) error {
	m.recorded++
	return nil
}

type mockFetcher struct {
	emails  []*emaildomain.EmailRecord
	started chan struct{} // signaled when a fetch begins, when set
	release chan struct{} // fetch blocks until closed, when set
}

func (m *mockFetcher) FetchCandidates(context.Context, *authdomain.User, time.Time, int) ([]*emaildomain.EmailRecord, error) {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.release != nil {
		<-m.release
	}
	return m.emails, nil
}

type mockSummarizer struct {
	mu         sync.Mutex
	emailCalls int
	errOnCall  int // 1-based; 0 means never fail
	err        error
}

func (m *mockSummarizer) SummarizeEmail(ctx context.Context, email *emaildomain.EmailRecord, p *personadomain.Persona) (*digestdomain.EmailSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emailCalls++
	if m.errOnCall > 0 && m.emailCalls >= m.errOnCall {
		return nil, m.err
	}
	return &digestdomain.EmailSummary{
		EmailID:   email.ID,
		Subject:   email.Subject,
		Content:   "summary of " + email.Subject,
		Priority:  digestdomain.PriorityMedium,
		Sentiment: digestdomain.SentimentNeutral,
	}, nil
}

func (m *mockSummarizer) SummarizeDaily(ctx context.Context, summaries []*digestdomain.EmailSummary, p *personadomain.Persona) (*digestdomain.DailySummary, error) {
	return &digestdomain.DailySummary{
		Content:    "daily digest",
		EmailCount: len(summaries),
	}, nil
}

func (m *mockSummarizer) Answer(context.Context, string, []string, *personadomain.Persona) (string, error) {
	return "", nil
}

func connectedUser(id string) *authdomain.User {
	return &authdomain.User{
		ID:               id,
		Email:            id + "@example.com",
		MailProvider:     authdomain.MailProviderGmail,
		GoogleRefreshTok: "refresh-token",
	}
}

func candidateEmails(n int) []*emaildomain.EmailRecord {
	emails := make([]*emaildomain.EmailRecord, 0, n)
	for i := 0; i < n; i++ {
		emails = append(emails, &emaildomain.EmailRecord{
			ID:         "msg-" + string(rune('a'+i)),
			From:       "sender@example.com",
			Subject:    "subject",
			Body:       strings.Repeat("content ", 30),
			ReceivedAt: time.Now().Add(-time.Duration(i) * time.Minute),
		})
	}
	return emails
}

func newTestScheduler(userRepo *mockUserRepo, summaryRepo *mockSummaryRepo, personaUC *mockPersonaUC, fetcher *mockFetcher, summarizer *mockSummarizer) *DigestScheduler {
	return NewDigestScheduler(userRepo, &mockFCMRepo{}, summaryRepo, personaUC, fetcher, summarizer, nil, nil, 5, 0, 20*time.Hour)
}

func TestProcessPendingSummariesAtConfiguredHour(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{}
	persona := personadomain.Default("user-1")
	persona.DailySummaryTime = "13:00"
	personaUC := &mockPersonaUC{persona: persona}
	fetcher := &mockFetcher{emails: candidateEmails(3)}
	summarizer := &mockSummarizer{}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, fetcher, summarizer)

	now := time.Date(2026, 8, 31, 13, 30, 0, 0, time.UTC)
	stats := s.ProcessPendingSummaries(now)

	if stats.Processed != 1 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Fatalf("stats = %+v, want 1 processed", stats)
	}
	dailies := summaryRepo.savedDailies()
	if len(dailies) != 1 {
		t.Fatalf("saved %d daily summaries, want 1", len(dailies))
	}
	if dailies[0].UserID != "user-1" || dailies[0].SummaryType != digestdomain.SummaryTypeDaily {
		t.Errorf("daily = %+v, want user-1/daily", dailies[0])
	}
	if personaUC.recorded != 1 {
		t.Errorf("recorded %d generations, want 1", personaUC.recorded)
	}
}

func TestProcessPendingSummariesSkipsOffHours(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{}
	persona := personadomain.Default("user-1")
	persona.DailySummaryTime = "13:00"
	personaUC := &mockPersonaUC{persona: persona}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, &mockFetcher{}, &mockSummarizer{})

	now := time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC)
	stats := s.ProcessPendingSummaries(now)

	if stats.Skipped != 1 || stats.Processed != 0 {
		t.Errorf("stats = %+v, want 1 skipped", stats)
	}
	if len(summaryRepo.savedDailies()) != 0 {
		t.Error("no summary must be generated outside the configured hour")
	}
}

func TestProcessPendingSummariesDedupWindow(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{existing: map[string]bool{digestdomain.SummaryTypeDaily: true}}
	persona := personadomain.Default("user-1")
	persona.DailySummaryTime = "13:00"
	personaUC := &mockPersonaUC{persona: persona}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, &mockFetcher{}, &mockSummarizer{})

	now := time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC)
	stats := s.ProcessPendingSummaries(now)

	if stats.Skipped != 1 || stats.Processed != 0 {
		t.Errorf("stats = %+v, want dedup skip", stats)
	}
}

func TestProcessUserManuallyBypassesHourAndDailyDedup(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	// A scheduled digest inside the window must not block a manual trigger.
	summaryRepo := &mockSummaryRepo{existing: map[string]bool{digestdomain.SummaryTypeDaily: true}}
	persona := personadomain.Default("user-1")
	persona.DailySummaryTime = "03:00" // never "now" and it must not matter
	personaUC := &mockPersonaUC{persona: persona}
	fetcher := &mockFetcher{emails: candidateEmails(2)}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, fetcher, &mockSummarizer{})

	daily, err := s.ProcessUserManually(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("ProcessUserManually returned error: %v", err)
	}
	if daily.SummaryType != digestdomain.SummaryTypeManual {
		t.Errorf("SummaryType = %q, want manual", daily.SummaryType)
	}
	if len(summaryRepo.savedDailies()) != 1 {
		t.Error("manual digest must be persisted")
	}
}

func TestProcessUserManuallyDedupWindow(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{existing: map[string]bool{digestdomain.SummaryTypeManual: true}}
	personaUC := &mockPersonaUC{persona: personadomain.Default("user-1")}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, &mockFetcher{}, &mockSummarizer{})

	if _, err := s.ProcessUserManually(context.Background(), "user-1"); err == nil {
		t.Error("a second manual trigger inside the dedup window must be rejected")
	}
	if len(summaryRepo.savedDailies()) != 0 {
		t.Error("no digest must be stored when the dedup window rejects the trigger")
	}
}

func TestProcessUserManuallyWhileCycleRunning(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	s := newTestScheduler(userRepo, &mockSummaryRepo{}, &mockPersonaUC{persona: personadomain.Default("user-1")}, &mockFetcher{}, &mockSummarizer{})

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	if _, err := s.ProcessUserManually(context.Background(), "user-1"); err == nil {
		t.Error("a manual trigger during a running cycle must be rejected")
	}
}

func TestProcessUserManuallyUnknownUser(t *testing.T) {
	s := newTestScheduler(&mockUserRepo{}, &mockSummaryRepo{}, &mockPersonaUC{persona: personadomain.Default("x")}, &mockFetcher{}, &mockSummarizer{})

	if _, err := s.ProcessUserManually(context.Background(), "nobody"); err == nil {
		t.Error("unknown user must be an error")
	}
}

func TestTickSkipsWhileCycleRunning(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	s := newTestScheduler(userRepo, &mockSummaryRepo{}, &mockPersonaUC{persona: personadomain.Default("user-1")}, &mockFetcher{}, &mockSummarizer{})

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	s.tick()

	if userRepo.findCalls != 0 {
		t.Error("an overlapping tick must not start a second cycle")
	}

	s.mu.Lock()
	if !s.running {
		t.Error("skipped tick must leave the running flag untouched")
	}
	s.mu.Unlock()
}

func TestRateLimitStopsPerEmailLoop(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{}
	persona := personadomain.Default("user-1")
	persona.DailySummaryTime = "13:00"
	personaUC := &mockPersonaUC{persona: persona}
	fetcher := &mockFetcher{emails: candidateEmails(5)}
	summarizer := &mockSummarizer{
		errOnCall: 3,
		err:       &ai.ProviderError{Provider: "mock", Kind: ai.ErrRateLimited, StatusCode: 429},
	}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, fetcher, summarizer)

	now := time.Date(2026, 8, 31, 13, 0, 0, 0, time.UTC)
	stats := s.ProcessPendingSummaries(now)

	if stats.Processed != 1 {
		t.Fatalf("stats = %+v, partial digest must still count as processed", stats)
	}
	if summarizer.emailCalls != 3 {
		t.Errorf("summarize calls = %d, want loop stopped at the rate limit", summarizer.emailCalls)
	}
	dailies := summaryRepo.savedDailies()
	if len(dailies) != 1 || dailies[0].EmailCount != 2 {
		t.Errorf("digest must aggregate the 2 summaries completed before the limit, got %+v", dailies)
	}
}

func TestProcessAllUsersHoldsRunningGuard(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{}
	personaUC := &mockPersonaUC{persona: personadomain.Default("user-1")}
	fetcher := &mockFetcher{
		emails:  candidateEmails(1),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, fetcher, &mockSummarizer{})

	done := make(chan digestdomain.CycleStats, 1)
	go func() { done <- s.ProcessAllUsers() }()

	// Wait until the run is mid-fetch, then observe it from outside.
	<-fetcher.started

	if s.GetStatus()["is_running"] != true {
		t.Error("is_running must be true while an all-users run is in flight")
	}

	// A tick firing now must not start a second cycle.
	s.tick()
	if userRepo.findCalls != 1 {
		t.Errorf("user lookups = %d, a concurrent tick must not start a second cycle", userRepo.findCalls)
	}

	close(fetcher.release)
	stats := <-done

	if s.GetStatus()["is_running"] != false {
		t.Error("is_running must clear once the run finishes")
	}
	if stats.Processed != 1 {
		t.Errorf("stats = %+v, the released run must complete its one user", stats)
	}
}

func TestProcessAllUsersSkipsWhenCycleRunning(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	s := newTestScheduler(userRepo, &mockSummaryRepo{}, &mockPersonaUC{persona: personadomain.Default("user-1")}, &mockFetcher{}, &mockSummarizer{})

	s.mu.Lock()
	s.running = true
	s.mu.Unlock()

	stats := s.ProcessAllUsers()
	if stats.Processed != 0 || stats.Failed != 0 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, an overlapping all-users run must be a no-op", stats)
	}
	if userRepo.findCalls != 0 {
		t.Error("an overlapping all-users run must not load users")
	}
}

func TestProcessAllUsersDedupErrorCountsFailed(t *testing.T) {
	userRepo := &mockUserRepo{users: []*authdomain.User{connectedUser("user-1")}}
	summaryRepo := &mockSummaryRepo{dedupErr: errors.New("db unavailable")}
	personaUC := &mockPersonaUC{persona: personadomain.Default("user-1")}

	s := newTestScheduler(userRepo, summaryRepo, personaUC, &mockFetcher{}, &mockSummarizer{})

	stats := s.ProcessAllUsers()
	if stats.Failed != 1 || stats.Skipped != 0 {
		t.Errorf("stats = %+v, a dedup check error must count as failed", stats)
	}
}

func TestHourMatchesFallsBackToUTC(t *testing.T) {
	s := newTestScheduler(&mockUserRepo{}, &mockSummaryRepo{}, &mockPersonaUC{}, &mockFetcher{}, &mockSummarizer{})

	p := personadomain.Default("user-1")
	p.DailySummaryTime = "08:00"
	p.Timezone = "Not/AZone"

	at8UTC := time.Date(2026, 8, 31, 8, 15, 0, 0, time.UTC)
	if !s.hourMatches(&p, at8UTC) {
		t.Error("unknown timezone must fall back to UTC")
	}
	if s.hourMatches(&p, at8UTC.Add(time.Hour)) {
		t.Error("hour 9 must not match a 08:00 schedule")
	}
}

func TestHourMatchesMalformedTime(t *testing.T) {
	s := newTestScheduler(&mockUserRepo{}, &mockSummaryRepo{}, &mockPersonaUC{}, &mockFetcher{}, &mockSummarizer{})

	p := personadomain.Default("user-1")
	p.DailySummaryTime = "25:99"

	if s.hourMatches(&p, time.Now()) {
		t.Error("malformed schedule must never match")
	}
}

func TestGetStatus(t *testing.T) {
	s := newTestScheduler(&mockUserRepo{}, &mockSummaryRepo{}, &mockPersonaUC{}, &mockFetcher{}, &mockSummarizer{})

	status := s.GetStatus()
	if status["is_running"] != false || status["is_scheduled"] != false {
		t.Errorf("fresh scheduler status = %v", status)
	}
	if status["next_run"] != nil {
		t.Errorf("next_run = %v, want nil before Start", status["next_run"])
	}

	s.Start()
	defer s.Stop()
	status = s.GetStatus()
	if status["is_scheduled"] != true {
		t.Error("Start must flip is_scheduled")
	}
	if _, ok := status["next_run"].(time.Time); !ok {
		t.Error("next_run must be populated after Start")
	}
}
