package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	authdomain "maildigest-backend/internal/auth/domain"
	authrepo "maildigest-backend/internal/auth/repository"
	digestdomain "maildigest-backend/internal/digest/domain"
	digestrepo "maildigest-backend/internal/digest/repository"
	digestusecase "maildigest-backend/internal/digest/usecase"
	emailusecase "maildigest-backend/internal/email/usecase"
	personadomain "maildigest-backend/internal/persona/domain"
	"maildigest-backend/internal/persona/scorer"
	personausecase "maildigest-backend/internal/persona/usecase"
	"maildigest-backend/pkg/ai"
	"maildigest-backend/pkg/chroma"
	"maildigest-backend/pkg/fcm"
)

const (
	// How far back a cycle looks for candidate messages
	fetchWindow = 24 * time.Hour

	// Upper bound on messages pulled from the mail backend per user per cycle
	fetchLimit = 100
)

// DigestScheduler drives the hourly digest pipeline: find due users, fetch
// and rank their mail, summarize it and deliver the result.
type DigestScheduler struct {
	userRepo    authrepo.UserRepository
	fcmRepo     authrepo.FCMTokenRepository
	summaryRepo digestrepo.SummaryRepository
	personaUC   personausecase.PersonaUsecase
	fetcher     emailusecase.Fetcher
	summarizer  digestusecase.Summarizer

	// Delivery extras; either may be nil when not configured
	fcmClient    *fcm.Client
	chromaClient *chroma.ChromaClient

	interval    time.Duration
	batchSize   int
	batchDelay  time.Duration
	dedupWindow time.Duration
	stopChan    chan struct{}

	mu        sync.Mutex
	running   bool
	scheduled bool
	nextRun   time.Time
}

// NewDigestScheduler creates a new scheduler
func NewDigestScheduler(
	userRepo authrepo.UserRepository,
	fcmRepo authrepo.FCMTokenRepository,
	summaryRepo digestrepo.SummaryRepository,
	personaUC personausecase.PersonaUsecase,
	fetcher emailusecase.Fetcher,
	summarizer digestusecase.Summarizer,
	fcmClient *fcm.Client,
	chromaClient *chroma.ChromaClient,
	batchSize int,
	batchDelay time.Duration,
	dedupWindow time.Duration,
) *DigestScheduler {
	if batchSize <= 0 {
		batchSize = 5
	}
	if dedupWindow <= 0 {
		dedupWindow = 20 * time.Hour
	}
	return &DigestScheduler{
		userRepo:     userRepo,
		fcmRepo:      fcmRepo,
		summaryRepo:  summaryRepo,
		personaUC:    personaUC,
		fetcher:      fetcher,
		summarizer:   summarizer,
		fcmClient:    fcmClient,
		chromaClient: chromaClient,
		interval:     1 * time.Hour,
		batchSize:    batchSize,
		batchDelay:   batchDelay,
		dedupWindow:  dedupWindow,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the hourly scheduler loop
func (s *DigestScheduler) Start() {
	s.mu.Lock()
	if s.scheduled {
		s.mu.Unlock()
		return
	}
	s.scheduled = true
	s.nextRun = time.Now().Truncate(s.interval).Add(s.interval)
	s.mu.Unlock()

	log.Printf("[DigestScheduler] Starting digest scheduler (interval: %s)", s.interval)

	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.tick()
			case <-s.stopChan:
				log.Println("[DigestScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *DigestScheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.scheduled {
		return
	}
	s.scheduled = false
	close(s.stopChan)
}

// beginCycle claims the running flag. Every cycle entry point (tick, manual
// trigger, all-users trigger) must claim it so that at most one cycle is in
// flight per process.
func (s *DigestScheduler) beginCycle() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *DigestScheduler) endCycle() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// tick runs one cycle unless another one is still in flight. An overlapping
// tick is a logged no-op, never a second concurrent cycle.
func (s *DigestScheduler) tick() {
	if !s.beginCycle() {
		log.Println("[DigestScheduler] Previous cycle still running, skipping tick")
		return
	}
	defer s.endCycle()

	s.mu.Lock()
	s.nextRun = time.Now().Truncate(s.interval).Add(s.interval)
	s.mu.Unlock()

	stats := s.ProcessPendingSummaries(time.Now())
	log.Printf("[DigestScheduler] Cycle complete: %d processed, %d failed, %d skipped",
		stats.Processed, stats.Failed, stats.Skipped)
}

// ProcessPendingSummaries generates digests for every user whose configured
// local hour matches now and who has not received one inside the dedup
// window. Users are processed in concurrent batches.
func (s *DigestScheduler) ProcessPendingSummaries(now time.Time) digestdomain.CycleStats {
	var stats digestdomain.CycleStats

	users, err := s.userRepo.FindActiveWithMailConnection()
	if err != nil {
		log.Printf("[DigestScheduler] Error loading users: %v", err)
		return stats
	}

	type job struct {
		user    *authdomain.User
		persona *personadomain.Persona
	}

	var due []job
	for _, user := range users {
		persona, err := s.personaUC.GetPersona(user.ID)
		if err != nil {
			log.Printf("[DigestScheduler] Error loading persona for user %s: %v", user.ID, err)
			stats.Failed++
			continue
		}

		if !s.hourMatches(persona, now) {
			stats.Skipped++
			continue
		}

		exists, err := s.summaryRepo.DailySummaryExistsSince(user.ID, digestdomain.SummaryTypeDaily, now.Add(-s.dedupWindow))
		if err != nil {
			log.Printf("[DigestScheduler] Dedup check failed for user %s: %v", user.ID, err)
			stats.Failed++
			continue
		}
		if exists {
			stats.Skipped++
			continue
		}

		due = append(due, job{user: user, persona: persona})
	}

	if len(due) == 0 {
		return stats
	}
	log.Printf("[DigestScheduler] %d users due for a digest", len(due))

	var statsMu sync.Mutex
	for start := 0; start < len(due); start += s.batchSize {
		end := start + s.batchSize
		if end > len(due) {
			end = len(due)
		}

		var wg sync.WaitGroup
		for _, j := range due[start:end] {
			wg.Add(1)
			go func(j job) {
				defer wg.Done()
				_, err := s.processUser(context.Background(), j.user, j.persona, digestdomain.SummaryTypeDaily)
				statsMu.Lock()
				if err != nil {
					stats.Failed++
				} else {
					stats.Processed++
				}
				statsMu.Unlock()
			}(j)
		}
		wg.Wait()

		// Pause between batches to stay under provider rate limits
		if end < len(due) && s.batchDelay > 0 {
			time.Sleep(s.batchDelay)
		}
	}

	return stats
}

// ProcessUserManually generates a digest for one user immediately, bypassing
// the hour check. The result is stored as a manual summary so it never
// suppresses the scheduled one; the dedup window still applies against prior
// manual digests.
func (s *DigestScheduler) ProcessUserManually(ctx context.Context, userID string) (*digestdomain.DailySummary, error) {
	if !s.beginCycle() {
		return nil, fmt.Errorf("a digest cycle is already running")
	}
	defer s.endCycle()

	user, err := s.userRepo.FindByID(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, fmt.Errorf("user %s not found", userID)
	}
	if !user.HasMailConnection() {
		return nil, fmt.Errorf("user %s has no mail connection", userID)
	}

	exists, err := s.summaryRepo.DailySummaryExistsSince(userID, digestdomain.SummaryTypeManual, time.Now().Add(-s.dedupWindow))
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("a digest for user %s was already generated within the last %s", userID, s.dedupWindow)
	}

	persona, err := s.personaUC.GetPersona(userID)
	if err != nil {
		return nil, err
	}

	return s.processUser(ctx, user, persona, digestdomain.SummaryTypeManual)
}

// ProcessAllUsers forces a digest for every connected user regardless of
// their configured hour. The dedup window still applies. Users run
// sequentially with a uniform delay to stay under provider rate limits.
func (s *DigestScheduler) ProcessAllUsers() digestdomain.CycleStats {
	var stats digestdomain.CycleStats

	if !s.beginCycle() {
		log.Println("[DigestScheduler] Another cycle is already running, skipping all-users run")
		return stats
	}
	defer s.endCycle()

	now := time.Now()

	users, err := s.userRepo.FindActiveWithMailConnection()
	if err != nil {
		log.Printf("[DigestScheduler] Error loading users: %v", err)
		return stats
	}

	for i, user := range users {
		if i > 0 && s.batchDelay > 0 {
			time.Sleep(s.batchDelay)
		}
		exists, err := s.summaryRepo.DailySummaryExistsSince(user.ID, digestdomain.SummaryTypeDaily, now.Add(-s.dedupWindow))
		if err != nil {
			log.Printf("[DigestScheduler] Dedup check failed for user %s: %v", user.ID, err)
			stats.Failed++
			continue
		}
		if exists {
			stats.Skipped++
			continue
		}

		persona, err := s.personaUC.GetPersona(user.ID)
		if err != nil {
			stats.Failed++
			continue
		}

		if _, err := s.processUser(context.Background(), user, persona, digestdomain.SummaryTypeDaily); err != nil {
			stats.Failed++
		} else {
			stats.Processed++
		}
	}

	return stats
}

// GetStatus reports the scheduler state for the status endpoint
func (s *DigestScheduler) GetStatus() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	// No next run exists until the ticker loop is started
	var nextRun interface{}
	if s.scheduled {
		nextRun = s.nextRun
	}
	return map[string]interface{}{
		"is_running":   s.running,
		"is_scheduled": s.scheduled,
		"next_run":     nextRun,
	}
}

// hourMatches reports whether the persona's configured delivery hour equals
// the current hour in the persona's timezone. An unresolvable timezone falls
// back to UTC.
func (s *DigestScheduler) hourMatches(p *personadomain.Persona, now time.Time) bool {
	hour, ok := p.SummaryHour()
	if !ok {
		return false
	}

	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		log.Printf("[DigestScheduler] Unknown timezone %q for user %s, falling back to UTC", p.Timezone, p.UserID)
		loc = time.UTC
	}

	return now.In(loc).Hour() == hour
}

// processUser runs the full pipeline for one user: fetch, rank, summarize
// each selected email, aggregate, persist, index and notify.
func (s *DigestScheduler) processUser(ctx context.Context, user *authdomain.User, persona *personadomain.Persona, summaryType string) (*digestdomain.DailySummary, error) {
	since := time.Now().Add(-fetchWindow)

	emails, err := s.fetcher.FetchCandidates(ctx, user, since, fetchLimit)
	if err != nil {
		log.Printf("[DigestScheduler] Fetch failed for user %s: %v", user.ID, err)
		return nil, err
	}

	selected := scorer.SelectForDigest(emails, persona)
	log.Printf("[DigestScheduler] User %s: %d candidates, %d selected", user.ID, len(emails), len(selected))

	summaries := make([]*digestdomain.EmailSummary, 0, len(selected))
	for _, email := range selected {
		summary, err := s.summarizer.SummarizeEmail(ctx, email, persona)
		if err != nil {
			log.Printf("[DigestScheduler] Failed to summarize email %s for user %s: %v", email.ID, user.ID, err)
			// A rate-limited provider will not recover within this cycle
			var provErr *ai.ProviderError
			if errors.As(err, &provErr) && provErr.Kind == ai.ErrRateLimited {
				log.Printf("[DigestScheduler] Provider rate limited, continuing with %d summaries", len(summaries))
				break
			}
			continue
		}

		summary.UserID = user.ID
		if err := s.summaryRepo.SaveEmailSummary(summary); err != nil {
			log.Printf("[DigestScheduler] Failed to save summary for email %s: %v", email.ID, err)
			continue
		}
		s.indexSummary(ctx, summary)
		summaries = append(summaries, summary)
	}

	daily, err := s.summarizer.SummarizeDaily(ctx, summaries, persona)
	if err != nil {
		return nil, fmt.Errorf("failed to build digest for user %s: %w", user.ID, err)
	}
	daily.UserID = user.ID
	daily.SummaryType = summaryType

	if err := s.summaryRepo.SaveDailySummary(daily); err != nil {
		return nil, fmt.Errorf("failed to save digest for user %s: %w", user.ID, err)
	}

	if err := s.personaUC.RecordSummaryGenerated(user.ID); err != nil {
		log.Printf("[DigestScheduler] Failed to update metrics for user %s: %v", user.ID, err)
	}

	s.notifyDigestReady(ctx, user.ID, daily)

	return daily, nil
}

// indexSummary pushes one summary into the vector store when configured
func (s *DigestScheduler) indexSummary(ctx context.Context, summary *digestdomain.EmailSummary) {
	if s.chromaClient == nil {
		return
	}
	if err := s.chromaClient.UpsertSummaryEmbedding(ctx, summary.ID, summary.UserID, summary.EmailID, summary.Subject, summary.Content); err != nil {
		log.Printf("[DigestScheduler] Failed to index summary %s: %v", summary.ID, err)
	}
}

// notifyDigestReady pushes an FCM notification to every registered device
func (s *DigestScheduler) notifyDigestReady(ctx context.Context, userID string, daily *digestdomain.DailySummary) {
	if s.fcmClient == nil {
		return
	}

	tokens, err := s.fcmRepo.GetTokensByUserID(userID)
	if err != nil {
		log.Printf("[DigestScheduler] Error getting FCM tokens for user %s: %v", userID, err)
		return
	}
	if len(tokens) == 0 {
		return
	}

	tokenStrings := make([]string, 0, len(tokens))
	for _, t := range tokens {
		tokenStrings = append(tokenStrings, t.Token)
	}

	failedTokens, err := s.fcmClient.SendToDevices(ctx, tokenStrings, fcm.DigestReadyNotification(daily.ID, daily.EmailCount))
	if err != nil {
		log.Printf("[DigestScheduler] Error sending digest notification for user %s: %v", userID, err)
		return
	}

	// Cleanup failed tokens
	for _, token := range failedTokens {
		s.fcmRepo.DeleteToken(token)
	}
}
