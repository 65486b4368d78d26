package scorer

import (
	"fmt"
	"strings"
	"testing"
	"time"

	emaildomain "maildigest-backend/internal/email/domain"
	personadomain "maildigest-backend/internal/persona/domain"
)

func testPersona() *personadomain.Persona {
	p := personadomain.Default("user-1")
	p.ImportantContacts = []string{"Boss@Company.com"}
	p.ImportantDomains = []string{"company.com"}
	p.Keywords = []string{"budget", "quarterly"}
	p.ExcludePatterns = []string{"newsletter"}
	return &p
}

func email(from, subject, body string) *emaildomain.EmailRecord {
	return &emaildomain.EmailRecord{
		ID:         from + "/" + subject,
		From:       from,
		Subject:    subject,
		Body:       body,
		ReceivedAt: time.Now(),
	}
}

func TestShouldIncludeLengthFloor(t *testing.T) {
	p := testPersona()
	p.MinimumEmailLength = 100

	short := email("someone@example.com", "hi", "too short")
	if ShouldInclude(short, p) {
		t.Error("expected email below the length floor to be excluded")
	}

	long := email("someone@example.com", "hi", strings.Repeat("x", 150))
	if !ShouldInclude(long, p) {
		t.Error("expected email above the length floor to be included")
	}
}

func TestImportantContactBypassesFilters(t *testing.T) {
	p := testPersona()

	// Short body AND matching an exclude pattern, but from an important
	// contact (case-insensitive match).
	e := email("boss@company.com", "newsletter digest", "ok")
	if !ShouldInclude(e, p) {
		t.Error("important contact must bypass exclusion and length floor")
	}
	if Score(e, p) < contactBonus {
		t.Errorf("important contact score = %v, want >= %v", Score(e, p), contactBonus)
	}
}

func TestExcludedSenderScoresZero(t *testing.T) {
	p := testPersona()

	e := email("noreply@newsletter.example.com", "weekly budget quarterly update", strings.Repeat("budget ", 50))
	if got := Score(e, p); got != 0 {
		t.Errorf("excluded sender score = %v, want 0", got)
	}
	if ShouldInclude(e, p) {
		t.Error("excluded sender must not be included")
	}
}

func TestScoreKeywordMonotonicity(t *testing.T) {
	p := testPersona()
	p.ExcludePatterns = nil

	none := email("a@example.com", "hello", strings.Repeat("z", 200))
	one := email("a@example.com", "budget", strings.Repeat("z", 200))
	two := email("a@example.com", "budget quarterly", strings.Repeat("z", 200))

	sNone, sOne, sTwo := Score(none, p), Score(one, p), Score(two, p)
	if !(sNone < sOne && sOne < sTwo) {
		t.Errorf("keyword matches must increase score: %v, %v, %v", sNone, sOne, sTwo)
	}
}

func TestScoreKeywordCap(t *testing.T) {
	p := testPersona()
	p.ExcludePatterns = nil
	p.Keywords = []string{"k1", "k2", "k3", "k4", "k5", "k6", "k7"}
	p.CategoryWeights = nil

	all := email("a@example.com", "k1 k2 k3 k4 k5 k6 k7", strings.Repeat("z", 200))
	capped := email("a@example.com", "k1 k2 k3 k4 k5", strings.Repeat("z", 200))
	if Score(all, p) != Score(capped, p) {
		t.Errorf("matches above the cap must not add score: %v vs %v", Score(all, p), Score(capped, p))
	}
}

func TestCategorizePicksHighestPriority(t *testing.T) {
	p := testPersona()

	// Matches both work (priority 5) and social (priority 1).
	e := email("a@example.com", "project party", strings.Repeat("z", 200))
	if got := Categorize(e, p); got != "work" {
		t.Errorf("Categorize = %q, want work", got)
	}

	unmatched := email("a@example.com", "nothing relevant", strings.Repeat("z", 200))
	if got := Categorize(unmatched, p); got != DefaultCategory {
		t.Errorf("Categorize = %q, want %q", got, DefaultCategory)
	}
}

func TestSelectForDigestTopK(t *testing.T) {
	p := testPersona()
	p.ExcludePatterns = nil
	p.MaxEmailsPerSummary = 3

	var emails []*emaildomain.EmailRecord
	for i := 0; i < 10; i++ {
		emails = append(emails, email(fmt.Sprintf("sender%d@example.com", i), "plain", strings.Repeat("z", 200)))
	}
	// One high scorer buried in the middle.
	important := email("boss@company.com", "budget quarterly project", strings.Repeat("z", 200))
	emails[5] = important

	selected := SelectForDigest(emails, p)
	if len(selected) != 3 {
		t.Fatalf("selected %d emails, want 3", len(selected))
	}
	if selected[0].ID != important.ID {
		t.Errorf("highest scorer must rank first, got %s", selected[0].ID)
	}
}

func TestSelectForDigestRecencyFallback(t *testing.T) {
	p := testPersona()
	p.CategoryWeights = nil
	p.ExcludePatterns = nil
	p.MaxEmailsPerSummary = 2

	old := email("a@example.com", "old", strings.Repeat("z", 200))
	old.ReceivedAt = time.Now().Add(-10 * time.Hour)
	mid := email("b@example.com", "mid", strings.Repeat("z", 200))
	mid.ReceivedAt = time.Now().Add(-5 * time.Hour)
	fresh := email("c@example.com", "new", strings.Repeat("z", 200))
	fresh.ReceivedAt = time.Now()

	selected := SelectForDigest([]*emaildomain.EmailRecord{old, mid, fresh}, p)
	if len(selected) != 2 {
		t.Fatalf("selected %d emails, want 2", len(selected))
	}
	if selected[0].ID != fresh.ID || selected[1].ID != mid.ID {
		t.Errorf("recency fallback order wrong: %s, %s", selected[0].ID, selected[1].ID)
	}
}
