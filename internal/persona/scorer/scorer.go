package scorer

import (
	"sort"
	"strings"

	emaildomain "maildigest-backend/internal/email/domain"
	personadomain "maildigest-backend/internal/persona/domain"
)

// Scoring weights. Sender identity dominates content matches so that a known
// contact always outranks keyword noise.
const (
	contactBonus = 100.0
	domainBonus  = 80.0
	keywordBonus = 10.0

	// Cap on counted keyword/interest matches to resist keyword stuffing.
	maxKeywordMatches = 5

	// Multiplier applied to the matched category's priority.
	categoryWeightFactor = 5.0

	// DefaultCategory is returned when no configured category matches.
	DefaultCategory = "general"

	defaultMaxEmails = 10
)

// IsImportantContact reports whether the sender address exactly matches one
// of the persona's important contacts (case-insensitive).
func IsImportantContact(email *emaildomain.EmailRecord, p *personadomain.Persona) bool {
	sender := strings.ToLower(strings.TrimSpace(email.From))
	for _, contact := range p.ImportantContacts {
		if sender == strings.ToLower(strings.TrimSpace(contact)) {
			return true
		}
	}
	return false
}

func isImportantDomain(email *emaildomain.EmailRecord, p *personadomain.Persona) bool {
	domain := email.SenderDomain()
	if domain == "" {
		return false
	}
	for _, d := range p.ImportantDomains {
		if domain == strings.ToLower(strings.TrimSpace(d)) {
			return true
		}
	}
	return false
}

func isExcluded(email *emaildomain.EmailRecord, p *personadomain.Persona) bool {
	sender := strings.ToLower(email.From)
	subject := strings.ToLower(email.Subject)
	for _, pattern := range p.ExcludePatterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}
		if strings.Contains(sender, pattern) || strings.Contains(subject, pattern) {
			return true
		}
	}
	return false
}

// Score computes the importance of an email for a persona. It is pure
// computation and never fails: a malformed persona simply contributes no
// category weight.
func Score(email *emaildomain.EmailRecord, p *personadomain.Persona) float64 {
	important := IsImportantContact(email, p)

	// Exclusion zeroes the score unless the sender is an important contact.
	if isExcluded(email, p) && !important {
		return 0
	}

	score := 0.0
	if important {
		score += contactBonus
	}
	if isImportantDomain(email, p) {
		score += domainBonus
	}

	text := strings.ToLower(email.Subject + " " + email.Body)
	matches := 0
	for _, kw := range append(append([]string(nil), p.Keywords...), p.Interests...) {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		if strings.Contains(text, kw) {
			matches++
		}
	}
	if matches > maxKeywordMatches {
		matches = maxKeywordMatches
	}
	score += float64(matches) * keywordBonus

	// Category priority is a monotonic weight: it only ever adds.
	if category := Categorize(email, p); category != DefaultCategory {
		if w, ok := p.CategoryWeights[category]; ok && w.Priority > 0 {
			score += float64(w.Priority) * categoryWeightFactor
		}
	}

	return score
}

// Categorize returns the highest-priority configured category whose keywords
// match the email, defaulting to "general".
func Categorize(email *emaildomain.EmailRecord, p *personadomain.Persona) string {
	if len(p.CategoryWeights) == 0 {
		return DefaultCategory
	}

	text := strings.ToLower(email.Subject + " " + email.Body)
	best := DefaultCategory
	bestPriority := -1
	for name, w := range p.CategoryWeights {
		matched := false
		for _, kw := range w.Keywords {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw != "" && strings.Contains(text, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		// Ties resolve by name for deterministic output.
		if w.Priority > bestPriority || (w.Priority == bestPriority && name < best) {
			best = name
			bestPriority = w.Priority
		}
	}
	return best
}

// ShouldInclude decides per-email eligibility: the length floor and exclude
// patterns drop an email, but important-contact status overrides both.
func ShouldInclude(email *emaildomain.EmailRecord, p *personadomain.Persona) bool {
	if IsImportantContact(email, p) {
		return true
	}
	if isExcluded(email, p) {
		return false
	}
	if len(email.Body) < p.MinimumEmailLength {
		return false
	}
	return true
}

// SelectForDigest picks the top MaxEmailsPerSummary candidates by score
// among eligible emails. Selection is rank-based, not threshold-based. A
// persona with no category table degrades to equal weight and selection by
// recency.
func SelectForDigest(emails []*emaildomain.EmailRecord, p *personadomain.Persona) []*emaildomain.EmailRecord {
	limit := p.MaxEmailsPerSummary
	if limit <= 0 {
		limit = defaultMaxEmails
	}

	eligible := make([]*emaildomain.EmailRecord, 0, len(emails))
	for _, e := range emails {
		if ShouldInclude(e, p) {
			eligible = append(eligible, e)
		}
	}

	if len(p.CategoryWeights) == 0 {
		// Equal-weight fallback: newest first.
		sort.SliceStable(eligible, func(i, j int) bool {
			return eligible[i].ReceivedAt.After(eligible[j].ReceivedAt)
		})
	} else {
		scores := make(map[string]float64, len(eligible))
		for _, e := range eligible {
			scores[e.ID] = Score(e, p)
		}
		sort.SliceStable(eligible, func(i, j int) bool {
			si, sj := scores[eligible[i].ID], scores[eligible[j].ID]
			if si != sj {
				return si > sj
			}
			return eligible[i].ReceivedAt.After(eligible[j].ReceivedAt)
		})
	}

	if len(eligible) > limit {
		eligible = eligible[:limit]
	}
	return eligible
}
