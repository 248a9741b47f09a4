package meetings

import (
	"context"
	"sort"
	"strings"
)

const vectorTopK = 20

// vector hits count for less than a direct lexical match on structured
// fields.
const vectorWeight = 0.75

// SearchFilter narrows the candidate set before any ranking happens. Date
// bounds compare lexicographically, which is correct for ISO dates.
type SearchFilter struct {
	Query       string
	Provider    string
	Tags        []string
	DateFrom    string
	DateTo      string
	Participant string
}

// Search filters the meeting collection and, when a query is present, ranks
// the survivors by a combined lexical and vector score. An empty query
// returns the filtered candidates in collection order, unscored.
func (s *Service) Search(ctx context.Context, f SearchFilter) ([]Meeting, error) {
	all, err := s.Repo.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates := make([]Meeting, 0, len(all))
	for _, m := range all {
		if matchesFilter(m, f) {
			candidates = append(candidates, m)
		}
	}

	query := strings.TrimSpace(f.Query)
	if query == "" {
		return candidates, nil
	}

	vectorHits := s.vectorHitCounts(ctx, query)

	type scored struct {
		meeting Meeting
		total   float64
	}
	ranked := make([]scored, len(candidates))
	for i, m := range candidates {
		lexical := lexicalScore(m, query)
		total := float64(lexical) + vectorWeight*float64(vectorHits[m.ID])
		ranked[i] = scored{meeting: m, total: total}
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].total > ranked[j].total
	})

	out := make([]Meeting, len(ranked))
	for i, r := range ranked {
		out[i] = r.meeting
	}
	return out, nil
}

func matchesFilter(m Meeting, f SearchFilter) bool {
	if f.Provider != "" && !strings.EqualFold(m.Provider, f.Provider) {
		return false
	}
	if len(f.Tags) > 0 {
		have := make(map[string]struct{}, len(m.Tags))
		for _, t := range m.Tags {
			have[strings.ToLower(t)] = struct{}{}
		}
		for _, want := range f.Tags {
			if _, ok := have[strings.ToLower(want)]; !ok {
				return false
			}
		}
	}
	if f.DateFrom != "" && m.Date < f.DateFrom {
		return false
	}
	if f.DateTo != "" && m.Date > f.DateTo {
		return false
	}
	if f.Participant != "" {
		found := strings.EqualFold(m.Owner, f.Participant)
		for _, p := range m.Participants {
			if strings.EqualFold(p, f.Participant) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// lexicalScore counts case-insensitive query occurrences across the
// meeting's structured text fields.
func lexicalScore(m Meeting, query string) int {
	var b strings.Builder
	b.WriteString(m.Title)
	b.WriteString(" ")
	b.WriteString(m.Provider)
	for _, t := range m.Tags {
		b.WriteString(" ")
		b.WriteString(t)
	}
	for _, item := range m.Agenda {
		b.WriteString(" ")
		b.WriteString(item.Text)
	}
	for _, a := range m.Actions {
		b.WriteString(" ")
		b.WriteString(a.Title)
	}
	haystack := strings.ToLower(b.String())
	return strings.Count(haystack, strings.ToLower(query))
}

// vectorHitCounts issues one index query and tallies hits per owning meeting
// id found in chunk metadata. Index failures degrade to zero vector scores;
// lexical ranking still works when the store is down.
func (s *Service) vectorHitCounts(ctx context.Context, query string) map[string]int {
	hits, err := s.Engine.Query(ctx, query, vectorTopK)
	if err != nil {
		return nil
	}
	counts := make(map[string]int)
	for _, h := range hits {
		if id, ok := h.Meta["meeting_id"].(string); ok && id != "" {
			counts[id]++
		}
	}
	return counts
}
