package papersources

import "github.com/helixir/research-assistant-service/internal/domain"

// Deduplicate drops records whose identity key (DOI, else URL, else title) was already
// seen, keeping the first occurrence and the input order. At most max records are
// returned; max <= 0 means no cap. Applying it to its own output is a no-op.
func Deduplicate(papers []domain.PaperBrief, max int) []domain.PaperBrief {
	seen := make(map[string]struct{}, len(papers))
	unique := make([]domain.PaperBrief, 0, len(papers))
	for _, p := range papers {
		if max > 0 && len(unique) >= max {
			break
		}
		key := p.IdentityKey()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, p)
	}
	return unique
}
