package service

import (
	"strings"

	"github.com/dinehq/maitred/internal/domain"
)

// menuMatchThreshold is the minimum fuzzy score for a non-exact menu item
// match. Below it the reference is treated as unknown rather than guessed.
const menuMatchThreshold = 0.6

// normalizeName lowercases, trims and collapses interior whitespace
func normalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// nameMatchScore scores how well query refers to candidate, in [0, 1].
// Exact normalized equality is 1.0. A substring hit in either direction
// scores by length ratio, so "margherita" against "Margherita Pizza"
// scores higher than "pizza" does. Everything else scores 0.
func nameMatchScore(candidate, query string) float64 {
	c := normalizeName(candidate)
	q := normalizeName(query)
	if c == "" || q == "" {
		return 0
	}
	if c == q {
		return 1.0
	}
	if strings.Contains(c, q) {
		return float64(len(q)) / float64(len(c))
	}
	if strings.Contains(q, c) {
		return float64(len(c)) / float64(len(q))
	}
	return 0
}

// matchMenuItem resolves a spoken item name against the tenant's menu.
// Exact matches win outright; otherwise the best fuzzy score above the
// threshold is taken. Two candidates tied at the top score are reported
// as ambiguous instead of picking one arbitrarily.
func matchMenuItem(items []*domain.MenuItem, name string) (*domain.MenuItem, error) {
	target := normalizeName(name)
	if target == "" {
		return nil, domain.ErrMenuItemNotFound
	}

	for _, item := range items {
		if normalizeName(item.Name) == target {
			return item, nil
		}
	}

	var best *domain.MenuItem
	bestScore := 0.0
	tied := false
	for _, item := range items {
		score := nameMatchScore(item.Name, name)
		if score < menuMatchThreshold {
			continue
		}
		switch {
		case score > bestScore:
			best, bestScore, tied = item, score, false
		case score == bestScore && best != nil:
			tied = true
		}
	}

	if best == nil {
		return nil, domain.ErrMenuItemNotFound
	}
	if tied {
		return nil, domain.ErrAmbiguousReference
	}
	return best, nil
}
