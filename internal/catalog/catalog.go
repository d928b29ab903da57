// Package catalog provides an in-memory, read-only lookup of chart
// metadata loaded once at startup from a CSV file of chart constants and
// a YAML file of search aliases.
package catalog

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"

	"github.com/phigros-go/phigros-backend/internal/apierr"
	"github.com/phigros-go/phigros-backend/internal/model"
)

var fold = cases.Fold()

// Catalog is a read-only, lock-free (after Load) chart lookup.
type Catalog struct {
	byID       map[string]*model.ChartEntry
	byNameFold map[string]*model.ChartEntry
	aliasFold  map[string]*model.ChartEntry // folded alias -> entry
	sorted     []*model.ChartEntry          // stable order: by song_id, prebuilt once
}

// New builds a Catalog from already-decoded entries (as produced by
// LoadCSV + ApplyAliases). Entries are copied by reference; callers must
// not mutate them after calling New.
func New(entries []*model.ChartEntry) *Catalog {
	c := &Catalog{
		byID:       make(map[string]*model.ChartEntry, len(entries)),
		byNameFold: make(map[string]*model.ChartEntry, len(entries)),
		aliasFold:  make(map[string]*model.ChartEntry),
	}
	for _, e := range entries {
		c.byID[e.SongID] = e
		c.byNameFold[fold.String(e.Name)] = e
		for _, alias := range e.Aliases {
			c.aliasFold[fold.String(alias)] = e
		}
	}
	c.sorted = make([]*model.ChartEntry, len(entries))
	copy(c.sorted, entries)
	sort.Slice(c.sorted, func(i, j int) bool { return c.sorted[i].SongID < c.sorted[j].SongID })
	return c
}

// ByID looks up a chart by its exact song id.
func (c *Catalog) ByID(songID string) (*model.ChartEntry, bool) {
	e, ok := c.byID[songID]
	return e, ok
}

// ByName looks up a chart by exact (case-insensitive) song name, falling
// back to an alias match.
func (c *Catalog) ByName(name string) (*model.ChartEntry, bool) {
	folded := fold.String(name)
	if e, ok := c.byNameFold[folded]; ok {
		return e, true
	}
	e, ok := c.aliasFold[folded]
	return e, ok
}

// SearchResult is the outcome of a bounded, paginated catalog search.
type SearchResult struct {
	Items      []*model.ChartEntry
	Total      int
	Limit      int
	Offset     int
	HasMore    bool
	NextOffset *int
}

const (
	// DefaultLimit is applied by callers when no limit was supplied at
	// all; Search itself never defaults a caller-supplied value.
	DefaultLimit = 20
	maxLimit     = 100
	maxQueryLen  = 128
)

// Search performs a case-insensitive substring search over
// (id, name, composer, illustrator) and the alias list, returning a
// stably ordered, paginated result:
//  1. prefix matches on name
//  2. substring matches on name
//  3. matches on any other field or alias
//  4. song_id as the final tie-breaker within each bucket
func (c *Catalog) Search(query string, limit, offset int) (*SearchResult, error) {
	if len(query) > maxQueryLen {
		return nil, apierr.New(apierr.KindValidation, "q exceeds maximum length of 128 bytes")
	}
	if limit < 1 || limit > maxLimit {
		return nil, apierr.New(apierr.KindValidation, "limit must be between 1 and 100")
	}
	if offset < 0 {
		return nil, apierr.New(apierr.KindValidation, "offset must be >= 0")
	}

	folded := fold.String(query)

	type scored struct {
		entry *model.ChartEntry
		bucket int // 0 = prefix-on-name, 1 = substring-on-name, 2 = other field/alias
	}

	var matches []scored
	for _, e := range c.sorted {
		if folded == "" {
			matches = append(matches, scored{e, 1})
			continue
		}
		foldedName := fold.String(e.Name)
		switch {
		case strings.HasPrefix(foldedName, folded):
			matches = append(matches, scored{e, 0})
		case strings.Contains(foldedName, folded):
			matches = append(matches, scored{e, 1})
		case matchesOtherFields(e, folded):
			matches = append(matches, scored{e, 2})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].bucket != matches[j].bucket {
			return matches[i].bucket < matches[j].bucket
		}
		return matches[i].entry.SongID < matches[j].entry.SongID
	})

	total := len(matches)
	result := &SearchResult{Total: total, Limit: limit, Offset: offset}

	if offset >= total {
		result.Items = []*model.ChartEntry{}
		return result, nil
	}

	end := offset + limit
	if end > total {
		end = total
	}
	result.Items = make([]*model.ChartEntry, 0, end-offset)
	for _, m := range matches[offset:end] {
		result.Items = append(result.Items, m.entry)
	}
	result.HasMore = end < total
	if result.HasMore {
		next := end
		result.NextOffset = &next
	}
	return result, nil
}

func matchesOtherFields(e *model.ChartEntry, folded string) bool {
	if strings.Contains(fold.String(e.SongID), folded) {
		return true
	}
	if strings.Contains(fold.String(e.Composer), folded) {
		return true
	}
	if strings.Contains(fold.String(e.Illustrator), folded) {
		return true
	}
	for _, alias := range e.Aliases {
		if strings.Contains(fold.String(alias), folded) {
			return true
		}
	}
	return false
}

// Fold exposes the catalog's case-folding function for callers that need
// to perform ad hoc comparisons against catalog entries (e.g. the alias
// uniqueness check in the leaderboard store).
func Fold(s string) string {
	return fold.String(s)
}
