package taxonomy

import (
	"context"
	"math"
	"sort"

	"cvintake/internal/core"
)

const (
	substringScore    = 0.9
	fuzzyConfident    = 0.75
	fuzzyLowSuggested = 0.60
	semanticConfident = 0.85
	semanticLowSuggested = 0.60
)

// FuzzyMatch is one trigram-similarity hit from the relational store.
type FuzzyMatch struct {
	Entry      CanonicalEntry
	Similarity float64
}

// FuzzyMatcher runs the SQL-trigram tier (tier 3) against the taxonomy
// table for a kind, across both the English and native-language names,
// returning the single best hit.
type FuzzyMatcher interface {
	BestMatch(ctx context.Context, kind Kind, normalized string, threshold float64) (*FuzzyMatch, error)
}

// Embedder is the subset of the LLM capability set the
// semantic tier needs.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Mapper runs the exact -> substring -> fuzzy -> semantic cascade
// for a single item, and reports the batch semantic tier for the items
// that fall through to it.
type Mapper struct {
	cache         *Cache
	fuzzy         FuzzyMatcher
	embedder      Embedder
	embedBatchSize int
}

func NewMapper(cache *Cache, fuzzy FuzzyMatcher, embedder Embedder, embedBatchSize int) *Mapper {
	if embedBatchSize <= 0 {
		embedBatchSize = 96
	}
	return &Mapper{cache: cache, fuzzy: fuzzy, embedder: embedder, embedBatchSize: embedBatchSize}
}

// Map runs tiers 1-3 (exact, substring, fuzzy) for one raw term. The
// semantic tier (4) requires batching across multiple items and is run
// separately via MapSemanticBatch for every item tier 1-3 left
// unresolved.
func (m *Mapper) Map(ctx context.Context, kind Kind, raw string) (core.TaxonomyLink, error) {
	norm := normalize(raw)
	if norm == "" {
		return core.TaxonomyLink{MatchMethod: core.MatchNone}, nil
	}

	snap, err := m.cache.Snapshot(ctx, kind)
	if err != nil {
		return core.TaxonomyLink{}, err
	}

	// Tier 1: exact.
	if snap != nil {
		if entry, ok := snap.byNormalized[norm]; ok {
			id := entry.ID
			return core.TaxonomyLink{TaxonomyID: &id, Similarity: 1.0, MatchMethod: core.MatchExact}, nil
		}

		// Tier 2: substring, either direction, against the cached aliases.
		if entry, ok := substringMatch(snap, norm); ok {
			id := entry.ID
			return core.TaxonomyLink{TaxonomyID: &id, Similarity: substringScore, MatchMethod: core.MatchSubstring}, nil
		}
	}

	// Tier 3: SQL trigram fuzzy match.
	if m.fuzzy != nil {
		hit, err := m.fuzzy.BestMatch(ctx, kind, norm, fuzzyLowSuggested)
		if err == nil && hit != nil {
			id := hit.Entry.ID
			if hit.Similarity >= fuzzyConfident {
				return core.TaxonomyLink{TaxonomyID: &id, Similarity: hit.Similarity, MatchMethod: core.MatchFuzzy}, nil
			}
			if hit.Similarity >= fuzzyLowSuggested {
				return core.TaxonomyLink{SuggestedTaxonomyID: &id, Similarity: hit.Similarity, MatchMethod: core.MatchFuzzySuggested}, nil
			}
		}
	}

	return core.TaxonomyLink{MatchMethod: core.MatchNone}, nil
}

func substringMatch(snap *snapshot, norm string) (CanonicalEntry, bool) {
	for alias, entry := range snap.byNormalized {
		if alias == "" {
			continue
		}
		if containsEither(norm, alias) {
			return entry, true
		}
	}
	return CanonicalEntry{}, false
}

func containsEither(a, b string) bool {
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return stringsContains(a, b) || stringsContains(b, a)
}

func stringsContains(s, sub string) bool {
	return len(sub) <= len(s) && indexOf(s, sub) >= 0
}

func indexOf(s, sub string) int {
	// Small helper kept local so this file has no non-stdlib string-search
	// dependency beyond what's already pulled in for normalize().
	n, m := len(s), len(sub)
	for i := 0; i+m <= n; i++ {
		if s[i:i+m] == sub {
			return i
		}
	}
	return -1
}

// SemanticCandidate is one item still unresolved after tiers 1-3, needing
// the batched embedding tier.
type SemanticCandidate struct {
	Index int    // caller-assigned position, for reassembly
	Raw   string
	Kind  Kind
}

// MapSemanticBatch embeds every still-unresolved item and every alias of
// the relevant kind(s), then assigns each item its best cosine-similarity
// alias, chunking by the embedding provider's batch size.
func (m *Mapper) MapSemanticBatch(ctx context.Context, items []SemanticCandidate) (map[int]core.TaxonomyLink, error) {
	results := make(map[int]core.TaxonomyLink, len(items))
	if len(items) == 0 {
		return results, nil
	}

	byKind := make(map[Kind][]SemanticCandidate)
	for _, it := range items {
		byKind[it.Kind] = append(byKind[it.Kind], it)
	}

	for kind, candidates := range byKind {
		snap, err := m.cache.Snapshot(ctx, kind)
		if err != nil || snap == nil || len(snap.entries) == 0 {
			for _, it := range candidates {
				results[it.Index] = core.TaxonomyLink{MatchMethod: core.MatchNone}
			}
			continue
		}

		aliasTexts := make([]string, 0, len(snap.entries))
		aliasEntries := make([]CanonicalEntry, 0, len(snap.entries))
		for _, e := range snap.entries {
			for _, name := range append([]string{e.NameEN, e.NameEL}, e.Aliases...) {
				if name == "" {
					continue
				}
				aliasTexts = append(aliasTexts, name)
				aliasEntries = append(aliasEntries, e)
			}
		}
		aliasVectors, err := m.embedChunked(ctx, aliasTexts)
		if err != nil {
			for _, it := range candidates {
				results[it.Index] = core.TaxonomyLink{MatchMethod: core.MatchNone}
			}
			continue
		}

		rawTexts := make([]string, len(candidates))
		for i, it := range candidates {
			rawTexts[i] = it.Raw
		}
		rawVectors, err := m.embedChunked(ctx, rawTexts)
		if err != nil {
			for _, it := range candidates {
				results[it.Index] = core.TaxonomyLink{MatchMethod: core.MatchNone}
			}
			continue
		}

		for i, it := range candidates {
			bestIdx, bestSim := -1, -1.0
			for j, av := range aliasVectors {
				sim := cosineSimilarity(rawVectors[i], av)
				if sim > bestSim {
					bestSim, bestIdx = sim, j
				}
			}
			if bestIdx < 0 {
				results[it.Index] = core.TaxonomyLink{MatchMethod: core.MatchNone}
				continue
			}
			id := aliasEntries[bestIdx].ID
			switch {
			case bestSim >= semanticConfident:
				results[it.Index] = core.TaxonomyLink{TaxonomyID: &id, Similarity: bestSim, MatchMethod: core.MatchSemantic}
			case bestSim >= semanticLowSuggested:
				results[it.Index] = core.TaxonomyLink{SuggestedTaxonomyID: &id, Similarity: bestSim, MatchMethod: core.MatchSuggested}
			default:
				results[it.Index] = core.TaxonomyLink{MatchMethod: core.MatchNone}
			}
		}
	}

	return results, nil
}

func (m *Mapper) embedChunked(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += m.embedBatchSize {
		end := start + m.embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := m.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return -1
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return -1
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// SortBySimilarityDesc is a small helper the taxonomy-aware UI/logging
// paths use when they need a ranked view of fuzzy candidates.
func SortBySimilarityDesc(matches []FuzzyMatch) {
	sort.Slice(matches, func(i, j int) bool { return matches[i].Similarity > matches[j].Similarity })
}
