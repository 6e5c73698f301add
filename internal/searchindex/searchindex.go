// Package searchindex implements the Search Indexer: builds and
// maintains a denormalized per-candidate search document, indexes it
// into OpenSearch with replacement semantics, and exposes k-NN vector,
// BM25 text, and RRF hybrid search.
package searchindex

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/opensearch-project/opensearch-go/v3"

	"cvintake/internal/core"
)

// Fixed reciprocal-rank-fusion constant and vector/text weights.
const (
	rrfConstant  = 60
	vectorWeight = 0.6
	textWeight   = 0.4
)

// Index wraps an OpenSearch client with the cv-search index's lifecycle
// and search operations.
type Index struct {
	client *opensearch.Client
	alias  string
}

// Config mirrors config.Search.
type Config struct {
	Addresses   []string
	Username    string
	Password    string
	InsecureTLS bool
	Alias       string
}

func New(cfg Config) (*Index, error) {
	osCfg := opensearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	}
	if cfg.InsecureTLS {
		osCfg.Transport = &http.Transport{TLSClientConfig: &tls.Config{InsecureSkipVerify: true}} //nolint:gosec // dev/LocalStack only
	}
	client, err := opensearch.NewClient(osCfg)
	if err != nil {
		return nil, fmt.Errorf("creating opensearch client: %w", err)
	}
	alias := cfg.Alias
	if alias == "" {
		alias = IndexAlias
	}
	return &Index{client: client, alias: alias}, nil
}

// do issues a raw request against the cluster and decodes a JSON
// response, returning an error for non-2xx statuses. Using the client's
// low-level Perform (stable across opensearch-go major versions) avoids
// coupling this package to a single version's typed-request API.
func (idx *Index) do(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, path, reader)
	if err != nil {
		return fmt.Errorf("building opensearch request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := idx.client.Perform(req)
	if err != nil {
		return fmt.Errorf("performing opensearch request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading opensearch response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("opensearch %s %s returned %d: %s", method, path, resp.StatusCode, string(respBody))
	}
	if out == nil || len(respBody) == 0 {
		return nil
	}
	return json.Unmarshal(respBody, out)
}

// EnsureIndex creates a versioned index (cv-search-v1) with the Greek
// analyzer and k-NN mapping if it does not already exist, and points
// the alias at it. Reindexing later creates cv-search-v2 and swaps the
// alias atomically.
func (idx *Index) EnsureIndex(ctx context.Context, version string) error {
	versioned, err := idx.CreateIndexVersion(ctx, version)
	if err != nil {
		return err
	}
	return idx.SwapAlias(ctx, versioned)
}

// CreateIndexVersion creates the versioned index (if missing) without
// touching the alias, so a full reindex can populate it before the
// atomic swap. Returns the versioned index name.
func (idx *Index) CreateIndexVersion(ctx context.Context, version string) (string, error) {
	versioned := idx.alias + "-" + version
	var exists struct{}
	if err := idx.do(ctx, http.MethodHead, "/"+versioned, nil, &exists); err == nil {
		return versioned, nil
	}
	if err := idx.do(ctx, http.MethodPut, "/"+versioned, []byte(indexSettingsJSON), nil); err != nil {
		return "", fmt.Errorf("creating index %s: %w", versioned, err)
	}
	return versioned, nil
}

// SwapAlias atomically repoints the alias at a new versioned index,
// removing it from whatever index currently holds it.
func (idx *Index) SwapAlias(ctx context.Context, newIndex string) error {
	var actions []map[string]any
	var current map[string]any
	if err := idx.do(ctx, http.MethodGet, "/_alias/"+idx.alias, nil, &current); err == nil {
		for name := range current {
			if name != newIndex {
				actions = append(actions, map[string]any{"remove": map[string]string{"index": name, "alias": idx.alias}})
			}
		}
	}
	actions = append(actions, map[string]any{"add": map[string]string{"index": newIndex, "alias": idx.alias}})
	body, _ := json.Marshal(map[string]any{"actions": actions})
	return idx.do(ctx, http.MethodPost, "/_aliases", body, nil)
}

// BuildDocument constructs the embedding-friendly search document from a
// candidate profile, capped per section (<=20 skills, <=5 experience,
// <=3 education, <=5 languages, <=5 certifications, <=5 training).
func BuildDocument(c *core.CandidateProfile, embedding []float32) core.SearchDocument {
	doc := core.SearchDocument{
		CandidateID: c.ID,
		FullName:    strings.TrimSpace(c.Identity.FirstName + " " + c.Identity.LastName),
		Location:    c.Identity.AddressCity,
		Embedding:   embedding,
	}

	for i, s := range c.Skills {
		if i >= 20 {
			break
		}
		doc.SkillNames = append(doc.SkillNames, s.Name)
		if s.Taxonomy.TaxonomyID != nil {
			doc.SkillTaxonomyIDs = append(doc.SkillTaxonomyIDs, *s.Taxonomy.TaxonomyID)
		}
	}
	for i, e := range c.Experience {
		if i >= 5 {
			break
		}
		doc.Experience = append(doc.Experience, core.SearchExperienceItem{
			Title: e.Title, Company: e.Company, DurationMonths: e.DurationMonths,
		})
	}
	for i, e := range c.Education {
		if i >= 3 {
			break
		}
		doc.Education = append(doc.Education, core.SearchEducationItem{Institution: e.Institution, Degree: e.Degree})
	}
	for i, l := range c.Languages {
		if i >= 5 {
			break
		}
		doc.Languages = append(doc.Languages, core.SearchLanguageItem{Name: l.Name, Level: l.Level})
	}
	for i, cert := range c.Certifications {
		if i >= 5 {
			break
		}
		doc.Certifications = append(doc.Certifications, cert.Name)
	}
	for i, t := range c.Training {
		if i >= 5 {
			break
		}
		doc.Training = append(doc.Training, t.Name)
	}
	for _, dl := range c.DrivingLicenses {
		doc.DrivingLicenses = append(doc.DrivingLicenses, dl.Category)
	}
	return doc
}

// EmbeddingText concatenates the salient fields the embedding provider
// consumes to produce the document's dense vector: full
// name, skills, experience (title+company+truncated description),
// education, languages with levels, certifications, training.
func EmbeddingText(c *core.CandidateProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", c.Identity.FirstName, c.Identity.LastName)
	for i, s := range c.Skills {
		if i >= 20 {
			break
		}
		b.WriteString(s.Name + ". ")
	}
	b.WriteString("\n")
	for i, e := range c.Experience {
		if i >= 5 {
			break
		}
		desc := e.Description
		if len(desc) > 200 {
			desc = desc[:200]
		}
		fmt.Fprintf(&b, "%s at %s: %s\n", e.Title, e.Company, desc)
	}
	for i, e := range c.Education {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "%s, %s\n", e.Degree, e.Institution)
	}
	for i, l := range c.Languages {
		if i >= 5 {
			break
		}
		fmt.Fprintf(&b, "%s (%s). ", l.Name, l.Level)
	}
	b.WriteString("\n")
	for i, cert := range c.Certifications {
		if i >= 5 {
			break
		}
		b.WriteString(cert.Name + ". ")
	}
	for i, t := range c.Training {
		if i >= 5 {
			break
		}
		b.WriteString(t.Name + ". ")
	}
	return b.String()
}

// IndexDocument writes (or fully replaces) one candidate's search
// document, keyed by candidate id.
func (idx *Index) IndexDocument(ctx context.Context, doc core.SearchDocument) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshaling search document: %w", err)
	}
	return idx.do(ctx, http.MethodPut, fmt.Sprintf("/%s/_doc/%s", idx.alias, doc.CandidateID), body, nil)
}

// BulkIndex indexes a batch of documents in one request using the
// newline-delimited bulk API.
func (idx *Index) BulkIndex(ctx context.Context, docs []core.SearchDocument) error {
	return idx.BulkIndexInto(ctx, idx.alias, docs)
}

// BulkIndexInto bulk-indexes into a specific index name, used by the
// reindex path to fill a new version before the alias swap.
func (idx *Index) BulkIndexInto(ctx context.Context, index string, docs []core.SearchDocument) error {
	if len(docs) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, doc := range docs {
		action, _ := json.Marshal(map[string]any{
			"index": map[string]string{"_index": index, "_id": doc.CandidateID},
		})
		src, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("marshaling bulk document %s: %w", doc.CandidateID, err)
		}
		buf.Write(action)
		buf.WriteByte('\n')
		buf.Write(src)
		buf.WriteByte('\n')
	}

	var result struct {
		Errors bool `json:"errors"`
	}
	if err := idx.do(ctx, http.MethodPost, "/_bulk", buf.Bytes(), &result); err != nil {
		return fmt.Errorf("bulk indexing: %w", err)
	}
	if result.Errors {
		return fmt.Errorf("bulk index reported partial failures")
	}
	return nil
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			ID     string          `json:"_id"`
			Score  float64         `json:"_score"`
			Source core.SearchDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// VectorSearch performs k-NN search over the CV embedding field with an
// optional raw OpenSearch filter clause.
func (idx *Index) VectorSearch(ctx context.Context, vector []float32, k int, filter map[string]any) ([]core.SearchHit, error) {
	knnQuery := map[string]any{
		"embedding": map[string]any{"vector": vector, "k": k},
	}
	query := map[string]any{"knn": knnQuery}
	if filter != nil {
		query = map[string]any{"bool": map[string]any{"must": []any{map[string]any{"knn": knnQuery}}, "filter": filter}}
	}
	body, _ := json.Marshal(map[string]any{"size": k, "query": query})

	var resp searchResponse
	if err := idx.do(ctx, http.MethodPost, "/"+idx.alias+"/_search", body, &resp); err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	return toHits(resp), nil
}

// TextSearch performs BM25 search against cv_text/skill_names/full_name
// using the Greek-aware search analyzer.
func (idx *Index) TextSearch(ctx context.Context, queryText string, size int, filter map[string]any) ([]core.SearchHit, error) {
	matchQuery := map[string]any{
		"multi_match": map[string]any{
			"query":    queryText,
			"fields":   []string{"full_name", "skill_names", "cv_text"},
			"analyzer": "greek_search_analyzer",
		},
	}
	query := matchQuery
	if filter != nil {
		query = map[string]any{"bool": map[string]any{"must": []any{matchQuery}, "filter": filter}}
	}
	body, _ := json.Marshal(map[string]any{"size": size, "query": query})

	var resp searchResponse
	if err := idx.do(ctx, http.MethodPost, "/"+idx.alias+"/_search", body, &resp); err != nil {
		return nil, fmt.Errorf("text search: %w", err)
	}
	return toHits(resp), nil
}

// HybridSearch fuses vector and text result lists with reciprocal-rank
// fusion (k=60, weights 0.6 vector / 0.4 text), computed client-side
// since OpenSearch's native hybrid search pipeline is not assumed
// available on every cluster.
func (idx *Index) HybridSearch(ctx context.Context, queryText string, queryVector []float32, k int, filter map[string]any) ([]core.SearchHit, error) {
	vectorHits, err := idx.VectorSearch(ctx, queryVector, k*2, filter)
	if err != nil {
		return nil, err
	}
	textHits, err := idx.TextSearch(ctx, queryText, k*2, filter)
	if err != nil {
		return nil, err
	}

	scores := make(map[string]float64)
	for rank, h := range vectorHits {
		scores[h.CandidateID] += vectorWeight / float64(rrfConstant+rank+1)
	}
	for rank, h := range textHits {
		scores[h.CandidateID] += textWeight / float64(rrfConstant+rank+1)
	}

	out := make([]core.SearchHit, 0, len(scores))
	for id, score := range scores {
		out = append(out, core.SearchHit{CandidateID: id, Score: score})
	}
	sortHitsDesc(out)
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func toHits(resp searchResponse) []core.SearchHit {
	out := make([]core.SearchHit, 0, len(resp.Hits.Hits))
	for _, h := range resp.Hits.Hits {
		out = append(out, core.SearchHit{CandidateID: h.ID, Score: h.Score})
	}
	return out
}

func sortHitsDesc(hits []core.SearchHit) {
	for i := 1; i < len(hits); i++ {
		for j := i; j > 0 && hits[j].Score > hits[j-1].Score; j-- {
			hits[j], hits[j-1] = hits[j-1], hits[j]
		}
	}
}
