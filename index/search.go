package index

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/custom"
	"github.com/blevesearch/bleve/v2/analysis/token/lowercase"
	"github.com/blevesearch/bleve/v2/analysis/tokenizer/regexp"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/blevesearch/bleve/v2/search/query"
)

const pathAnalyzer = "remote_path"

// PathSearch is an in-memory Bleve index of remote paths, one document per path.
// Paths are tokenized on separators so "lib/utils/helpers.py" matches "helpers" and "utils".
type PathSearch struct {
	mu    sync.RWMutex
	index bleve.Index
	docs  map[string][]string // repository -> document ids
}

// pathDocument is the document structure stored in Bleve.
type pathDocument struct {
	Repository string `json:"repo"`
	Path       string `json:"path"`
}

// NewPathSearch creates an empty in-memory path index.
func NewPathSearch() (*PathSearch, error) {
	indexMapping, err := buildPathMapping()
	if err != nil {
		return nil, err
	}
	bleveIndex, err := bleve.NewMemOnly(indexMapping)
	if err != nil {
		return nil, fmt.Errorf("creating bleve index: %w", err)
	}
	return &PathSearch{
		index: bleveIndex,
		docs:  make(map[string][]string),
	}, nil
}

// buildPathMapping creates the Bleve mapping for remote paths.
func buildPathMapping() (*mapping.IndexMappingImpl, error) {
	indexMapping := bleve.NewIndexMapping()

	err := indexMapping.AddCustomTokenizer("path_segments", map[string]interface{}{
		"type":   regexp.Name,
		"regexp": `[^/\\._\-\s]+`,
	})
	if err != nil {
		return nil, fmt.Errorf("registering path tokenizer: %w", err)
	}
	err = indexMapping.AddCustomAnalyzer(pathAnalyzer, map[string]interface{}{
		"type":          custom.Name,
		"tokenizer":     "path_segments",
		"token_filters": []string{lowercase.Name},
	})
	if err != nil {
		return nil, fmt.Errorf("registering path analyzer: %w", err)
	}

	docMapping := bleve.NewDocumentMapping()

	pathFieldMapping := bleve.NewTextFieldMapping()
	pathFieldMapping.Analyzer = pathAnalyzer
	pathFieldMapping.Store = false
	pathFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("path", pathFieldMapping)

	repoFieldMapping := bleve.NewKeywordFieldMapping()
	repoFieldMapping.Store = false
	repoFieldMapping.IncludeInAll = false
	docMapping.AddFieldMappingsAt("repo", repoFieldMapping)

	indexMapping.DefaultMapping = docMapping
	return indexMapping, nil
}

func documentID(repo string, remotePath string) string {
	return repo + "\x00" + remotePath
}

// Replace swaps the documents of repo for paths in one batch.
func (ps *PathSearch) Replace(repo string, paths []string) error {
	ps.mu.Lock()
	defer ps.mu.Unlock()

	batch := ps.index.NewBatch()
	for _, id := range ps.docs[repo] {
		batch.Delete(id)
	}
	ids := make([]string, 0, len(paths))
	for _, p := range paths {
		id := documentID(repo, p)
		if err := batch.Index(id, pathDocument{Repository: repo, Path: p}); err != nil {
			return fmt.Errorf("indexing remote path %s: %w", p, err)
		}
		ids = append(ids, id)
	}
	if err := ps.index.Batch(batch); err != nil {
		return fmt.Errorf("applying path batch for %s: %w", repo, err)
	}

	if len(ids) == 0 {
		delete(ps.docs, repo)
	} else {
		ps.docs[repo] = ids
	}
	return nil
}

// Search returns remote paths of repo matching every term of queryString, best first.
func (ps *PathSearch) Search(repo string, queryString string, maxResults int) ([]string, error) {
	ps.mu.RLock()
	defer ps.mu.RUnlock()

	queryString = strings.TrimSpace(queryString)
	if queryString == "" {
		return nil, fmt.Errorf("empty search query")
	}
	if maxResults <= 0 {
		maxResults = 50
	}

	repoQuery := bleve.NewTermQuery(repo)
	repoQuery.SetField("repo")

	pathQuery := bleve.NewMatchQuery(queryString)
	pathQuery.SetField("path")
	pathQuery.SetOperator(query.MatchQueryOperatorAnd)

	searchRequest := bleve.NewSearchRequest(bleve.NewConjunctionQuery(repoQuery, pathQuery))
	searchRequest.Size = maxResults

	searchResults, err := ps.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("searching remote paths: %w", err)
	}

	prefix := repo + "\x00"
	results := make([]string, 0, len(searchResults.Hits))
	for _, hit := range searchResults.Hits {
		results = append(results, strings.TrimPrefix(hit.ID, prefix))
	}
	return results, nil
}

// DocumentCount returns the number of indexed paths across repositories.
func (ps *PathSearch) DocumentCount() uint64 {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	count, _ := ps.index.DocCount()
	return count
}

// Close closes the Bleve index.
func (ps *PathSearch) Close() error {
	ps.mu.Lock()
	defer ps.mu.Unlock()
	return ps.index.Close()
}
