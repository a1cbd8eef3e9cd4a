package cache

import (
	"fmt"
	"log"
	"os"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/tklein/scriptpad/internal/script"
)

// SearchHit is one full-text search result.
type SearchHit struct {
	ID       string
	Name     string
	Language string
	Score    float64
}

// SearchIndex provides keyword search over the cached scripts.
type SearchIndex struct {
	index bleve.Index
	path  string
}

// NewSearchIndex creates or opens the search index stored next to the cache
// database. A corrupted index is deleted and recreated.
func NewSearchIndex(dbPath string) (*SearchIndex, error) {
	indexPath := dbPath + ".bleve"

	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create search index: %w", err)
		}
	} else if err != nil {
		log.Printf("⚠️  search index appears corrupted (error: %v), recreating...", err)
		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted index: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate search index: %w", err)
		}
	}

	return &SearchIndex{index: index, path: indexPath}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	nameField := bleve.NewTextFieldMapping()
	nameField.Analyzer = standard.Name
	nameField.Store = true
	nameField.Index = true
	docMapping.AddFieldMappingsAt("name", nameField)

	descField := bleve.NewTextFieldMapping()
	descField.Analyzer = standard.Name
	descField.Store = false
	descField.Index = true
	docMapping.AddFieldMappingsAt("description", descField)

	bodyField := bleve.NewTextFieldMapping()
	bodyField.Analyzer = standard.Name
	bodyField.Store = false
	bodyField.Index = true
	docMapping.AddFieldMappingsAt("body", bodyField)

	langField := bleve.NewTextFieldMapping()
	langField.Analyzer = keyword.Name
	langField.Store = true
	langField.Index = true
	docMapping.AddFieldMappingsAt("language", langField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// Index adds or replaces one script in the index.
func (s *SearchIndex) Index(sc script.Script) error {
	doc := map[string]interface{}{
		"name":        sc.Name,
		"description": sc.Description,
		"body":        sc.Script,
		"language":    string(sc.Language),
	}
	return s.index.Index(sc.ID, doc)
}

// IndexAll rebuilds the index from a full script listing.
func (s *SearchIndex) IndexAll(scripts []script.Script) error {
	batch := s.index.NewBatch()
	for _, sc := range scripts {
		doc := map[string]interface{}{
			"name":        sc.Name,
			"description": sc.Description,
			"body":        sc.Script,
			"language":    string(sc.Language),
		}
		if err := batch.Index(sc.ID, doc); err != nil {
			return fmt.Errorf("failed to batch script %s: %w", sc.ID, err)
		}
	}
	return s.index.Batch(batch)
}

// Delete removes one script from the index.
func (s *SearchIndex) Delete(id string) error {
	return s.index.Delete(id)
}

// Search returns the top k scripts matching the query.
func (s *SearchIndex) Search(query string, k int) ([]SearchHit, error) {
	q := bleve.NewMatchQuery(query)

	searchRequest := bleve.NewSearchRequest(q)
	searchRequest.Size = k
	searchRequest.Fields = []string{"name", "language"}

	searchResult, err := s.index.Search(searchRequest)
	if err != nil {
		return nil, fmt.Errorf("search failed: %w", err)
	}

	results := make([]SearchHit, 0, len(searchResult.Hits))
	for _, hit := range searchResult.Hits {
		result := SearchHit{
			ID:    hit.ID,
			Score: hit.Score,
		}
		if name, ok := hit.Fields["name"].(string); ok {
			result.Name = name
		}
		if lang, ok := hit.Fields["language"].(string); ok {
			result.Language = lang
		}
		results = append(results, result)
	}

	return results, nil
}

// Close releases the index.
func (s *SearchIndex) Close() error {
	return s.index.Close()
}
