// Package index maintains the full-text article index backing /search.
// Query scoring weights title over summary over content; the store's
// substring scan is the fallback when the index comes up empty.
package index

import (
	"fmt"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/user/newshound/internal/types"
)

type Index struct {
	idx bleve.Index
}

// IndexedArticle is the shape stored in the index.
type IndexedArticle struct {
	ID        string
	Title     string
	Summary   string
	Content   string
	Category  string
	FetchedAt time.Time
}

// Hit is one scored match.
type Hit struct {
	ID    types.ArticleID
	Score float64
}

// Open opens or creates the index at path.
func Open(path string) (*Index, error) {
	idx, err := bleve.Open(path)
	if err == bleve.ErrorIndexPathDoesNotExist {
		idx, err = bleve.New(path, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("create index: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("open index: %w", err)
	}

	return &Index{idx: idx}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	titleFieldMapping := bleve.NewTextFieldMapping()
	titleFieldMapping.Analyzer = "en"

	textFieldMapping := bleve.NewTextFieldMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.AddFieldMappingsAt("ID", bleve.NewTextFieldMapping())
	docMapping.AddFieldMappingsAt("Title", titleFieldMapping)
	docMapping.AddFieldMappingsAt("Summary", textFieldMapping)
	docMapping.AddFieldMappingsAt("Content", textFieldMapping)
	docMapping.AddFieldMappingsAt("Category", bleve.NewTextFieldMapping())

	indexMapping := bleve.NewIndexMapping()
	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}

func (i *Index) Close() error {
	return i.idx.Close()
}

// IndexArticle adds or updates one article in the index.
func (i *Index) IndexArticle(a *types.Article) error {
	doc := &IndexedArticle{
		ID:        string(a.ID),
		Title:     a.Title,
		Summary:   a.Summary,
		Content:   a.Content,
		Category:  string(a.Category),
		FetchedAt: a.FetchedAt,
	}
	return i.idx.Index(doc.ID, doc)
}

// Delete removes one article from the index.
func (i *Index) Delete(id types.ArticleID) error {
	return i.idx.Delete(string(id))
}

// DeleteBatch removes many articles in a single batch, used by the
// store cleanup job after TTL expiry.
func (i *Index) DeleteBatch(ids []types.ArticleID) error {
	batch := i.idx.NewBatch()
	for _, id := range ids {
		batch.Delete(string(id))
	}
	if err := i.idx.Batch(batch); err != nil {
		return fmt.Errorf("commit delete batch: %w", err)
	}
	return nil
}

// Search runs a weighted match across title (3x), summary (2x), and
// content (1x), returning hits best first.
func (i *Index) Search(queryStr string, limit int) ([]*Hit, error) {
	titleQuery := bleve.NewMatchQuery(queryStr)
	titleQuery.SetField("Title")
	titleQuery.SetBoost(3.0)

	summaryQuery := bleve.NewMatchQuery(queryStr)
	summaryQuery.SetField("Summary")
	summaryQuery.SetBoost(2.0)

	contentQuery := bleve.NewMatchQuery(queryStr)
	contentQuery.SetField("Content")
	contentQuery.SetBoost(1.0)

	query := bleve.NewDisjunctionQuery(titleQuery, summaryQuery, contentQuery)
	req := bleve.NewSearchRequestOptions(query, limit, 0, false)

	results, err := i.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	var hits []*Hit
	for _, hit := range results.Hits {
		hits = append(hits, &Hit{ID: types.ArticleID(hit.ID), Score: hit.Score})
	}
	return hits, nil
}

// Count returns the number of indexed articles.
func (i *Index) Count() (uint64, error) {
	return i.idx.DocCount()
}
