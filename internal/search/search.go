// Package search keeps an in-memory full-text index over event titles and
// descriptions. Document IDs are decimal positions into the slice the index
// was built from.
package search

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"

	"ctlcal/internal/model"
)

// Index is a read-only full-text index. It is safe for concurrent searches.
type Index struct {
	idx  bleve.Index
	size int
}

type document struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Build indexes events in order. events[i] is stored under ref "i".
func Build(events []model.Event) (*Index, error) {
	m := bleve.NewIndexMapping()
	m.DefaultAnalyzer = en.AnalyzerName

	idx, err := bleve.NewMemOnly(m)
	if err != nil {
		return nil, fmt.Errorf("search: create index: %w", err)
	}

	batch := idx.NewBatch()
	for i, e := range events {
		doc := document{Title: e.Title, Description: e.Description}
		if err := batch.Index(strconv.Itoa(i), doc); err != nil {
			_ = idx.Close()
			return nil, fmt.Errorf("search: index event %q: %w", e.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		_ = idx.Close()
		return nil, fmt.Errorf("search: commit batch: %w", err)
	}

	return &Index{idx: idx, size: len(events)}, nil
}

// Search returns refs ranked by relevance. A blank query matches nothing.
func (ix *Index) Search(query string) ([]string, error) {
	if ix == nil || ix.idx == nil {
		return nil, errors.New("search: index not built")
	}
	query = strings.TrimSpace(query)
	if query == "" || ix.size == 0 {
		return nil, nil
	}

	req := bleve.NewSearchRequestOptions(bleve.NewMatchQuery(query), ix.size, 0, false)
	res, err := ix.idx.Search(req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	refs := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		refs = append(refs, hit.ID)
	}
	return refs, nil
}

// Close releases the index.
func (ix *Index) Close() error {
	if ix == nil || ix.idx == nil {
		return nil
	}
	return ix.idx.Close()
}
