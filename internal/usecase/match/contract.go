package match

import (
	"context"

	"github.com/kailas-cloud/dealscout/internal/db"
)

// Indexer is the slice of the database the matcher writes through:
// listing hashes plus the vector index lifecycle.
type Indexer interface {
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Searcher runs KNN queries against the listing index.
type Searcher interface {
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
}
