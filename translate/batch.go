package translate

import (
	"github.com/minios-linux/transync/catalog"
	"github.com/minios-linux/transync/policy"
	"github.com/minios-linux/transync/store"
)

// DefaultChunkSize is the batch size used when none is configured.
const DefaultChunkSize = 100

// Item is one key of a batch.
type Item struct {
	// Key is local to the batch namespace.
	Key string
	// Lookup is the full key shown to the backend and used for echo checks.
	Lookup string
	// SourceText is the text to translate.
	SourceText string
}

// Batch is a bounded group of keys from a single namespace.
type Batch struct {
	Index   int
	Ref     store.Ref
	Items   []Item
	Langs   []string
	Context string
}

// Request builds the backend request for b.
func (b Batch) Request() Request {
	entries := make([]Entry, len(b.Items))
	for i, it := range b.Items {
		entries[i] = Entry{Key: it.Lookup, Source: it.SourceText}
	}
	return Request{
		Namespace: b.Ref.String(),
		Entries:   entries,
		Langs:     b.Langs,
		Context:   b.Context,
	}
}

// Chunk groups items by namespace and splits each group into batches of at
// most chunkSize items. Items must already be ordered by namespace, as
// policy.Plan returns them. Batch indexes are assigned in order.
func Chunk(items []policy.WorkItem, cat *catalog.Catalog, langs []string, chunkSize int, context string) []Batch {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}

	var groups [][]policy.WorkItem
	for i, it := range items {
		if i == 0 || it.Ref != items[i-1].Ref {
			groups = append(groups, nil)
		}
		groups[len(groups)-1] = append(groups[len(groups)-1], it)
	}

	var batches []Batch
	for _, g := range groups {
		for _, part := range splitItems(g, chunkSize) {
			b := Batch{
				Index:   len(batches),
				Ref:     part[0].Ref,
				Langs:   langs,
				Context: context,
			}
			for _, it := range part {
				lookup := it.Ref.Lookup(it.Key)
				text := lookup
				if cat != nil {
					if src, ok := cat.Sources[lookup]; ok {
						text = src.Text
					}
				}
				b.Items = append(b.Items, Item{Key: it.Key, Lookup: lookup, SourceText: text})
			}
			batches = append(batches, b)
		}
	}
	return batches
}

func splitItems[T any](items []T, size int) [][]T {
	var chunks [][]T
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[i:end])
	}
	return chunks
}
