package payments

import (
	"context"
	"fmt"
	"log"
)

// Importer writes batches of records in one transaction.
type Importer struct {
	store Store
}

func NewImporter(store Store) *Importer {
	return &Importer{store: store}
}

// Import inserts records atomically. Indices in skip are dropped (operator
// resolved them as duplicates); a failed row is recorded and the rest keep
// going; a failed commit rolls everything back and reports zero inserts.
func (im *Importer) Import(ctx context.Context, records []Payment, skip map[int]bool) (ImportResult, error) {
	result := ImportResult{}

	tx, err := im.store.Begin(ctx)
	if err != nil {
		return result, fmt.Errorf("start import: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(ctx); rbErr != nil {
				log.Printf("[ERROR] import rollback failed: %v", rbErr)
			}
		}
	}()

	for i, record := range records {
		if skip[i] {
			result.Skipped++
			continue
		}
		if err := tx.InsertPayment(ctx, record); err != nil {
			log.Printf("[ERROR] import row %d (%s): %v", i+1, record.CustomerName, err)
			result.Failed++
			result.Issues = append(result.Issues, RowIssue{
				Row:     i + 1,
				Message: fmt.Sprintf("insert failed: %v", err),
			})
			continue
		}
		result.Inserted++
	}

	if err := tx.Commit(ctx); err != nil {
		result.Inserted = 0
		result.Failed = len(records) - result.Skipped
		return result, fmt.Errorf("commit import: %w", err)
	}
	committed = true
	return result, nil
}
