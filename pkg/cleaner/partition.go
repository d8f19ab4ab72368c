// pkg/cleaner/partition.go
package cleaner

import (
	"fmt"

	"github.com/skydata/staging-ingress/pkg/model"
)

// Partition splits a table into clean and quarantine subsets per the mask.
// A true mask entry keeps the row; relative row order is preserved in both
// outputs, and every input row lands in exactly one of them.
func Partition(source *model.Table, mask []bool) (*model.Table, *model.Table, error) {
	if len(mask) != source.Len() {
		return nil, nil, fmt.Errorf("validity mask length %d does not match row count %d",
			len(mask), source.Len())
	}

	clean := model.NewTable(source.Columns)
	quarantine := model.NewTable(source.Columns)
	for i, row := range source.Rows {
		if mask[i] {
			clean.Append(row)
		} else {
			quarantine.Append(row)
		}
	}
	return clean, quarantine, nil
}

// markDuplicates returns a parallel slice where true marks a row whose key
// was already seen earlier in the table (keep-first semantics). Rows with an
// empty key are never marked; missing-value checks catch those.
func markDuplicates(t *model.Table, keyOf func(model.Row) string) []bool {
	seen := make(map[string]struct{}, t.Len())
	dup := make([]bool, t.Len())
	for i, row := range t.Rows {
		key := keyOf(row)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			dup[i] = true
			continue
		}
		seen[key] = struct{}{}
	}
	return dup
}
