// Package writeoff keeps the derived is_written_off flag on time entries in
// step with the line items that reference them.
package writeoff

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bwmarrin/snowflake"
)

// Reconciler recomputes write-off flags for a set of time entries. It must
// run on the same transaction as the mutation that made the flags stale so
// deleted or re-pointed line items are already visible to the scan.
type Reconciler struct {
	log *zap.Logger
}

func NewReconciler(log *zap.Logger) *Reconciler {
	return &Reconciler{log: log.Named("writeoff.reconciler")}
}

// Reconcile sets is_written_off for each given entry to whether any waived
// line item anywhere still references it, and returns how many entries had
// the flag cleared. Unknown IDs are ignored.
func (r *Reconciler) Reconcile(tx *gorm.DB, timeEntryIDs []snowflake.ID) (int, error) {
	ids := dedupe(timeEntryIDs)
	if len(ids) == 0 {
		return 0, nil
	}

	var cleared int64
	if err := tx.Raw(`
		SELECT COUNT(*) FROM time_entries
		WHERE id IN ?
		  AND is_written_off = ?
		  AND NOT EXISTS (
			SELECT 1 FROM line_items
			WHERE line_items.time_entry_id = time_entries.id
			  AND line_items.waive_mode IS NOT NULL
		)`, ids, true).Scan(&cleared).Error; err != nil {
		return 0, err
	}

	res := tx.Exec(`
		UPDATE time_entries
		SET is_written_off = EXISTS (
			SELECT 1 FROM line_items
			WHERE line_items.time_entry_id = time_entries.id
			  AND line_items.waive_mode IS NOT NULL
		)
		WHERE time_entries.id IN ?`, ids)
	if res.Error != nil {
		return 0, res.Error
	}

	if res.RowsAffected > 0 {
		r.log.Debug("reconciled write-off flags",
			zap.Int("entries", len(ids)),
			zap.Int64("changed", res.RowsAffected),
		)
	}
	return int(cleared), nil
}

func dedupe(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
