package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/cmlabs-hris/filing-tracker-go/internal/domain/payroll"
	"github.com/redis/go-redis/v9"
)

// loadedField marks a cycle hash as fully populated. A hash without it is
// treated as a miss.
const loadedField = "_loaded"

// errSnapshotStale aborts a populate whose store read predates a write.
var errSnapshotStale = errors.New("cycle changed during load")

// RecordCache is a read-through cache of the records of a cycle. Each cycle
// is one Redis hash keyed by record ID, so merges of different records
// never overwrite each other. Every write bumps a per-cycle version, and a
// snapshot is only cached if the version did not move while it was loaded.
// Single-record reads always go to the store. Redis failures are logged and
// fall back to the store.
type RecordCache struct {
	next   payroll.RecordRepository
	client *redis.Client
	ttl    time.Duration
}

func NewRecordCache(next payroll.RecordRepository, client *redis.Client, ttl time.Duration) *RecordCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &RecordCache{next: next, client: client, ttl: ttl}
}

var _ payroll.RecordRepository = (*RecordCache)(nil)

func cycleKey(cycleID string) string {
	return "payroll:cycle:" + cycleID + ":records"
}

func versionKey(cycleID string) string {
	return "payroll:cycle:" + cycleID + ":version"
}

func (c *RecordCache) GetCycle(ctx context.Context, cycleID string) (payroll.PayrollCycle, error) {
	return c.next.GetCycle(ctx, cycleID)
}

func (c *RecordCache) EnsureCycle(ctx context.Context, monthYear string) (payroll.PayrollCycle, error) {
	return c.next.EnsureCycle(ctx, monthYear)
}

func (c *RecordCache) GetByID(ctx context.Context, id string) (payroll.PayrollRecord, error) {
	return c.next.GetByID(ctx, id)
}

func (c *RecordCache) ListByCycle(ctx context.Context, cycleID string) ([]payroll.PayrollRecord, error) {
	records, ok, err := c.cached(ctx, cycleID)
	if err != nil {
		slog.Warn("Record cache read failed", "cycle_id", cycleID, "error", err)
	}
	if ok {
		return records, nil
	}

	version, verr := c.version(ctx, cycleID)
	records, err = c.next.ListByCycle(ctx, cycleID)
	if err != nil {
		return nil, err
	}
	if verr != nil {
		return records, nil
	}
	switch err := c.populate(ctx, cycleID, version, records); {
	case errors.Is(err, errSnapshotStale), errors.Is(err, redis.TxFailedErr):
		slog.Debug("Record cache populate skipped, cycle changed", "cycle_id", cycleID)
	case err != nil:
		slog.Warn("Record cache populate failed", "cycle_id", cycleID, "error", err)
	}
	return records, nil
}

// Update writes through to the store and merges the stored result into the
// cached cycle.
func (c *RecordCache) Update(ctx context.Context, id string, update payroll.RecordUpdate) error {
	if err := c.next.Update(ctx, id, update); err != nil {
		return err
	}

	rec, err := c.next.GetByID(ctx, id)
	if err != nil {
		slog.Warn("Record cache refresh failed", "record_id", id, "error", err)
		return nil
	}
	if err := c.client.Incr(ctx, versionKey(rec.PayrollCycleID)).Err(); err != nil {
		slog.Warn("Record cache version bump failed", "cycle_id", rec.PayrollCycleID, "error", err)
	}
	if err := c.MergeRecord(ctx, rec); err != nil {
		slog.Warn("Record cache merge failed, invalidating", "record_id", id, "error", err)
		if err := c.Invalidate(ctx, rec.PayrollCycleID); err != nil {
			slog.Warn("Record cache invalidate failed", "cycle_id", rec.PayrollCycleID, "error", err)
		}
	}
	return nil
}

func (c *RecordCache) InsertMany(ctx context.Context, cycleID string, companyIDs []string) (int, error) {
	n, err := c.next.InsertMany(ctx, cycleID, companyIDs)
	if err != nil {
		return n, err
	}
	if n > 0 {
		if err := c.Invalidate(ctx, cycleID); err != nil {
			slog.Warn("Record cache invalidate failed", "cycle_id", cycleID, "error", err)
		}
	}
	return n, nil
}

// Invalidate drops the cached records of a cycle and bumps its version so
// loads already in flight are not cached.
func (c *RecordCache) Invalidate(ctx context.Context, cycleID string) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(cycleID))
		pipe.Del(ctx, cycleKey(cycleID))
		return nil
	})
	return err
}

func (c *RecordCache) version(ctx context.Context, cycleID string) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(cycleID)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

// MergeRecord replaces one record in its cached cycle. Cycles that are not
// cached are left alone.
func (c *RecordCache) MergeRecord(ctx context.Context, rec payroll.PayrollRecord) error {
	key := cycleKey(rec.PayrollCycleID)
	loaded, err := c.client.HExists(ctx, key, loadedField).Result()
	if err != nil {
		return err
	}
	if !loaded {
		return nil
	}

	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal record %s: %w", rec.ID, err)
	}
	return c.client.HSet(ctx, key, rec.ID, raw).Err()
}

func (c *RecordCache) cached(ctx context.Context, cycleID string) ([]payroll.PayrollRecord, bool, error) {
	fields, err := c.client.HGetAll(ctx, cycleKey(cycleID)).Result()
	if err != nil {
		return nil, false, err
	}
	if _, ok := fields[loadedField]; !ok {
		return nil, false, nil
	}

	records := make([]payroll.PayrollRecord, 0, len(fields)-1)
	for field, raw := range fields {
		if field == loadedField {
			continue
		}
		var rec payroll.PayrollRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, false, fmt.Errorf("decode cached record %s: %w", field, err)
		}
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].CompanyName != records[j].CompanyName {
			return records[i].CompanyName < records[j].CompanyName
		}
		return records[i].ID < records[j].ID
	})
	return records, true, nil
}

// populate stores a snapshot read at version. It fails with errSnapshotStale,
// or redis.TxFailedErr when a write races the EXEC, if the cycle changed.
func (c *RecordCache) populate(ctx context.Context, cycleID string, version int64, records []payroll.PayrollRecord) error {
	values := make([]interface{}, 0, 2*len(records)+2)
	for _, rec := range records {
		raw, err := json.Marshal(rec)
		if err != nil {
			return fmt.Errorf("marshal record %s: %w", rec.ID, err)
		}
		values = append(values, rec.ID, raw)
	}
	values = append(values, loadedField, "1")

	key, vkey := cycleKey(cycleID), versionKey(cycleID)
	return c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, vkey).Int64()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if current != version {
			return errSnapshotStale
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Del(ctx, key)
			pipe.HSet(ctx, key, values...)
			pipe.Expire(ctx, key, c.ttl)
			return nil
		})
		return err
	}, vkey)
}
