package predicate

import (
	"fmt"
	"math"

	"github.com/dgraph-io/ristretto/v2"

	"storemy/pkg/concurrency/transaction"
	"storemy/pkg/primitives"
	"storemy/pkg/storage/page"
	"storemy/pkg/types"
)

const defaultBucketCount = 100

// columnStats is one column's histogram, tagged by its underlying field
// type so EstimateSelectivity can dispatch to the right histogram kind.
type columnStats struct {
	fieldType types.Type
	ints      *IntHistogram
	strings   *StringHistogram
}

// TableStatistics holds a per-column histogram and row count for one table,
// built by scanning it twice (min/max, then population). It is the sole statistics-gathering surface:
// nothing recomputes it automatically, callers explicitly ask for a refresh.
type TableStatistics struct {
	tableID primitives.TableID
	rowCnt  int64
	columns []columnStats
}

// RowCount returns the number of tuples observed during the scan that
// built these statistics.
func (s *TableStatistics) RowCount() int64 {
	return s.rowCnt
}

// EstimateSelectivity estimates the fraction of s's rows satisfying
// "column[fieldIndex] op operand".
func (s *TableStatistics) EstimateSelectivity(fieldIndex int, op primitives.Predicate, operand types.Field) (float64, error) {
	if fieldIndex < 0 || fieldIndex >= len(s.columns) {
		return 0, fmt.Errorf("field index %d out of range for %d columns", fieldIndex, len(s.columns))
	}
	col := s.columns[fieldIndex]
	switch v := operand.(type) {
	case *types.IntField:
		if col.ints == nil {
			return 0, fmt.Errorf("column %d is not an INT column", fieldIndex)
		}
		return col.ints.EstimateSelectivity(op, int(v.Value)), nil
	case *types.StringField:
		if col.strings == nil {
			return 0, fmt.Errorf("column %d is not a STRING column", fieldIndex)
		}
		return col.strings.EstimateSelectivity(op, v.Value), nil
	default:
		return 0, fmt.Errorf("unsupported operand type for selectivity estimate: %T", operand)
	}
}

// ComputeTableStatistics builds a TableStatistics for file by scanning it
// twice under tid through fetcher: once for per-INT-column min/max, once to
// populate the histograms. bucketCount <= 0 uses a sane default.
func ComputeTableStatistics(tid *transaction.ID, fetcher page.PageFetcher, file page.DbFile, bucketCount int) (*TableStatistics, error) {
	if bucketCount <= 0 {
		bucketCount = defaultBucketCount
	}
	td := file.GetTupleDesc()
	n := td.NumFields()

	mins := make([]int32, n)
	maxs := make([]int32, n)
	for i := range mins {
		mins[i] = math.MaxInt32
		maxs[i] = -math.MaxInt32
	}

	scanOnce := func(visit func(fieldIndex int, t types.Field)) error {
		it := file.Iterator(tid, fetcher)
		if err := it.Open(); err != nil {
			return err
		}
		defer it.Close()
		for {
			has, err := it.HasNext()
			if err != nil {
				return err
			}
			if !has {
				break
			}
			t, err := it.Next()
			if err != nil {
				return err
			}
			for i := 0; i < n; i++ {
				f, err := t.GetField(i)
				if err != nil {
					return err
				}
				visit(i, f)
			}
		}
		return nil
	}

	var rowCount int64
	seenAny := make([]bool, n)
	if err := scanOnce(func(i int, f types.Field) {
		if iv, ok := f.(*types.IntField); ok {
			seenAny[i] = true
			if iv.Value < mins[i] {
				mins[i] = iv.Value
			}
			if iv.Value > maxs[i] {
				maxs[i] = iv.Value
			}
		}
	}); err != nil {
		return nil, err
	}

	columns := make([]columnStats, n)
	for i := 0; i < n; i++ {
		ft, err := td.TypeAtIndex(i)
		if err != nil {
			return nil, err
		}
		switch ft {
		case types.IntType:
			lo, hi := int(mins[i]), int(maxs[i])
			if !seenAny[i] || lo > hi {
				lo, hi = 0, 0
			}
			columns[i] = columnStats{fieldType: types.IntType, ints: NewIntHistogram(bucketCount, lo, hi)}
		case types.StringType:
			columns[i] = columnStats{fieldType: types.StringType, strings: NewStringHistogram(bucketCount)}
		}
	}

	rowCount = 0
	if err := scanOnce(func(i int, f types.Field) {
		if i == 0 {
			rowCount++
		}
		switch v := f.(type) {
		case *types.IntField:
			columns[i].ints.AddValue(int(v.Value))
		case *types.StringField:
			columns[i].strings.AddValue(v.Value)
		}
	}); err != nil {
		return nil, err
	}

	return &TableStatistics{tableID: file.GetID(), rowCnt: rowCount, columns: columns}, nil
}

// StatisticsCache caches TableStatistics behind a W-TinyLFU admission
// policy, keyed by table id. Statistics are a pure request/response value
// with no correctness dependency on eviction order, unlike the page cache,
// so an admission-policy cache is a reasonable fit here even though it was
// rejected for the buffer pool itself.
type StatisticsCache struct {
	cache *ristretto.Cache[uint64, *TableStatistics]
}

// NewStatisticsCache builds a statistics cache sized for a handful of tables.
func NewStatisticsCache() (*StatisticsCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config[uint64, *TableStatistics]{
		NumCounters: 1e4,
		MaxCost:     1 << 20,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("construct statistics cache: %w", err)
	}
	return &StatisticsCache{cache: c}, nil
}

// Get returns the cached statistics for tableID, if present.
func (c *StatisticsCache) Get(tableID primitives.TableID) (*TableStatistics, bool) {
	return c.cache.Get(uint64(tableID))
}

// Put caches stats for tableID, replacing any prior entry.
func (c *StatisticsCache) Put(tableID primitives.TableID, stats *TableStatistics) {
	c.cache.Set(uint64(tableID), stats, 1)
	c.cache.Wait()
}

// Invalidate drops any cached statistics for tableID, e.g. after a bulk
// insert/delete changes its distribution.
func (c *StatisticsCache) Invalidate(tableID primitives.TableID) {
	c.cache.Del(uint64(tableID))
}
