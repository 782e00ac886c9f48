package predicate

import (
	"sort"

	"storemy/pkg/primitives"
)

// JoinStep describes one equi-join edge between two tables in a join chain:
// "leftTable.leftField = rightTable.rightField".
type JoinStep struct {
	LeftTable   primitives.TableID
	LeftField   int
	RightTable  primitives.TableID
	RightField  int
}

// estimatedCost pairs a join step with its estimated output cardinality.
type estimatedCost struct {
	step JoinStep
	card float64
}

// JoinOrderAdvisor orders a chain of equi-joins by ascending estimated
// output cardinality. It is a minimal, non-exhaustive cost model: it does
// not consider alternative join trees or access paths, only the order in
// which a fixed set of pairwise equi-joins should be applied, giving the
// histogram component a concrete consumer.
type JoinOrderAdvisor struct {
	stats map[primitives.TableID]*TableStatistics
}

// NewJoinOrderAdvisor builds an advisor over the given per-table statistics.
func NewJoinOrderAdvisor(stats map[primitives.TableID]*TableStatistics) *JoinOrderAdvisor {
	return &JoinOrderAdvisor{stats: stats}
}

// Order returns steps sorted by ascending estimated output cardinality,
// estimated as |left| * |right| * the larger of the two join columns'
// AvgSelectivity.
func (a *JoinOrderAdvisor) Order(steps []JoinStep) []JoinStep {
	costed := make([]estimatedCost, 0, len(steps))
	for _, s := range steps {
		costed = append(costed, estimatedCost{step: s, card: a.estimateCardinality(s)})
	}
	sort.SliceStable(costed, func(i, j int) bool {
		return costed[i].card < costed[j].card
	})
	ordered := make([]JoinStep, len(costed))
	for i, c := range costed {
		ordered[i] = c.step
	}
	return ordered
}

func (a *JoinOrderAdvisor) estimateCardinality(s JoinStep) float64 {
	left, okL := a.stats[s.LeftTable]
	right, okR := a.stats[s.RightTable]
	if !okL || !okR {
		return 0
	}
	leftRows := float64(left.RowCount())
	rightRows := float64(right.RowCount())

	leftSel := columnAvgSelectivity(left, s.LeftField)
	rightSel := columnAvgSelectivity(right, s.RightField)
	sel := leftSel
	if rightSel > sel {
		sel = rightSel
	}
	return leftRows * rightRows * sel
}

func columnAvgSelectivity(stats *TableStatistics, fieldIndex int) float64 {
	if fieldIndex < 0 || fieldIndex >= len(stats.columns) {
		return 1.0
	}
	col := stats.columns[fieldIndex]
	if col.ints != nil {
		return col.ints.AvgSelectivity()
	}
	return 1.0
}
