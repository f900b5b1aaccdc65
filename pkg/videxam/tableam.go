package videxam

import (
	"context"

	"github.com/kasuganosora/videx/pkg/domain"
)

// TableAM 表存储后端契约
// 可选操作是否提供由 Capabilities 声明，调用方应先检查再调用
type TableAM interface {
	Name() string
	Capabilities() Capabilities
	SlotKind() string

	BeginScan(rel domain.Oid, snapshot Snapshot, keys []ScanKey, flags ScanFlags) *ScanDesc
	IndexFetchBegin(rel domain.Oid) *IndexFetch
	IndexBuildRangeScan(table, index domain.Oid, startBlock, numBlocks uint32) float64
	IndexValidateScan(table, index domain.Oid, snapshot Snapshot) error

	EstimateSize(ctx context.Context, rel domain.Oid, attrWidths []int32) (Estimate, error)
	RelationSize(rel domain.Oid) uint64

	TupleInsert(rel domain.Oid, slot *Slot) error
	MultiInsert(rel domain.Oid, slots []*Slot) error
	TupleUpdate(rel domain.Oid, tid TID, slot *Slot) error
	TupleDelete(rel domain.Oid, tid TID) error
	TupleLock(rel domain.Oid, tid TID) error
	Truncate(rel domain.Oid) error
	Vacuum(rel domain.Oid) error
}

var _ TableAM = (*AccessMethod)(nil)

// Supports 检查后端是否提供某个操作
func Supports(am TableAM, op Operation) bool {
	if am == nil {
		return false
	}
	return am.Capabilities().Has(op)
}

// IsWritable 后端是否提供任何写操作
func IsWritable(am TableAM) bool {
	if am == nil {
		return false
	}
	return am.Capabilities()&MutatingOperations != 0
}
