package videxam

import (
	"sync"

	"github.com/kasuganosora/videx/pkg/domain"
)

// ScanDirection 扫描方向
type ScanDirection int

const (
	BackwardScan ScanDirection = iota - 1
	NoMovementScan
	ForwardScan
)

// ScanState 扫描状态
type ScanState int

const (
	ScanUnopened ScanState = iota
	ScanScanning
	ScanClosed
)

func (s ScanState) String() string {
	switch s {
	case ScanUnopened:
		return "unopened"
	case ScanScanning:
		return "scanning"
	case ScanClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot 扫描使用的快照，由宿主提供
type Snapshot interface{}

// ScanKey 扫描条件
type ScanKey struct {
	AttNum   domain.AttrNumber
	Strategy uint16
	Argument interface{}
}

// ScanFlags 扫描选项位
type ScanFlags uint32

// Slot 元组槽
type Slot struct {
	Values []interface{}
	Nulls  []bool
	Empty  bool
}

// Clear 清空槽
func (s *Slot) Clear() {
	s.Values = s.Values[:0]
	s.Nulls = s.Nulls[:0]
	s.Empty = true
}

// ScanDesc 扫描游标
// 每个游标独立分配，不同扫描之间不共享状态
type ScanDesc struct {
	Relation domain.Oid
	Snapshot Snapshot
	Keys     []ScanKey
	Flags    ScanFlags

	cursor  int64
	state   ScanState
	once    sync.Once
	release func()
}

// State 当前状态
func (s *ScanDesc) State() ScanState {
	return s.state
}

// Cursor 游标位置，始终为 0
func (s *ScanDesc) Cursor() int64 {
	return s.cursor
}

// GetNextSlot 读取下一行，虚拟表没有数据，总是返回 false
func (s *ScanDesc) GetNextSlot(dir ScanDirection, slot *Slot) bool {
	if slot != nil {
		slot.Clear()
	}
	return false
}

// Rescan 接受新的扫描条件，游标不重置
func (s *ScanDesc) Rescan(keys []ScanKey, setParams, allowStrat, allowSync, allowPagemode bool) {
}

// End 结束扫描，只释放一次，重复调用无副作用
func (s *ScanDesc) End() {
	s.once.Do(func() {
		s.state = ScanClosed
		if s.release != nil {
			s.release()
		}
	})
}

// IndexFetch 索引回表状态
type IndexFetch struct {
	Relation domain.Oid
	once     sync.Once
	release  func()
}

// Reset 重置，无操作
func (f *IndexFetch) Reset() {}

// FetchTuple 按 TID 读取元组，虚拟表中不存在任何元组
func (f *IndexFetch) FetchTuple(tid TID, snapshot Snapshot, slot *Slot) (found, callAgain, allDead bool) {
	if slot != nil {
		slot.Clear()
	}
	return false, false, false
}

// End 结束索引回表
func (f *IndexFetch) End() {
	f.once.Do(func() {
		if f.release != nil {
			f.release()
		}
	})
}

// TID 元组标识
type TID struct {
	Block  uint32
	Offset uint16
}
