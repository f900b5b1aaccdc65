package videxam

import (
	"math"

	"github.com/kasuganosora/videx/pkg/domain"
)

const (
	// DefaultBlockSize 默认页大小
	DefaultBlockSize = 8192
	// PageHeaderSize 页头大小
	PageHeaderSize = 24
	// TupleOverhead 每行开销：MAXALIGN(元组头 23 字节) 加 4 字节行指针
	TupleOverhead = 24 + 4
	// DefaultFillFactor 默认填充因子
	DefaultFillFactor = 100
	// MinFillFactor 最小填充因子
	MinFillFactor = 10
	// minSizePages 从未 analyze 的表至少按 10 页估算
	minSizePages = 10
	// defaultAttrWidth 无法得知列宽时的假定宽度
	defaultAttrWidth = 32
)

// Estimate 规模估算结果
type Estimate struct {
	Pages          uint32
	Tuples         float64
	AllVisibleFrac float64
}

// EstimateInput 估算所需的表统计
type EstimateInput struct {
	Stats       domain.RelationStats
	HasSubclass bool
	FillFactor  int
	// TupleWidth 不含每行开销的数据宽度
	TupleWidth int32
}

// EstimateSize 按目录统计估算表规模，不做任何物理扫描
func EstimateSize(in EstimateInput, blockSize int) Estimate {
	if blockSize <= 0 {
		blockSize = DefaultBlockSize
	}
	relPages := in.Stats.Pages
	relTuples := in.Stats.Tuples
	relAllVisible := in.Stats.AllVisible

	curPages := relPages
	if curPages < minSizePages && relTuples < 0 && !in.HasSubclass {
		curPages = minSizePages
	}

	est := Estimate{Pages: curPages}
	if curPages == 0 {
		return est
	}

	var density float64
	if relTuples >= 0 && relPages > 0 {
		density = relTuples / float64(relPages)
	} else {
		fillFactor := in.FillFactor
		if fillFactor <= 0 {
			fillFactor = DefaultFillFactor
		}
		usable := blockSize - PageHeaderSize
		tupleWidth := int(in.TupleWidth) + TupleOverhead
		// 整数除法
		density = clampRowEst(float64((usable * fillFactor / 100) / tupleWidth))
	}
	est.Tuples = math.RoundToEven(density * float64(curPages))

	// 以记录的页数为分母，不受最小页数假设影响
	switch {
	case relAllVisible == 0 || relPages == 0:
		est.AllVisibleFrac = 0
	case relAllVisible >= relPages:
		est.AllVisibleFrac = 1
	default:
		est.AllVisibleFrac = float64(relAllVisible) / float64(relPages)
	}
	return est
}

// clampRowEst 行数至少为 1 并取整
func clampRowEst(rows float64) float64 {
	if rows <= 1 {
		return 1
	}
	return math.RoundToEven(rows)
}

// DataWidth 计算数据宽度
// 优先使用调用方给出的宽度，其次是列统计的平均宽度，再次是类型平均宽度
func DataWidth(rel *domain.RelationInfo, stats []domain.ColumnStats, attrWidths []int32) int32 {
	statWidth := make(map[domain.AttrNumber]int32, len(stats))
	for _, s := range stats {
		if !s.Inherit {
			statWidth[s.AttNum] = s.Width
		}
	}

	var total int32
	for i, attr := range rel.Attributes {
		var w int32
		if i < len(attrWidths) {
			w = attrWidths[i]
		}
		if w <= 0 {
			w = statWidth[attr.Number]
		}
		if w <= 0 {
			w = attr.AvgWidth
		}
		if w <= 0 {
			w = defaultAttrWidth
		}
		if i < len(attrWidths) {
			attrWidths[i] = w
		}
		total += w
	}
	return total
}
