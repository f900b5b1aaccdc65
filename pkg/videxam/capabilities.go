package videxam

import "strings"

// Operation 存储后端契约中的一个操作
type Operation uint32

const (
	OpScan Operation = 1 << iota
	OpParallelScan
	OpIndexFetch
	OpTupleInsert
	OpTupleUpdate
	OpTupleDelete
	OpTupleLock
	OpMultiInsert
	OpTruncate
	OpVacuum
	OpIndexBuild
	OpIndexValidate
	OpAnalyze
	OpEstimateSize
	OpRelationSize
	OpToast
)

var operationNames = map[Operation]string{
	OpScan:          "scan",
	OpParallelScan:  "parallel_scan",
	OpIndexFetch:    "index_fetch",
	OpTupleInsert:   "tuple_insert",
	OpTupleUpdate:   "tuple_update",
	OpTupleDelete:   "tuple_delete",
	OpTupleLock:     "tuple_lock",
	OpMultiInsert:   "multi_insert",
	OpTruncate:      "truncate",
	OpVacuum:        "vacuum",
	OpIndexBuild:    "index_build",
	OpIndexValidate: "index_validate",
	OpAnalyze:       "analyze",
	OpEstimateSize:  "estimate_size",
	OpRelationSize:  "relation_size",
	OpToast:         "toast",
}

func (op Operation) String() string {
	if name, ok := operationNames[op]; ok {
		return name
	}
	return "unknown"
}

// Capabilities 操作的存在标志，构造时确定
type Capabilities uint32

// Has 是否提供该操作
func (c Capabilities) Has(op Operation) bool {
	return Capabilities(op)&c != 0
}

// With 增加操作
func (c Capabilities) With(ops ...Operation) Capabilities {
	for _, op := range ops {
		c |= Capabilities(op)
	}
	return c
}

// Operations 按位序列出提供的操作
func (c Capabilities) Operations() []Operation {
	var out []Operation
	for bit := Operation(1); bit != 0 && bit <= OpToast; bit <<= 1 {
		if c.Has(bit) {
			out = append(out, bit)
		}
	}
	return out
}

func (c Capabilities) String() string {
	ops := c.Operations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.String()
	}
	return strings.Join(names, ",")
}

// MutatingOperations 会修改数据的操作
const MutatingOperations = Capabilities(OpTupleInsert | OpTupleUpdate | OpTupleDelete |
	OpTupleLock | OpMultiInsert | OpTruncate | OpVacuum)

// VirtualCapabilities 虚拟表只提供只读操作
func VirtualCapabilities() Capabilities {
	return Capabilities(0).With(
		OpScan,
		OpIndexFetch,
		OpIndexBuild,
		OpIndexValidate,
		OpAnalyze,
		OpEstimateSize,
		OpRelationSize,
	)
}
