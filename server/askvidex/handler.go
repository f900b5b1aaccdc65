package askvidex

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kasuganosora/videx/pkg/domain"
	"github.com/kasuganosora/videx/pkg/hook"
	"github.com/kasuganosora/videx/pkg/keyrange"
	"github.com/kasuganosora/videx/pkg/logging"
	"github.com/kasuganosora/videx/pkg/protocol"
)

const (
	// maxRequestSize 请求体上限
	maxRequestSize = 1 << 20

	// DefaultRangeSelectivity 单侧范围条件的默认选择率
	DefaultRangeSelectivity = 1.0 / 3.0
)

// 请求结果标签
const (
	resultOK      = "ok"
	resultNoStats = "no_stats"
	resultBad     = "bad_request"
)

// Handler 处理 POST /ask_videx
// 统计数据来自目录；查不到时回复非 OK 消息，请求方据此回退
type Handler struct {
	reader   domain.Reader
	logger   logging.Logger
	requests *prometheus.CounterVec
}

// NewHandler 创建处理器，reg 为 nil 时不注册指标
func NewHandler(reader domain.Reader, logger logging.Logger, reg prometheus.Registerer) *Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &Handler{
		reader: reader,
		logger: logger,
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "videx",
			Subsystem: "server",
			Name:      "requests_total",
			Help:      "Statistics requests answered by result.",
		}, []string{"function", "result"}),
	}
	if reg != nil {
		reg.MustRegister(h.requests)
	}
	return h
}

// ServeHTTP 解析请求树并按 function 分派
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  http.StatusMethodNotAllowed,
		})
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestSize))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "failed to read request body",
			Code:  http.StatusBadRequest,
		})
		return
	}

	req, err := decodeItem(body)
	if err != nil || req.ItemType != protocol.RequestItemType {
		if err == nil {
			err = fmt.Errorf("unexpected item_type %q", req.ItemType)
		}
		h.requests.WithLabelValues("", resultBad).Inc()
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body: " + err.Error(),
			Code:  http.StatusBadRequest,
		})
		return
	}

	function := prop(req, "function")
	data, err := h.answer(r.Context(), req, function)
	if err != nil {
		h.logger.Info("[ASKVIDEX] %s.%s %s: %v", prop(req, "schema_name"), prop(req, "table_name"), function, err)
		h.requests.WithLabelValues(function, resultNoStats).Inc()
		writeJSON(w, http.StatusOK, Reply{Code: 1, Message: err.Error(), Data: map[string]string{}})
		return
	}
	h.requests.WithLabelValues(function, resultOK).Inc()
	writeJSON(w, http.StatusOK, Reply{Code: 0, Message: protocol.MessageOK, Data: data})
}

func (h *Handler) answer(ctx context.Context, req *protocol.Item, function string) (map[string]string, error) {
	if db := prop(req, "dbname"); db != h.reader.DatabaseName() {
		return nil, fmt.Errorf("unknown database %q", db)
	}
	rel, err := h.reader.LookupRelation(ctx, prop(req, "schema_name"), prop(req, "table_name"))
	if err != nil {
		return nil, err
	}

	switch function {
	case hook.RelationStatsFunction:
		return h.columnStats(ctx, req, rel)
	case keyrange.RecordsInRangeFunction:
		return h.recordsInRange(ctx, req, rel)
	default:
		return nil, fmt.Errorf("unsupported function %q", function)
	}
}

// columnStats 回答列统计请求
func (h *Handler) columnStats(ctx context.Context, req *protocol.Item, rel *domain.RelationInfo) (map[string]string, error) {
	col := child(req, hook.ColumnNameItem)
	if col == nil {
		return nil, fmt.Errorf("missing %s", hook.ColumnNameItem)
	}
	name := prop(col, "name")
	attr, ok := rel.AttributeByName(name)
	if !ok {
		return nil, domain.NewErrNotFound("column", rel.Name+"."+name)
	}

	stats, err := h.reader.GetColumnStat(ctx, domain.StatKey{Relation: rel.Oid, AttNum: attr.Number})
	if err != nil {
		return nil, err
	}
	return map[string]string{
		hook.KeyInherit:  strconv.FormatBool(stats.Inherit),
		hook.KeyNullFrac: formatFloat(float64(stats.NullFrac)),
		hook.KeyWidth:    strconv.FormatInt(int64(stats.Width), 10),
		hook.KeyDistinct: formatFloat(float64(stats.Distinct)),
	}, nil
}

// recordsInRange 用 reltuples 和列的不同值个数估算范围内行数
// 等值边界按各列 1/ndv 相乘，每个有界的单侧范围乘以 DefaultRangeSelectivity
func (h *Handler) recordsInRange(ctx context.Context, req *protocol.Item, rel *domain.RelationInfo) (map[string]string, error) {
	tuples := rel.Stats.Tuples
	if tuples < 0 {
		return nil, fmt.Errorf("relation %s has not been analyzed", rel.Name)
	}

	min := child(req, keyrange.MinKeyItem)
	max := child(req, keyrange.MaxKeyItem)

	sel := 1.0
	if op := boundOperator(min); op == keyrange.ReadKeyExact.Symbol() {
		eq, err := h.equalitySelectivity(ctx, rel, min)
		if err != nil {
			return nil, err
		}
		sel = eq
	} else {
		if op != "" {
			sel *= DefaultRangeSelectivity
		}
		if boundOperator(max) != "" {
			sel *= DefaultRangeSelectivity
		}
	}

	rows := math.RoundToEven(tuples * sel)
	if rows < 1 && tuples > 0 {
		rows = 1
	}
	return map[string]string{hook.RecordsValueKey: strconv.FormatFloat(rows, 'f', -1, 64)}, nil
}

func (h *Handler) equalitySelectivity(ctx context.Context, rel *domain.RelationInfo, bound *protocol.Item) (float64, error) {
	sel := 1.0
	for _, cb := range bound.Data {
		if cb.ItemType != keyrange.ColumnAndBoundItem {
			continue
		}
		name := prop(cb, "column")
		attr, ok := rel.AttributeByName(name)
		if !ok {
			return 0, domain.NewErrNotFound("column", rel.Name+"."+name)
		}
		stats, err := h.reader.GetColumnStat(ctx, domain.StatKey{Relation: rel.Oid, AttNum: attr.Number})
		if err != nil {
			return 0, err
		}
		if prop(cb, "value") == protocol.NullValue {
			sel *= float64(stats.NullFrac)
			continue
		}
		ndv := float64(stats.Distinct)
		if ndv < 0 {
			// 负值表示占行数的比例
			ndv = -ndv * rel.Stats.Tuples
		}
		if ndv >= 1 {
			sel *= float64(1-stats.NullFrac) / ndv
		}
	}
	return sel, nil
}

// boundOperator 边界的操作符，缺失的边界返回空串
func boundOperator(bound *protocol.Item) string {
	if bound == nil {
		return ""
	}
	return prop(bound, "operator")
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 32)
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
