package badger

import (
	"fmt"
	"strings"

	"github.com/kasuganosora/videx/pkg/domain"
)

// Key prefixes
const (
	// PrefixNamespace 模式数据 nsp:{oid}
	PrefixNamespace = "nsp:"
	// PrefixNamespaceName 模式名索引 nspname:{name} -> oid
	PrefixNamespaceName = "nspname:"
	// PrefixRelation 表数据 rel:{oid}
	PrefixRelation = "rel:"
	// PrefixRelationName 表名索引 relname:{nsp}:{name} -> oid
	PrefixRelationName = "relname:"
	// PrefixColumnStats 列统计 stat:{rel}:{attnum}:{inherit}
	PrefixColumnStats = "stat:"
	// PrefixExtStats 扩展统计 ext:{oid}
	PrefixExtStats = "ext:"
	// PrefixExtStatsRel 扩展统计的表索引 extrel:{rel}:{oid}
	PrefixExtStatsRel = "extrel:"
	// PrefixExtStatsName 扩展统计名索引 extname:{nsp}:{name} -> oid
	PrefixExtStatsName = "extname:"
	// KeyNextOid 下一个可分配的对象标识
	KeyNextOid = "meta:next_oid"
)

// 固定宽度编码保证前缀扫描按数值顺序返回
func oidKey(prefix string, oid domain.Oid) []byte {
	return []byte(fmt.Sprintf("%s%010d", prefix, uint32(oid)))
}

func namespaceNameKey(name string) []byte {
	return []byte(PrefixNamespaceName + name)
}

func relationNameKey(nsp domain.Oid, name string) []byte {
	return []byte(fmt.Sprintf("%s%010d:%s", PrefixRelationName, uint32(nsp), name))
}

// attnum 可能为负（系统列），加偏移后编码
func columnStatsKey(key domain.StatKey) []byte {
	inherit := 0
	if key.Inherit {
		inherit = 1
	}
	return []byte(fmt.Sprintf("%s%010d:%05d:%d", PrefixColumnStats, uint32(key.Relation), int(key.AttNum)+32768, inherit))
}

func columnStatsPrefix(rel domain.Oid) []byte {
	return []byte(fmt.Sprintf("%s%010d:", PrefixColumnStats, uint32(rel)))
}

func extStatsRelKey(rel, oid domain.Oid) []byte {
	return []byte(fmt.Sprintf("%s%010d:%010d", PrefixExtStatsRel, uint32(rel), uint32(oid)))
}

func extStatsRelPrefix(rel domain.Oid) []byte {
	return []byte(fmt.Sprintf("%s%010d:", PrefixExtStatsRel, uint32(rel)))
}

func extStatsNameKey(nsp domain.Oid, name string) []byte {
	return []byte(fmt.Sprintf("%s%010d:%s", PrefixExtStatsName, uint32(nsp), name))
}

// decodeExtStatsRelKey 从 extrel 键中取出扩展统计 oid
func decodeExtStatsRelKey(key []byte) (domain.Oid, bool) {
	s := string(key)
	if !strings.HasPrefix(s, PrefixExtStatsRel) {
		return domain.InvalidOid, false
	}
	parts := strings.SplitN(s[len(PrefixExtStatsRel):], ":", 2)
	if len(parts) != 2 {
		return domain.InvalidOid, false
	}
	var oid uint32
	if _, err := fmt.Sscanf(parts[1], "%d", &oid); err != nil {
		return domain.InvalidOid, false
	}
	return domain.Oid(oid), true
}
