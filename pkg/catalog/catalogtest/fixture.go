package catalogtest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kasuganosora/videx/pkg/domain"
)

// Fixture 预置的一组目录对象
type Fixture struct {
	Schema domain.Namespace
	Src    *domain.RelationInfo
	Dst    *domain.RelationInfo
}

// 预置对象的固定标识
const (
	PublicOid domain.Oid = 2200
	SrcOid    domain.Oid = 16400
	DstOid    domain.Oid = 16500
)

// SrcAttributes 源表列定义
func SrcAttributes() []domain.Attribute {
	return []domain.Attribute{
		{Number: 1, Name: "id", TypeName: "int4", AvgWidth: 4},
		{Number: 2, Name: "name", TypeName: "text", AvgWidth: 32},
		{Number: 3, Name: "created", TypeName: "timestamp", AvgWidth: 8},
	}
}

// DstAttributes 目标表列定义，列名相同但序号不同
func DstAttributes() []domain.Attribute {
	return []domain.Attribute{
		{Number: 1, Name: "created", TypeName: "timestamp", AvgWidth: 8},
		{Number: 2, Name: "pad", TypeName: "int4", AvgWidth: 4},
		{Number: 3, Name: "id", TypeName: "int4", AvgWidth: 4},
		{Number: 4, Name: "name", TypeName: "text", AvgWidth: 32},
	}
}

// SrcColumnStats 源表列统计
func SrcColumnStats() []domain.ColumnStats {
	return []domain.ColumnStats{
		{Relation: SrcOid, AttNum: 1, NullFrac: 0, Width: 4, Distinct: -1},
		{Relation: SrcOid, AttNum: 2, NullFrac: 0.1, Width: 17, Distinct: 500,
			Slots: []domain.StatSlot{{Kind: 1, Operator: 98, Collation: 100, Numbers: []float32{0.2, 0.1}, Values: []string{"alice", "bob"}}}},
		{Relation: SrcOid, AttNum: 3, NullFrac: 0.5, Width: 8, Distinct: -0.25},
	}
}

// SrcExtendedStats 源表扩展统计
func SrcExtendedStats() []domain.ExtendedStats {
	return []domain.ExtendedStats{
		{Oid: 16450, Relation: SrcOid, Name: "s_id_name", Namespace: PublicOid, Owner: 10, StatTarget: -1,
			Keys: []domain.AttrNumber{1, 2}, Kinds: []string{"d", "f"}},
	}
}

// Seed 写入预置对象：public 模式、带统计的源表和空统计的目标表
func Seed(t *testing.T, cat domain.Catalog) *Fixture {
	t.Helper()
	ctx := context.Background()
	f := &Fixture{
		Schema: domain.Namespace{Oid: PublicOid, Name: "public"},
		Src: &domain.RelationInfo{
			Oid: SrcOid, Name: "orders", Namespace: PublicOid, AccessMethod: "heap",
			Attributes: SrcAttributes(),
			Stats:      domain.RelationStats{Pages: 1200, Tuples: 100000, AllVisible: 600, HasIndex: true},
			Horizons:   domain.Horizons{FrozenXID: 700, MinMulti: 1},
		},
		Dst: &domain.RelationInfo{
			Oid: DstOid, Name: "orders_videx", Namespace: PublicOid, AccessMethod: "videx",
			Attributes: DstAttributes(),
			Stats:      domain.RelationStats{Pages: 0, Tuples: -1},
			Horizons:   domain.Horizons{FrozenXID: 900, MinMulti: 3},
		},
	}

	err := domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		if err := txn.CreateNamespace(ctx, f.Schema); err != nil {
			return err
		}
		if err := txn.CreateRelation(ctx, f.Src); err != nil {
			return err
		}
		if err := txn.CreateRelation(ctx, f.Dst); err != nil {
			return err
		}
		for _, cs := range SrcColumnStats() {
			if err := txn.InsertColumnStats(ctx, cs); err != nil {
				return err
			}
		}
		for _, es := range SrcExtendedStats() {
			if err := txn.InsertExtendedStats(ctx, es); err != nil {
				return err
			}
		}
		return nil
	})
	require.NoError(t, err)
	return f
}
