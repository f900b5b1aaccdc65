package memory

import (
	"github.com/hashicorp/go-memdb"
)

// 表名
const (
	tableNamespace   = "namespace"
	tableRelation    = "relation"
	tableColumnStats = "column_stats"
	tableExtStats    = "ext_stats"
)

// 索引名
const (
	indexID       = "id"
	indexName     = "name"
	indexRelation = "relation"
)

// schema 目录的内存表结构
func schema() *memdb.DBSchema {
	return &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			tableNamespace: {
				Name: tableNamespace,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "Oid"},
					},
					indexName: {
						Name:    indexName,
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Name"},
					},
				},
			},
			tableRelation: {
				Name: tableRelation,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "Oid"},
					},
					indexName: {
						Name:   indexName,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.UintFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "Name"},
							},
						},
					},
				},
			},
			tableColumnStats: {
				Name: tableColumnStats,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:   indexID,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.UintFieldIndex{Field: "Relation"},
								&memdb.IntFieldIndex{Field: "AttNum"},
								&memdb.BoolFieldIndex{Field: "Inherit"},
							},
						},
					},
					indexRelation: {
						Name:    indexRelation,
						Indexer: &memdb.UintFieldIndex{Field: "Relation"},
					},
				},
			},
			tableExtStats: {
				Name: tableExtStats,
				Indexes: map[string]*memdb.IndexSchema{
					indexID: {
						Name:    indexID,
						Unique:  true,
						Indexer: &memdb.UintFieldIndex{Field: "Oid"},
					},
					indexRelation: {
						Name:    indexRelation,
						Indexer: &memdb.UintFieldIndex{Field: "Relation"},
					},
					indexName: {
						Name:   indexName,
						Unique: true,
						Indexer: &memdb.CompoundIndex{
							Indexes: []memdb.Indexer{
								&memdb.UintFieldIndex{Field: "Namespace"},
								&memdb.StringFieldIndex{Field: "Name"},
							},
						},
					},
				},
			},
		},
	}
}
