package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kasuganosora/videx/pkg/domain"
)

// Snapshot 目录内容的可移植表示，用于导入导出统计
type Snapshot struct {
	Namespaces    []domain.Namespace     `json:"namespaces" yaml:"namespaces"`
	Relations     []*domain.RelationInfo `json:"relations" yaml:"relations"`
	ColumnStats   []domain.ColumnStats   `json:"column_stats" yaml:"column_stats"`
	ExtendedStats []domain.ExtendedStats `json:"extended_stats" yaml:"extended_stats"`
}

// ReadSnapshot 读取快照文件，.yaml / .yml 按 YAML 解析，其余按 JSON 解析
func ReadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	snap := &Snapshot{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, snap)
	default:
		err = json.Unmarshal(data, snap)
	}
	if err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	return snap, nil
}

// Load 在一个事务中写入快照全部对象
func (s *Snapshot) Load(ctx context.Context, cat domain.Catalog) error {
	return domain.RunInTxn(ctx, cat, func(txn domain.Txn) error {
		for _, nsp := range s.Namespaces {
			if err := txn.CreateNamespace(ctx, nsp); err != nil {
				return fmt.Errorf("namespace %s: %w", nsp.Name, err)
			}
		}
		for _, rel := range s.Relations {
			if err := txn.CreateRelation(ctx, rel); err != nil {
				return fmt.Errorf("relation %s: %w", rel.Name, err)
			}
		}
		for _, cs := range s.ColumnStats {
			if err := txn.InsertColumnStats(ctx, cs); err != nil {
				return fmt.Errorf("column stats %d.%d: %w", cs.Relation, cs.AttNum, err)
			}
		}
		for _, es := range s.ExtendedStats {
			if err := txn.InsertExtendedStats(ctx, es); err != nil {
				return fmt.Errorf("extended stats %s: %w", es.Name, err)
			}
		}
		return nil
	})
}

// Dump 导出指定表及其统计
func Dump(ctx context.Context, r domain.Reader, rels ...domain.Oid) (*Snapshot, error) {
	snap := &Snapshot{}
	seen := make(map[domain.Oid]bool)
	for _, oid := range rels {
		rel, err := r.GetRelation(ctx, oid)
		if err != nil {
			return nil, err
		}
		if !seen[rel.Namespace] {
			nsp, err := r.GetNamespace(ctx, rel.Namespace)
			if err != nil {
				return nil, err
			}
			snap.Namespaces = append(snap.Namespaces, *nsp)
			seen[rel.Namespace] = true
		}
		snap.Relations = append(snap.Relations, rel)

		cs, err := r.GetColumnStats(ctx, oid)
		if err != nil {
			return nil, err
		}
		snap.ColumnStats = append(snap.ColumnStats, cs...)

		es, err := r.GetExtendedStats(ctx, oid)
		if err != nil {
			return nil, err
		}
		snap.ExtendedStats = append(snap.ExtendedStats, es...)
	}
	return snap, nil
}
