package sqlcat

import (
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Dialect SQL 方言
type Dialect struct {
	// Name 方言名
	Name string
	// Driver database/sql 驱动名
	Driver string
	// Placeholder squirrel 占位符格式
	Placeholder sq.PlaceholderFormat
	// LockSuffix 行锁后缀，sqlite 不支持
	LockSuffix string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		Driver:      "sqlite",
		Placeholder: sq.Question,
	}
	Postgres = Dialect{
		Name:        "postgres",
		Driver:      "postgres",
		Placeholder: sq.Dollar,
		LockSuffix:  "FOR UPDATE",
	}
	MySQL = Dialect{
		Name:        "mysql",
		Driver:      "mysql",
		Placeholder: sq.Question,
		LockSuffix:  "FOR UPDATE",
	}
)

// DialectByName 按名称查找方言
func DialectByName(name string) (Dialect, error) {
	switch name {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pg":
		return Postgres, nil
	case "mysql", "mariadb":
		return MySQL, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect: %s", name)
	}
}

func (d Dialect) builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(d.Placeholder)
}
