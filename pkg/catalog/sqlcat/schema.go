package sqlcat

// 目录表名
const (
	tableNamespace = "videx_namespace"
	tableRelation  = "videx_relation"
	tableStatistic = "videx_statistic"
	tableStatExt   = "videx_statistic_ext"
	tableMeta      = "videx_meta"

	metaNextOid = "next_oid"
)

// schemaDDL 建表语句，三种方言通用
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS videx_namespace (
		oid BIGINT NOT NULL PRIMARY KEY,
		nspname VARCHAR(255) NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS videx_relation (
		oid BIGINT NOT NULL PRIMARY KEY,
		relname VARCHAR(255) NOT NULL,
		relnamespace BIGINT NOT NULL,
		relam VARCHAR(64) NOT NULL,
		relhassubclass BOOLEAN NOT NULL,
		fillfactor INTEGER NOT NULL,
		relpages BIGINT NOT NULL,
		reltuples DOUBLE PRECISION NOT NULL,
		relallvisible BIGINT NOT NULL,
		relhasindex BOOLEAN NOT NULL,
		relfrozenxid BIGINT NOT NULL,
		relminmxid BIGINT NOT NULL,
		attributes TEXT NOT NULL,
		UNIQUE (relnamespace, relname)
	)`,
	`CREATE TABLE IF NOT EXISTS videx_statistic (
		starelid BIGINT NOT NULL,
		staattnum INTEGER NOT NULL,
		stainherit BOOLEAN NOT NULL,
		stanullfrac DOUBLE PRECISION NOT NULL,
		stawidth INTEGER NOT NULL,
		stadistinct DOUBLE PRECISION NOT NULL,
		slots TEXT NOT NULL,
		PRIMARY KEY (starelid, staattnum, stainherit)
	)`,
	`CREATE TABLE IF NOT EXISTS videx_statistic_ext (
		oid BIGINT NOT NULL PRIMARY KEY,
		stxrelid BIGINT NOT NULL,
		stxname VARCHAR(255) NOT NULL,
		stxnamespace BIGINT NOT NULL,
		stxowner BIGINT NOT NULL,
		stxstattarget INTEGER NOT NULL,
		stxkeys TEXT NOT NULL,
		stxkind TEXT NOT NULL,
		UNIQUE (stxnamespace, stxname)
	)`,
	`CREATE TABLE IF NOT EXISTS videx_meta (
		meta_name VARCHAR(64) NOT NULL PRIMARY KEY,
		meta_value BIGINT NOT NULL
	)`,
}

var relationColumns = []string{
	"oid", "relname", "relnamespace", "relam", "relhassubclass", "fillfactor",
	"relpages", "reltuples", "relallvisible", "relhasindex",
	"relfrozenxid", "relminmxid", "attributes",
}

var statisticColumns = []string{
	"starelid", "staattnum", "stainherit", "stanullfrac", "stawidth", "stadistinct", "slots",
}

var statExtColumns = []string{
	"oid", "stxrelid", "stxname", "stxnamespace", "stxowner", "stxstattarget", "stxkeys", "stxkind",
}
