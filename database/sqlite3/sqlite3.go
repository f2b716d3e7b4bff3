package sqlite3

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/memelang"
	_ "modernc.org/sqlite"
)

type Sqlite3Database struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("sqlite", config.DbName)
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(5)

	return &Sqlite3Database{
		db:     db,
		config: config,
	}, nil
}

func (d *Sqlite3Database) DB() *sql.DB {
	return d.db
}

func (d *Sqlite3Database) Close() error {
	return d.db.Close()
}

func (d *Sqlite3Database) Rebind(query string) string {
	return query
}

// NextID emulates the seqn sequence with a one-row counter table.
func (d *Sqlite3Database) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := d.db.QueryRowContext(ctx,
		fmt.Sprintf("UPDATE %s SET id = id + 1 RETURNING id", database.TableSeqn),
	).Scan(&id)
	return id, err
}

func (d *Sqlite3Database) CreateTables(ctx context.Context) error {
	ddls := []string{
		fmt.Sprintf("CREATE TABLE %s (id INTEGER NOT NULL)", database.TableSeqn),
		fmt.Sprintf("INSERT INTO %s (id) VALUES (%d)", database.TableSeqn, memelang.IDCor),
		fmt.Sprintf("CREATE TABLE %s (gid INTEGER, bid INTEGER, rid INTEGER, aid INTEGER, PRIMARY KEY (gid,bid,rid))", database.TableNode),
		fmt.Sprintf("CREATE INDEX %s_rid_idx ON %s (rid)", database.TableNode, database.TableNode),
		fmt.Sprintf("CREATE INDEX %s_aid_idx ON %s (aid)", database.TableNode, database.TableNode),
		fmt.Sprintf("CREATE TABLE %s (gid INTEGER, bid INTEGER, rid INTEGER, amt REAL, PRIMARY KEY (gid,bid,rid))", database.TableNumb),
		fmt.Sprintf("CREATE INDEX %s_rid_idx ON %s (rid)", database.TableNumb, database.TableNumb),
		fmt.Sprintf("CREATE INDEX %s_amt_idx ON %s (amt)", database.TableNumb, database.TableNumb),
		fmt.Sprintf("CREATE TABLE %s (gid INTEGER, bid INTEGER, rid INTEGER, alp VARCHAR(511), PRIMARY KEY (gid,bid,rid))", database.TableName),
		fmt.Sprintf("CREATE INDEX %s_rid_idx ON %s (rid)", database.TableName, database.TableName),
		fmt.Sprintf("CREATE UNIQUE INDEX %s_alp_idx ON %s (gid, LOWER(alp)) WHERE rid = %d", database.TableName, database.TableName, memelang.RelKey),
	}
	for _, ddl := range ddls {
		if _, err := d.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (d *Sqlite3Database) DropTables(ctx context.Context) error {
	ddls := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS %s", database.TableSeqn),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", database.TableNode),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", database.TableNumb),
		fmt.Sprintf("DROP TABLE IF EXISTS %s", database.TableName),
	}
	for _, ddl := range ddls {
		if _, err := d.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

// CreateDatabase is a no-op: the database file is created on open.
func (d *Sqlite3Database) CreateDatabase() error {
	return nil
}
