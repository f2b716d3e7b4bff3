package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"os/exec"
	"strings"

	_ "github.com/lib/pq"
	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/memelang"
)

type PostgresDatabase struct {
	config database.Config
	db     *sql.DB
}

func NewDatabase(config database.Config) (database.Database, error) {
	db, err := sql.Open("postgres", postgresBuildDSN(config))
	if err != nil {
		return nil, err
	}
	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(5)

	return &PostgresDatabase{
		db:     db,
		config: config,
	}, nil
}

func (d *PostgresDatabase) DB() *sql.DB {
	return d.db
}

func (d *PostgresDatabase) Close() error {
	return d.db.Close()
}

func (d *PostgresDatabase) Rebind(query string) string {
	return database.RebindDollar(query)
}

func (d *PostgresDatabase) NextID(ctx context.Context) (int64, error) {
	var id int64
	err := d.db.QueryRowContext(ctx, fmt.Sprintf("SELECT nextval('%s')", database.TableSeqn)).Scan(&id)
	return id, err
}

func (d *PostgresDatabase) CreateTables(ctx context.Context) error {
	corp := memelang.IDCor + 1
	ddls := []string{
		fmt.Sprintf("CREATE SEQUENCE %s AS BIGINT START %d INCREMENT 1 CACHE 1", database.TableSeqn, corp),
		fmt.Sprintf("SELECT setval('%s', %d, false)", database.TableSeqn, corp),
		fmt.Sprintf("CREATE TABLE %s (gid BIGINT, bid BIGINT, rid BIGINT, aid BIGINT, PRIMARY KEY (gid,bid,rid))", database.TableNode),
		fmt.Sprintf("CREATE INDEX %s_rid_idx ON %s USING hash (rid)", database.TableNode, database.TableNode),
		fmt.Sprintf("CREATE INDEX %s_aid_idx ON %s USING hash (aid)", database.TableNode, database.TableNode),
		fmt.Sprintf("CREATE TABLE %s (gid BIGINT, bid BIGINT, rid BIGINT, amt DOUBLE PRECISION, PRIMARY KEY (gid,bid,rid))", database.TableNumb),
		fmt.Sprintf("CREATE INDEX %s_rid_idx ON %s USING hash (rid)", database.TableNumb, database.TableNumb),
		fmt.Sprintf("CREATE INDEX %s_amt_idx ON %s (amt)", database.TableNumb, database.TableNumb),
		fmt.Sprintf("CREATE TABLE %s (gid BIGINT, bid BIGINT, rid BIGINT, alp VARCHAR(511), PRIMARY KEY (gid,bid,rid))", database.TableName),
		fmt.Sprintf("CREATE INDEX %s_rid_idx ON %s USING hash (rid)", database.TableName, database.TableName),
		fmt.Sprintf("CREATE UNIQUE INDEX %s_alp_idx ON %s (gid, LOWER(alp)) WHERE rid = %d", database.TableName, database.TableName, memelang.RelKey),
	}
	for _, ddl := range ddls {
		if _, err := d.db.ExecContext(ctx, ddl); err != nil {
			return err
		}
	}
	return nil
}

func (d *PostgresDatabase) DropTables(ctx context.Context) error {
	ddls := []string{
		fmt.Sprintf("DROP SEQUENCE IF EXISTS %s", database.TableSeqn),
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

// CreateDatabase provisions the database and role with the local psql
// client, the same way the schema installer is expected to run on a
// fresh host. Requires a postgres superuser on this machine.
func (d *PostgresDatabase) CreateDatabase() error {
	commands := []string{
		fmt.Sprintf("CREATE DATABASE %s", d.config.DbName),
		fmt.Sprintf("CREATE USER %s WITH PASSWORD '%s'", d.config.User, d.config.Password),
		fmt.Sprintf("GRANT ALL PRIVILEGES ON DATABASE %s TO %s", d.config.DbName, d.config.User),
	}
	for _, command := range commands {
		if err := runPsql(command); err != nil {
			return err
		}
	}
	return nil
}

func runPsql(command string) error {
	cmd := exec.Command("sudo", "-u", "postgres", "psql", "-c", command)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	fmt.Printf("%s;\n", command)
	return cmd.Run()
}

func postgresBuildDSN(config database.Config) string {
	user := config.User
	password := config.Password
	dbname := config.DbName
	host := ""
	options := []string{"sslmode=disable"}

	if sslmode, ok := os.LookupEnv("PGSSLMODE"); ok {
		options = []string{fmt.Sprintf("sslmode=%s", sslmode)}
	}

	if config.Socket == "" {
		host = fmt.Sprintf("%s:%d", config.Host, config.Port)
	} else {
		// a socket path would be rejected by the URL parser in
		// authority position, so it goes in the query instead
		options = append(options, fmt.Sprintf("host=%s", config.Socket))
	}

	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?%s",
		url.QueryEscape(user), url.QueryEscape(password), host, dbname,
		strings.Join(options, "&"),
	)
}
