// This package has the database access layer. Never deal with Memelang
// parsing or SQL compilation here.
package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v2"
)

// Backing tables and the id sequence.
const (
	TableNode = "node"
	TableNumb = "numb"
	TableName = "name"
	TableSeqn = "seqn"
)

type Config struct {
	DbName   string
	User     string
	Password string
	Host     string
	Port     int
	Socket   string
}

// Abstraction layer for multiple kinds of databases
type Database interface {
	DB() *sql.DB
	Close() error
	// Rebind rewrites '?' placeholders into the driver's style.
	Rebind(query string) string
	// NextID draws a fresh id from the seqn sequence.
	NextID(ctx context.Context) (int64, error)
	CreateTables(ctx context.Context) error
	DropTables(ctx context.Context) error
	CreateDatabase() error
}

// ParseConfig reads connection settings from a yaml file. Missing
// fields keep the values already present in base.
func ParseConfig(configFile string, base Config) (Config, error) {
	buf, err := os.ReadFile(configFile)
	if err != nil {
		return base, err
	}

	var config struct {
		Host     string `yaml:"host"`
		Port     int    `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		DbName   string `yaml:"dbname"`
		Socket   string `yaml:"socket"`
	}
	if err := yaml.UnmarshalStrict(buf, &config); err != nil {
		return base, err
	}

	if config.Host != "" {
		base.Host = config.Host
	}
	if config.Port != 0 {
		base.Port = config.Port
	}
	if config.User != "" {
		base.User = config.User
	}
	if config.Password != "" {
		base.Password = config.Password
	}
	if config.DbName != "" {
		base.DbName = config.DbName
	}
	if config.Socket != "" {
		base.Socket = config.Socket
	}
	return base, nil
}

// RebindDollar rewrites '?' placeholders to positional '$n' ones,
// leaving quoted literals alone.
func RebindDollar(query string) string {
	var b strings.Builder
	n := 0
	inString := false
	for i := 0; i < len(query); i++ {
		c := query[i]
		switch {
		case c == '\'':
			inString = !inString
			b.WriteByte(c)
		case c == '?' && !inString:
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// Morfigy interpolates bound parameters into a query for display only;
// execution always uses placeholders.
func Morfigy(query string, params []any) string {
	var b strings.Builder
	p := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' && p < len(params) {
			b.WriteString(formatParam(params[p]))
			p++
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func formatParam(v any) string {
	switch t := v.(type) {
	case string:
		return "'" + strings.ReplaceAll(t, "'", "''") + "'"
	default:
		return fmt.Sprint(t)
	}
}
