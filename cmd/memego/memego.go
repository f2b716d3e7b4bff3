package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jessevdk/go-flags"
	"github.com/memelang-net/memego"
	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/database/postgres"
	"github.com/memelang-net/memego/database/sqlite3"
	"github.com/memelang-net/memego/util"
	"golang.org/x/term"
)

var version string

// Return the connection config, the parsed options, and the remaining
// positional arguments (subcommand first).
func parseOptions(args []string) (database.Config, string, *memego.Options, []string) {
	var opts struct {
		Type     string `long:"type" description:"Type of database (postgres, sqlite3)" value-name:"type" default:"postgres"`
		User     string `short:"U" long:"user" description:"Database user name" value-name:"username" default:"memeuser"`
		Password string `short:"W" long:"password" description:"Database user password, overridden by $MEMEPASS" value-name:"password" default:"memepswd"`
		Host     string `short:"h" long:"host" description:"Host or socket directory to connect to the database server" value-name:"hostname" default:"127.0.0.1"`
		Port     uint   `short:"p" long:"port" description:"Port used for the connection" value-name:"port" default:"5432"`
		Prompt   bool   `long:"password-prompt" description:"Force database user password prompt"`
		DbName   string `short:"d" long:"dbname" description:"Database name, or file path for sqlite3" value-name:"dbname" default:"memedb"`
		Config   string `short:"c" long:"config" description:"YAML file overriding connection settings" value-name:"filename"`
		Graph    int64  `short:"g" long:"graph" description:"Graph id to operate on" value-name:"gid" default:"999"`
		Verbose  bool   `short:"v" long:"verbose" description:"Dump tokens and SQL for each query"`
		Help     bool   `long:"help" description:"Show this help"`
		Version  bool   `long:"version" description:"Show this version"`
	}

	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[option...] command [argument]"
	args, err := parser.ParseArgs(args)
	if err != nil {
		log.Fatal(err)
	}

	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}

	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}

	if len(args) == 0 {
		fmt.Print("No command is specified!\n\n")
		parser.WriteHelp(os.Stdout)
		os.Exit(1)
	}

	config := database.Config{
		DbName:   opts.DbName,
		User:     opts.User,
		Password: opts.Password,
		Host:     opts.Host,
		Port:     int(opts.Port),
	}

	if opts.Config != "" {
		config, err = database.ParseConfig(opts.Config, config)
		if err != nil {
			log.Fatal(err)
		}
	}

	if password, ok := os.LookupEnv("MEMEPASS"); ok {
		config.Password = password
	}

	if opts.Prompt {
		fmt.Printf("Enter Password: ")
		pass, err := term.ReadPassword(int(syscall.Stdin))
		if err != nil {
			log.Fatal(err)
		}
		config.Password = string(pass)
	}

	if _, err := os.Stat(config.Host); !os.IsNotExist(err) {
		config.Socket = config.Host
	}

	options := memego.Options{
		Graph:   opts.Graph,
		Verbose: opts.Verbose,
	}
	return config, opts.Type, &options, args
}

func main() {
	util.InitSlog()

	config, dbType, options, args := parseOptions(os.Args[1:])

	var db database.Database
	var err error
	switch dbType {
	case "postgres", "postgresql":
		db, err = postgres.NewDatabase(config)
	case "sqlite3", "sqlite":
		db, err = sqlite3.NewDatabase(config)
	default:
		log.Fatalf("unknown database type %q", dbType)
	}
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := memego.Run(ctx, db, args[0], args[1:], options); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
