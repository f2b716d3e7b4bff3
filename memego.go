package memego

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/k0kubun/pp/v3"
	"github.com/memelang-net/memego/database"
	"github.com/memelang-net/memego/engine"
	"github.com/memelang-net/memego/memelang"
	"github.com/memelang-net/memego/util"
)

type Options struct {
	Graph   int64
	Verbose bool
}

// Run is the subcommand dispatcher shared by the memego binary.
func Run(ctx context.Context, db database.Database, command string, args []string, options *Options) error {
	eng := engine.New(db)
	if options.Graph != 0 {
		eng.SetGraph(options.Graph)
	}
	if options.Verbose {
		eng.SetLogger(database.StdoutLogger{})
	} else {
		eng.SetLogger(database.SlogLogger{})
	}

	switch command {
	case "sql":
		return runSQL(ctx, db, argOrStdin(args))

	case "query", "qry", "q", "get", "g":
		return runQuery(ctx, eng, argOrStdin(args), options.Verbose)

	case "put":
		out, err := eng.Put(ctx, argOrStdin(args), eng.Graph())
		if err != nil {
			return err
		}
		fmt.Println(out)
		return nil

	case "file", "import":
		if len(args) == 0 {
			return fmt.Errorf("no file is specified")
		}
		return putFile(ctx, eng, args[0])

	case "dbadd", "adddb":
		return db.CreateDatabase()

	case "tableadd", "addtable":
		return db.CreateTables(ctx)

	case "tabledel", "deltable":
		return db.DropTables(ctx)

	case "install":
		if err := db.CreateDatabase(); err != nil {
			return err
		}
		return db.CreateTables(ctx)

	case "reinstall":
		if err := db.DropTables(ctx); err != nil {
			return err
		}
		return db.CreateTables(ctx)

	case "qrytest":
		return runQueryTest(ctx, eng)

	case "fileall", "allfile":
		return putFileAll(ctx, eng)
	}

	return fmt.Errorf("invalid command %q", command)
}

// Execute and output an SQL query
func runSQL(ctx context.Context, db database.Database, query string) error {
	rows, err := db.DB().QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return err
	}
	for rows.Next() {
		values := make([]any, len(cols))
		for i := range values {
			values[i] = new(any)
		}
		if err := rows.Scan(values...); err != nil {
			return err
		}
		parts := util.TransformSlice(values, func(v any) string {
			return fmt.Sprint(*(v.(*any)))
		})
		fmt.Println(strings.Join(parts, "\t"))
	}
	return rows.Err()
}

// Execute and output a Memelang query
func runQuery(ctx context.Context, eng *engine.Engine, src string, verbose bool) error {
	if verbose {
		toks, err := memelang.Decode(src)
		if err != nil {
			return err
		}
		pp.Println(toks)
		fmt.Println("QUERY:", memelang.Encode(toks))
	}

	out, err := eng.Query(ctx, src)
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

// Read a meme file and save it to the store
func putFile(ctx context.Context, eng *engine.Engine, path string) error {
	src, err := readFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %q: %w", path, err)
	}
	out, err := eng.Put(ctx, src, eng.Graph())
	if err != nil {
		return err
	}
	fmt.Println(out)
	return nil
}

func putFileAll(ctx context.Context, eng *engine.Engine) error {
	var files []string
	for _, pattern := range []string{"*.meme", "data/*.meme"} {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			return err
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return fmt.Errorf("no .meme files found")
	}

	outputs, err := util.ConcurrentMapFuncWithError(files, 4, func(path string) (string, error) {
		src, err := os.ReadFile(path)
		if err != nil {
			return "", err
		}
		return eng.Put(ctx, string(src), eng.Graph())
	})
	if err != nil {
		return err
	}
	for i, out := range outputs {
		fmt.Printf("-- %s --\n%s\n", files[i], out)
	}
	return nil
}

// Test various Memelang queries against the live store: every query
// must survive two re-encode round trips with a stable result count.
func runQueryTest(ctx context.Context, eng *engine.Engine) error {
	queries := []string{
		"child",
		"CHILD =",
		"child parent",
		"child parent=",
		"child= parent=",
		"=JohnAdams",
		"parent=JOHNadams",
		"child[birthee",
		"child[birthee =",
		"child[birthee year>",
		"year==1732",
		"year=1732.0",
		"year>1700",
		"year<=1800",
		"year>=1700",
		"child[birthee year>=1700",
	}

	errcnt := 0
	for _, memestr := range queries {
		fmt.Println("Query 1:", memestr)

		toks, err := memelang.Decode(memestr)
		if err != nil {
			return err
		}
		if err := eng.Identify(ctx, toks, eng.Graph()); err != nil {
			return err
		}

		first, err := eng.Count(ctx, toks, eng.Graph())
		if err != nil {
			return err
		}

		memestr2 := memestr
		for i := 2; i < 4; i++ {
			toks2, err := memelang.Decode(memestr2)
			if err != nil {
				return err
			}
			if err := eng.Identify(ctx, toks2, eng.Graph()); err != nil {
				return err
			}
			if err := eng.Keyify(ctx, toks2, eng.Graph()); err != nil {
				return err
			}
			memestr2 = strings.ReplaceAll(memelang.Encode(toks2), "\n", ";")
			fmt.Printf("Query %d: %s\n", i, memestr2)
		}

		toks2, err := memelang.Decode(memestr2)
		if err != nil {
			return err
		}
		if err := eng.Identify(ctx, toks2, eng.Graph()); err != nil {
			return err
		}
		second, err := eng.Count(ctx, toks2, eng.Graph())
		if err != nil {
			return err
		}

		fmt.Println("First Count: ", first)
		fmt.Println("Second Count:", second)
		if first == 0 || first != second || first > 200 {
			fmt.Println("*** COUNT ERROR ABOVE ***")
			errcnt++
		}
		fmt.Println()
	}

	fmt.Println("ERRORS:", errcnt)
	if errcnt > 0 {
		return fmt.Errorf("%d queries failed", errcnt)
	}
	return nil
}

func argOrStdin(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	src, err := readFile("-")
	if err != nil {
		return ""
	}
	return src
}

func readFile(path string) (string, error) {
	if path == "-" {
		stat, _ := os.Stdin.Stat()
		if (stat.Mode() & os.ModeCharDevice) != 0 {
			return "", fmt.Errorf("stdin is not piped")
		}

		var buffer bytes.Buffer
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			buffer.WriteString(scanner.Text())
			buffer.WriteString("\n")
		}
		return buffer.String(), nil
	}

	buf, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}
