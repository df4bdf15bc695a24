package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voxelsniper.dev/internal/persistence/indexdb"
)

func dbCmd(args []string) {
	fs := flag.NewFlagSet("db", flag.ExitOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	actor := fs.String("actor", "", "sniper id filter (audits, edits)")
	limit := fs.Int("limit", 20, "result limit")
	_ = fs.Parse(args)

	q := "edits"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}
	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "index", "world.sqlite")
	}
	if _, err := os.Stat(path); err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	idx, err := indexdb.OpenSQLite(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		os.Exit(1)
	}
	defer idx.Close()

	ctx := context.Background()
	switch q {
	case "audits":
		rows, err := idx.Audits(ctx, *actor, *limit)
		exitOnErr(err)
		for _, r := range rows {
			printJSON(r)
		}
	case "edits":
		rows, err := idx.Edits(ctx, *actor, *limit)
		exitOnErr(err)
		for _, r := range rows {
			printJSON(r)
		}
	case "sections":
		rows, err := idx.Sections(ctx)
		exitOnErr(err)
		for _, r := range rows {
			printJSON(r)
		}
	case "snapshot":
		path, tick, err := idx.LatestSnapshot(ctx)
		exitOnErr(err)
		printJSON(map[string]any{"path": path, "tick": tick})
	default:
		fmt.Fprintln(os.Stderr, "unknown query (use audits|edits|sections|snapshot):", q)
		os.Exit(2)
	}
}

func exitOnErr(err error) {
	if err != nil {
		fmt.Fprintln(os.Stderr, "query:", err)
		os.Exit(1)
	}
}

func printJSON(v any) {
	b, _ := json.Marshal(v)
	fmt.Println(string(b))
}
