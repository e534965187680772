package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"wikigraph/internal/util"
	"wikigraph/pkg/graph"
	"wikigraph/pkg/ingest"
	"wikigraph/pkg/logger"
	"wikigraph/pkg/logger/console"

	flag "github.com/spf13/pflag"
)

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: ingest <command> [options]

Commands:
  load [dir]    Load a tabular dataset (edges.csv, features.json, target.csv)
                into the graph store
  seed          Ensure schema and merge the sample development data
  reset         Delete all graph data (requires --yes)

Environment:
  NEO4J_URI, NEO4J_USER, NEO4J_PASSWORD, NEO4J_DATABASE
  DATASET_DIR, BATCH_SIZE, MAX_EDGES, MAX_TAGS_PER_ARTICLE

Run 'ingest <command> --help' for command options.
`)
}

func main() {
	util.LoadEnv()

	debug := util.GetEnvBool("DEBUG", false)
	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug: debug,
	})
	logger.Init(consoleLogger)

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch os.Args[1] {
	case "load":
		runLoad(ctx, os.Args[2:])
	case "seed":
		runSeed(ctx, os.Args[2:])
	case "reset":
		runReset(ctx, os.Args[2:])
	case "help", "--help", "-h":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}
}

func runLoad(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("load", flag.ExitOnError)
	noReset := fs.Bool("no-reset", false, "Keep existing graph data instead of clearing it first")
	batchSize := fs.Int("batch-size", util.GetEnvInt("BATCH_SIZE", ingest.DefaultBatchSize), "Input rows per write statement")
	maxEdges := fs.Int("max-edges", util.GetEnvInt("MAX_EDGES", 0), "Cap on ingested edge-list rows (0 = all)")
	maxTags := fs.Int("max-tags-per-article", util.GetEnvInt("MAX_TAGS_PER_ARTICLE", ingest.DefaultMaxTagsPerArticle), "Cap on HAS_TAG edges per article")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ingest load [dir] [options]

Description:
  Load a tabular dataset into the graph store: ensure schema, baseline
  entities, then batched upserts of articles, tags and related-article
  edges. Re-running over the same input is idempotent apart from
  traffic scores, which always reflect the latest input.

  By default all existing graph data is cleared first. Pass --no-reset
  to merge into the current graph.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	dir := util.GetEnvString("DATASET_DIR", ".")
	if fs.NArg() > 0 {
		dir = fs.Arg(0)
	}

	ds, err := ingest.LoadDataset(dir)
	if err != nil {
		logger.Fatal("Failed to load dataset", "dir", dir, "err", err)
	}
	logger.Info("Dataset loaded",
		"dir", dir,
		"articles", len(ds.Targets),
		"edges", len(ds.Edges),
		"feature_nodes", len(ds.Features),
	)

	store, sess := openStore(ctx)
	defer store.Close(context.Background())
	defer sess.Close(context.Background())

	pipeline := ingest.NewPipeline(sess, ingest.Options{
		Reset:             !*noReset,
		BatchSize:         *batchSize,
		MaxEdges:          *maxEdges,
		MaxTagsPerArticle: *maxTags,
	})
	if err := pipeline.Run(ctx, ds); err != nil {
		logger.Fatal("Ingestion failed", "err", err)
	}
}

func runSeed(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("seed", flag.ExitOnError)
	noReset := fs.Bool("no-reset", false, "Keep existing graph data instead of clearing it first")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ingest seed [options]

Description:
  Ensure schema constraints and indexes, then merge a small sample
  dataset (topics, authors, tags, articles and their relationships)
  for local development and API smoke tests.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	store, sess := openStore(ctx)
	defer store.Close(context.Background())
	defer sess.Close(context.Background())

	pipeline := ingest.NewPipeline(sess, ingest.Options{Reset: !*noReset})
	if err := pipeline.SeedSample(ctx); err != nil {
		logger.Fatal("Seeding failed", "err", err)
	}
}

func runReset(ctx context.Context, args []string) {
	fs := flag.NewFlagSet("reset", flag.ExitOnError)
	confirm := fs.Bool("yes", false, "Confirm the reset (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: ingest reset --yes

Description:
  WARNING: destructive. Deletes every node and relationship in the
  graph store. Intended as a pre-ingestion reset in dev and test
  environments only.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		fmt.Fprintln(os.Stderr, "Error: the --yes flag is required to confirm this destructive operation")
		os.Exit(1)
	}

	store, sess := openStore(ctx)
	defer store.Close(context.Background())
	defer sess.Close(context.Background())

	pipeline := ingest.NewPipeline(sess, ingest.Options{})
	if err := pipeline.Clear(ctx); err != nil {
		logger.Fatal("Reset failed", "err", err)
	}
	logger.Info("Graph cleared")
}

func openStore(ctx context.Context) (*graph.Client, graph.QuerySession) {
	store, err := graph.NewClient(ctx, graph.Config{
		URI:      util.GetEnvString("NEO4J_URI", "bolt://neo4j:7687"),
		Username: util.GetEnvString("NEO4J_USER", "neo4j"),
		Password: util.GetEnvString("NEO4J_PASSWORD", "password"),
		Database: util.GetEnvString("NEO4J_DATABASE", "neo4j"),
	})
	if err != nil {
		logger.Fatal("Failed to connect to graph store", "err", err)
	}
	return store, store.Session(ctx)
}
