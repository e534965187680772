package ingest

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"wikigraph/internal/util"
	"wikigraph/pkg/logger"
)

// GraphWriter is the write half of the store session contract. The
// pipeline issues every mutation through it, one batched statement at a
// time.
type GraphWriter interface {
	Write(ctx context.Context, cypher string, params map[string]any) error
}

// Options controls a pipeline run. Zero values fall back to defaults.
type Options struct {
	// Reset clears all existing graph state before loading. Destructive,
	// dev/test only.
	Reset bool
	// BatchSize is the number of input rows per write statement.
	BatchSize int
	// MaxEdges caps how many edge-list rows are ingested; 0 means all.
	MaxEdges int
	// MaxTagsPerArticle bounds HAS_TAG fan-out per article.
	MaxTagsPerArticle int
}

const (
	DefaultBatchSize         = 500
	DefaultMaxTagsPerArticle = 40

	// authorPoolSize is the fixed pool of synthetic authors articles are
	// deterministically assigned to.
	authorPoolSize = 5

	// relatedScore is the fixed RELATED_ARTICLE score for this dataset;
	// the edge list carries no weights.
	relatedScore = 0.5

	baselineTopicName        = "Wikipedia"
	baselineTopicDescription = "Imported wiki articles."
	articleSource            = "wiki-dataset"

	// writeMaxTries bounds retries around each batch write.
	writeMaxTries = 3
)

var schemaQueries = []string{
	`CREATE CONSTRAINT article_id_unique IF NOT EXISTS FOR (a:Article) REQUIRE a.id IS UNIQUE`,
	`CREATE CONSTRAINT topic_name_unique IF NOT EXISTS FOR (t:Topic) REQUIRE t.name IS UNIQUE`,
	`CREATE CONSTRAINT author_id_unique IF NOT EXISTS FOR (au:Author) REQUIRE au.id IS UNIQUE`,
	`CREATE CONSTRAINT tag_name_unique IF NOT EXISTS FOR (tag:Tag) REQUIRE tag.name IS UNIQUE`,
	`CREATE INDEX topic_name_index IF NOT EXISTS FOR (t:Topic) ON (t.name)`,
	`CREATE INDEX article_title_index IF NOT EXISTS FOR (a:Article) ON (a.title)`,
	`CREATE INDEX tag_name_index IF NOT EXISTS FOR (tag:Tag) ON (tag.name)`,
	`CREATE INDEX article_traffic_index IF NOT EXISTS FOR (a:Article) ON (a.traffic)`,
}

const (
	cypherClearAll = `MATCH (n) DETACH DELETE n`

	cypherEnsureBaselineTopic = `
MERGE (t:Topic {name: $name})
  ON CREATE SET t.description = $description`

	cypherEnsureAuthors = `
UNWIND $rows AS row
MERGE (au:Author {id: row.id})
  ON CREATE SET au.name = row.name,
                au.affiliation = row.affiliation
WITH au
MATCH (t:Topic {name: $topic})
MERGE (au)-[:EXPERT_IN]->(t)`

	// Descriptive fields are set on first creation only; traffic is
	// refreshed on every run. The asymmetry is intentional.
	cypherUpsertArticles = `
UNWIND $rows AS row
MERGE (a:Article {id: row.id})
  ON CREATE SET a.title = row.title,
                a.source = $source,
                a.language = 'en'
SET a.traffic = row.traffic
WITH a, row
MATCH (t:Topic {name: $topic})
MERGE (a)-[:HAS_TOPIC]->(t)
WITH a, row
MATCH (au:Author {id: row.author_id})
MERGE (a)-[:WRITTEN_BY]->(au)`

	cypherUpsertTags = `
UNWIND $rows AS row
MATCH (a:Article {id: row.article_id})
MERGE (tag:Tag {name: row.tag})
MERGE (a)-[:HAS_TAG]->(tag)`

	// The edge list is undirected, so both directions are merged and the
	// score refreshed on each.
	cypherUpsertRelated = `
UNWIND $rows AS row
MATCH (a:Article {id: row.source})
MATCH (b:Article {id: row.target})
MERGE (a)-[r:RELATED_ARTICLE]->(b)
SET r.score = $score
MERGE (b)-[r2:RELATED_ARTICLE]->(a)
SET r2.score = $score`
)

// Pipeline loads a Dataset into the graph store as a sequence of
// idempotent, batched phases.
type Pipeline struct {
	writer GraphWriter
	opts   Options
}

// NewPipeline creates a pipeline writing through the given writer.
func NewPipeline(writer GraphWriter, opts Options) *Pipeline {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.MaxTagsPerArticle <= 0 {
		opts.MaxTagsPerArticle = DefaultMaxTagsPerArticle
	}
	return &Pipeline{writer: writer, opts: opts}
}

// Run executes the pipeline phases in order: optional reset, schema,
// baseline entities, articles, tags, related edges. Each phase's writes
// are fully committed before the next begins, since later phases match
// on entities created earlier.
func (p *Pipeline) Run(ctx context.Context, ds *Dataset) error {
	if p.opts.Reset {
		logger.Warn("Clearing existing graph state")
		if err := p.write(ctx, cypherClearAll, nil); err != nil {
			return fmt.Errorf("clearing graph: %w", err)
		}
	}

	if err := p.EnsureSchema(ctx); err != nil {
		return err
	}
	if err := p.ensureBaseline(ctx); err != nil {
		return err
	}
	if err := p.upsertArticles(ctx, ds.Targets); err != nil {
		return err
	}
	if err := p.upsertTags(ctx, ds.Features); err != nil {
		return err
	}
	if err := p.upsertRelated(ctx, ds.Edges); err != nil {
		return err
	}

	logger.Info("Ingestion finished",
		"articles", len(ds.Targets),
		"edges", len(ds.Edges),
	)
	return nil
}

// Clear removes all nodes and relationships from the store.
func (p *Pipeline) Clear(ctx context.Context) error {
	return p.write(ctx, cypherClearAll, nil)
}

// EnsureSchema creates the uniqueness constraints and secondary indexes
// the read queries rely on. Safe to run repeatedly.
func (p *Pipeline) EnsureSchema(ctx context.Context) error {
	for _, query := range schemaQueries {
		if err := p.write(ctx, query, nil); err != nil {
			return fmt.Errorf("ensuring schema: %w", err)
		}
	}
	logger.Info("Schema constraints and indexes ensured", "count", len(schemaQueries))
	return nil
}

// ensureBaseline merges the baseline topic and the fixed author pool,
// linked by EXPERT_IN. Identifiers are deterministic so reruns match the
// same nodes.
func (p *Pipeline) ensureBaseline(ctx context.Context) error {
	err := p.write(ctx, cypherEnsureBaselineTopic, map[string]any{
		"name":        baselineTopicName,
		"description": baselineTopicDescription,
	})
	if err != nil {
		return fmt.Errorf("ensuring baseline topic: %w", err)
	}

	rows := make([]map[string]any, 0, authorPoolSize)
	for i := 1; i <= authorPoolSize; i++ {
		rows = append(rows, map[string]any{
			"id":          authorID(int64(i - 1)),
			"name":        fmt.Sprintf("Import Author %d", i),
			"affiliation": "synthetic",
		})
	}
	err = p.write(ctx, cypherEnsureAuthors, map[string]any{
		"rows":  rows,
		"topic": baselineTopicName,
	})
	if err != nil {
		return fmt.Errorf("ensuring author pool: %w", err)
	}

	logger.Info("Baseline entities ensured", "topic", baselineTopicName, "authors", authorPoolSize)
	return nil
}

func (p *Pipeline) upsertArticles(ctx context.Context, targets []TargetRow) error {
	rows := make([]map[string]any, 0, len(targets))
	for _, target := range targets {
		title := target.Name
		if title == "" {
			title = "Article " + strconv.FormatInt(target.ID, 10)
		}
		rows = append(rows, map[string]any{
			"id":        strconv.FormatInt(target.ID, 10),
			"title":     title,
			"traffic":   target.Traffic,
			"author_id": authorID(target.ID),
		})
	}

	err := p.batched(ctx, rows, func(ctx context.Context, chunk []map[string]any) error {
		return p.write(ctx, cypherUpsertArticles, map[string]any{
			"rows":   chunk,
			"topic":  baselineTopicName,
			"source": articleSource,
		})
	})
	if err != nil {
		return fmt.Errorf("upserting articles: %w", err)
	}

	logger.Info("Articles upserted", "count", len(rows))
	return nil
}

func (p *Pipeline) upsertTags(ctx context.Context, features map[int64][]int64) error {
	ids := make([]int64, 0, len(features))
	for id := range features {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var rows []map[string]any
	capped := 0
	for _, id := range ids {
		tags := features[id]
		if len(tags) > p.opts.MaxTagsPerArticle {
			tags = tags[:p.opts.MaxTagsPerArticle]
			capped++
		}
		for _, tag := range tags {
			rows = append(rows, map[string]any{
				"article_id": strconv.FormatInt(id, 10),
				"tag":        "tag-" + strconv.FormatInt(tag, 10),
			})
		}
	}

	err := p.batched(ctx, rows, func(ctx context.Context, chunk []map[string]any) error {
		return p.write(ctx, cypherUpsertTags, map[string]any{"rows": chunk})
	})
	if err != nil {
		return fmt.Errorf("upserting tags: %w", err)
	}

	logger.Info("Tags upserted", "edges", len(rows), "capped_articles", capped)
	return nil
}

func (p *Pipeline) upsertRelated(ctx context.Context, edges []Edge) error {
	if p.opts.MaxEdges > 0 && len(edges) > p.opts.MaxEdges {
		edges = edges[:p.opts.MaxEdges]
	}

	rows := make([]map[string]any, 0, len(edges))
	skipped := 0
	for _, edge := range edges {
		if edge.Source == edge.Target {
			skipped++
			continue
		}
		rows = append(rows, map[string]any{
			"source": strconv.FormatInt(edge.Source, 10),
			"target": strconv.FormatInt(edge.Target, 10),
		})
	}

	err := p.batched(ctx, rows, func(ctx context.Context, chunk []map[string]any) error {
		return p.write(ctx, cypherUpsertRelated, map[string]any{
			"rows":  chunk,
			"score": relatedScore,
		})
	})
	if err != nil {
		return fmt.Errorf("upserting related edges: %w", err)
	}

	logger.Info("Related edges upserted", "count", len(rows), "self_loops_skipped", skipped)
	return nil
}

// batched partitions rows into fixed-size chunks and hands each chunk to
// fn, bounding per-call payload and round-trip count.
func (p *Pipeline) batched(ctx context.Context, rows []map[string]any, fn func(context.Context, []map[string]any) error) error {
	total := len(rows)
	for start := 0; start < total; start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, total)
		if err := fn(ctx, rows[start:end]); err != nil {
			return err
		}
		logger.Debug("Batch committed", "rows", end-start, "progress", fmt.Sprintf("%d/%d", end, total))
	}
	return nil
}

func (p *Pipeline) write(ctx context.Context, cypher string, params map[string]any) error {
	return util.RetryErrWithContext(ctx, writeMaxTries, func(ctx context.Context) error {
		return p.writer.Write(ctx, cypher, params)
	})
}

// authorID maps an article identifier onto the deterministic author pool.
func authorID(id int64) string {
	idx := id % authorPoolSize
	if idx < 0 {
		idx += authorPoolSize
	}
	return "author-" + strconv.FormatInt(idx+1, 10)
}
