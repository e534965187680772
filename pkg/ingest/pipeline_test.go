package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type recordedWrite struct {
	cypher string
	params map[string]any
}

// fakeWriter records every statement; it can fail the first N calls to
// exercise the retry path.
type fakeWriter struct {
	writes    []recordedWrite
	failFirst int
	calls     int
}

func (f *fakeWriter) Write(ctx context.Context, cypher string, params map[string]any) error {
	f.calls++
	if f.calls <= f.failFirst {
		return errors.New("transient write failure")
	}
	f.writes = append(f.writes, recordedWrite{cypher: cypher, params: params})
	return nil
}

func (f *fakeWriter) byCypher(cypher string) []recordedWrite {
	var out []recordedWrite
	for _, w := range f.writes {
		if w.cypher == cypher {
			out = append(out, w)
		}
	}
	return out
}

func rowsParam(t *testing.T, w recordedWrite) []map[string]any {
	t.Helper()
	rows, ok := w.params["rows"].([]map[string]any)
	if !ok {
		t.Fatalf("statement has no rows param: %+v", w.params)
	}
	return rows
}

func sampleDataset() *Dataset {
	return &Dataset{
		Edges: []Edge{
			{Source: 0, Target: 1},
			{Source: 1, Target: 2},
			{Source: 2, Target: 2}, // self-loop, must be skipped
		},
		Features: map[int64][]int64{
			0: {3, 7},
			1: {7},
		},
		Targets: []TargetRow{
			{ID: 0, Name: "Graph Databases", Traffic: 120.5},
			{ID: 1, Name: "Cypher Basics", Traffic: 88},
			{ID: 2, Name: "", Traffic: 3},
		},
	}
}

func TestPipelineRunPhaseOrder(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{Reset: true})

	if err := p.Run(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(writer.writes) == 0 {
		t.Fatal("expected writes")
	}
	if writer.writes[0].cypher != cypherClearAll {
		t.Fatalf("reset must run first, got %q", writer.writes[0].cypher)
	}

	// Phases must appear in order: schema, baseline, articles, tags, related.
	order := []string{
		schemaQueries[0],
		cypherEnsureBaselineTopic,
		cypherEnsureAuthors,
		cypherUpsertArticles,
		cypherUpsertTags,
		cypherUpsertRelated,
	}
	last := -1
	for _, cypher := range order {
		idx := -1
		for i, w := range writer.writes {
			if w.cypher == cypher {
				idx = i
				break
			}
		}
		if idx < 0 {
			t.Fatalf("statement never issued:\n%s", cypher)
		}
		if idx <= last {
			t.Fatalf("phase out of order at:\n%s", cypher)
		}
		last = idx
	}
}

func TestPipelineNoResetSkipsClear(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{})

	if err := p.Run(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(writer.byCypher(cypherClearAll)) != 0 {
		t.Fatal("clear must not run without Reset")
	}
}

func TestPipelineBatchesArticles(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{BatchSize: 2})

	if err := p.Run(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := writer.byCypher(cypherUpsertArticles)
	if len(batches) != 2 {
		t.Fatalf("expected 2 article batches for 3 rows at batch size 2, got %d", len(batches))
	}
	if got := len(rowsParam(t, batches[0])); got != 2 {
		t.Fatalf("expected 2 rows in first batch, got %d", got)
	}
	if got := len(rowsParam(t, batches[1])); got != 1 {
		t.Fatalf("expected 1 row in second batch, got %d", got)
	}
}

func TestPipelineArticleRows(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{})

	if err := p.Run(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := writer.byCypher(cypherUpsertArticles)
	if len(batches) != 1 {
		t.Fatalf("expected 1 article batch, got %d", len(batches))
	}
	rows := rowsParam(t, batches[0])

	if rows[0]["id"] != "0" || rows[0]["title"] != "Graph Databases" {
		t.Fatalf("unexpected first row: %+v", rows[0])
	}
	// Deterministic author assignment: id mod pool size.
	if rows[0]["author_id"] != "author-1" || rows[1]["author_id"] != "author-2" || rows[2]["author_id"] != "author-3" {
		t.Fatalf("unexpected author assignment: %v, %v, %v",
			rows[0]["author_id"], rows[1]["author_id"], rows[2]["author_id"])
	}
	// Nameless targets get a synthesized title.
	if rows[2]["title"] != "Article 2" {
		t.Fatalf("unexpected fallback title: %v", rows[2]["title"])
	}
}

func TestPipelineCapsTagsPerArticle(t *testing.T) {
	features := make([]int64, 45)
	for i := range features {
		features[i] = int64(i)
	}
	ds := &Dataset{
		Features: map[int64][]int64{0: features},
		Targets:  []TargetRow{{ID: 0, Name: "Heavy", Traffic: 1}},
	}

	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{})

	if err := p.Run(context.Background(), ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := writer.byCypher(cypherUpsertTags)
	total := 0
	for _, b := range batches {
		total += len(rowsParam(t, b))
	}
	if total != DefaultMaxTagsPerArticle {
		t.Fatalf("expected %d tag rows after cap, got %d", DefaultMaxTagsPerArticle, total)
	}
}

func TestPipelineRelatedEdges(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{})

	if err := p.Run(context.Background(), sampleDataset()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := writer.byCypher(cypherUpsertRelated)
	if len(batches) != 1 {
		t.Fatalf("expected 1 related batch, got %d", len(batches))
	}
	rows := rowsParam(t, batches[0])
	if len(rows) != 2 {
		t.Fatalf("self-loop must be skipped: expected 2 rows, got %d", len(rows))
	}
	for _, row := range rows {
		if row["source"] == row["target"] {
			t.Fatalf("self-loop row survived: %+v", row)
		}
	}
	if batches[0].params["score"] != relatedScore {
		t.Fatalf("expected score param %v, got %v", relatedScore, batches[0].params["score"])
	}
	// Both directions are written by the statement itself.
	if !strings.Contains(cypherUpsertRelated, "(b)-[r2:RELATED_ARTICLE]->(a)") {
		t.Fatal("related statement must mirror the edge")
	}
}

func TestPipelineMaxEdgesCap(t *testing.T) {
	ds := sampleDataset()
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{MaxEdges: 1})

	if err := p.Run(context.Background(), ds); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	batches := writer.byCypher(cypherUpsertRelated)
	if len(batches) != 1 {
		t.Fatalf("expected 1 related batch, got %d", len(batches))
	}
	if got := len(rowsParam(t, batches[0])); got != 1 {
		t.Fatalf("expected 1 row with MaxEdges=1, got %d", got)
	}
}

func TestPipelineIdempotentStatementStream(t *testing.T) {
	run := func() []recordedWrite {
		writer := &fakeWriter{}
		p := NewPipeline(writer, Options{BatchSize: 2})
		if err := p.Run(context.Background(), sampleDataset()); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return writer.writes
	}

	first := run()
	second := run()

	if len(first) != len(second) {
		t.Fatalf("statement counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].cypher != second[i].cypher {
			t.Fatalf("statement %d differs between runs", i)
		}
	}
}

func TestPipelineRetriesTransientWrites(t *testing.T) {
	t.Run("RecoversWithinBudget", func(t *testing.T) {
		writer := &fakeWriter{failFirst: writeMaxTries - 1}
		p := NewPipeline(writer, Options{})
		if err := p.Run(context.Background(), sampleDataset()); err != nil {
			t.Fatalf("expected retries to recover, got %v", err)
		}
	})

	t.Run("GivesUpAfterBudget", func(t *testing.T) {
		writer := &fakeWriter{failFirst: 1000}
		p := NewPipeline(writer, Options{})
		if err := p.Run(context.Background(), sampleDataset()); err == nil {
			t.Fatal("expected error after retry budget exhausted")
		}
	})
}

func TestSeedSample(t *testing.T) {
	writer := &fakeWriter{}
	p := NewPipeline(writer, Options{})

	if err := p.SeedSample(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(writer.byCypher(cypherClearAll)) != 0 {
		t.Fatal("seed without Reset must not clear")
	}
	if len(writer.byCypher(schemaQueries[0])) != 1 {
		t.Fatal("seed must ensure schema")
	}
	seeds := writer.byCypher(cypherSeedSample)
	if len(seeds) != 1 {
		t.Fatalf("expected 1 seed statement, got %d", len(seeds))
	}
	for _, rel := range []string{"RELATED_TO_TOPIC", "HAS_TOPIC", "HAS_TAG", "WRITTEN_BY", "RELATED_ARTICLE", "EXPERT_IN"} {
		if !strings.Contains(cypherSeedSample, rel) {
			t.Fatalf("seed statement missing %s", rel)
		}
	}
}
