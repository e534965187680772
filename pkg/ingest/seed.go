package ingest

import (
	"context"
	"fmt"

	"wikigraph/pkg/logger"
)

// cypherSeedSample merges a small development dataset exercising every
// node label and relationship type. All statements are MERGE so the seed
// can be re-run without duplicating anything.
const cypherSeedSample = `
// Topics
MERGE (t_ai:Topic {name: 'Artificial Intelligence'})
  ON CREATE SET t_ai.description = 'Study of intelligent agents and systems.'

MERGE (t_kg:Topic {name: 'Knowledge Graphs'})
  ON CREATE SET t_kg.description = 'Graphs that store entities and their relationships.'

MERGE (t_ml:Topic {name: 'Machine Learning'})
  ON CREATE SET t_ml.description = 'Algorithms that learn from data.'

MERGE (t_nlp:Topic {name: 'Natural Language Processing'})
  ON CREATE SET t_nlp.description = 'Processing and understanding human language.'

// Topic relations, mirrored in both directions by convention
MERGE (t_ai)-[:RELATED_TO_TOPIC]->(t_ml)
MERGE (t_ml)-[:RELATED_TO_TOPIC]->(t_ai)
MERGE (t_ai)-[:RELATED_TO_TOPIC]->(t_kg)
MERGE (t_kg)-[:RELATED_TO_TOPIC]->(t_ai)
MERGE (t_ml)-[:RELATED_TO_TOPIC]->(t_nlp)
MERGE (t_nlp)-[:RELATED_TO_TOPIC]->(t_ml)

// Authors
MERGE (a1:Author {id: 'author-1'})
  ON CREATE SET a1.name = 'Alice Smith',
                a1.affiliation = 'Research Lab X'

MERGE (a2:Author {id: 'author-2'})
  ON CREATE SET a2.name = 'Bob Johnson',
                a2.affiliation = 'University Y'

MERGE (a3:Author {id: 'author-3'})
  ON CREATE SET a3.name = 'Carol Lee',
                a3.affiliation = 'Data Science Team Z'

MERGE (a1)-[:EXPERT_IN]->(t_kg)
MERGE (a1)-[:EXPERT_IN]->(t_ai)
MERGE (a2)-[:EXPERT_IN]->(t_ml)
MERGE (a3)-[:EXPERT_IN]->(t_nlp)

// Tags
MERGE (tag_graph:Tag {name: 'graph'})
MERGE (tag_reco:Tag {name: 'recommendation'})
MERGE (tag_nlp:Tag {name: 'nlp'})
MERGE (tag_search:Tag {name: 'search'})
MERGE (tag_kg:Tag {name: 'knowledge-graph'})

// Articles
MERGE (art1:Article {id: 'article-1'})
  ON CREATE SET art1.title = 'Building a Company Knowledge Graph',
                art1.summary = 'How to design and deploy a knowledge graph for internal documentation.',
                art1.url = 'https://example.com/article-1',
                art1.source = 'demo',
                art1.language = 'en'

MERGE (art2:Article {id: 'article-2'})
  ON CREATE SET art2.title = 'Introduction to Knowledge Graphs',
                art2.summary = 'Core concepts and use cases for knowledge graphs.',
                art2.url = 'https://example.com/article-2',
                art2.source = 'demo',
                art2.language = 'en'

MERGE (art3:Article {id: 'article-3'})
  ON CREATE SET art3.title = 'Using Graphs for Semantic Search',
                art3.summary = 'Leverage graph structures to provide semantic search in an enterprise wiki.',
                art3.url = 'https://example.com/article-3',
                art3.source = 'demo',
                art3.language = 'en'

// Article topics
MERGE (art1)-[:HAS_TOPIC]->(t_kg)
MERGE (art1)-[:HAS_TOPIC]->(t_ai)
MERGE (art2)-[:HAS_TOPIC]->(t_kg)
MERGE (art3)-[:HAS_TOPIC]->(t_ai)
MERGE (art3)-[:HAS_TOPIC]->(t_nlp)

// Article tags
MERGE (art1)-[:HAS_TAG]->(tag_kg)
MERGE (art1)-[:HAS_TAG]->(tag_graph)
MERGE (art1)-[:HAS_TAG]->(tag_search)
MERGE (art2)-[:HAS_TAG]->(tag_kg)
MERGE (art3)-[:HAS_TAG]->(tag_graph)
MERGE (art3)-[:HAS_TAG]->(tag_reco)
MERGE (art3)-[:HAS_TAG]->(tag_nlp)

// Article authors
MERGE (art1)-[:WRITTEN_BY]->(a1)
MERGE (art2)-[:WRITTEN_BY]->(a1)
MERGE (art2)-[:WRITTEN_BY]->(a2)
MERGE (art3)-[:WRITTEN_BY]->(a3)

// Related article suggestions, mirrored with their scores
MERGE (art1)-[:RELATED_ARTICLE {score: 0.9}]->(art2)
MERGE (art2)-[:RELATED_ARTICLE {score: 0.9}]->(art1)
MERGE (art1)-[:RELATED_ARTICLE {score: 0.7}]->(art3)
MERGE (art3)-[:RELATED_ARTICLE {score: 0.7}]->(art1)`

// SeedSample ensures schema and merges the sample development data.
func (p *Pipeline) SeedSample(ctx context.Context) error {
	if p.opts.Reset {
		logger.Warn("Clearing existing graph state")
		if err := p.write(ctx, cypherClearAll, nil); err != nil {
			return fmt.Errorf("clearing graph: %w", err)
		}
	}

	if err := p.EnsureSchema(ctx); err != nil {
		return err
	}

	if err := p.write(ctx, cypherSeedSample, nil); err != nil {
		return fmt.Errorf("seeding sample data: %w", err)
	}

	logger.Info("Sample data seeded")
	return nil
}
