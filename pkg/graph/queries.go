package graph

import (
	"context"
	"fmt"
	"strings"
)

// Query limits shared by all article-returning templates.
const (
	MinLimit     = 1
	MaxLimit     = 50
	DefaultLimit = 10
)

// The Cypher templates below are an internal, versioned protocol to the
// store. Input parameters and output fields are fixed per template; the
// functions in this file are the only callers.
const (
	cypherArticleExists = `MATCH (a:Article {id: $article_id}) RETURN a LIMIT 1`
	cypherTopicExists   = `MATCH (t:Topic {name: $name}) RETURN t LIMIT 1`
	cypherAuthorExists  = `MATCH (au:Author {id: $id}) RETURN au LIMIT 1`

	// Params: q, limit. Fields: a, topics, tags.
	// Matches on title, summary, linked topic names and linked tag names;
	// each hit is enriched with the full set of its topics and tags.
	cypherSearchArticles = `
MATCH (a:Article)
WHERE toLower(a.title) CONTAINS toLower($q)
   OR toLower(coalesce(a.summary, '')) CONTAINS toLower($q)
   OR EXISTS { MATCH (a)-[:HAS_TOPIC]->(t:Topic) WHERE toLower(t.name) CONTAINS toLower($q) }
   OR EXISTS { MATCH (a)-[:HAS_TAG]->(tag:Tag) WHERE toLower(tag.name) CONTAINS toLower($q) }
WITH a
LIMIT $limit
OPTIONAL MATCH (a)-[:HAS_TOPIC]->(t:Topic)
OPTIONAL MATCH (a)-[:HAS_TAG]->(tag:Tag)
RETURN a,
       collect(DISTINCT t)   AS topics,
       collect(DISTINCT tag) AS tags`

	// Params: article_id, limit. Fields: other, score.
	// Outbound RELATED_ARTICLE only; inbound edges are intentionally
	// ignored. Missing scores sort and map as 0.0.
	cypherRelatedArticles = `
MATCH (a:Article {id: $article_id})
OPTIONAL MATCH (a)-[r:RELATED_ARTICLE]->(other:Article)
RETURN other, coalesce(r.score, 0.0) AS score
ORDER BY score DESC
LIMIT $limit`

	// Params: name. Fields: related_topics, articles, authors.
	// RELATED_TO_TOPIC is stored symmetrically, so the hop is undirected.
	cypherTopicGraph = `
MATCH (t:Topic {name: $name})
OPTIONAL MATCH (t)-[:RELATED_TO_TOPIC]-(rt:Topic)
OPTIONAL MATCH (t)<-[:HAS_TOPIC]-(a:Article)
OPTIONAL MATCH (a)-[:WRITTEN_BY]->(au:Author)
RETURN
    collect(DISTINCT rt)  AS related_topics,
    collect(DISTINCT a)   AS articles,
    collect(DISTINCT au)  AS authors`

	// Params: id. Fields: articles, topics, tags.
	cypherAuthorContributions = `
MATCH (au:Author {id: $id})
OPTIONAL MATCH (au)<-[:WRITTEN_BY]-(art:Article)
OPTIONAL MATCH (art)-[:HAS_TOPIC]->(t:Topic)
OPTIONAL MATCH (art)-[:HAS_TAG]->(tag:Tag)
RETURN
    collect(DISTINCT art) AS articles,
    collect(DISTINCT t)   AS topics,
    collect(DISTINCT tag) AS tags`
)

// Search returns up to limit articles whose title, summary, linked topic
// names or linked tag names contain query, case-insensitively. A blank
// query is rejected before any store round-trip.
func Search(ctx context.Context, s QuerySession, query string, limit int) ([]ArticleWithContext, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query must not be empty", ErrInvalidInput)
	}
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	records, err := s.ReadRecords(ctx, cypherSearchArticles, map[string]any{
		"q":     query,
		"limit": limit,
	})
	if err != nil {
		return nil, err
	}

	results := make([]ArticleWithContext, 0, len(records))
	for _, rec := range records {
		article, err := ArticleFromNode(rec["a"])
		if err != nil {
			return nil, err
		}

		topics, err := topicsFromList(rec["topics"])
		if err != nil {
			return nil, err
		}
		tags, err := tagsFromList(rec["tags"])
		if err != nil {
			return nil, err
		}

		results = append(results, ArticleWithContext{
			Article: article,
			Topics:  topics,
			Tags:    tags,
		})
	}

	return results, nil
}

// RelatedArticles returns the outbound RELATED_ARTICLE neighbors of the
// given article ordered by descending score. An unknown article is
// ErrNotFound; an article with no outbound relations yields an empty list.
func RelatedArticles(ctx context.Context, s QuerySession, articleID string, limit int) ([]RelatedArticle, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	_, ok, err := s.ReadSingle(ctx, cypherArticleExists, map[string]any{"article_id": articleID})
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("article %q: %w", articleID, ErrNotFound)
	}

	records, err := s.ReadRecords(ctx, cypherRelatedArticles, map[string]any{
		"article_id": articleID,
		"limit":      limit,
	})
	if err != nil {
		return nil, err
	}

	related := make([]RelatedArticle, 0, len(records))
	for _, rec := range records {
		// The optional match yields one all-null row when the article has
		// no outbound relations.
		if rec["other"] == nil {
			continue
		}
		article, err := ArticleFromNode(rec["other"])
		if err != nil {
			return nil, err
		}
		related = append(related, RelatedArticle{
			Article: article,
			Score:   asFloat(rec["score"]),
		})
	}

	return related, nil
}

// TopicGraphByName returns the one-hop neighborhood of the named topic:
// related topics, articles tagged with it and the authors of those
// articles. Only one hop is traversed regardless of depth; callers may
// request depth 2 but it is not honored yet.
func TopicGraphByName(ctx context.Context, s QuerySession, name string) (TopicGraph, error) {
	rec, ok, err := s.ReadSingle(ctx, cypherTopicExists, map[string]any{"name": name})
	if err != nil {
		return TopicGraph{}, err
	}
	if !ok {
		return TopicGraph{}, fmt.Errorf("topic %q: %w", name, ErrNotFound)
	}

	topic, err := TopicFromNode(rec["t"])
	if err != nil {
		return TopicGraph{}, err
	}

	rec, ok, err = s.ReadSingle(ctx, cypherTopicGraph, map[string]any{"name": name})
	if err != nil {
		return TopicGraph{}, err
	}

	result := TopicGraph{
		Topic:         topic,
		RelatedTopics: []Topic{},
		Articles:      []Article{},
		Authors:       []Author{},
	}
	if !ok {
		return result, nil
	}

	if result.RelatedTopics, err = topicsFromList(rec["related_topics"]); err != nil {
		return TopicGraph{}, err
	}
	if result.Articles, err = articlesFromList(rec["articles"]); err != nil {
		return TopicGraph{}, err
	}
	if result.Authors, err = authorsFromList(rec["authors"]); err != nil {
		return TopicGraph{}, err
	}

	return result, nil
}

// ContributionsByAuthor returns the distinct articles written by the given
// author and the distinct topics and tags linked to those articles. An
// author with zero articles yields empty collections, not an error.
func ContributionsByAuthor(ctx context.Context, s QuerySession, authorID string) (AuthorContributions, error) {
	rec, ok, err := s.ReadSingle(ctx, cypherAuthorExists, map[string]any{"id": authorID})
	if err != nil {
		return AuthorContributions{}, err
	}
	if !ok {
		return AuthorContributions{}, fmt.Errorf("author %q: %w", authorID, ErrNotFound)
	}

	author, err := AuthorFromNode(rec["au"])
	if err != nil {
		return AuthorContributions{}, err
	}

	rec, ok, err = s.ReadSingle(ctx, cypherAuthorContributions, map[string]any{"id": authorID})
	if err != nil {
		return AuthorContributions{}, err
	}

	result := AuthorContributions{
		Author:   author,
		Articles: []Article{},
		Topics:   []Topic{},
		Tags:     []Tag{},
	}
	if !ok {
		return result, nil
	}

	if result.Articles, err = articlesFromList(rec["articles"]); err != nil {
		return AuthorContributions{}, err
	}
	if result.Topics, err = topicsFromList(rec["topics"]); err != nil {
		return AuthorContributions{}, err
	}
	if result.Tags, err = tagsFromList(rec["tags"]); err != nil {
		return AuthorContributions{}, err
	}

	return result, nil
}

func checkLimit(limit int) error {
	if limit < MinLimit || limit > MaxLimit {
		return fmt.Errorf("%w: limit must be between %d and %d", ErrInvalidInput, MinLimit, MaxLimit)
	}
	return nil
}

// The *FromList helpers map collected node lists, skipping null entries
// so an optional traversal that matched nothing never produces a phantom
// record.

func topicsFromList(v any) ([]Topic, error) {
	items := asList(v)
	out := make([]Topic, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		topic, err := TopicFromNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, topic)
	}
	return out, nil
}

func tagsFromList(v any) ([]Tag, error) {
	items := asList(v)
	out := make([]Tag, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		tag, err := TagFromNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, tag)
	}
	return out, nil
}

func articlesFromList(v any) ([]Article, error) {
	items := asList(v)
	out := make([]Article, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		article, err := ArticleFromNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, article)
	}
	return out, nil
}

func authorsFromList(v any) ([]Author, error) {
	items := asList(v)
	out := make([]Author, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		author, err := AuthorFromNode(item)
		if err != nil {
			return nil, err
		}
		out = append(out, author)
	}
	return out, nil
}
