package graph

import (
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// Article is a node in the knowledge graph representing one piece of
// content. ID is the unique key; Traffic is a popularity score sourced
// from ingestion and absent on hand-seeded articles.
type Article struct {
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Summary  *string  `json:"summary,omitempty"`
	URL      *string  `json:"url,omitempty"`
	Source   *string  `json:"source,omitempty"`
	Language *string  `json:"language,omitempty"`
	Traffic  *float64 `json:"traffic,omitempty"`
}

// Topic is a subject area node, keyed by name.
type Topic struct {
	Name        string  `json:"name"`
	Description *string `json:"description,omitempty"`
}

// Author is a contributor node, keyed by id.
type Author struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Affiliation *string `json:"affiliation,omitempty"`
}

// Tag is a free-form label node, keyed by name.
type Tag struct {
	Name string `json:"name"`
}

// ArticleWithContext is an article enriched with all of its linked
// topics and tags.
type ArticleWithContext struct {
	Article
	Topics []Topic `json:"topics"`
	Tags   []Tag   `json:"tags"`
}

// RelatedArticle is one outbound RELATED_ARTICLE neighbor with its score.
type RelatedArticle struct {
	Article Article `json:"article"`
	Score   float64 `json:"score"`
}

// TopicGraph is the one-hop neighborhood around a topic.
type TopicGraph struct {
	Topic         Topic     `json:"topic"`
	RelatedTopics []Topic   `json:"related_topics"`
	Articles      []Article `json:"articles"`
	Authors       []Author  `json:"authors"`
}

// AuthorContributions collects the distinct articles an author wrote and
// the topics and tags linked to those articles.
type AuthorContributions struct {
	Author   Author    `json:"author"`
	Articles []Article `json:"articles"`
	Topics   []Topic   `json:"topics"`
	Tags     []Tag     `json:"tags"`
}

// nodeProps extracts the property map from a node value. Live results
// carry dbtype.Node; fake stores in tests return plain property maps.
// The second result is false for nil values, so optional traversals that
// matched nothing are filtered instead of mapped.
func nodeProps(v any) (map[string]any, bool) {
	switch n := v.(type) {
	case dbtype.Node:
		return n.Props, true
	case map[string]any:
		return n, true
	default:
		return nil, false
	}
}

// ArticleFromNode maps a raw Article node to its typed record.
// A node missing its key attributes is a contract violation and fails.
func ArticleFromNode(v any) (Article, error) {
	props, ok := nodeProps(v)
	if !ok {
		return Article{}, fmt.Errorf("article: not a node value (%T)", v)
	}

	id, ok := stringProp(props, "id")
	if !ok {
		return Article{}, fmt.Errorf("article node missing required property %q", "id")
	}
	title, ok := stringProp(props, "title")
	if !ok {
		return Article{}, fmt.Errorf("article node %q missing required property %q", id, "title")
	}

	return Article{
		ID:       id,
		Title:    title,
		Summary:  optStringProp(props, "summary"),
		URL:      optStringProp(props, "url"),
		Source:   optStringProp(props, "source"),
		Language: optStringProp(props, "language"),
		Traffic:  optFloatProp(props, "traffic"),
	}, nil
}

// TopicFromNode maps a raw Topic node to its typed record.
func TopicFromNode(v any) (Topic, error) {
	props, ok := nodeProps(v)
	if !ok {
		return Topic{}, fmt.Errorf("topic: not a node value (%T)", v)
	}

	name, ok := stringProp(props, "name")
	if !ok {
		return Topic{}, fmt.Errorf("topic node missing required property %q", "name")
	}

	return Topic{
		Name:        name,
		Description: optStringProp(props, "description"),
	}, nil
}

// AuthorFromNode maps a raw Author node to its typed record.
func AuthorFromNode(v any) (Author, error) {
	props, ok := nodeProps(v)
	if !ok {
		return Author{}, fmt.Errorf("author: not a node value (%T)", v)
	}

	id, ok := stringProp(props, "id")
	if !ok {
		return Author{}, fmt.Errorf("author node missing required property %q", "id")
	}
	name, ok := stringProp(props, "name")
	if !ok {
		return Author{}, fmt.Errorf("author node %q missing required property %q", id, "name")
	}

	return Author{
		ID:          id,
		Name:        name,
		Affiliation: optStringProp(props, "affiliation"),
	}, nil
}

// TagFromNode maps a raw Tag node to its typed record.
func TagFromNode(v any) (Tag, error) {
	props, ok := nodeProps(v)
	if !ok {
		return Tag{}, fmt.Errorf("tag: not a node value (%T)", v)
	}

	name, ok := stringProp(props, "name")
	if !ok {
		return Tag{}, fmt.Errorf("tag node missing required property %q", "name")
	}

	return Tag{Name: name}, nil
}

func stringProp(props map[string]any, key string) (string, bool) {
	v, ok := props[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// optStringProp maps a missing or null optional attribute to nil,
// never to an empty string.
func optStringProp(props map[string]any, key string) *string {
	s, ok := stringProp(props, key)
	if !ok {
		return nil
	}
	return &s
}

func optFloatProp(props map[string]any, key string) *float64 {
	v, ok := props[key]
	if !ok {
		return nil
	}
	switch n := v.(type) {
	case float64:
		return &n
	case int64:
		f := float64(n)
		return &f
	default:
		return nil
	}
}

// asFloat coerces a scalar query value to float64, defaulting to 0.0 for
// nil or non-numeric values.
func asFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int64:
		return float64(n)
	default:
		return 0.0
	}
}

// asList coerces a collected query value to a slice. Nil collects map to
// an empty slice.
func asList(v any) []any {
	if l, ok := v.([]any); ok {
		return l
	}
	return nil
}
