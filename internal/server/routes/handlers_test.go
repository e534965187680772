package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator"
	"github.com/labstack/echo/v4"

	"wikigraph/internal/server/middleware"
	"wikigraph/pkg/graph"
)

type testValidator struct {
	validator *validator.Validate
}

func (v *testValidator) Validate(i any) error {
	return v.validator.Struct(i)
}

// fakeSession dispatches canned records off the query text.
type fakeSession struct {
	respond func(cypher string, params map[string]any) []graph.Record
	reads   int
}

func (f *fakeSession) ReadRecords(ctx context.Context, cypher string, params map[string]any) ([]graph.Record, error) {
	f.reads++
	if f.respond == nil {
		return nil, nil
	}
	return f.respond(cypher, params), nil
}

func (f *fakeSession) ReadSingle(ctx context.Context, cypher string, params map[string]any) (graph.Record, bool, error) {
	records, err := f.ReadRecords(ctx, cypher, params)
	if err != nil {
		return nil, false, err
	}
	if len(records) == 0 {
		return nil, false, nil
	}
	return records[0], true, nil
}

func (f *fakeSession) Write(ctx context.Context, cypher string, params map[string]any) error {
	return nil
}

func (f *fakeSession) Close(ctx context.Context) error {
	return nil
}

type fakeStore struct {
	sess    *fakeSession
	pingErr error
}

func (f *fakeStore) Session(ctx context.Context) graph.QuerySession { return f.sess }
func (f *fakeStore) Ping(ctx context.Context) error                 { return f.pingErr }
func (f *fakeStore) Close(ctx context.Context) error                { return nil }

// invoke runs a handler the way the server wires it: echo context with
// validator plus the app context middleware wrapper.
func invoke(t *testing.T, store graph.Store, target, path string, paramNames, paramValues []string, handler echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()

	e := echo.New()
	e.Validator = &testValidator{validator: validator.New()}

	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath(path)
	if len(paramNames) > 0 {
		c.SetParamNames(paramNames...)
		c.SetParamValues(paramValues...)
	}

	cc := &middleware.AppContext{Context: c, App: &middleware.App{Graph: store}}
	if err := handler(cc); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	body := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	return body
}

func TestHealthHandler(t *testing.T) {
	t.Run("StoreUp", func(t *testing.T) {
		store := &fakeStore{sess: &fakeSession{}}
		rec := invoke(t, store, "/health", "/health", nil, nil, HealthHandler)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "ok" || body["neo4j"] != "up" {
			t.Fatalf("unexpected body: %v", body)
		}
	})

	t.Run("StoreDownStill200", func(t *testing.T) {
		store := &fakeStore{sess: &fakeSession{}, pingErr: graph.ErrUnavailable}
		rec := invoke(t, store, "/health", "/health", nil, nil, HealthHandler)

		if rec.Code != http.StatusOK {
			t.Fatalf("probe must not fail with the store, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["status"] != "ok" || body["neo4j"] != "down" {
			t.Fatalf("unexpected body: %v", body)
		}
	})
}

func TestSearchHandler(t *testing.T) {
	t.Run("BlankQueryIs400WithoutStoreRoundTrip", func(t *testing.T) {
		sess := &fakeSession{}
		store := &fakeStore{sess: sess}
		rec := invoke(t, store, "/api/search?q=+", "/api/search", nil, nil, SearchHandler)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
		if sess.reads != 0 {
			t.Fatalf("blank query must not reach the store, got %d reads", sess.reads)
		}
	})

	t.Run("LimitOutOfRangeIs400", func(t *testing.T) {
		for _, limit := range []string{"0", "51", "-3"} {
			store := &fakeStore{sess: &fakeSession{}}
			rec := invoke(t, store, "/api/search?q=graph&limit="+limit, "/api/search", nil, nil, SearchHandler)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("limit %s: expected 400, got %d", limit, rec.Code)
			}
		}
	})

	t.Run("ReturnsEnrichedResults", func(t *testing.T) {
		sess := &fakeSession{respond: func(cypher string, params map[string]any) []graph.Record {
			if params["limit"] != graph.DefaultLimit {
				t.Fatalf("expected default limit, got %v", params["limit"])
			}
			return []graph.Record{{
				"a": map[string]any{
					"id":    "article-1",
					"title": "Building a Company Knowledge Graph",
				},
				"topics": []any{map[string]any{"name": "Knowledge Graphs"}},
				"tags":   []any{map[string]any{"name": "graph"}},
			}}
		}}
		store := &fakeStore{sess: sess}
		rec := invoke(t, store, "/api/search?q=graph", "/api/search", nil, nil, SearchHandler)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["query"] != "graph" {
			t.Fatalf("unexpected query echo: %v", body["query"])
		}
		results := body["results"].([]any)
		if len(results) != 1 {
			t.Fatalf("expected 1 result, got %d", len(results))
		}
		first := results[0].(map[string]any)
		if _, ok := first["topics"]; !ok {
			t.Fatal("result missing topics field")
		}
		if _, ok := first["tags"]; !ok {
			t.Fatal("result missing tags field")
		}
	})
}

func TestRelatedArticlesHandler(t *testing.T) {
	t.Run("UnknownArticleIs404", func(t *testing.T) {
		store := &fakeStore{sess: &fakeSession{}}
		rec := invoke(t, store, "/api/articles/missing/related", "/api/articles/:article_id/related",
			[]string{"article_id"}, []string{"missing"}, RelatedArticlesHandler)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if msg, _ := body["message"].(string); !strings.Contains(msg, "missing") {
			t.Fatalf("expected descriptive message, got %v", body)
		}
	})

	t.Run("OrderedByDescendingScore", func(t *testing.T) {
		sess := &fakeSession{respond: func(cypher string, params map[string]any) []graph.Record {
			if strings.Contains(cypher, "RETURN a LIMIT 1") {
				return []graph.Record{{"a": map[string]any{"id": "article-1", "title": "Building a Company Knowledge Graph"}}}
			}
			return []graph.Record{
				{"other": map[string]any{"id": "article-2", "title": "Introduction to Knowledge Graphs"}, "score": 0.9},
				{"other": map[string]any{"id": "article-3", "title": "Using Graphs for Semantic Search"}, "score": 0.7},
			}
		}}
		store := &fakeStore{sess: sess}
		rec := invoke(t, store, "/api/articles/article-1/related", "/api/articles/:article_id/related",
			[]string{"article_id"}, []string{"article-1"}, RelatedArticlesHandler)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["article_id"] != "article-1" {
			t.Fatalf("unexpected article_id: %v", body["article_id"])
		}
		related := body["related"].([]any)
		if len(related) != 2 {
			t.Fatalf("expected 2 related, got %d", len(related))
		}
		firstArticle := related[0].(map[string]any)["article"].(map[string]any)
		if firstArticle["id"] != "article-2" {
			t.Fatalf("expected article-2 first, got %v", firstArticle["id"])
		}
	})
}

func TestTopicGraphHandler(t *testing.T) {
	t.Run("UnknownTopicIs404", func(t *testing.T) {
		store := &fakeStore{sess: &fakeSession{}}
		rec := invoke(t, store, "/api/topics/Nope/graph", "/api/topics/:topic_id/graph",
			[]string{"topic_id"}, []string{"Nope"}, TopicGraphHandler)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("UnescapesTopicName", func(t *testing.T) {
		var seenName any
		sess := &fakeSession{respond: func(cypher string, params map[string]any) []graph.Record {
			seenName = params["name"]
			if strings.Contains(cypher, "RETURN t LIMIT 1") {
				return []graph.Record{{"t": map[string]any{"name": "Artificial Intelligence"}}}
			}
			return []graph.Record{{
				"related_topics": []any{
					map[string]any{"name": "Machine Learning"},
					map[string]any{"name": "Knowledge Graphs"},
				},
				"articles": []any{},
				"authors":  []any{},
			}}
		}}
		store := &fakeStore{sess: sess}
		rec := invoke(t, store, "/api/topics/Artificial%20Intelligence/graph", "/api/topics/:topic_id/graph",
			[]string{"topic_id"}, []string{"Artificial%20Intelligence"}, TopicGraphHandler)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		if seenName != "Artificial Intelligence" {
			t.Fatalf("expected unescaped topic name, store saw %v", seenName)
		}

		body := decodeBody(t, rec)
		relatedTopics := body["related_topics"].([]any)
		names := map[string]bool{}
		for _, rt := range relatedTopics {
			names[rt.(map[string]any)["name"].(string)] = true
		}
		if !names["Machine Learning"] || !names["Knowledge Graphs"] {
			t.Fatalf("unexpected related topics: %v", relatedTopics)
		}
	})

	t.Run("DepthOutOfRangeIs400", func(t *testing.T) {
		store := &fakeStore{sess: &fakeSession{}}
		rec := invoke(t, store, "/api/topics/AI/graph?depth=3", "/api/topics/:topic_id/graph",
			[]string{"topic_id"}, []string{"AI"}, TopicGraphHandler)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestAuthorContributionsHandler(t *testing.T) {
	t.Run("UnknownAuthorIs404", func(t *testing.T) {
		store := &fakeStore{sess: &fakeSession{}}
		rec := invoke(t, store, "/api/authors/missing/contributions", "/api/authors/:author_id/contributions",
			[]string{"author_id"}, []string{"missing"}, AuthorContributionsHandler)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("AuthorWithoutArticlesIsEmptyNotError", func(t *testing.T) {
		sess := &fakeSession{respond: func(cypher string, params map[string]any) []graph.Record {
			if strings.Contains(cypher, "RETURN au LIMIT 1") {
				return []graph.Record{{"au": map[string]any{"id": "author-9", "name": "Dana Quiet"}}}
			}
			return []graph.Record{{"articles": []any{}, "topics": []any{}, "tags": []any{}}}
		}}
		store := &fakeStore{sess: sess}
		rec := invoke(t, store, "/api/authors/author-9/contributions", "/api/authors/:author_id/contributions",
			[]string{"author_id"}, []string{"author-9"}, AuthorContributionsHandler)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		for _, field := range []string{"articles", "topics", "tags"} {
			list, ok := body[field].([]any)
			if !ok {
				t.Fatalf("field %s must be a JSON array, got %T", field, body[field])
			}
			if len(list) != 0 {
				t.Fatalf("expected empty %s, got %v", field, list)
			}
		}
	})
}
