package mcpserver

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/hyperjump/scireview/internal/collection"
	"github.com/hyperjump/scireview/internal/embedding"
	"github.com/hyperjump/scireview/internal/models"
	"github.com/hyperjump/scireview/internal/tools"
)

func connect(t *testing.T) *mcp.ClientSession {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	coll, err := collection.Open(ctx, collection.Options{
		DatabasePath: filepath.Join(t.TempDir(), "records.db"),
		Embedder:     embedding.NewHashEmbedder(256),
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { coll.Close() })
	_, err = coll.Upsert(ctx, []models.Chunk{
		{Index: "id0", Text: "superconductivity at high pressure", Metadata: map[string]string{models.MetaArea: "physics", models.MetaTitle: "Superconductors"}},
		{Index: "id1", Text: "plant photosynthesis efficiency", Metadata: map[string]string{models.MetaArea: "biology"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	if _, err := NewServer(coll, nil).Connect(ctx, serverTransport); err != nil {
		t.Fatalf("server connect: %v", err)
	}
	client := mcp.NewClient(&mcp.Implementation{Name: "client", Version: "v0.0.1"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() { session.Close() })
	return session
}

func decode(t *testing.T, res *mcp.CallToolResult, v any) {
	t.Helper()
	if res.IsError {
		t.Fatalf("tool error: %+v", res.Content)
	}
	if len(res.Content) == 0 {
		t.Fatal("empty tool result")
	}
	text, ok := res.Content[0].(*mcp.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	if err := json.Unmarshal([]byte(text.Text), v); err != nil {
		t.Fatalf("decode %q: %v", text.Text, err)
	}
}

func TestListTools(t *testing.T) {
	session := connect(t)
	res, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatal(err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	got := strings.Join(names, ",")
	if !strings.Contains(got, tools.SearchArticlesName) || !strings.Contains(got, tools.GetArticleContentName) {
		t.Errorf("tools = %s", got)
	}
}

func TestSearchArticlesTool(t *testing.T) {
	session := connect(t)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.SearchArticlesName,
		Arguments: map[string]any{"query": "superconductivity pressure", "n_results": 1},
	})
	if err != nil {
		t.Fatal(err)
	}
	var out SearchArticlesOutput
	decode(t, res, &out)
	if len(out.Results) != 1 || out.Results[0].ID != "id0" || out.Results[0].Area != "physics" {
		t.Errorf("results = %+v", out.Results)
	}
}

func TestGetArticleContentTool(t *testing.T) {
	session := connect(t)
	res, err := session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.GetArticleContentName,
		Arguments: map[string]any{"article_id": "id1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	var out tools.ArticleContent
	decode(t, res, &out)
	if out.Content != "plant photosynthesis efficiency" || out.Title != "Unknown" {
		t.Errorf("content = %+v", out)
	}

	res, err = session.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      tools.GetArticleContentName,
		Arguments: map[string]any{"article_id": "nope"},
	})
	if err != nil {
		t.Fatal(err)
	}
	out = tools.ArticleContent{}
	decode(t, res, &out)
	if !strings.Contains(out.Error, "not found") {
		t.Errorf("missing article = %+v", out)
	}
}

func TestRunUnsupportedTransport(t *testing.T) {
	s := &Server{}
	err := s.Run(context.Background(), "websocket", "")
	if err == nil || !strings.Contains(err.Error(), "not supported") {
		t.Errorf("err = %v", err)
	}
}
