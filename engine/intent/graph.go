package intent

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"

	"github.com/upatik/helpdesk-chatbot/pkg/repo"
)

// Label is the node label intents are stored under.
const Label = "Intent"

// namespace scopes intent node IDs derived from question text.
var namespace = uuid.MustParse("6f1c2a9e-4d3b-5e8f-9a7c-1b2d3e4f5a6b")

// Node is an intent as persisted in the graph.
type Node struct {
	ID       string
	Position int
	Intent
}

// NodeID derives a stable node ID from a question.
func NodeID(question string) string {
	return uuid.NewSHA1(namespace, []byte(question)).String()
}

// Nodes assigns IDs and positions to a set.
func Nodes(set Set) []Node {
	out := make([]Node, len(set))
	for i, it := range set {
		out[i] = Node{ID: NodeID(it.Question), Position: i, Intent: it}
	}
	return out
}

// NewGraphRepo returns a repository of intent nodes.
func NewGraphRepo(driver neo4j.DriverWithContext) *repo.Neo4jRepo[Node, string] {
	return repo.NewNeo4jRepo[Node, string](driver, Label, nodeToMap, nodeFromRecord)
}

func nodeToMap(n Node) map[string]any {
	return map[string]any{
		"id":       n.ID,
		"position": int64(n.Position),
		"question": n.Question,
		"answer":   n.Answer,
		"category": n.Category,
	}
}

func nodeFromRecord(rec *neo4j.Record) (Node, error) {
	node, _, err := neo4j.GetRecordValue[dbtype.Node](rec, "n")
	if err != nil {
		return Node{}, err
	}
	props := node.Props
	pos, _ := props["position"].(int64)
	return Node{
		ID:       strProp(props, "id"),
		Position: int(pos),
		Intent: Intent{
			Question: strProp(props, "question"),
			Answer:   strProp(props, "answer"),
			Category: strProp(props, "category"),
		},
	}, nil
}

func strProp(props map[string]any, key string) string {
	if s, ok := props[key].(string); ok {
		return s
	}
	return ""
}

type nodeLister interface {
	List(ctx context.Context, opts repo.ListOpts) ([]Node, error)
}

// GraphSource loads intents from Neo4j, ordered by position.
type GraphSource struct {
	nodes nodeLister
}

// NewGraphSource wraps a repository of intent nodes.
func NewGraphSource(nodes nodeLister) *GraphSource {
	return &GraphSource{nodes: nodes}
}

func (g *GraphSource) Name() string { return "neo4j:" + Label }

// Load lists the intent nodes. Errors are returned as *DatasetError.
func (g *GraphSource) Load(ctx context.Context) (Set, error) {
	nodes, err := g.nodes.List(ctx, repo.ListOpts{OrderBy: "position"})
	if err != nil {
		return nil, &DatasetError{Source: g.Name(), Err: fmt.Errorf("list: %w", err)}
	}
	set := make(Set, len(nodes))
	for i, n := range nodes {
		set[i] = n.Intent
	}
	if err := set.Validate(); err != nil {
		return nil, &DatasetError{Source: g.Name(), Err: err}
	}
	return set, nil
}
