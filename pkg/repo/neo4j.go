package repo

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// ErrInvalidProperty is returned when an OrderBy value is not a plain
// property name.
var ErrInvalidProperty = errors.New("repo: invalid property name")

var propertyName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// result is the minimal interface needed from a neo4j result.
type result interface {
	Next(ctx context.Context) bool
	Record() *neo4j.Record
	Err() error
}

// runner is the minimal interface needed from a neo4j session.
type runner interface {
	Run(ctx context.Context, cypher string, params map[string]any) (result, error)
	Close(ctx context.Context) error
}

// Neo4jRepo stores entities as nodes under a single label.
type Neo4jRepo[T any, ID comparable] struct {
	driver     neo4j.DriverWithContext
	label      string
	idKey      string
	toMap      func(T) map[string]any
	fromRecord func(*neo4j.Record) (T, error)
	newSession func(ctx context.Context) runner // for testing
}

// Neo4jOption configures a Neo4jRepo.
type Neo4jOption[T any, ID comparable] func(*Neo4jRepo[T, ID])

// WithIDKey sets the property name used as the ID (default "id").
func WithIDKey[T any, ID comparable](key string) Neo4jOption[T, ID] {
	return func(r *Neo4jRepo[T, ID]) { r.idKey = key }
}

// NewNeo4jRepo creates a Neo4j-backed repository. fromRecord receives
// records whose node is bound to "n".
func NewNeo4jRepo[T any, ID comparable](
	driver neo4j.DriverWithContext,
	label string,
	toMap func(T) map[string]any,
	fromRecord func(*neo4j.Record) (T, error),
	opts ...Neo4jOption[T, ID],
) *Neo4jRepo[T, ID] {
	r := &Neo4jRepo[T, ID]{
		driver:     driver,
		label:      label,
		idKey:      "id",
		toMap:      toMap,
		fromRecord: fromRecord,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

var _ Repository[any, string] = (*Neo4jRepo[any, string])(nil)

// neo4jSessionAdapter adapts neo4j.SessionWithContext to the runner interface.
type neo4jSessionAdapter struct {
	sess neo4j.SessionWithContext
}

func (a *neo4jSessionAdapter) Run(ctx context.Context, cypher string, params map[string]any) (result, error) {
	return a.sess.Run(ctx, cypher, params)
}

func (a *neo4jSessionAdapter) Close(ctx context.Context) error {
	return a.sess.Close(ctx)
}

func (r *Neo4jRepo[T, ID]) session(ctx context.Context) runner {
	if r.newSession != nil {
		return r.newSession(ctx)
	}
	return &neo4jSessionAdapter{sess: r.driver.NewSession(ctx, neo4j.SessionConfig{})}
}

// List returns nodes under the label, ordered by opts.OrderBy when set.
func (r *Neo4jRepo[T, ID]) List(ctx context.Context, opts ListOpts) ([]T, error) {
	cypher := fmt.Sprintf("MATCH (n:%s) RETURN n", r.label)
	if opts.OrderBy != "" {
		if !propertyName.MatchString(opts.OrderBy) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidProperty, opts.OrderBy)
		}
		cypher += " ORDER BY n." + opts.OrderBy
	}
	params := map[string]any{}
	if opts.Offset > 0 {
		cypher += " SKIP $offset"
		params["offset"] = opts.Offset
	}
	if opts.Limit > 0 {
		cypher += " LIMIT $limit"
		params["limit"] = opts.Limit
	}

	sess := r.session(ctx)
	defer sess.Close(ctx)

	res, err := sess.Run(ctx, cypher, params)
	if err != nil {
		return nil, fmt.Errorf("repo: list %s: %w", r.label, err)
	}

	var items []T
	for res.Next(ctx) {
		item, err := r.fromRecord(res.Record())
		if err != nil {
			return nil, fmt.Errorf("repo: decode %s: %w", r.label, err)
		}
		items = append(items, item)
	}
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("repo: list %s: %w", r.label, err)
	}
	return items, nil
}

// Upsert merges the entity's node on its ID property and overwrites the
// remaining properties.
func (r *Neo4jRepo[T, ID]) Upsert(ctx context.Context, entity T) error {
	props := r.toMap(entity)
	id, ok := props[r.idKey]
	if !ok {
		return fmt.Errorf("repo: upsert %s: missing %q property", r.label, r.idKey)
	}

	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MERGE (n:%s {%s: $id}) SET n += $props", r.label, r.idKey)
	if _, err := sess.Run(ctx, cypher, map[string]any{"id": id, "props": props}); err != nil {
		return fmt.Errorf("repo: upsert %s: %w", r.label, err)
	}
	return nil
}

// DeleteAll removes every node under the label.
func (r *Neo4jRepo[T, ID]) DeleteAll(ctx context.Context) error {
	sess := r.session(ctx)
	defer sess.Close(ctx)

	cypher := fmt.Sprintf("MATCH (n:%s) DETACH DELETE n", r.label)
	if _, err := sess.Run(ctx, cypher, nil); err != nil {
		return fmt.Errorf("repo: delete %s: %w", r.label, err)
	}
	return nil
}
