package semantic

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/upatik/helpdesk-chatbot/pkg/embed"
)

// pointNamespace scopes point IDs derived from owner, dataset and position.
var pointNamespace = uuid.MustParse("0d9f4c3e-7a1b-5c2d-8e6f-3a4b5c6d7e8f")

// pointsClient is the subset of pb.PointsClient the store uses.
type pointsClient interface {
	Upsert(ctx context.Context, in *pb.UpsertPoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Delete(ctx context.Context, in *pb.DeletePoints, opts ...grpc.CallOption) (*pb.PointsOperationResponse, error)
	Search(ctx context.Context, in *pb.SearchPoints, opts ...grpc.CallOption) (*pb.SearchResponse, error)
}

// collectionsClient is the subset of pb.CollectionsClient the store uses.
type collectionsClient interface {
	List(ctx context.Context, in *pb.ListCollectionsRequest, opts ...grpc.CallOption) (*pb.ListCollectionsResponse, error)
	Create(ctx context.Context, in *pb.CreateCollection, opts ...grpc.CallOption) (*pb.CollectionOperationResponse, error)
}

// SearchLimit is how many hits a search asks for. Hits are re-scored
// locally so that ties resolve the same way as MemoryIndex.
const SearchLimit = 8

// DefaultOwner tags points when no owner is configured.
const DefaultOwner = "default"

// QdrantStore owns the Qdrant collection intent vectors are synced to.
// Points are tagged with an owner so instances sharing a collection
// never prune each other's points.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pointsClient
	collections collectionsClient
	collection  string
	owner       string
}

// QdrantOption configures a QdrantStore.
type QdrantOption func(*QdrantStore)

// WithOwner sets the owner tag written to and filtered on every point.
func WithOwner(owner string) QdrantOption {
	return func(s *QdrantStore) {
		if owner != "" {
			s.owner = owner
		}
	}
}

// DialQdrant connects to Qdrant's gRPC API at addr.
func DialQdrant(addr, collection string, opts ...QdrantOption) (*QdrantStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("semantic: dial qdrant %s: %w", addr, err)
	}
	s := NewQdrantStore(pb.NewPointsClient(conn), pb.NewCollectionsClient(conn), collection, opts...)
	s.conn = conn
	return s, nil
}

// NewQdrantStore builds a store over existing clients.
func NewQdrantStore(points pointsClient, collections collectionsClient, collection string, opts ...QdrantOption) *QdrantStore {
	s := &QdrantStore{points: points, collections: collections, collection: collection, owner: DefaultOwner}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Close closes the gRPC connection, if the store owns one.
func (s *QdrantStore) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// EnsureCollection creates a cosine collection of dims if it is missing.
func (s *QdrantStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := s.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("semantic: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == s.collection {
			return nil
		}
	}
	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: create collection %s: %w", s.collection, err)
	}
	return nil
}

// Fingerprint identifies a table built from a list of questions.
func Fingerprint(t *Table, questions []string) string {
	h := sha256.New()
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(t.Dim()))
	h.Write(buf[:])
	for _, q := range questions {
		h.Write([]byte(q))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// Sync writes every table row as a point tagged with the store owner and
// the table's fingerprint, and returns an index that searches only those
// points. Points of earlier tables stay until the index is pruned.
// questions[i] labels row i.
func (s *QdrantStore) Sync(ctx context.Context, t *Table, questions []string) (*QdrantIndex, error) {
	if len(questions) != t.Len() {
		return nil, fmt.Errorf("semantic: sync: %d labels for %d rows", len(questions), t.Len())
	}
	if err := s.EnsureCollection(ctx, t.Dim()); err != nil {
		return nil, err
	}

	dataset := Fingerprint(t, questions)
	points := make([]*pb.PointStruct, t.Len())
	for i := range points {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(s.owner, dataset, i)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: t.Row(i)},
				},
			},
			Payload: map[string]*pb.Value{
				"owner":    {Kind: &pb.Value_StringValue{StringValue: s.owner}},
				"dataset":  {Kind: &pb.Value_StringValue{StringValue: dataset}},
				"position": {Kind: &pb.Value_IntegerValue{IntegerValue: int64(i)}},
				"question": {Kind: &pb.Value_StringValue{StringValue: questions[i]}},
			},
		}
	}

	wait := true
	if _, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return nil, fmt.Errorf("semantic: upsert %d points: %w", len(points), err)
	}
	return &QdrantIndex{store: s, dataset: dataset, table: t}, nil
}

func pointID(owner, dataset string, position int) string {
	return uuid.NewSHA1(pointNamespace, []byte(fmt.Sprintf("%s/%s/%d", owner, dataset, position))).String()
}

// QdrantIndex searches the points of one synced table.
type QdrantIndex struct {
	store   *QdrantStore
	dataset string
	table   *Table
}

func (q *QdrantIndex) Name() string { return "qdrant" }

// Dataset returns the fingerprint the index is bound to.
func (q *QdrantIndex) Dataset() string { return q.dataset }

// Prune deletes the owner's points that belong to other tables. Call it
// once this index is the one serving queries.
func (q *QdrantIndex) Prune(ctx context.Context) error {
	wait := true
	_, err := q.store.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.store.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must:    []*pb.Condition{fieldMatch("owner", q.store.owner)},
					MustNot: []*pb.Condition{fieldMatch("dataset", q.dataset)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("semantic: prune stale points: %w", err)
	}
	return nil
}

// Nearest asks Qdrant for the closest points of this table and re-scores
// them against the local rows. The highest score wins; ties go to the
// lowest position.
func (q *QdrantIndex) Nearest(ctx context.Context, query []float32) (int, float64, error) {
	if len(query) != q.table.Dim() {
		return 0, 0, fmt.Errorf("%w: query has %d, table has %d", embed.ErrDimMismatch, len(query), q.table.Dim())
	}
	resp, err := q.store.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.store.collection,
		Vector:         query,
		Limit:          SearchLimit,
		Filter: &pb.Filter{Must: []*pb.Condition{
			fieldMatch("owner", q.store.owner),
			fieldMatch("dataset", q.dataset),
		}},
		WithPayload: &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return 0, 0, fmt.Errorf("semantic: search: %w", err)
	}
	hits := resp.GetResult()
	if len(hits) == 0 {
		return 0, 0, ErrNoResult
	}

	best, bestScore := -1, math.Inf(-1)
	for _, h := range hits {
		pos, ok := h.GetPayload()["position"]
		if !ok {
			return 0, 0, fmt.Errorf("semantic: search: hit without position")
		}
		idx := int(pos.GetIntegerValue())
		if idx < 0 || idx >= q.table.Len() {
			return 0, 0, fmt.Errorf("semantic: search: position %d out of range", idx)
		}
		score := embed.Dot(query, q.table.Row(idx))
		if score > bestScore || (score == bestScore && idx < best) {
			best, bestScore = idx, score
		}
	}
	return best, bestScore, nil
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
