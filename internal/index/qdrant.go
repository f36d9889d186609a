package index

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"github.com/knoguchi/rag/internal/domain"
)

// collectionName is the single shared collection every tenant's points
// live in, matching the original system's QDRANT_COLLECTION_NAME. Unlike a
// collection-per-tenant layout, the Delete invariant in this design (never
// let ids alone select points across a tenant boundary) is enforced by the
// store itself rather than by routing.
const collectionName = "document_chunks"

const tenantIDField = "tenant_id"

// QdrantIndex implements VectorIndex against a single Qdrant collection
// shared by every tenant, filtered on a keyword-indexed tenant_id payload
// field.
type QdrantIndex struct {
	client *qdrant.Client
}

// NewQdrantIndex dials url, which should be in "host:port" form
// (e.g. "localhost:6334"); a bare host assumes Qdrant's default gRPC port.
func NewQdrantIndex(url string) (*QdrantIndex, error) {
	host, portStr, err := net.SplitHostPort(url)
	if err != nil {
		host = url
		portStr = "6334"
	}

	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid port in qdrant url: %w", err)
	}

	client, err := qdrant.NewClient(&qdrant.Config{Host: host, Port: port})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	return &QdrantIndex{client: client}, nil
}

// Close closes the underlying client connection.
func (idx *QdrantIndex) Close() error {
	return idx.client.Close()
}

// EnsureCollection creates document_chunks if it doesn't exist yet, with a
// keyword index on tenant_id so Search/Delete filters can use it.
func (idx *QdrantIndex) EnsureCollection(ctx context.Context, dim int) error {
	exists, err := idx.client.CollectionExists(ctx, collectionName)
	if err != nil {
		return fmt.Errorf("check collection existence: %w", err)
	}
	if exists {
		return nil
	}

	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dim),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	_, err = idx.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: collectionName,
		FieldName:      tenantIDField,
		FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
	})
	if err != nil {
		return fmt.Errorf("create tenant_id field index: %w", err)
	}

	return nil
}

// Upsert writes or replaces points by id; replace-safe by construction.
func (idx *QdrantIndex) Upsert(ctx context.Context, points []domain.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	pbPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := map[string]*qdrant.Value{
			tenantIDField: qdrant.NewValueString(p.TenantID.String()),
			"document_id": qdrant.NewValueString(p.DocumentID.String()),
			"chunk_id":    qdrant.NewValueString(p.ChunkID.String()),
			"chunk_index": qdrant.NewValueInt(int64(p.ChunkIndex)),
			"filename":    qdrant.NewValueString(p.Filename),
			"text":        qdrant.NewValueString(p.Text),
		}
		for k, v := range p.Metadata {
			payload[k] = qdrant.NewValueString(v)
		}

		pbPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewIDUUID(p.ChunkID.String()),
			Vectors: qdrant.NewVectors(p.Vector...),
			Payload: payload,
		}
	}

	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: collectionName,
		Points:         pbPoints,
	})
	if err != nil {
		return fmt.Errorf("upsert points: %w", err)
	}
	return nil
}

// Search queries the collection for vector, always filtered to tenantID —
// there is no overload that searches unfiltered, because nothing in this
// codebase needs cross-tenant search as a caller-facing feature.
func (idx *QdrantIndex) Search(ctx context.Context, tenantID uuid.UUID, vector []float32, limit int, scoreThreshold float32) ([]Hit, error) {
	response, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: collectionName,
		Query:          qdrant.NewQuery(vector...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{
				qdrant.NewMatch(tenantIDField, tenantID.String()),
			},
		},
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
		ScoreThreshold: qdrant.PtrOf(scoreThreshold),
	})
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(response))
	for _, point := range response {
		hit, err := hitFromPayload(point.Payload, point.Score)
		if err != nil {
			return nil, err
		}
		// Belt-and-suspenders: never surface a hit whose payload tenant
		// differs from the requested tenant, even though the filter above
		// should already guarantee it.
		if hit.TenantID != tenantID {
			continue
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Delete removes points scoped to tenantID. When ids is non-empty the
// filter still requires tenant_id == tenantID, so a caller can never
// delete another tenant's points by guessing an identifier (spec
// invariant on this operation).
func (idx *QdrantIndex) Delete(ctx context.Context, tenantID uuid.UUID, ids []uuid.UUID) error {
	must := []*qdrant.Condition{qdrant.NewMatch(tenantIDField, tenantID.String())}
	if len(ids) > 0 {
		values := make([]string, len(ids))
		for i, id := range ids {
			values[i] = id.String()
		}
		must = append(must, qdrant.NewMatchKeywords("chunk_id", values...))
	}

	_, err := idx.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{Must: must},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("delete points: %w", err)
	}
	return nil
}

func hitFromPayload(payload map[string]*qdrant.Value, score float32) (Hit, error) {
	var hit Hit
	hit.Score = score
	hit.Metadata = make(map[string]string)

	tenantID, err := uuid.Parse(payload[tenantIDField].GetStringValue())
	if err != nil {
		return Hit{}, fmt.Errorf("parse tenant_id from payload: %w", err)
	}
	hit.TenantID = tenantID

	if v, ok := payload["document_id"]; ok {
		if id, err := uuid.Parse(v.GetStringValue()); err == nil {
			hit.DocumentID = id
		}
	}
	if v, ok := payload["chunk_id"]; ok {
		if id, err := uuid.Parse(v.GetStringValue()); err == nil {
			hit.ChunkID = id
		}
	}
	if v, ok := payload["chunk_index"]; ok {
		hit.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload["filename"]; ok {
		hit.Filename = v.GetStringValue()
	}
	if v, ok := payload["text"]; ok {
		hit.Text = v.GetStringValue()
	}
	for k, v := range payload {
		switch k {
		case tenantIDField, "document_id", "chunk_id", "chunk_index", "filename", "text":
			continue
		default:
			hit.Metadata[k] = v.GetStringValue()
		}
	}

	return hit, nil
}

var _ VectorIndex = (*QdrantIndex)(nil)
