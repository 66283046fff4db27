package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/talentbridge/auth-service/internal/core/domain"
	"github.com/talentbridge/auth-service/internal/core/ports"
)

const eventCollection = "login_events"

// AnalyticsRepository implements ports.AnalyticsRepository on MongoDB. The
// collection is append-only; aggregate views are computed server-side with
// aggregation pipelines over the bucket fields stored at append time.
type AnalyticsRepository struct {
	coll *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{coll: db.Collection(eventCollection)}
}

// EnsureIndexes creates the account/time index the queries rely on.
func (r *AnalyticsRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "account_id", Value: 1}, {Key: "created_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("ensure event indexes: %w", err)
	}
	return nil
}

type eventDoc struct {
	ID           primitive.ObjectID `bson:"_id,omitempty"`
	AccountID    string             `bson:"account_id"`
	Kind         string             `bson:"kind"`
	IP           string             `bson:"ip,omitempty"`
	Network      string             `bson:"network,omitempty"`
	Device       string             `bson:"device,omitempty"`
	DeviceFamily string             `bson:"device_family,omitempty"`
	RiskScore    int                `bson:"risk_score"`
	Suspicious   bool               `bson:"suspicious"`
	Detail       map[string]string  `bson:"detail,omitempty"`
	CreatedAt    time.Time          `bson:"created_at"`
}

func (r *AnalyticsRepository) Append(ctx context.Context, e *domain.LoginEvent) error {
	doc := eventDoc{
		AccountID:    e.AccountID,
		Kind:         string(e.Kind),
		IP:           e.IP,
		Network:      e.Network,
		Device:       e.Device,
		DeviceFamily: e.DeviceFamily,
		RiskScore:    e.RiskScore,
		Suspicious:   e.Suspicious,
		Detail:       e.Detail,
		CreatedAt:    e.CreatedAt,
	}
	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("append login event: %w", err)
	}
	return nil
}

func (r *AnalyticsRepository) FindSince(ctx context.Context, accountID string, since time.Time) ([]domain.LoginEvent, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"account_id": accountID, "created_at": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("find login events: %w", err)
	}
	return decodeEvents(ctx, cur)
}

func (r *AnalyticsRepository) FindSuspicious(ctx context.Context, accountID string, since time.Time, limit int64) ([]domain.LoginEvent, error) {
	cur, err := r.coll.Find(ctx,
		bson.M{"account_id": accountID, "suspicious": true, "created_at": bson.M{"$gte": since}},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("find suspicious events: %w", err)
	}
	return decodeEvents(ctx, cur)
}

func (r *AnalyticsRepository) CountByDay(ctx context.Context, accountID string, since time.Time) ([]ports.DayCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"account_id": accountID, "created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id": bson.M{"$dateToString": bson.M{"format": "%Y-%m-%d", "date": "$created_at"}},
			"total": bson.M{"$sum": 1},
			"failed": bson.M{"$sum": bson.M{"$cond": bson.A{
				bson.M{"$eq": bson.A{"$kind", string(domain.EventLoginFailed)}}, 1, 0,
			}}},
		}}},
		{{Key: "$sort", Value: bson.M{"_id": 1}}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count by day: %w", err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Day    string `bson:"_id"`
		Total  int64  `bson:"total"`
		Failed int64  `bson:"failed"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count by day: %w", err)
	}

	counts := make([]ports.DayCount, 0, len(rows))
	for _, row := range rows {
		counts = append(counts, ports.DayCount{Day: row.Day, Total: row.Total, Failed: row.Failed})
	}
	return counts, nil
}

func (r *AnalyticsRepository) CountByNetwork(ctx context.Context, accountID string, since time.Time) ([]ports.BucketCount, error) {
	return r.countByField(ctx, accountID, since, "$network")
}

func (r *AnalyticsRepository) CountByDevice(ctx context.Context, accountID string, since time.Time) ([]ports.BucketCount, error) {
	return r.countByField(ctx, accountID, since, "$device_family")
}

func (r *AnalyticsRepository) countByField(ctx context.Context, accountID string, since time.Time, field string) ([]ports.BucketCount, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"account_id": accountID, "created_at": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
		{{Key: "$sort", Value: bson.M{"count": -1}}},
		{{Key: "$limit", Value: 10}},
	}

	cur, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("count by %s: %w", field, err)
	}
	defer cur.Close(ctx)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("count by %s: %w", field, err)
	}

	buckets := make([]ports.BucketCount, 0, len(rows))
	for _, row := range rows {
		buckets = append(buckets, ports.BucketCount{Key: row.Key, Count: row.Count})
	}
	return buckets, nil
}

func decodeEvents(ctx context.Context, cur *mongo.Cursor) ([]domain.LoginEvent, error) {
	defer cur.Close(ctx)

	var docs []eventDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode login events: %w", err)
	}

	events := make([]domain.LoginEvent, 0, len(docs))
	for _, d := range docs {
		events = append(events, domain.LoginEvent{
			ID:           d.ID.Hex(),
			AccountID:    d.AccountID,
			Kind:         domain.EventKind(d.Kind),
			IP:           d.IP,
			Network:      d.Network,
			Device:       d.Device,
			DeviceFamily: d.DeviceFamily,
			RiskScore:    d.RiskScore,
			Suspicious:   d.Suspicious,
			Detail:       d.Detail,
			CreatedAt:    d.CreatedAt,
		})
	}
	return events, nil
}
