package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/talentbridge/auth-service/internal/core/domain"
)

const accountCollection = "accounts"

// AccountRepository implements ports.AccountRepository on MongoDB. Every
// mutation is a single-document atomic update; the lockout counter, the
// session list, and the reset fields are never written via load-then-save.
type AccountRepository struct {
	coll *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{coll: db.Collection(accountCollection)}
}

// EnsureIndexes creates the unique email index. Call once at startup.
func (r *AccountRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("ensure account indexes: %w", err)
	}
	return nil
}

type sessionDoc struct {
	ID           string    `bson:"id"`
	Token        string    `bson:"token"`
	Device       string    `bson:"device"`
	IP           string    `bson:"ip"`
	CreatedAt    time.Time `bson:"created_at"`
	LastActivity time.Time `bson:"last_activity"`
}

type accountDoc struct {
	ID              primitive.ObjectID `bson:"_id,omitempty"`
	Name            string             `bson:"name,omitempty"`
	Email           string             `bson:"email"`
	PasswordHash    string             `bson:"password_hash"`
	PasswordHistory []string           `bson:"password_history,omitempty"`
	Role            string             `bson:"role"`
	LoginAttempts   int                `bson:"login_attempts"`
	LockUntil       *time.Time         `bson:"lock_until,omitempty"`
	Sessions        []sessionDoc       `bson:"sessions,omitempty"`
	ResetToken      string             `bson:"reset_token,omitempty"`
	ResetExpires    *time.Time         `bson:"reset_expires,omitempty"`
	LastLogin       *time.Time         `bson:"last_login,omitempty"`
	CreatedAt       time.Time          `bson:"created_at"`
	UpdatedAt       time.Time          `bson:"updated_at"`
}

func (r *AccountRepository) Create(ctx context.Context, a *domain.Account) (*domain.Account, error) {
	doc := accountDoc{
		Name:          a.Name,
		Email:         a.Email,
		PasswordHash:  a.PasswordHash,
		Role:          a.Role,
		LoginAttempts: 0,
		CreatedAt:     a.CreatedAt,
		UpdatedAt:     a.UpdatedAt,
	}

	res, err := r.coll.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, domain.ErrAccountExists
		}
		return nil, fmt.Errorf("insert account: %w", err)
	}

	created := *a
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		created.ID = oid.Hex()
	}
	return &created, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrAccountNotFound
	}
	return r.findOne(ctx, bson.M{"_id": oid})
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, bson.M{"email": email})
}

func (r *AccountRepository) findOne(ctx context.Context, filter bson.M) (*domain.Account, error) {
	var doc accountDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, fmt.Errorf("find account: %w", err)
	}
	return doc.toDomain(), nil
}

// RecordFailedLogin applies one failed attempt atomically. A lock that has
// already expired restarts the counter at 1; otherwise the counter is
// $inc'd and the lock deadline set once the threshold is reached. Concurrent
// attempts cannot under-count because the increment happens server-side.
func (r *AccountRepository) RecordFailedLogin(ctx context.Context, id string, now time.Time, maxAttempts int, lockFor time.Duration) (int, *time.Time, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return 0, nil, domain.ErrAccountNotFound
	}
	after := options.FindOneAndUpdate().SetReturnDocument(options.After)

	// Expired lock: restart the counter and clear the lock in one update.
	var doc accountDoc
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid, "lock_until": bson.M{"$lte": now}},
		bson.M{
			"$set":   bson.M{"login_attempts": 1, "updated_at": now},
			"$unset": bson.M{"lock_until": ""},
		},
		after,
	).Decode(&doc)
	if err == nil {
		return 1, nil, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil, fmt.Errorf("record failed login: %w", err)
	}

	// Open state: plain atomic increment.
	err = r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$inc": bson.M{"login_attempts": 1},
			"$set": bson.M{"updated_at": now},
		},
		after,
	).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return 0, nil, domain.ErrAccountNotFound
		}
		return 0, nil, fmt.Errorf("record failed login: %w", err)
	}
	if doc.LockUntil != nil {
		return doc.LoginAttempts, doc.LockUntil, nil
	}

	if doc.LoginAttempts >= maxAttempts {
		until := now.Add(lockFor)
		// Conditional set: only the attempt that crossed the threshold (or a
		// concurrent sibling) installs the lock, and only once.
		_, err := r.coll.UpdateOne(ctx,
			bson.M{
				"_id":            oid,
				"login_attempts": bson.M{"$gte": maxAttempts},
				"lock_until":     bson.M{"$exists": false},
			},
			bson.M{"$set": bson.M{"lock_until": until}},
		)
		if err != nil {
			return doc.LoginAttempts, nil, fmt.Errorf("record failed login: set lock: %w", err)
		}
		return doc.LoginAttempts, &until, nil
	}

	return doc.LoginAttempts, nil, nil
}

// RecordSuccessfulLogin clears the lockout state, stamps last_login, and
// appends the session in one atomic update. $slice keeps only the newest
// maxSessions entries, evicting the oldest by insertion order.
func (r *AccountRepository) RecordSuccessfulLogin(ctx context.Context, id string, session domain.Session, maxSessions int, now time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":   bson.M{"login_attempts": 0, "last_login": now, "updated_at": now},
		"$unset": bson.M{"lock_until": ""},
		"$push": bson.M{"sessions": bson.M{
			"$each":  bson.A{toSessionDoc(session)},
			"$slice": -maxSessions,
		}},
	})
	if err != nil {
		return fmt.Errorf("record successful login: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) TouchSession(ctx context.Context, id, token string, now time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	// Positional update on the matching session; zero matches is a no-op.
	_, err = r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "sessions.token": token},
		bson.M{"$set": bson.M{"sessions.$.last_activity": now}},
	)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

func (r *AccountRepository) RevokeSession(ctx context.Context, id, sessionID string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"sessions": bson.M{"id": sessionID}}},
	)
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) RevokeOtherSessions(ctx context.Context, id, currentToken string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$pull": bson.M{"sessions": bson.M{"token": bson.M{"$ne": currentToken}}}},
	)
	if err != nil {
		return fmt.Errorf("revoke other sessions: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) SetResetToken(ctx context.Context, id, token string, expires time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{"$set": bson.M{
			"reset_token":   token,
			"reset_expires": expires,
			"updated_at":    time.Now().UTC(),
		}},
	)
	if err != nil {
		return fmt.Errorf("set reset token: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id, newHash, previousHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrAccountNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$set": bson.M{"password_hash": newHash, "updated_at": time.Now().UTC()},
			"$push": bson.M{"password_history": bson.M{
				"$each":  bson.A{previousHash},
				"$slice": -domain.MaxPasswordHistory,
			}},
		},
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrAccountNotFound
	}
	return nil
}

// CompletePasswordReset is conditional on the stored token still matching,
// which makes reset tokens single-use: a second completion with the same
// token matches nothing and reports ErrInvalidToken.
func (r *AccountRepository) CompletePasswordReset(ctx context.Context, id, token, newHash, previousHash string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return domain.ErrInvalidToken
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "reset_token": token},
		bson.M{
			"$set": bson.M{"password_hash": newHash, "updated_at": time.Now().UTC()},
			"$unset": bson.M{
				"reset_token":   "",
				"reset_expires": "",
			},
			"$push": bson.M{"password_history": bson.M{
				"$each":  bson.A{previousHash},
				"$slice": -domain.MaxPasswordHistory,
			}},
		},
	)
	if err != nil {
		return fmt.Errorf("complete password reset: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrInvalidToken
	}
	return nil
}

func toSessionDoc(s domain.Session) sessionDoc {
	return sessionDoc{
		ID:           s.ID,
		Token:        s.Token,
		Device:       s.Device,
		IP:           s.IP,
		CreatedAt:    s.CreatedAt,
		LastActivity: s.LastActivity,
	}
}

func (d *accountDoc) toDomain() *domain.Account {
	sessions := make([]domain.Session, 0, len(d.Sessions))
	for _, s := range d.Sessions {
		sessions = append(sessions, domain.Session{
			ID:           s.ID,
			Token:        s.Token,
			Device:       s.Device,
			IP:           s.IP,
			CreatedAt:    s.CreatedAt,
			LastActivity: s.LastActivity,
		})
	}
	return &domain.Account{
		ID:              d.ID.Hex(),
		Name:            d.Name,
		Email:           d.Email,
		PasswordHash:    d.PasswordHash,
		PasswordHistory: d.PasswordHistory,
		Role:            d.Role,
		LoginAttempts:   d.LoginAttempts,
		LockUntil:       d.LockUntil,
		Sessions:        sessions,
		ResetToken:      d.ResetToken,
		ResetExpires:    d.ResetExpires,
		LastLogin:       d.LastLogin,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
	}
}
