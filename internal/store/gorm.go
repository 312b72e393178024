package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/ppiankov/truthpost/internal/model"
)

type claimRecord struct {
	Seq         int64     `gorm:"primaryKey;autoIncrement:false"`
	ClaimID     string    `gorm:"column:claim_id;size:64;uniqueIndex;not null"`
	Text        string    `gorm:"type:text;not null"`
	SourceURL   string    `gorm:"column:source_url;type:text;not null"`
	Submitter   string    `gorm:"size:191;index;not null"`
	Verdict     string    `gorm:"size:32;not null"`
	Explanation string    `gorm:"type:text"`
	Resolved    bool      `gorm:"not null"`
	Digest      string    `gorm:"size:128"`
	SubmittedAt time.Time `gorm:"not null"`
	ResolvedAt  *time.Time
}

func (claimRecord) TableName() string { return "claims" }

type reputationRecord struct {
	Identity string `gorm:"primaryKey;size:191"`
	Score    int64  `gorm:"not null"`
}

func (reputationRecord) TableName() string { return "reputation" }

type sequenceRecord struct {
	ID    uint8 `gorm:"primaryKey;autoIncrement:false"`
	Value int64 `gorm:"not null"`
}

func (sequenceRecord) TableName() string { return "claim_sequence" }

// GormStore implements Store on MySQL through gorm
type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore wraps an existing gorm handle
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db, now: time.Now}
}

// OpenMySQL connects through the gorm mysql driver and migrates
func OpenMySQL(dsn string) (*GormStore, error) {
	dsn = ensureParam(dsn, "parseTime", "true")
	if !strings.Contains(dsn, "charset=") {
		dsn = ensureParam(dsn, "charset", "utf8mb4")
		dsn = ensureParam(dsn, "collation", "utf8mb4_unicode_ci")
	}

	gormLogger := logger.New(
		log.New(log.Writer(), "\r\n", log.LstdFlags),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return nil, fmt.Errorf("connect mysql: %w", err)
	}

	s := NewGormStore(db)
	if err := s.Migrate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Migrate creates tables and the sequence row
func (s *GormStore) Migrate() error {
	if err := s.db.AutoMigrate(&claimRecord{}, &reputationRecord{}, &sequenceRecord{}); err != nil {
		return fmt.Errorf("migrate mysql: %w", err)
	}
	err := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&sequenceRecord{ID: 1, Value: 0}).Error
	if err != nil {
		return fmt.Errorf("seed claim sequence: %w", err)
	}
	return nil
}

// Submit allocates the next sequence value and inserts the claim in one transaction
func (s *GormStore) Submit(ctx context.Context, d Draft) (model.Claim, error) {
	var c model.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var seq sequenceRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq, 1).Error; err != nil {
			return fmt.Errorf("allocate claim id: %w", err)
		}
		seq.Value++
		if err := tx.Model(&sequenceRecord{}).Where("id = ?", 1).Update("value", seq.Value).Error; err != nil {
			return fmt.Errorf("advance claim sequence: %w", err)
		}

		c = model.NewPendingClaim(seq.Value, d.Text, d.SourceURL, d.Submitter, s.now())
		rec := toClaimRecord(c)
		if err := tx.Create(&rec).Error; err != nil {
			return fmt.Errorf("insert claim: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Claim{}, err
	}
	return c, nil
}

// Get returns a claim by id
func (s *GormStore) Get(ctx context.Context, id string) (model.Claim, error) {
	var rec claimRecord
	if err := s.db.WithContext(ctx).Where("claim_id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Claim{}, ErrNotFound
		}
		return model.Claim{}, err
	}
	return rec.toClaim(), nil
}

// List returns claims in submission order
func (s *GormStore) List(ctx context.Context) ([]model.Claim, error) {
	var recs []claimRecord
	if err := s.db.WithContext(ctx).Order("seq").Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make([]model.Claim, 0, len(recs))
	for _, rec := range recs {
		out = append(out, rec.toClaim())
	}
	return out, nil
}

// Reputation returns every ledger entry
func (s *GormStore) Reputation(ctx context.Context) (map[string]int64, error) {
	var recs []reputationRecord
	if err := s.db.WithContext(ctx).Find(&recs).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int64, len(recs))
	for _, rec := range recs {
		out[rec.Identity] = rec.Score
	}
	return out, nil
}

// UserReputation returns one identity's score, 0 when absent
func (s *GormStore) UserReputation(ctx context.Context, identity string) (int64, error) {
	var rec reputationRecord
	if err := s.db.WithContext(ctx).Where("identity = ?", identity).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return rec.Score, nil
}

// Resolve locks the claim row, re-checks it is pending, then writes the
// verdict and upserts the reputation row in the same transaction.
func (s *GormStore) Resolve(ctx context.Context, id string, r model.Resolution) (model.Claim, error) {
	if !r.Verdict.IsTerminal() {
		return model.Claim{}, errInvalidResolution(r.Verdict)
	}

	var resolved model.Claim
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec claimRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("claim_id = ?", id).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if rec.Resolved {
			return ErrAlreadyResolved
		}

		resolved = r.Apply(rec.toClaim())
		res := tx.Model(&claimRecord{}).
			Where("claim_id = ? AND resolved = ?", id, false).
			Updates(map[string]any{
				"verdict":     string(resolved.Verdict),
				"explanation": resolved.Explanation,
				"digest":      resolved.Digest,
				"resolved":    true,
				"resolved_at": *resolved.ResolvedAt,
			})
		if res.Error != nil {
			return fmt.Errorf("update claim: %w", res.Error)
		}
		if res.RowsAffected != 1 {
			return ErrAlreadyResolved
		}

		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "identity"}},
			DoUpdates: clause.Assignments(map[string]any{"score": gorm.Expr("score + 1")}),
		}).Create(&reputationRecord{Identity: resolved.Submitter, Score: 1}).Error
		if err != nil {
			return fmt.Errorf("increment reputation: %w", err)
		}
		return nil
	})
	if err != nil {
		return model.Claim{}, err
	}
	return resolved, nil
}

// Close closes the underlying connection pool
func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func toClaimRecord(c model.Claim) claimRecord {
	return claimRecord{
		Seq:         c.Seq,
		ClaimID:     c.ID,
		Text:        c.Text,
		SourceURL:   c.SourceURL,
		Submitter:   c.Submitter,
		Verdict:     string(c.Verdict),
		Explanation: c.Explanation,
		Resolved:    c.Resolved,
		Digest:      c.Digest,
		SubmittedAt: c.SubmittedAt,
		ResolvedAt:  c.ResolvedAt,
	}
}

func (r claimRecord) toClaim() model.Claim {
	return model.Claim{
		ID:          r.ClaimID,
		Seq:         r.Seq,
		Text:        r.Text,
		SourceURL:   r.SourceURL,
		Submitter:   r.Submitter,
		Verdict:     model.Verdict(r.Verdict),
		Explanation: r.Explanation,
		Resolved:    r.Resolved,
		Digest:      r.Digest,
		SubmittedAt: r.SubmittedAt,
		ResolvedAt:  r.ResolvedAt,
	}
}

func ensureParam(dsn, key, val string) string {
	if strings.Contains(dsn, key+"=") {
		return dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + key + "=" + val
}
