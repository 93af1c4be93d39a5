package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"electiondesk/internal/registry/models"
	"electiondesk/pkg/platform/sentinel"
)

type centerRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	District  string `gorm:"size:128;not null;index"`
	Thana     string `gorm:"size:128;not null"`
	Name      string `gorm:"size:256;not null"`
	Voters    int64  `gorm:"not null"`
	Status    string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

func (centerRow) TableName() string { return "polling_centers" }

type partyRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	Name      string `gorm:"size:256;not null"`
	Symbol    string `gorm:"size:128"`
	Status    string `gorm:"size:16;not null"`
	UpdatedAt time.Time
}

func (partyRow) TableName() string { return "political_parties" }

func centerRowFrom(c *models.PollingCenter) centerRow {
	return centerRow{
		ID:        string(c.ID),
		District:  c.District,
		Thana:     c.Thana,
		Name:      c.Name,
		Voters:    c.Voters,
		Status:    string(c.Status),
		UpdatedAt: c.UpdatedAt,
	}
}

func (r centerRow) toModel() models.PollingCenter {
	return models.PollingCenter{
		ID:        models.CenterID(r.ID),
		District:  r.District,
		Thana:     r.Thana,
		Name:      r.Name,
		Voters:    r.Voters,
		Status:    models.Status(r.Status),
		UpdatedAt: r.UpdatedAt,
	}
}

func partyRowFrom(p *models.PoliticalParty) partyRow {
	return partyRow{
		ID:        string(p.ID),
		Name:      p.Name,
		Symbol:    p.Symbol,
		Status:    string(p.Status),
		UpdatedAt: p.UpdatedAt,
	}
}

func (r partyRow) toModel() models.PoliticalParty {
	return models.PoliticalParty{
		ID:        models.PartyID(r.ID),
		Name:      r.Name,
		Symbol:    r.Symbol,
		Status:    models.Status(r.Status),
		UpdatedAt: r.UpdatedAt,
	}
}

// Gorm persists the registry through GORM.
type Gorm struct {
	db *gorm.DB
}

func NewGorm(db *gorm.DB) *Gorm {
	return &Gorm{db: db}
}

// Migrate creates or updates the registry tables.
func (s *Gorm) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&centerRow{}, &partyRow{}); err != nil {
		return fmt.Errorf("migrate registry tables: %w", err)
	}
	return nil
}

func (s *Gorm) FindCenter(ctx context.Context, id models.CenterID) (*models.PollingCenter, error) {
	var row centerRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find center %s: %w", id, err)
	}
	c := row.toModel()
	return &c, nil
}

func (s *Gorm) FindParty(ctx context.Context, id models.PartyID) (*models.PoliticalParty, error) {
	var row partyRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find party %s: %w", id, err)
	}
	p := row.toModel()
	return &p, nil
}

func (s *Gorm) UpsertCenter(ctx context.Context, c *models.PollingCenter) error {
	row := centerRowFrom(c)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"district", "thana", "name", "voters", "status", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert center %s: %w", c.ID, err)
	}
	return nil
}

func (s *Gorm) UpsertParty(ctx context.Context, p *models.PoliticalParty) error {
	row := partyRowFrom(p)
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "symbol", "status", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert party %s: %w", p.ID, err)
	}
	return nil
}

func (s *Gorm) SetCenterStatus(ctx context.Context, id models.CenterID, status models.Status, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&centerRow{}).
		Where("id = ?", string(id)).
		Updates(map[string]any{"status": string(status), "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("set center status %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Gorm) SetPartyStatus(ctx context.Context, id models.PartyID, status models.Status, now time.Time) error {
	res := s.db.WithContext(ctx).Model(&partyRow{}).
		Where("id = ?", string(id)).
		Updates(map[string]any{"status": string(status), "updated_at": now})
	if res.Error != nil {
		return fmt.Errorf("set party status %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *Gorm) ListCenters(ctx context.Context) ([]models.PollingCenter, error) {
	var rows []centerRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list centers: %w", err)
	}
	out := make([]models.PollingCenter, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}

func (s *Gorm) ListParties(ctx context.Context) ([]models.PoliticalParty, error) {
	var rows []partyRow
	if err := s.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list parties: %w", err)
	}
	out := make([]models.PoliticalParty, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toModel())
	}
	return out, nil
}
