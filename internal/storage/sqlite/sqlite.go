package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cheng-chun-yuan/yap2win/internal/models"
)

type pointsRow struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	GroupID   int64 `gorm:"primaryKey;autoIncrement:false"`
	Points    float64
	GroupName string
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (pointsRow) TableName() string { return "points" }

type listeningGroupRow struct {
	GroupID int64 `gorm:"primaryKey;autoIncrement:false"`
}

func (listeningGroupRow) TableName() string { return "listening_groups" }

type eventConfigRow struct {
	GroupID     int64 `gorm:"primaryKey;autoIncrement:false"`
	GroupName   string
	Type        string
	TotalAmount float64
	RankRewards []float64 `gorm:"serializer:json"`
	StartTime   time.Time
	EndTime     time.Time
	State       string
	UpdatedAt   time.Time
}

func (eventConfigRow) TableName() string { return "event_configs" }

type participantRow struct {
	ID        uint  `gorm:"primaryKey"`
	GroupID   int64 `gorm:"index"`
	UserID    int64
	Points    float64
	Username  string
	FirstName string
}

func (participantRow) TableName() string { return "participants" }

type ruleRow struct {
	GroupID        int64 `gorm:"primaryKey;autoIncrement:false"`
	Country        string
	MinAge         int
	NFTHolder      string
	CollectAddress bool
	UpdatedAt      time.Time
}

func (ruleRow) TableName() string { return "verification_rules" }

type verifiedUserRow struct {
	UserID        int64 `gorm:"primaryKey;autoIncrement:false"`
	WalletAddress string
	Verified      bool
	UpdatedAt     time.Time
}

func (verifiedUserRow) TableName() string { return "verified_users" }

// Store persists bot state in a sqlite database through gorm. Participant
// rows keep an autoincrement id so listing order matches first-seen order,
// same as the in-memory store.
type Store struct {
	db *gorm.DB
}

// NewStore opens (or creates) the sqlite database at path.
func NewStore(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	return &Store{db: db}, nil
}

// Initialize runs the schema migration.
func (s *Store) Initialize(ctx context.Context) error {
	err := s.db.WithContext(ctx).AutoMigrate(
		&pointsRow{},
		&listeningGroupRow{},
		&eventConfigRow{},
		&participantRow{},
		&ruleRow{},
		&verifiedUserRow{},
	)
	if err != nil {
		return fmt.Errorf("migrate schema: %w", err)
	}
	return nil
}

func (s *Store) AddPoints(ctx context.Context, userID, groupID int64, points float64, groupName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row pointsRow
		err := tx.Where("user_id = ? AND group_id = ?", userID, groupID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = pointsRow{UserID: userID, GroupID: groupID, Points: points, GroupName: groupName}
			return tx.Create(&row).Error
		}
		if err != nil {
			return err
		}
		row.Points += points
		row.GroupName = groupName
		return tx.Save(&row).Error
	})
}

func (s *Store) GroupPoints(ctx context.Context, userID, groupID int64) (float64, error) {
	var row pointsRow
	err := s.db.WithContext(ctx).
		Where("user_id = ? AND group_id = ?", userID, groupID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return row.Points, nil
}

func (s *Store) UserPoints(ctx context.Context, userID int64) ([]models.PointsEntry, error) {
	var rows []pointsRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	var entries []models.PointsEntry
	for _, row := range rows {
		entries = append(entries, models.PointsEntry{
			UserID:    row.UserID,
			GroupID:   row.GroupID,
			Points:    row.Points,
			GroupName: row.GroupName,
		})
	}
	return entries, nil
}

func (s *Store) AddListeningGroup(ctx context.Context, groupID int64) error {
	row := listeningGroupRow{GroupID: groupID}
	return s.db.WithContext(ctx).
		Where(&row).
		FirstOrCreate(&row).Error
}

func (s *Store) RemoveListeningGroup(ctx context.Context, groupID int64) error {
	return s.db.WithContext(ctx).
		Delete(&listeningGroupRow{GroupID: groupID}).Error
}

func (s *Store) IsListeningGroup(ctx context.Context, groupID int64) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&listeningGroupRow{}).
		Where("group_id = ?", groupID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *Store) ListeningGroups(ctx context.Context) ([]int64, error) {
	var rows []listeningGroupRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	groups := make([]int64, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.GroupID)
	}
	return groups, nil
}

func (s *Store) SetEventConfig(ctx context.Context, cfg models.EventConfig) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := eventConfigRow{
			GroupID:     cfg.GroupID,
			GroupName:   cfg.GroupName,
			Type:        string(cfg.Type),
			TotalAmount: cfg.TotalAmount,
			RankRewards: cfg.RankRewards,
			StartTime:   cfg.StartTime,
			EndTime:     cfg.EndTime,
			State:       string(cfg.State),
		}
		if err := tx.Save(&row).Error; err != nil {
			return err
		}
		return tx.Where("group_id = ?", cfg.GroupID).
			Delete(&participantRow{}).Error
	})
}

func (s *Store) EventConfig(ctx context.Context, groupID int64) (*models.EventConfig, error) {
	var row eventConfigRow
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cfg := configFromRow(row)
	return &cfg, nil
}

func (s *Store) EventConfigs(ctx context.Context) ([]models.EventConfig, error) {
	var rows []eventConfigRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	var configs []models.EventConfig
	for _, row := range rows {
		configs = append(configs, configFromRow(row))
	}
	return configs, nil
}

func configFromRow(row eventConfigRow) models.EventConfig {
	return models.EventConfig{
		GroupID:     row.GroupID,
		GroupName:   row.GroupName,
		Type:        models.EventType(row.Type),
		TotalAmount: row.TotalAmount,
		RankRewards: row.RankRewards,
		StartTime:   row.StartTime,
		EndTime:     row.EndTime,
		State:       models.EventState(row.State),
	}
}

func (s *Store) FinishEvent(ctx context.Context, groupID int64) error {
	return s.db.WithContext(ctx).
		Model(&eventConfigRow{}).
		Where("group_id = ?", groupID).
		Update("state", string(models.EventStateFinished)).Error
}

func (s *Store) AddParticipantPoints(ctx context.Context, groupID, userID int64, points float64, username, firstName string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row participantRow
		err := tx.Where("group_id = ? AND user_id = ?", groupID, userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = participantRow{
				GroupID:   groupID,
				UserID:    userID,
				Points:    points,
				Username:  username,
				FirstName: firstName,
			}
			return tx.Create(&row).Error
		}
		if err != nil {
			return err
		}
		row.Points += points
		row.Username = username
		row.FirstName = firstName
		return tx.Save(&row).Error
	})
}

func (s *Store) Participants(ctx context.Context, groupID int64) ([]models.Participant, error) {
	var rows []participantRow
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	participants := make([]models.Participant, 0, len(rows))
	for _, row := range rows {
		participants = append(participants, models.Participant{
			GroupID:   row.GroupID,
			UserID:    row.UserID,
			Points:    row.Points,
			Username:  row.Username,
			FirstName: row.FirstName,
		})
	}
	return participants, nil
}

func (s *Store) SetRule(ctx context.Context, rule models.VerificationRule) error {
	row := ruleRow{
		GroupID:        rule.GroupID,
		Country:        rule.Country,
		MinAge:         rule.MinAge,
		NFTHolder:      string(rule.NFTHolder),
		CollectAddress: rule.CollectAddress,
	}
	return s.db.WithContext(ctx).Save(&row).Error
}

func (s *Store) Rule(ctx context.Context, groupID int64) (*models.VerificationRule, error) {
	var row ruleRow
	err := s.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &models.VerificationRule{
		GroupID:        row.GroupID,
		Country:        row.Country,
		MinAge:         row.MinAge,
		NFTHolder:      models.AssetKind(row.NFTHolder),
		CollectAddress: row.CollectAddress,
	}, nil
}

func (s *Store) RuleGroups(ctx context.Context) ([]int64, error) {
	var rows []ruleRow
	if err := s.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	groups := make([]int64, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, row.GroupID)
	}
	return groups, nil
}

func (s *Store) MarkVerified(ctx context.Context, userID int64) error {
	return s.upsertVerifiedUser(ctx, userID, func(row *verifiedUserRow) {
		row.Verified = true
	})
}

func (s *Store) IsVerified(ctx context.Context, userID int64) (bool, error) {
	var row verifiedUserRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return row.Verified, nil
}

func (s *Store) SetWalletAddress(ctx context.Context, userID int64, address string) error {
	return s.upsertVerifiedUser(ctx, userID, func(row *verifiedUserRow) {
		row.WalletAddress = address
	})
}

func (s *Store) WalletAddress(ctx context.Context, userID int64) (string, error) {
	var row verifiedUserRow
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.WalletAddress, nil
}

func (s *Store) upsertVerifiedUser(ctx context.Context, userID int64, mutate func(*verifiedUserRow)) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var row verifiedUserRow
		err := tx.Where("user_id = ?", userID).First(&row).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			row = verifiedUserRow{UserID: userID}
		} else if err != nil {
			return err
		}
		mutate(&row)
		return tx.Save(&row).Error
	})
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}
