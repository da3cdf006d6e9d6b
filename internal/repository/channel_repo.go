package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/clinicore/notify-engine/internal/domain"
)

type ListParams struct {
	Search      string
	ChannelType *domain.ChannelType
	IsActive    *bool
	// Scopes restricts visibility; empty means unrestricted (administrator).
	Scopes   []string
	Page     int
	PageSize int
}

type ChannelRepository interface {
	Create(ctx context.Context, c *domain.ChannelConfig) error
	// SaveExclusive persists an active config and deactivates every other
	// config sharing its (channelType, scope) in the same transaction.
	SaveExclusive(ctx context.Context, c *domain.ChannelConfig) error
	Save(ctx context.Context, c *domain.ChannelConfig) error
	GetByID(ctx context.Context, id string) (*domain.ChannelConfig, error)
	List(ctx context.Context, params ListParams) ([]domain.ChannelConfig, int64, error)
	Delete(ctx context.Context, id string) error
	TouchLastTested(ctx context.Context, id string, testedAt time.Time) error
}

type GormChannelRepo struct {
	db *gorm.DB
}

func NewGormChannelRepo(db *gorm.DB) *GormChannelRepo {
	return &GormChannelRepo{db: db}
}

func (r *GormChannelRepo) Create(ctx context.Context, c *domain.ChannelConfig) error {
	model := channelModelFromDomain(c)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *channelModelToDomain(model)
	}
	return nil
}

func (r *GormChannelRepo) SaveExclusive(ctx context.Context, c *domain.ChannelConfig) error {
	model := channelModelFromDomain(c)
	if model == nil {
		return domain.ErrValidation
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ChannelModel{}).
			Where("channel_type = ? AND scope = ? AND id <> ? AND is_active", model.ChannelType, model.Scope, model.ID).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Save(model).Error
	})
	if err != nil {
		return err
	}

	if c != nil {
		*c = *channelModelToDomain(model)
	}
	return nil
}

func (r *GormChannelRepo) Save(ctx context.Context, c *domain.ChannelConfig) error {
	model := channelModelFromDomain(c)
	if err := r.db.WithContext(ctx).Save(model).Error; err != nil {
		return err
	}
	if c != nil {
		*c = *channelModelToDomain(model)
	}
	return nil
}

func (r *GormChannelRepo) GetByID(ctx context.Context, id string) (*domain.ChannelConfig, error) {
	var model ChannelModel
	err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return channelModelToDomain(&model), nil
}

func (r *GormChannelRepo) List(ctx context.Context, params ListParams) ([]domain.ChannelConfig, int64, error) {
	query := r.db.WithContext(ctx).Model(&ChannelModel{})

	if search := params.Search; search != "" {
		pattern := "%" + search + "%"
		query = query.Where("display_name ILIKE ? OR endpoint_url ILIKE ?", pattern, pattern)
	}
	if params.ChannelType != nil {
		query = query.Where("channel_type = ?", *params.ChannelType)
	}
	if params.IsActive != nil {
		query = query.Where("is_active = ?", *params.IsActive)
	}
	if len(params.Scopes) > 0 {
		query = query.Where("scope IN ?", params.Scopes)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := max(params.Page, 1)
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = 50
	}
	pageSize = min(pageSize, 100)

	var models []ChannelModel
	err := query.
		Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&models).Error
	if err != nil {
		return nil, 0, err
	}

	channels := make([]domain.ChannelConfig, 0, len(models))
	for i := range models {
		channels = append(channels, *channelModelToDomain(&models[i]))
	}

	return channels, total, nil
}

func (r *GormChannelRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Delete(&ChannelModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *GormChannelRepo) TouchLastTested(ctx context.Context, id string, testedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&ChannelModel{}).
		Where("id = ?", id).
		Update("last_tested_at", testedAt)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
