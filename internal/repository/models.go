package repository

import (
	"time"

	"github.com/clinicore/notify-engine/internal/domain"
)

// ChannelModel is the persistence model for the notification_channels table.
type ChannelModel struct {
	ID                    string             `gorm:"type:uuid;primaryKey"`
	ChannelType           domain.ChannelType `gorm:"type:varchar(20);not null"`
	DisplayName           string             `gorm:"type:varchar(255);not null"`
	EndpointURL           string             `gorm:"type:text;not null"`
	Port                  int                `gorm:"not null;default:443"`
	HTTPMethod            domain.HTTPMethod  `gorm:"type:varchar(10);not null"`
	AuthMethod            domain.AuthMethod  `gorm:"type:varchar(10);not null"`
	AuthConfig            map[string]string  `gorm:"type:jsonb;serializer:json"`
	SenderName            string             `gorm:"type:varchar(255)"`
	SenderIdentity        string             `gorm:"type:varchar(255)"`
	EnableTLSVerification bool               `gorm:"not null;default:true"`
	ContentType           domain.ContentType `gorm:"type:varchar(50);not null"`
	CustomHeaders         []domain.Pair      `gorm:"type:jsonb;serializer:json"`
	QueryParams           []domain.Pair      `gorm:"type:jsonb;serializer:json"`
	BodyTemplate          string             `gorm:"type:text"`
	IsActive              bool               `gorm:"not null;default:false"`
	Scope                 string             `gorm:"type:varchar(64);not null"`
	CreatedBy             string             `gorm:"type:varchar(255)"`
	CreatedAt             time.Time
	UpdatedAt             time.Time
	LastTestedAt          *time.Time
}

func (ChannelModel) TableName() string {
	return "notification_channels"
}

func channelModelFromDomain(c *domain.ChannelConfig) *ChannelModel {
	if c == nil {
		return nil
	}

	return &ChannelModel{
		ID:                    c.ID,
		ChannelType:           c.ChannelType,
		DisplayName:           c.DisplayName,
		EndpointURL:           c.EndpointURL,
		Port:                  c.Port,
		HTTPMethod:            c.HTTPMethod,
		AuthMethod:            c.AuthMethod,
		AuthConfig:            c.AuthConfig,
		SenderName:            c.SenderName,
		SenderIdentity:        c.SenderIdentity,
		EnableTLSVerification: c.EnableTLSVerification,
		ContentType:           c.ContentType,
		CustomHeaders:         c.CustomHeaders,
		QueryParams:           c.QueryParams,
		BodyTemplate:          c.BodyTemplate,
		IsActive:              c.IsActive,
		Scope:                 c.Scope,
		CreatedBy:             c.CreatedBy,
		CreatedAt:             c.CreatedAt,
		UpdatedAt:             c.UpdatedAt,
		LastTestedAt:          c.LastTestedAt,
	}
}

func channelModelToDomain(m *ChannelModel) *domain.ChannelConfig {
	if m == nil {
		return nil
	}

	return &domain.ChannelConfig{
		ID:                    m.ID,
		ChannelType:           m.ChannelType,
		DisplayName:           m.DisplayName,
		EndpointURL:           m.EndpointURL,
		Port:                  m.Port,
		HTTPMethod:            m.HTTPMethod,
		AuthMethod:            m.AuthMethod,
		AuthConfig:            m.AuthConfig,
		SenderName:            m.SenderName,
		SenderIdentity:        m.SenderIdentity,
		EnableTLSVerification: m.EnableTLSVerification,
		ContentType:           m.ContentType,
		CustomHeaders:         m.CustomHeaders,
		QueryParams:           m.QueryParams,
		BodyTemplate:          m.BodyTemplate,
		IsActive:              m.IsActive,
		Scope:                 m.Scope,
		CreatedBy:             m.CreatedBy,
		CreatedAt:             m.CreatedAt,
		UpdatedAt:             m.UpdatedAt,
		LastTestedAt:          m.LastTestedAt,
	}
}
