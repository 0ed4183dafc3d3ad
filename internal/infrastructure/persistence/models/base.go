package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/huuphu310/rooms-management-sub003/internal/domain/shared"
)

// BaseModel provides common persistence fields for all models.
// It maps to the domain's BaseEntity.
type BaseModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// ToDomain converts BaseModel to domain BaseEntity
func (m *BaseModel) ToDomain() shared.BaseEntity {
	return shared.BaseEntity{
		ID:        m.ID,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// FromDomainBaseEntity populates BaseModel from domain BaseEntity
func (m *BaseModel) FromDomainBaseEntity(e shared.BaseEntity) {
	m.ID = e.ID
	m.CreatedAt = e.CreatedAt
	m.UpdatedAt = e.UpdatedAt
}

// AggregateModel provides common persistence fields for aggregate roots.
// It extends BaseModel with version for optimistic locking.
type AggregateModel struct {
	BaseModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot populates AggregateModel from domain BaseAggregateRoot
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.FromDomainBaseEntity(a.BaseEntity)
	m.Version = a.Version
}

// PropertyAggregateModel provides common persistence fields for property-scoped
// aggregate roots. It extends AggregateModel with property ID and creator info.
type PropertyAggregateModel struct {
	AggregateModel
	PropertyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid;index"`
}

// FromDomainPropertyAggregateRoot populates PropertyAggregateModel from domain PropertyAggregateRoot
func (m *PropertyAggregateModel) FromDomainPropertyAggregateRoot(p shared.PropertyAggregateRoot) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.PropertyID = p.PropertyID
	m.CreatedBy = p.CreatedBy
}

// PopulatePropertyAggregateRoot populates a domain PropertyAggregateRoot from persistence model
func (m *PropertyAggregateModel) PopulatePropertyAggregateRoot(p *shared.PropertyAggregateRoot) {
	p.BaseAggregateRoot.BaseEntity.ID = m.ID
	p.BaseAggregateRoot.BaseEntity.CreatedAt = m.CreatedAt
	p.BaseAggregateRoot.BaseEntity.UpdatedAt = m.UpdatedAt
	p.BaseAggregateRoot.Version = m.Version
	p.PropertyID = m.PropertyID
	p.CreatedBy = m.CreatedBy
}
