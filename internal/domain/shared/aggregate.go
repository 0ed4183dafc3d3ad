package shared

import (
	"github.com/google/uuid"
)

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// GetVersion returns the aggregate version for optimistic locking
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
}

// AddDomainEvent adds a domain event to be published
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}

// PropertyAggregateRoot extends BaseAggregateRoot with property scoping.
// Every billing aggregate belongs to exactly one property (hotel/site).
type PropertyAggregateRoot struct {
	BaseAggregateRoot
	PropertyID uuid.UUID  `gorm:"type:uuid;not null;index"`
	CreatedBy  *uuid.UUID `gorm:"type:uuid;index"` // Authenticated actor who created the record
}

// NewPropertyAggregateRoot creates a new property-scoped aggregate root
func NewPropertyAggregateRoot(propertyID uuid.UUID) PropertyAggregateRoot {
	return PropertyAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		PropertyID:        propertyID,
	}
}

// NewPropertyAggregateRootWithCreator creates a new property-scoped aggregate root with creator info
func NewPropertyAggregateRootWithCreator(propertyID, createdBy uuid.UUID) PropertyAggregateRoot {
	return PropertyAggregateRoot{
		BaseAggregateRoot: NewBaseAggregateRoot(),
		PropertyID:        propertyID,
		CreatedBy:         &createdBy,
	}
}

// SetCreatedBy sets the creator actor ID
func (p *PropertyAggregateRoot) SetCreatedBy(actorID uuid.UUID) {
	p.CreatedBy = &actorID
}

// GetCreatedBy returns the creator actor ID
func (p *PropertyAggregateRoot) GetCreatedBy() *uuid.UUID {
	return p.CreatedBy
}
