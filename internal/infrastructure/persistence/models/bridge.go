package models

import (
	"time"

	"github.com/accountsync/backend/internal/domain/bridge"
	"github.com/google/uuid"
)

// ConnectorModel maps the bridge.Connector aggregate to the connectors table
type ConnectorModel struct {
	TenantAggregateModel
	Name                 string     `gorm:"type:varchar(255);not null"`
	MachineName          string     `gorm:"type:varchar(255)"`
	EngineHost           string     `gorm:"type:varchar(255);not null;default:'localhost'"`
	EnginePort           int        `gorm:"not null;default:9000"`
	APIKey               string     `gorm:"type:varchar(64);not null;uniqueIndex"`
	Status               string     `gorm:"type:varchar(20);not null;default:'inactive';index"`
	ConnectorVersion     string     `gorm:"type:varchar(50)"`
	EngineVersion        string     `gorm:"type:varchar(100)"`
	LastHeartbeat        *time.Time `gorm:"index"`
	LastSyncAt           *time.Time
	TotalOperations      int64 `gorm:"not null;default:0"`
	SuccessfulOperations int64 `gorm:"not null;default:0"`
	FailedOperations     int64 `gorm:"not null;default:0"`
}

// TableName specifies the table name for ConnectorModel
func (ConnectorModel) TableName() string {
	return "connectors"
}

// ToDomain converts ConnectorModel to domain Connector
func (m *ConnectorModel) ToDomain() *bridge.Connector {
	c := &bridge.Connector{
		Name:                 m.Name,
		MachineName:          m.MachineName,
		EngineHost:           m.EngineHost,
		EnginePort:           m.EnginePort,
		APIKey:               m.APIKey,
		Status:               bridge.ConnectorStatus(m.Status),
		ConnectorVersion:     m.ConnectorVersion,
		EngineVersion:        m.EngineVersion,
		LastHeartbeat:        m.LastHeartbeat,
		LastSyncAt:           m.LastSyncAt,
		TotalOperations:      m.TotalOperations,
		SuccessfulOperations: m.SuccessfulOperations,
		FailedOperations:     m.FailedOperations,
	}
	m.PopulateTenantAggregateRoot(&c.TenantAggregateRoot)
	return c
}

// FromDomain populates ConnectorModel from domain Connector
func (m *ConnectorModel) FromDomain(c *bridge.Connector) {
	m.FromDomainTenantAggregateRoot(c.TenantAggregateRoot)
	m.Name = c.Name
	m.MachineName = c.MachineName
	m.EngineHost = c.EngineHost
	m.EnginePort = c.EnginePort
	m.APIKey = c.APIKey
	m.Status = string(c.Status)
	m.ConnectorVersion = c.ConnectorVersion
	m.EngineVersion = c.EngineVersion
	m.LastHeartbeat = c.LastHeartbeat
	m.LastSyncAt = c.LastSyncAt
	m.TotalOperations = c.TotalOperations
	m.SuccessfulOperations = c.SuccessfulOperations
	m.FailedOperations = c.FailedOperations
}

// OperationModel maps the bridge.Operation entity to the sync_operations table
type OperationModel struct {
	BaseModel
	ConnectorID  uuid.UUID  `gorm:"type:uuid;not null;index:idx_sync_operations_claim,priority:1"`
	TenantID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	Type         string     `gorm:"type:varchar(30);not null"`
	Status       string     `gorm:"type:varchar(20);not null;default:'pending';index:idx_sync_operations_claim,priority:2"`
	Priority     int        `gorm:"not null;default:2;index:idx_sync_operations_claim,priority:3,sort:desc"`
	RequestXML   string     `gorm:"type:text"`
	RequestData  string     `gorm:"type:text"`
	ResponseXML  string     `gorm:"type:text"`
	ResponseData string     `gorm:"type:text"`
	ErrorMessage string     `gorm:"type:text"`
	VoucherID    *uuid.UUID `gorm:"type:uuid;index"`
	RetryCount   int        `gorm:"not null;default:0"`
	MaxRetries   int        `gorm:"not null;default:3"`
	StartedAt    *time.Time `gorm:"index"`
	CompletedAt  *time.Time `gorm:"index"`
}

// TableName specifies the table name for OperationModel
func (OperationModel) TableName() string {
	return "sync_operations"
}

// ToDomain converts OperationModel to domain Operation
func (m *OperationModel) ToDomain() *bridge.Operation {
	return &bridge.Operation{
		BaseEntity:   m.BaseModel.ToDomain(),
		ConnectorID:  m.ConnectorID,
		TenantID:     m.TenantID,
		Type:         bridge.OperationType(m.Type),
		Status:       bridge.OperationStatus(m.Status),
		Priority:     m.Priority,
		RequestXML:   m.RequestXML,
		RequestData:  m.RequestData,
		ResponseXML:  m.ResponseXML,
		ResponseData: m.ResponseData,
		ErrorMessage: m.ErrorMessage,
		VoucherID:    m.VoucherID,
		RetryCount:   m.RetryCount,
		MaxRetries:   m.MaxRetries,
		StartedAt:    m.StartedAt,
		CompletedAt:  m.CompletedAt,
	}
}

// FromDomain populates OperationModel from domain Operation
func (m *OperationModel) FromDomain(op *bridge.Operation) {
	m.FromDomainBaseEntity(op.BaseEntity)
	m.ConnectorID = op.ConnectorID
	m.TenantID = op.TenantID
	m.Type = string(op.Type)
	m.Status = string(op.Status)
	m.Priority = op.Priority
	m.RequestXML = op.RequestXML
	m.RequestData = op.RequestData
	m.ResponseXML = op.ResponseXML
	m.ResponseData = op.ResponseData
	m.ErrorMessage = op.ErrorMessage
	m.VoucherID = op.VoucherID
	m.RetryCount = op.RetryCount
	m.MaxRetries = op.MaxRetries
	m.StartedAt = op.StartedAt
	m.CompletedAt = op.CompletedAt
}

// TallyMasterModel maps the bridge.TallyMaster aggregate to the tally_masters table
type TallyMasterModel struct {
	TenantAggregateModel
	MasterType string `gorm:"type:varchar(30);not null;uniqueIndex:idx_tally_masters_identity,priority:2"`
	Name       string `gorm:"type:varchar(255);not null;uniqueIndex:idx_tally_masters_identity,priority:3"`
	Parent     string `gorm:"type:varchar(255)"`
	EngineGUID string `gorm:"type:varchar(100);index"`
	Data       string `gorm:"type:text"`
}

// TableName specifies the table name for TallyMasterModel
func (TallyMasterModel) TableName() string {
	return "tally_masters"
}

// ToDomain converts TallyMasterModel to domain TallyMaster
func (m *TallyMasterModel) ToDomain() *bridge.TallyMaster {
	master := &bridge.TallyMaster{
		MasterType: bridge.MasterType(m.MasterType),
		Name:       m.Name,
		Parent:     m.Parent,
		EngineGUID: m.EngineGUID,
		Data:       m.Data,
	}
	m.PopulateTenantAggregateRoot(&master.TenantAggregateRoot)
	return master
}

// FromDomain populates TallyMasterModel from domain TallyMaster
func (m *TallyMasterModel) FromDomain(master *bridge.TallyMaster) {
	m.FromDomainTenantAggregateRoot(master.TenantAggregateRoot)
	m.MasterType = string(master.MasterType)
	m.Name = master.Name
	m.Parent = master.Parent
	m.EngineGUID = master.EngineGUID
	m.Data = master.Data
}
