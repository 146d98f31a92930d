package domain

import "time"

// Role type to distinguish between user roles
type Role string

const (
	RoleTrainer Role = "trainer"
	RoleClient  Role = "client"
	RoleAdmin   Role = "admin"
)

// Principal is the authenticated caller as established by the token boundary.
// Identity and profiles live in an external service; only the id and role reach this core.
type Principal struct {
	UserID string `json:"userId"`
	Role   Role   `json:"role"`
}

func (p Principal) IsTrainer() bool {
	return p.Role == RoleTrainer
}

func (p Principal) IsClient() bool {
	return p.Role == RoleClient
}

type RelationStatus string

const (
	RelationActive   RelationStatus = "active"
	RelationInactive RelationStatus = "inactive"
)

// TrainerClient links a trainer to a client they manage. One row per pair.
type TrainerClient struct {
	TrainerID string         `gorm:"primaryKey;type:varchar(36)" bson:"trainerId" json:"trainerId"`
	ClientID  string         `gorm:"primaryKey;type:varchar(36);index" bson:"clientId" json:"clientId"`
	Status    RelationStatus `gorm:"type:varchar(16);not null" bson:"status" json:"status"`
	CreatedAt time.Time      `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time      `bson:"updatedAt" json:"updatedAt"`
}

func (TrainerClient) TableName() string { return "trainer_clients" }

func (tc *TrainerClient) IsActive() bool {
	return tc.Status == RelationActive
}
