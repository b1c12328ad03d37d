package model

import "gorm.io/datatypes"

// StrategyModel is the registration row driving the running predicate.
type StrategyModel struct {
	ID         uint           `gorm:"primaryKey"`
	StrategyID string         `gorm:"uniqueIndex;size:64"`
	Name       string         `gorm:"size:128"`
	Mode       string         `gorm:"size:16"`
	Status     string         `gorm:"size:16;index"`
	StopReason string         `gorm:"size:64"`
	Symbols    datatypes.JSON `gorm:"type:json"`
	CreatedTs  int64
}

func (StrategyModel) TableName() string { return "strategies" }

type PortfolioViewModel struct {
	ID         uint           `gorm:"primaryKey"`
	StrategyID string         `gorm:"index;size:64"`
	Ts         int64          `gorm:"index"`
	Payload    datatypes.JSON `gorm:"type:json"`
}

func (PortfolioViewModel) TableName() string { return "portfolio_views" }

type StrategySummaryModel struct {
	ID         uint           `gorm:"primaryKey"`
	StrategyID string         `gorm:"uniqueIndex;size:64"`
	UpdatedTs  int64
	Payload    datatypes.JSON `gorm:"type:json"`
}

func (StrategySummaryModel) TableName() string { return "strategy_summaries" }

type ComposeCycleModel struct {
	ID         uint   `gorm:"primaryKey"`
	StrategyID string `gorm:"index;size:64"`
	ComposeID  string `gorm:"uniqueIndex;size:64"`
	Ts         int64
	CycleIndex int
	Rationale  string `gorm:"type:text"`
}

func (ComposeCycleModel) TableName() string { return "compose_cycles" }

// InstructionModel rows are keyed by the deterministic instruction id, so
// a retried cycle inserts the same row at most once.
type InstructionModel struct {
	ID            uint           `gorm:"primaryKey"`
	StrategyID    string         `gorm:"index;size:64"`
	ComposeID     string         `gorm:"index;size:64"`
	InstructionID string         `gorm:"uniqueIndex;size:64"`
	Payload       datatypes.JSON `gorm:"type:json"`
}

func (InstructionModel) TableName() string { return "instructions" }

type TradeModel struct {
	ID         uint           `gorm:"primaryKey"`
	StrategyID string         `gorm:"index;size:64"`
	TradeID    string         `gorm:"uniqueIndex;size:64"`
	Ts         int64          `gorm:"index"`
	Payload    datatypes.JSON `gorm:"type:json"`
}

func (TradeModel) TableName() string { return "trades" }
