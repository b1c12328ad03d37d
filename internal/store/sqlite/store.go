package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"tradepilot/internal/store"
	"tradepilot/internal/store/model"
	"tradepilot/internal/types"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store is the sqlite-backed Persistence implementation.
type Store struct {
	db *gorm.DB
}

func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&cache=shared", path)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite store db handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(2)

	if err := db.AutoMigrate(
		&model.StrategyModel{},
		&model.PortfolioViewModel{},
		&model.StrategySummaryModel{},
		&model.ComposeCycleModel{},
		&model.InstructionModel{},
		&model.TradeModel{},
	); err != nil {
		return nil, fmt.Errorf("migrate sqlite store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) RegisterStrategy(ctx context.Context, rec store.StrategyRecord) error {
	symbols, err := json.Marshal(rec.Symbols)
	if err != nil {
		return fmt.Errorf("marshal symbols: %w", err)
	}
	row := model.StrategyModel{
		StrategyID: rec.StrategyID,
		Name:       rec.Name,
		Mode:       string(rec.Mode),
		Status:     string(rec.Status),
		StopReason: rec.StopReason,
		Symbols:    datatypes.JSON(symbols),
		CreatedTs:  rec.CreatedTs,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "strategy_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "mode", "status", "stop_reason", "symbols"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("register strategy %s: %w", rec.StrategyID, err)
	}
	return nil
}

func (s *Store) StrategyRunning(ctx context.Context, strategyID string) (bool, error) {
	var row model.StrategyModel
	err := s.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		First(&row).Error
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query strategy %s: %w", strategyID, err)
	}
	return row.Status == string(types.StatusRunning), nil
}

func (s *Store) MarkStrategyStopped(ctx context.Context, strategyID, reason string) error {
	res := s.db.WithContext(ctx).
		Model(&model.StrategyModel{}).
		Where("strategy_id = ?", strategyID).
		Updates(map[string]any{
			"status":      string(types.StatusStopped),
			"stop_reason": reason,
		})
	if res.Error != nil {
		return fmt.Errorf("mark strategy %s stopped: %w", strategyID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("strategy %s not registered", strategyID)
	}
	return nil
}

func (s *Store) PersistPortfolioView(ctx context.Context, view types.PortfolioView) error {
	payload, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("marshal portfolio view: %w", err)
	}
	row := model.PortfolioViewModel{
		StrategyID: view.StrategyID,
		Ts:         view.Ts,
		Payload:    datatypes.JSON(payload),
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("persist portfolio view: %w", err)
	}
	return nil
}

func (s *Store) PersistStrategySummary(ctx context.Context, summary types.StrategySummary) error {
	payload, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal strategy summary: %w", err)
	}
	row := model.StrategySummaryModel{
		StrategyID: summary.StrategyID,
		UpdatedTs:  summary.LastUpdatedTs,
		Payload:    datatypes.JSON(payload),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "strategy_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_ts", "payload"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("persist strategy summary: %w", err)
	}
	return nil
}

func (s *Store) PersistComposeCycle(ctx context.Context, cycle store.ComposeCycle) error {
	row := model.ComposeCycleModel{
		StrategyID: cycle.StrategyID,
		ComposeID:  cycle.ComposeID,
		Ts:         cycle.Ts,
		CycleIndex: cycle.CycleIndex,
		Rationale:  cycle.Rationale,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "compose_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("persist compose cycle %s: %w", cycle.ComposeID, err)
	}
	return nil
}

func (s *Store) PersistInstructions(ctx context.Context, strategyID string, instructions []types.TradeInstruction) error {
	if len(instructions) == 0 {
		return nil
	}
	rows := make([]model.InstructionModel, 0, len(instructions))
	for _, instr := range instructions {
		payload, err := json.Marshal(instr)
		if err != nil {
			return fmt.Errorf("marshal instruction %s: %w", instr.InstructionID, err)
		}
		rows = append(rows, model.InstructionModel{
			StrategyID:    strategyID,
			ComposeID:     instr.ComposeID,
			InstructionID: instr.InstructionID,
			Payload:       datatypes.JSON(payload),
		})
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "instruction_id"}},
		DoNothing: true,
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("persist instructions: %w", err)
	}
	return nil
}

func (s *Store) PersistTradeHistory(ctx context.Context, strategyID string, trade types.Trade) error {
	payload, err := json.Marshal(trade)
	if err != nil {
		return fmt.Errorf("marshal trade %s: %w", trade.TradeID, err)
	}
	row := model.TradeModel{
		StrategyID: strategyID,
		TradeID:    trade.TradeID,
		Ts:         trade.TradeTs,
		Payload:    datatypes.JSON(payload),
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "trade_id"}},
		DoNothing: true,
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("persist trade %s: %w", trade.TradeID, err)
	}
	return nil
}

func (s *Store) ListStrategies(ctx context.Context) ([]store.StrategyRecord, error) {
	var rows []model.StrategyModel
	if err := s.db.WithContext(ctx).Order("created_ts asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list strategies: %w", err)
	}
	out := make([]store.StrategyRecord, 0, len(rows))
	for _, row := range rows {
		var symbols []string
		if len(row.Symbols) > 0 {
			if err := json.Unmarshal(row.Symbols, &symbols); err != nil {
				return nil, fmt.Errorf("decode symbols for %s: %w", row.StrategyID, err)
			}
		}
		out = append(out, store.StrategyRecord{
			StrategyID: row.StrategyID,
			Name:       row.Name,
			Mode:       types.TradingMode(row.Mode),
			Status:     types.StrategyStatus(row.Status),
			StopReason: row.StopReason,
			Symbols:    symbols,
			CreatedTs:  row.CreatedTs,
		})
	}
	return out, nil
}

func (s *Store) ListStrategySummaries(ctx context.Context) ([]types.StrategySummary, error) {
	var rows []model.StrategySummaryModel
	if err := s.db.WithContext(ctx).Order("updated_ts desc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list strategy summaries: %w", err)
	}
	out := make([]types.StrategySummary, 0, len(rows))
	for _, row := range rows {
		var summary types.StrategySummary
		if err := json.Unmarshal(row.Payload, &summary); err != nil {
			return nil, fmt.Errorf("decode summary for %s: %w", row.StrategyID, err)
		}
		out = append(out, summary)
	}
	return out, nil
}

func (s *Store) ListTrades(ctx context.Context, strategyID string, limit int) ([]types.Trade, error) {
	q := s.db.WithContext(ctx).
		Where("strategy_id = ?", strategyID).
		Order("ts desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.TradeModel
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list trades for %s: %w", strategyID, err)
	}
	out := make([]types.Trade, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		var trade types.Trade
		if err := json.Unmarshal(rows[i].Payload, &trade); err != nil {
			return nil, fmt.Errorf("decode trade %s: %w", rows[i].TradeID, err)
		}
		out = append(out, trade)
	}
	return out, nil
}
