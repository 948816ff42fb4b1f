package clickhouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/observability"
	"airdrop-scout/internal/storage"
)

// ScoreHistoryStore implements storage.ScoreHistoryStore using ClickHouse.
type ScoreHistoryStore struct {
	conn *Conn
}

// NewScoreHistoryStore creates a new ScoreHistoryStore.
func NewScoreHistoryStore(conn *Conn) *ScoreHistoryStore {
	return &ScoreHistoryStore{conn: conn}
}

// Compile-time interface check.
var _ storage.ScoreHistoryStore = (*ScoreHistoryStore)(nil)

// InsertBulk appends snapshots in one batch. Fails entire batch on invalid rows.
func (s *ScoreHistoryStore) InsertBulk(ctx context.Context, snapshots []*domain.ScoreSnapshot) (err error) {
	if len(snapshots) == 0 {
		return nil
	}

	runIDs := make([]uuid.UUID, len(snapshots))
	for i, snap := range snapshots {
		if err := storage.ValidateSnapshot(snap); err != nil {
			return err
		}
		id, err := uuid.Parse(snap.RunID)
		if err != nil {
			return fmt.Errorf("%w: run_id %q", storage.ErrInvalidInput, snap.RunID)
		}
		runIDs[i] = id
	}

	start := time.Now()
	defer func() {
		observability.RecordDBQuery("clickhouse", "insert_score_history", time.Since(start).Seconds(), err)
	}()

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO score_history (
			run_id, address, project_id,
			current_score, opportunity_score, effort_needed,
			computed_at_ms
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for i, snap := range snapshots {
		err = batch.Append(
			runIDs[i],
			strings.ToLower(snap.Address),
			snap.ProjectID,
			uint8(snap.CurrentScore),
			uint8(snap.OpportunityScore),
			uint16(snap.EffortNeeded),
			snap.ComputedAt,
		)
		if err != nil {
			return fmt.Errorf("append to batch: %w", err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByAddress retrieves snapshots for an address, ordered by computed_at ASC, project_id ASC.
func (s *ScoreHistoryStore) GetByAddress(ctx context.Context, address string) ([]*domain.ScoreSnapshot, error) {
	return s.query(ctx, "get_history_by_address", `
		SELECT run_id, address, project_id, current_score, opportunity_score, effort_needed, computed_at_ms
		FROM score_history
		WHERE address = ?
		ORDER BY computed_at_ms ASC, project_id ASC
	`, strings.ToLower(address))
}

// GetByProject retrieves snapshots for a project, ordered by computed_at ASC, address ASC.
func (s *ScoreHistoryStore) GetByProject(ctx context.Context, projectID string) ([]*domain.ScoreSnapshot, error) {
	return s.query(ctx, "get_history_by_project", `
		SELECT run_id, address, project_id, current_score, opportunity_score, effort_needed, computed_at_ms
		FROM score_history
		WHERE project_id = ?
		ORDER BY computed_at_ms ASC, address ASC
	`, projectID)
}

func (s *ScoreHistoryStore) query(ctx context.Context, op, query string, arg string) (result []*domain.ScoreSnapshot, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("clickhouse", op, time.Since(start).Seconds(), err) }()

	rows, err := s.conn.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("query score history: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			runID       uuid.UUID
			current     uint8
			opportunity uint8
			effort      uint16
			snap        domain.ScoreSnapshot
		)
		if err := rows.Scan(&runID, &snap.Address, &snap.ProjectID, &current, &opportunity, &effort, &snap.ComputedAt); err != nil {
			return nil, fmt.Errorf("scan score history: %w", err)
		}
		snap.RunID = runID.String()
		snap.CurrentScore = int(current)
		snap.OpportunityScore = int(opportunity)
		snap.EffortNeeded = int(effort)
		result = append(result, &snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate score history: %w", err)
	}
	return result, nil
}
