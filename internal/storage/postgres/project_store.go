package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"airdrop-scout/internal/domain"
	"airdrop-scout/internal/observability"
	"airdrop-scout/internal/storage"
)

// ProjectStore implements storage.ProjectStore using PostgreSQL.
type ProjectStore struct {
	pool *Pool
}

// NewProjectStore creates a new ProjectStore.
func NewProjectStore(pool *Pool) *ProjectStore {
	return &ProjectStore{pool: pool}
}

// Compile-time interface check.
var _ storage.ProjectStore = (*ProjectStore)(nil)

const projectColumns = `project_id, name, status, chains, criteria, snapshot_date, estimated_value_usd, claim_url`

// Insert adds a new project. Returns ErrDuplicateKey if project_id exists.
func (s *ProjectStore) Insert(ctx context.Context, p *domain.Project) (err error) {
	if err := storage.ValidateProject(p); err != nil {
		return err
	}
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "insert_project", time.Since(start).Seconds(), err) }()

	raw, err := domain.EncodeCriteria(p.Criteria)
	if err != nil {
		return fmt.Errorf("encode criteria: %w", err)
	}
	criteria, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("marshal criteria: %w", err)
	}

	query := `
		INSERT INTO airdrop_projects (` + projectColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = s.pool.Exec(ctx, query,
		p.ProjectID,
		p.Name,
		string(p.Status),
		chainsToInt64(p.Chains),
		criteria,
		p.SnapshotDate,
		p.EstimatedValueUSD,
		p.ClaimURL,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert project: %w", err)
	}
	return nil
}

// GetByID retrieves a project by its ID. Returns ErrNotFound if not exists.
func (s *ProjectStore) GetByID(ctx context.Context, projectID string) (p *domain.Project, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "get_project", time.Since(start).Seconds(), err) }()

	query := `
		SELECT ` + projectColumns + `
		FROM airdrop_projects
		WHERE project_id = $1
	`

	row := s.pool.QueryRow(ctx, query, projectID)
	p, err = scanProject(row)
	if err != nil {
		if isNotFoundError(err) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("get project by id: %w", err)
	}
	return p, nil
}

// List returns projects passing filter, ordered by project_id ASC.
// Empty filter lists are sent as NULL and match everything.
func (s *ProjectStore) List(ctx context.Context, filter domain.ProjectFilter) (projects []*domain.Project, err error) {
	start := time.Now()
	defer func() { observability.RecordDBQuery("postgres", "list_projects", time.Since(start).Seconds(), err) }()

	query := `
		SELECT ` + projectColumns + `
		FROM airdrop_projects
		WHERE ($1::text[] IS NULL OR status = ANY($1))
		  AND ($2::bigint[] IS NULL OR chains && $2)
		  AND ($3::text[] IS NULL OR project_id = ANY($3))
		ORDER BY project_id ASC
	`

	var statuses []string
	for _, st := range filter.Statuses {
		statuses = append(statuses, string(st))
	}

	var ids []string
	if len(filter.ProjectIDs) > 0 {
		ids = filter.ProjectIDs
	}
	var chains []int64
	if len(filter.Chains) > 0 {
		chains = chainsToInt64(filter.Chains)
	}

	rows, err := s.pool.Query(ctx, query, statuses, chains, ids)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	defer rows.Close()

	return scanProjects(rows)
}

func scanProject(row pgx.Row) (*domain.Project, error) {
	var (
		p        domain.Project
		status   string
		chains   []int64
		criteria []byte
	)
	if err := row.Scan(
		&p.ProjectID,
		&p.Name,
		&status,
		&chains,
		&criteria,
		&p.SnapshotDate,
		&p.EstimatedValueUSD,
		&p.ClaimURL,
	); err != nil {
		return nil, err
	}

	p.Status = domain.ProjectStatus(status)
	p.Chains = make([]domain.ChainID, 0, len(chains))
	for _, c := range chains {
		p.Chains = append(p.Chains, domain.ChainID(c))
	}
	if p.SnapshotDate != nil {
		utc := p.SnapshotDate.UTC()
		p.SnapshotDate = &utc
	}

	var raw []domain.RawCriterion
	if err := json.Unmarshal(criteria, &raw); err != nil {
		return nil, fmt.Errorf("project %s criteria: %w", p.ProjectID, err)
	}
	p.Criteria = domain.DecodeCriteriaLenient(raw)
	return &p, nil
}

func scanProjects(rows pgx.Rows) ([]*domain.Project, error) {
	var result []*domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		result = append(result, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate projects: %w", err)
	}
	return result, nil
}

func chainsToInt64(chains []domain.ChainID) []int64 {
	out := make([]int64, 0, len(chains))
	for _, c := range chains {
		out = append(out, int64(c))
	}
	return out
}
