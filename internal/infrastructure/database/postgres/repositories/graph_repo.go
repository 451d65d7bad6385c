// Package repositories holds the PostgreSQL implementations of the domain
// repository ports.
package repositories

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/turtacn/MolGraph-Codec/internal/domain/molgraph"
	"github.com/turtacn/MolGraph-Codec/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/MolGraph-Codec/pkg/errors"
)

const (
	graphTable       = "encoded_graphs"
	uniqueViolation  = "23505"
	defaultPageLimit = 50
	maxPageLimit     = 1000
)

var graphColumns = []string{
	"id", "smiles", "max_length", "nodes", "edges",
	"num_atoms", "num_bonds", "padded", "created_at",
}

const selectGraph = `
	SELECT id, smiles, max_length, nodes, edges,
	       num_atoms, num_bonds, padded, created_at
	FROM encoded_graphs`

// DBTX is the pgx surface the repository uses; *pgxpool.Pool, *pgx.Conn and
// pgx.Tx all satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// QueryObserver receives the duration and outcome of each round trip.
type QueryObserver interface {
	ObserveQuery(db, operation string, d time.Duration, err error)
}

// GraphRepository is the PostgreSQL implementation of molgraph.GraphRepository.
type GraphRepository struct {
	db       DBTX
	logger   logging.Logger
	observer QueryObserver
}

// GraphRepositoryOption customises a GraphRepository.
type GraphRepositoryOption func(*GraphRepository)

// WithQueryObserver reports query timings to o.
func WithQueryObserver(o QueryObserver) GraphRepositoryOption {
	return func(r *GraphRepository) { r.observer = o }
}

// NewGraphRepository constructs a ready-to-use GraphRepository.
func NewGraphRepository(db DBTX, logger logging.Logger, opts ...GraphRepositoryOption) *GraphRepository {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	r := &GraphRepository{db: db, logger: logger}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var _ molgraph.GraphRepository = (*GraphRepository)(nil)

// ─────────────────────────────────────────────────────────────────────────────
// Save
// ─────────────────────────────────────────────────────────────────────────────

// Save upserts rec keyed by (smiles, max_length).  On conflict the existing
// id is kept and written back to rec.ID.
func (r *GraphRepository) Save(ctx context.Context, rec *molgraph.GraphRecord) (err error) {
	defer r.observe("save", time.Now(), &err)

	row, err := graphRow(rec)
	if err != nil {
		return err
	}
	var id uuid.UUID
	err = r.db.QueryRow(ctx, `
		INSERT INTO encoded_graphs (
			id, smiles, max_length, nodes, edges,
			num_atoms, num_bonds, padded, created_at
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (smiles, max_length) DO UPDATE SET
			nodes = EXCLUDED.nodes,
			edges = EXCLUDED.edges,
			num_atoms = EXCLUDED.num_atoms,
			num_bonds = EXCLUDED.num_bonds,
			padded = EXCLUDED.padded
		RETURNING id`, row...).Scan(&id)
	if err != nil {
		r.logger.Error("GraphRepository.Save", logging.Err(err), logging.String("smiles", rec.SMILES))
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to save encoded graph")
	}
	rec.ID = id
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// BatchSave bulk-inserts records with pgx.CopyFrom.
// ─────────────────────────────────────────────────────────────────────────────

// BatchSave inserts recs with the COPY protocol.  COPY cannot upsert, so a
// record whose (smiles, max_length) already exists fails the whole batch
// with ErrCodeConflict.
func (r *GraphRepository) BatchSave(ctx context.Context, recs []*molgraph.GraphRecord) (err error) {
	if len(recs) == 0 {
		return nil
	}
	defer r.observe("batch_save", time.Now(), &err)

	rows := make([][]any, 0, len(recs))
	for _, rec := range recs {
		row, err := graphRow(rec)
		if err != nil {
			return err
		}
		rows = append(rows, row)
	}

	n, err := r.db.CopyFrom(ctx, pgx.Identifier{graphTable}, graphColumns, pgx.CopyFromRows(rows))
	if err != nil {
		r.logger.Error("GraphRepository.BatchSave", logging.Err(err), logging.Int("count", len(recs)))
		var pgErr *pgconn.PgError
		if stderrors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return errors.Wrap(err, errors.ErrCodeConflict, "encoded graph already exists").
				WithDetail(pgErr.Detail)
		}
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to batch insert encoded graphs")
	}
	r.logger.Debug("GraphRepository.BatchSave: done", logging.Int64("inserted", n))
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// Lookups
// ─────────────────────────────────────────────────────────────────────────────

func (r *GraphRepository) FindByID(ctx context.Context, id uuid.UUID) (rec *molgraph.GraphRecord, err error) {
	defer r.observe("find_by_id", time.Now(), &err)
	rec, err = scanGraph(r.db.QueryRow(ctx, selectGraph+` WHERE id = $1`, id))
	if err != nil {
		return nil, lookupError(err, "id="+id.String())
	}
	return rec, nil
}

func (r *GraphRepository) FindBySMILES(ctx context.Context, smiles string, maxLength int) (rec *molgraph.GraphRecord, err error) {
	defer r.observe("find_by_smiles", time.Now(), &err)
	rec, err = scanGraph(r.db.QueryRow(ctx, selectGraph+` WHERE smiles = $1 AND max_length = $2`, smiles, maxLength))
	if err != nil {
		return nil, lookupError(err, "smiles="+smiles)
	}
	return rec, nil
}

// List returns records newest first.  limit is clamped to 1..1000 with a
// default of 50.
func (r *GraphRepository) List(ctx context.Context, limit, offset int) (recs []*molgraph.GraphRecord, total int64, err error) {
	defer r.observe("list", time.Now(), &err)

	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}

	if err = r.db.QueryRow(ctx, `SELECT COUNT(*) FROM encoded_graphs`).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to count encoded graphs")
	}

	rows, err := r.db.Query(ctx, selectGraph+` ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to list encoded graphs")
	}
	defer rows.Close()

	for rows.Next() {
		rec, scanErr := scanGraph(rows)
		if scanErr != nil {
			return nil, 0, wrapDB(scanErr, "failed to scan encoded graph")
		}
		recs = append(recs, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, 0, errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to iterate encoded graphs")
	}
	return recs, total, nil
}

// Delete removes the record with id; a missing record is ErrCodeGraphNotFound.
func (r *GraphRepository) Delete(ctx context.Context, id uuid.UUID) (err error) {
	defer r.observe("delete", time.Now(), &err)
	tag, err := r.db.Exec(ctx, `DELETE FROM encoded_graphs WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeDatabaseError, "failed to delete encoded graph")
	}
	if tag.RowsAffected() == 0 {
		return errors.New(errors.ErrCodeGraphNotFound, "encoded graph not found").WithDetailf("id=%s", id)
	}
	return nil
}

// ─────────────────────────────────────────────────────────────────────────────
// helpers
// ─────────────────────────────────────────────────────────────────────────────

func (r *GraphRepository) observe(op string, start time.Time, err *error) {
	if r.observer != nil {
		r.observer.ObserveQuery("postgres", op, time.Since(start), *err)
	}
}

func graphRow(rec *molgraph.GraphRecord) ([]any, error) {
	if rec == nil || rec.Graph == nil {
		return nil, errors.Validation("graph", "record has no encoded graph")
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	nodes, err := json.Marshal(rec.Graph.Nodes)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode nodes")
	}
	edges, err := json.Marshal(rec.Graph.Edges)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to encode edges")
	}
	return []any{
		rec.ID, rec.SMILES, rec.Graph.MaxLength, nodes, edges,
		rec.NumAtoms, rec.NumBonds, rec.Padded, rec.CreatedAt,
	}, nil
}

func scanGraph(row pgx.Row) (*molgraph.GraphRecord, error) {
	var (
		rec          molgraph.GraphRecord
		maxLength    int
		nodes, edges []byte
	)
	if err := row.Scan(&rec.ID, &rec.SMILES, &maxLength, &nodes, &edges,
		&rec.NumAtoms, &rec.NumBonds, &rec.Padded, &rec.CreatedAt); err != nil {
		return nil, err
	}
	g := &molgraph.EncodedGraph{MaxLength: maxLength}
	if err := json.Unmarshal(nodes, &g.Nodes); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode nodes")
	}
	if err := json.Unmarshal(edges, &g.Edges); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode edges")
	}
	rec.Graph = g
	return &rec, nil
}

func lookupError(err error, detail string) error {
	if stderrors.Is(err, pgx.ErrNoRows) {
		return errors.New(errors.ErrCodeGraphNotFound, "encoded graph not found").WithDetail(detail)
	}
	return wrapDB(err, "failed to load encoded graph").WithDetail(detail)
}

// wrapDB keeps the code of decoding errors and tags driver errors as
// database errors.
func wrapDB(err error, msg string) *errors.AppError {
	if _, ok := errors.AsAppError(err); ok {
		return errors.Wrap(err, errors.CodeUnknown, msg)
	}
	return errors.Wrap(err, errors.ErrCodeDatabaseError, msg)
}

//Personal.AI order the ending
