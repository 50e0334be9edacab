package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"github.com/clinic/clinic/internal/config"
	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/metrics"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

// UpsertStrategy selects how doctors and patients are resolved by natural
// key.
type UpsertStrategy string

const (
	// UpsertAtomic resolves in a single INSERT ... ON CONFLICT DO UPDATE.
	UpsertAtomic UpsertStrategy = config.UpsertAtomic
	// UpsertLookup inserts with DO NOTHING and falls back to a SELECT. Two
	// concurrent callers can race; the loser gets ErrNotFoundAfterConflict
	// when the winning row is not visible yet.
	UpsertLookup UpsertStrategy = config.UpsertLookup
)

type RepoOption func(*repoPG)

func WithUpsertStrategy(s UpsertStrategy) RepoOption {
	return func(r *repoPG) { r.strategy = s }
}

func WithLogger(logger zerolog.Logger) RepoOption {
	return func(r *repoPG) { r.log = logger }
}

func WithMetrics(m *metrics.Collector) RepoOption {
	return func(r *repoPG) { r.metrics = m }
}

type repoPG struct {
	pool     *pgxpool.Pool
	strategy UpsertStrategy
	log      zerolog.Logger
	metrics  *metrics.Collector
}

func NewRepoPG(pool *pgxpool.Pool, opts ...RepoOption) Repository {
	r := &repoPG{pool: pool, strategy: UpsertAtomic, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// naturalKey holds the statements that resolve one entity by its natural key.
type naturalKey struct {
	entity string
	upsert string
	insert string
	lookup string
}

var doctorKey = naturalKey{
	entity: "doctor",
	upsert: `
		INSERT INTO medicos (nombre, especialidad) VALUES ($1, $2)
		ON CONFLICT (nombre, especialidad) DO UPDATE SET nombre = EXCLUDED.nombre
		RETURNING id, (xmax = 0)`,
	insert: `
		INSERT INTO medicos (nombre, especialidad) VALUES ($1, $2)
		ON CONFLICT (nombre, especialidad) DO NOTHING
		RETURNING id`,
	lookup: `SELECT id FROM medicos WHERE nombre = $1 AND especialidad = $2`,
}

var patientKey = naturalKey{
	entity: "patient",
	upsert: `
		INSERT INTO pacientes (nombre, edad) VALUES ($1, $2)
		ON CONFLICT (nombre, edad) DO UPDATE SET nombre = EXCLUDED.nombre
		RETURNING id, (xmax = 0)`,
	insert: `
		INSERT INTO pacientes (nombre, edad) VALUES ($1, $2)
		ON CONFLICT (nombre, edad) DO NOTHING
		RETURNING id`,
	lookup: `SELECT id FROM pacientes WHERE nombre = $1 AND edad = $2`,
}

const insertAppointmentSQL = `
	INSERT INTO citas (id_medico, id_paciente, fecha_hora) VALUES ($1, $2, $3)
	RETURNING id`

const loadAllSQL = `
	SELECT c.id, m.id, m.nombre, m.especialidad, p.id, p.nombre, p.edad, c.fecha_hora
	FROM citas c
	JOIN medicos m ON c.id_medico = m.id
	JOIN pacientes p ON c.id_paciente = p.id`

// storedTime is t as the citas.fecha_hora column keeps it: UTC, microsecond
// precision.
func storedTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// classify turns a driver error into a typed *Error. Errors that are already
// typed pass through unchanged.
func classify(op, entity string, err error) *Error {
	var typed *Error
	if errors.As(err, &typed) {
		return typed
	}

	e := &Error{Kind: KindQuery, Op: op, Entity: entity, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		e.SQLState = pgErr.Code
		e.Constraint = pgErr.ConstraintName
		switch code := pgErr.Code; {
		case code == db.ForeignKeyViolation:
			e.Kind = KindReferentialIntegrity
		case code == db.UniqueViolation, code == db.NotNullViolation, code == db.CheckViolation:
			e.Kind = KindConstraintViolation
		case db.IsIntegrityViolation(code):
			// exclusion and restrict violations
			e.Kind = KindConstraintViolation
		case db.IsConnectionException(code):
			e.Kind = KindConnection
		}
		return e
	}
	if db.IsConnectionError(err) {
		e.Kind = KindConnection
	}
	return e
}

func (r *repoPG) acquire(ctx context.Context, op string) (*pgxpool.Conn, error) {
	conn, err := r.pool.Acquire(ctx)
	if err != nil {
		return nil, &Error{Kind: KindConnection, Op: op, Err: err}
	}
	return conn, nil
}

// finish records the outcome of an operation.
func (r *repoPG) finish(op string, start time.Time, err error) error {
	r.metrics.ObserveOperation(op, time.Since(start))
	if err == nil {
		return nil
	}
	kind := KindOf(err)
	r.metrics.OperationFailed(op, kind.String())
	r.log.Debug().Err(err).Str("op", op).Str("kind", kind.String()).Msg("repository operation failed")
	return err
}

// resolve returns the id of the row matching args under k, creating it when
// absent.
func (r *repoPG) resolve(ctx context.Context, q queryable, op string, k naturalKey, args ...interface{}) (int64, error) {
	var id int64

	if r.strategy == UpsertLookup {
		err := q.QueryRow(ctx, k.insert, args...).Scan(&id)
		if err == nil {
			r.resolved(k.entity, id, true)
			return id, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return 0, classify(op, k.entity, err)
		}

		err = q.QueryRow(ctx, k.lookup, args...).Scan(&id)
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &Error{Kind: KindNotFoundAfterConflict, Op: op, Entity: k.entity, Err: err}
		}
		if err != nil {
			return 0, classify(op, k.entity, err)
		}
		r.resolved(k.entity, id, false)
		return id, nil
	}

	var created bool
	if err := q.QueryRow(ctx, k.upsert, args...).Scan(&id, &created); err != nil {
		return 0, classify(op, k.entity, err)
	}
	r.resolved(k.entity, id, created)
	return id, nil
}

func (r *repoPG) resolved(entity string, id int64, created bool) {
	r.metrics.EntityResolved(entity, created)
	r.log.Debug().Str("entity", entity).Int64("id", id).Bool("created", created).Msg("resolved by natural key")
}

// abort rolls tx back and reports cause as a transaction failure.
func (r *repoPG) abort(ctx context.Context, tx pgx.Tx, op string, cause error) error {
	if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
		r.log.Warn().Err(rbErr).Str("op", op).Msg("rollback failed")
	}
	return &Error{Kind: KindTransactionFailure, Op: op, Entity: "appointment", Err: cause}
}

func (r *repoPG) Save(ctx context.Context, a Appointment) (saved Appointment, err error) {
	const op = "save"
	defer func(start time.Time) { err = r.finish(op, start, err) }(time.Now())

	conn, err := r.acquire(ctx, op)
	if err != nil {
		return Appointment{}, err
	}
	defer conn.Release()

	tx, err := conn.Begin(ctx)
	if err != nil {
		return Appointment{}, &Error{Kind: KindConnection, Op: op, Entity: "appointment", Err: err}
	}

	patientID, err := r.resolve(ctx, tx, op, patientKey, a.Patient.Name, a.Patient.Age)
	if err != nil {
		return Appointment{}, r.abort(ctx, tx, op, err)
	}

	at := storedTime(a.ScheduledAt)
	var id int64
	if err := tx.QueryRow(ctx, insertAppointmentSQL, a.Doctor.ID, patientID, at).Scan(&id); err != nil {
		return Appointment{}, r.abort(ctx, tx, op, classify(op, "appointment", err))
	}

	if err := tx.Commit(ctx); err != nil {
		return Appointment{}, r.abort(ctx, tx, op, classify(op, "appointment", err))
	}

	r.metrics.AppointmentSaved()

	saved = a
	saved.ID = id
	saved.Patient.ID = patientID
	saved.ScheduledAt = at
	return saved, nil
}

func (r *repoPG) SaveDoctor(ctx context.Context, d Doctor) (resolved Doctor, err error) {
	const op = "save_doctor"
	defer func(start time.Time) { err = r.finish(op, start, err) }(time.Now())

	conn, err := r.acquire(ctx, op)
	if err != nil {
		return Doctor{}, err
	}
	defer conn.Release()

	id, err := r.resolve(ctx, conn, op, doctorKey, d.Name, d.Specialty)
	if err != nil {
		return Doctor{}, err
	}

	resolved = d
	resolved.ID = id
	return resolved, nil
}

func (r *repoPG) LoadAll(ctx context.Context) (out []Appointment, err error) {
	const op = "load_all"
	defer func(start time.Time) { err = r.finish(op, start, err) }(time.Now())

	conn, err := r.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, loadAllSQL)
	if err != nil {
		return nil, classify(op, "appointment", err)
	}
	defer rows.Close()

	out = make([]Appointment, 0)
	for rows.Next() {
		var a Appointment
		if err := rows.Scan(&a.ID, &a.Doctor.ID, &a.Doctor.Name, &a.Doctor.Specialty,
			&a.Patient.ID, &a.Patient.Name, &a.Patient.Age, &a.ScheduledAt); err != nil {
			return nil, classify(op, "appointment", err)
		}
		a.ScheduledAt = a.ScheduledAt.UTC()
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, "appointment", err)
	}
	return out, nil
}

func (r *repoPG) ListSpecialties(ctx context.Context) (out []string, err error) {
	const op = "list_specialties"
	defer func(start time.Time) { err = r.finish(op, start, err) }(time.Now())

	conn, err := r.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT DISTINCT especialidad FROM medicos ORDER BY especialidad`)
	if err != nil {
		return nil, classify(op, "doctor", err)
	}

	out, err = pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, classify(op, "doctor", err)
	}
	if out == nil {
		out = []string{}
	}
	return out, nil
}

func (r *repoPG) ListDoctorsBySpecialty(ctx context.Context, specialty string) (out []Doctor, err error) {
	const op = "list_doctors_by_specialty"
	defer func(start time.Time) { err = r.finish(op, start, err) }(time.Now())

	conn, err := r.acquire(ctx, op)
	if err != nil {
		return nil, err
	}
	defer conn.Release()

	rows, err := conn.Query(ctx, `SELECT id, nombre FROM medicos WHERE especialidad = $1 ORDER BY id`, specialty)
	if err != nil {
		return nil, classify(op, "doctor", err)
	}
	defer rows.Close()

	out = make([]Doctor, 0)
	for rows.Next() {
		d := Doctor{Specialty: specialty}
		if err := rows.Scan(&d.ID, &d.Name); err != nil {
			return nil, classify(op, "doctor", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(op, "doctor", err)
	}
	return out, nil
}
