package sessions_test

import (
	"bytes"
	"cmp"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JaimeStill/adherence/pkg/lifecycle"
	"github.com/JaimeStill/adherence/pkg/storage"
)

// memDB is an in-memory stand-in for the sessions schema. It answers the
// statements the session repository issues and honors their ORDER BY
// clauses, so dropping one from a query changes what a test observes.
type memDB struct {
	mu       sync.Mutex
	patients map[string]bool
	sessions map[string][]driver.Value
	records  map[string][][]driver.Value

	// failRecordInsert fails the insert of this administration id.
	failRecordInsert int64
	commits          int
	rollbacks        int
}

// Column positions within stored rows.
const (
	colSessionID = 0
	colPatientID = 1
	colCreatedAt = 2
	colCompleted = 5

	colAdministrationID = 1
	colRecordPatientID  = 2
)

func newMemDB(patients ...string) *memDB {
	db := &memDB{
		patients: make(map[string]bool),
		sessions: make(map[string][]driver.Value),
		records:  make(map[string][][]driver.Value),
	}
	for _, p := range patients {
		db.patients[p] = true
	}
	return db
}

func (db *memDB) open(t *testing.T) *sql.DB {
	t.Helper()
	conn := sql.OpenDB(memConnector{db: db})
	t.Cleanup(func() { conn.Close() })
	return conn
}

func (db *memDB) session(id string) []driver.Value {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.sessions[id]
}

func (db *memDB) recordCount(id string) int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.records[id])
}

type memSnapshot struct {
	sessions map[string][]driver.Value
	records  map[string][][]driver.Value
}

func (db *memDB) snapshot() memSnapshot {
	db.mu.Lock()
	defer db.mu.Unlock()
	return memSnapshot{
		sessions: maps.Clone(db.sessions),
		records:  maps.Clone(db.records),
	}
}

func (db *memDB) restore(s memSnapshot) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.sessions = s.sessions
	db.records = s.records
	db.rollbacks++
}

func (db *memDB) exec(query string, args []driver.NamedValue) (driver.Result, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := normalize(query)
	v := values(args)

	switch {
	case strings.HasPrefix(q, "INSERT INTO sessions("):
		id, patient := v[colSessionID].(string), v[colPatientID].(string)
		if !db.patients[patient] {
			return nil, &pgconn.PgError{Code: "23503", Message: "sessions_patient_id_fkey"}
		}
		if row, ok := db.sessions[id]; ok {
			if row[colCompleted].(bool) {
				return driver.RowsAffected(0), nil
			}
			v[colCreatedAt] = row[colCreatedAt]
		}
		db.sessions[id] = v
		return driver.RowsAffected(1), nil

	case strings.HasPrefix(q, "DELETE FROM medication_administrations WHERE session_id"):
		id := v[0].(string)
		n := len(db.records[id])
		delete(db.records, id)
		return driver.RowsAffected(n), nil

	case strings.HasPrefix(q, "INSERT INTO medication_administrations("):
		id, aid := v[colSessionID].(string), v[colAdministrationID].(int64)
		if aid == db.failRecordInsert {
			return nil, errors.New("connection reset")
		}
		for _, rec := range db.records[id] {
			if rec[colAdministrationID].(int64) == aid {
				return nil, &pgconn.PgError{Code: "23505", Message: "medication_administrations_pkey"}
			}
		}
		db.records[id] = append(slices.Clone(db.records[id]), v)
		return driver.RowsAffected(1), nil
	}

	return nil, errors.New("memdb: unsupported exec: " + q)
}

func (db *memDB) query(query string, args []driver.NamedValue) (driver.Rows, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	q := normalize(query)
	v := values(args)

	switch {
	case strings.Contains(q, "FOR UPDATE"):
		row, ok := db.sessions[v[0].(string)]
		if !ok {
			return &memRows{cols: 4}, nil
		}
		count := int64(len(db.records[v[0].(string)]))
		return &memRows{cols: 4, rows: [][]driver.Value{
			{row[colPatientID], row[colCompleted], row[colCreatedAt], count},
		}}, nil

	case strings.HasPrefix(q, "SELECT EXISTS(SELECT 1 FROM patients"):
		return &memRows{cols: 1, rows: [][]driver.Value{{db.patients[v[0].(string)]}}}, nil

	case strings.HasPrefix(q, "SELECT patient_id FROM sessions WHERE session_id"):
		row, ok := db.sessions[v[0].(string)]
		if !ok {
			return &memRows{cols: 1}, nil
		}
		return &memRows{cols: 1, rows: [][]driver.Value{{row[colPatientID]}}}, nil

	case strings.HasSuffix(q, "FROM sessions WHERE session_id = $1"):
		row, ok := db.sessions[v[0].(string)]
		if !ok {
			return &memRows{cols: 9}, nil
		}
		return &memRows{cols: 9, rows: [][]driver.Value{row}}, nil

	case strings.Contains(q, "FROM sessions WHERE patient_id = $1"):
		var rows [][]driver.Value
		for _, row := range db.sessions {
			if row[colPatientID] == v[0] {
				rows = append(rows, row)
			}
		}
		if strings.HasSuffix(q, "ORDER BY created_at DESC, session_id DESC") {
			slices.SortFunc(rows, func(a, b []driver.Value) int {
				if c := b[colCreatedAt].(time.Time).Compare(a[colCreatedAt].(time.Time)); c != 0 {
					return c
				}
				return cmp.Compare(b[colSessionID].(string), a[colSessionID].(string))
			})
		}
		return &memRows{cols: 9, rows: rows}, nil

	case strings.Contains(q, "FROM medication_administrations WHERE session_id = $1"):
		rows := slices.Clone(db.records[v[0].(string)])
		if strings.HasSuffix(q, "ORDER BY administration_id") {
			slices.SortFunc(rows, byAdministration)
		}
		return &memRows{cols: 14, rows: rows}, nil

	case strings.Contains(q, "FROM medication_administrations WHERE patient_id = $1"):
		var rows [][]driver.Value
		for _, recs := range db.records {
			for _, rec := range recs {
				if rec[colRecordPatientID] == v[0] {
					rows = append(rows, rec)
				}
			}
		}
		if strings.HasSuffix(q, "ORDER BY session_id, administration_id") {
			slices.SortFunc(rows, func(a, b []driver.Value) int {
				if c := cmp.Compare(a[colSessionID].(string), b[colSessionID].(string)); c != 0 {
					return c
				}
				return byAdministration(a, b)
			})
		}
		return &memRows{cols: 14, rows: rows}, nil
	}

	return nil, errors.New("memdb: unsupported query: " + q)
}

func byAdministration(a, b []driver.Value) int {
	return cmp.Compare(a[colAdministrationID].(int64), b[colAdministrationID].(int64))
}

func normalize(query string) string {
	return strings.Join(strings.Fields(query), " ")
}

func values(args []driver.NamedValue) []driver.Value {
	v := make([]driver.Value, len(args))
	for i, a := range args {
		v[i] = a.Value
	}
	return v
}

type memConnector struct{ db *memDB }

func (c memConnector) Connect(context.Context) (driver.Conn, error) {
	return &memConn{db: c.db}, nil
}

func (c memConnector) Driver() driver.Driver { return memDriver{} }

type memDriver struct{}

func (memDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("memdb: open through the connector")
}

type memConn struct{ db *memDB }

func (c *memConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("memdb: prepared statements unsupported")
}

func (c *memConn) Close() error { return nil }

func (c *memConn) Begin() (driver.Tx, error) {
	return &memTx{db: c.db, snapshot: c.db.snapshot()}, nil
}

func (c *memConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	return c.db.exec(query, args)
}

func (c *memConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	return c.db.query(query, args)
}

type memTx struct {
	db       *memDB
	snapshot memSnapshot
}

func (tx *memTx) Commit() error {
	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()
	tx.db.commits++
	return nil
}

func (tx *memTx) Rollback() error {
	tx.db.restore(tx.snapshot)
	return nil
}

type memRows struct {
	cols int
	rows [][]driver.Value
	next int
}

func (r *memRows) Columns() []string { return make([]string, r.cols) }

func (r *memRows) Close() error { return nil }

func (r *memRows) Next(dest []driver.Value) error {
	if r.next >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.next])
	r.next++
	return nil
}

// memStorage is an in-memory storage.System.
type memStorage struct {
	mu        sync.Mutex
	blobs     map[string][]byte
	uploads   int
	uploadErr error
}

func newMemStorage() *memStorage {
	return &memStorage{blobs: make(map[string][]byte)}
}

func (s *memStorage) Start(*lifecycle.Coordinator) error { return nil }

func (s *memStorage) Upload(_ context.Context, key string, r io.Reader, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.uploadErr != nil {
		return s.uploadErr
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.blobs[key] = data
	s.uploads++
	return nil
}

func (s *memStorage) Download(_ context.Context, key string) (io.ReadCloser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *memStorage) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return storage.ErrNotFound
	}
	delete(s.blobs, key)
	return nil
}

func (s *memStorage) Exists(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.blobs[key]
	return ok, nil
}

func (s *memStorage) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []string
	for k := range s.blobs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	return keys, nil
}

func (s *memStorage) blob(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.blobs[key]
	return data, ok
}
