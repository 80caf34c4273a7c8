// Package sqlite implements the repository interfaces on an embedded SQLite
// database.
//
// DOCUMENT TABLES:
// Every aggregate lives in its own table as one JSON document:
//
//	id TEXT PRIMARY KEY | doc TEXT | version INTEGER | created_at INTEGER
//
// doc is the aggregate encoded through its bson tags as relaxed Extended
// JSON, so the field names are exactly the ones the MongoDB backend stores.
// Queries reach into documents with json_extract / json_each, and the unique
// invariants (email, invite code, one submission per project, judge code) are
// expression indexes over the document.
//
// version backs optimistic concurrency: an update only applies when the row
// still has the version the caller loaded (see collection.update).
//
// modernc.org/sqlite is a pure Go translation of SQLite: no CGo, no C
// compiler, cross-compiles like any Go package.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	// registers the "sqlite" driver with database/sql
	_ "modernc.org/sqlite"

	"github.com/sakif/hackhub/internal/model"
	"github.com/sakif/hackhub/internal/repository"
)

var _ repository.Store = (*DB)(nil)

// DB wraps a sql.DB connection pool and one typed collection per aggregate.
type DB struct {
	conn *sql.DB

	users       collection[model.User]
	teams       collection[model.Team]
	projects    collection[model.Project]
	tasks       collection[model.Task]
	submissions collection[model.Submission]
	judges      collection[model.Judge]
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/hackhub.db"  → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests)
//
// PRAGMAS LIVE IN THE DSN:
// A PRAGMA is per connection, and sql.DB is a pool. Running
// `conn.Exec("PRAGMA busy_timeout=5000")` configures whichever pooled
// connection happened to serve that one statement; every connection the
// pool opens later starts without it. modernc.org/sqlite applies each
// `_pragma=name(value)` query parameter to every connection it opens, so
// the settings below hold for the whole pool.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// CONNECTION POOL:
	// Every connection to ":memory:" is a separate, empty database, so the
	// in-memory pool is pinned to one connection. File databases keep the
	// pool; WAL lets readers run alongside the single writer.
	if dbPath == ":memory:" {
		conn.SetMaxOpenConns(1)
	}

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	db := &DB{conn: conn}
	db.users = collection[model.User]{conn: conn, table: "users", resource: "user",
		uniques: map[string]string{"idx_users_email": repository.KeyEmail, "idx_users_github_id": repository.KeyGitHubID}}
	db.teams = collection[model.Team]{conn: conn, table: "teams", resource: "team",
		uniques: map[string]string{"idx_teams_invite_code": repository.KeyInviteCode}}
	db.projects = collection[model.Project]{conn: conn, table: "projects", resource: "project"}
	db.tasks = collection[model.Task]{conn: conn, table: "tasks", resource: "task"}
	db.submissions = collection[model.Submission]{conn: conn, table: "submissions", resource: "submission",
		uniques: map[string]string{"idx_submissions_project": repository.KeyProject}}
	db.judges = collection[model.Judge]{conn: conn, table: "judges", resource: "judge",
		uniques: map[string]string{"idx_judges_email": repository.KeyEmail, "idx_judges_code": repository.KeyJudgeCode}}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// dsn turns a path into a data source name carrying the connection pragmas.
//
// busy_timeout(5000):
// SQLite allows one writer at a time. Without a busy timeout a second writer
// fails at once with SQLITE_BUSY ("database is locked"); with it, the
// connection waits up to 5s for the lock. Two judges scoring the same
// submission then queue up instead of one of them getting a 500.
//
// journal_mode(WAL):
// Write-Ahead Logging lets readers proceed while a write is in progress.
// It only applies to files.
//
// ":memory:" is passed through untouched: New pins it to one connection, so
// there is never a second writer to wait for.
func dsn(dbPath string) string {
	if dbPath == ":memory:" {
		return dbPath
	}
	return "file:" + dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping backs the /health endpoint.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// documentTables all share one shape.
var documentTables = []string{"users", "teams", "projects", "tasks", "submissions", "judges"}

// migrate creates the document tables and their indexes. Every statement is
// IF NOT EXISTS, so it is safe to run on every start.
func (db *DB) migrate() error {
	for _, table := range documentTables {
		_, err := db.conn.Exec(fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %[1]s (
				id         TEXT PRIMARY KEY,
				doc        TEXT NOT NULL,
				version    INTEGER NOT NULL DEFAULT 1,
				created_at INTEGER NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_%[1]s_created_at ON %[1]s(created_at);
		`, table))
		if err != nil {
			return fmt.Errorf("creating %s table: %w", table, err)
		}
	}

	_, err := db.conn.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email
			ON users(json_extract(doc, '$.email'));
		CREATE UNIQUE INDEX IF NOT EXISTS idx_users_github_id
			ON users(json_extract(doc, '$.githubId'))
			WHERE json_extract(doc, '$.githubId') IS NOT NULL;
		CREATE INDEX IF NOT EXISTS idx_users_reset_token
			ON users(json_extract(doc, '$.resetPasswordToken'));

		CREATE UNIQUE INDEX IF NOT EXISTS idx_teams_invite_code
			ON teams(json_extract(doc, '$.inviteCode'));

		CREATE INDEX IF NOT EXISTS idx_projects_team
			ON projects(json_extract(doc, '$.team'));
		CREATE INDEX IF NOT EXISTS idx_projects_public
			ON projects(json_extract(doc, '$.showcase.isPublic'));

		CREATE INDEX IF NOT EXISTS idx_tasks_project
			ON tasks(json_extract(doc, '$.project'));

		CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_project
			ON submissions(json_extract(doc, '$.project'));

		CREATE UNIQUE INDEX IF NOT EXISTS idx_judges_email
			ON judges(json_extract(doc, '$.email'));
		CREATE UNIQUE INDEX IF NOT EXISTS idx_judges_code
			ON judges(json_extract(doc, '$.judgeCode'));
	`)
	if err != nil {
		return fmt.Errorf("creating document indexes: %w", err)
	}

	return nil
}

// likePattern turns a user query into a case-insensitive LIKE pattern with
// the wildcard characters escaped. Use with ESCAPE '\'.
func likePattern(q string) string {
	q = strings.ToLower(strings.TrimSpace(q))
	q = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + q + "%"
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(ids []string) []any {
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return args
}
