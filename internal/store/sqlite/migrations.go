package sqlite

// migration is a single named, ordered schema change. Names are immutable
// once shipped; migrate() applies every migration whose name is absent
// from schema_migrations, in order, each inside its own transaction.
type migration struct {
	name  string
	apply string
}

// migrations is the ordered list of all schema migrations ever shipped.
// Never edit or reorder an existing entry — append new ones instead.
var migrations = []migration{
	{name: "0001_initial", apply: schemaInitial},
	{name: "0002_permissions_seed", apply: schemaPermissionsSeed},
	{name: "0003_tags_seed", apply: schemaTagsSeed},
}

const schemaInitial = `
CREATE TABLE users (
    id            TEXT PRIMARY KEY,
    username      TEXT NOT NULL UNIQUE,
    email         TEXT NOT NULL UNIQUE,
    password_hash TEXT NOT NULL,
    display_name  TEXT NOT NULL DEFAULT '',
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    TEXT NOT NULL,
    updated_at    TEXT NOT NULL,
    deleted_at    TEXT
);

CREATE TABLE roles (
    id          TEXT PRIMARY KEY,
    name        TEXT NOT NULL UNIQUE,
    description TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    deleted_at  TEXT
);

CREATE TABLE permissions (
    id            TEXT PRIMARY KEY,
    name          TEXT NOT NULL UNIQUE,
    resource_type TEXT NOT NULL DEFAULT '',
    description   TEXT NOT NULL DEFAULT ''
);

CREATE TABLE role_permissions (
    role_id       TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
    permission_id TEXT NOT NULL REFERENCES permissions(id) ON DELETE CASCADE,
    PRIMARY KEY (role_id, permission_id)
);

CREATE TABLE user_roles (
    user_id TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    role_id TEXT NOT NULL REFERENCES roles(id) ON DELETE CASCADE,
    PRIMARY KEY (user_id, role_id)
);

CREATE TABLE invitations (
    id          TEXT PRIMARY KEY,
    email       TEXT NOT NULL DEFAULT '',
    token_hash  TEXT NOT NULL UNIQUE,
    created_by  TEXT NOT NULL,
    expires_at  TEXT NOT NULL,
    consumed_at TEXT,
    consumed_by TEXT NOT NULL DEFAULT '',
    created_at  TEXT NOT NULL,
    updated_at  TEXT NOT NULL,
    deleted_at  TEXT
);

CREATE TABLE auth_settings (
    id         INTEGER PRIMARY KEY CHECK (id = 1),
    auth_flow  TEXT NOT NULL DEFAULT 'signup',
    updated_at TEXT NOT NULL
);
INSERT INTO auth_settings (id, auth_flow, updated_at) VALUES (1, 'signup', datetime('now'));

CREATE TABLE authors (
    id              TEXT PRIMARY KEY,
    name            TEXT NOT NULL,
    normalized_name TEXT NOT NULL UNIQUE,
    biography       TEXT NOT NULL DEFAULT '',
    birth_year      TEXT NOT NULL DEFAULT '',
    death_year      TEXT NOT NULL DEFAULT '',
    url             TEXT NOT NULL DEFAULT '',
    created_at      TEXT NOT NULL,
    updated_at      TEXT NOT NULL,
    deleted_at      TEXT
);

CREATE TABLE books (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    author_id        TEXT NOT NULL REFERENCES authors(id),
    file_path        TEXT NOT NULL UNIQUE,
    file_format      TEXT NOT NULL,
    file_size        INTEGER NOT NULL DEFAULT 0,
    isbn             TEXT NOT NULL DEFAULT '',
    description      TEXT NOT NULL DEFAULT '',
    publisher        TEXT NOT NULL DEFAULT '',
    publication_date TEXT NOT NULL DEFAULT '',
    page_count       INTEGER NOT NULL DEFAULT 0,
    cover_image_path TEXT NOT NULL DEFAULT '',
    status           TEXT NOT NULL DEFAULT 'active',
    archived_at      TEXT,
    archive_reason   TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL,
    deleted_at       TEXT
);
CREATE INDEX idx_books_author ON books(author_id);
CREATE INDEX idx_books_status ON books(status);

CREATE TABLE tags (
    id                  TEXT PRIMARY KEY,
    name                TEXT NOT NULL UNIQUE,
    category            TEXT NOT NULL DEFAULT '',
    requires_permission TEXT NOT NULL DEFAULT '',
    seeded              INTEGER NOT NULL DEFAULT 0,
    created_at          TEXT NOT NULL,
    updated_at          TEXT NOT NULL,
    deleted_at          TEXT
);

CREATE TABLE book_tags (
    book_id      TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    tag_id       TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    applied_by   TEXT NOT NULL DEFAULT '',
    auto_applied INTEGER NOT NULL DEFAULT 0,
    applied_at   TEXT NOT NULL,
    PRIMARY KEY (book_id, tag_id)
);
CREATE INDEX idx_book_tags_tag ON book_tags(tag_id);

CREATE TABLE user_tag_preferences (
    user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    tag_id     TEXT NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
    state      TEXT NOT NULL,
    updated_at TEXT NOT NULL,
    PRIMARY KEY (user_id, tag_id)
);

CREATE TABLE reading_progress (
    user_id             TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    book_id             TEXT NOT NULL REFERENCES books(id) ON DELETE CASCADE,
    current_page        INTEGER NOT NULL DEFAULT 0,
    total_pages         INTEGER,
    percentage_complete REAL NOT NULL DEFAULT 0,
    last_read_at        TEXT NOT NULL,
    started_at          TEXT,
    completed_at        TEXT,
    PRIMARY KEY (user_id, book_id)
);
CREATE INDEX idx_progress_user_last_read ON reading_progress(user_id, last_read_at DESC);
`

// schemaPermissionsSeed inserts the fixed baseline permission catalog.
// Additional permissions may be added later without a new migration,
// since tags reference permissions by name, not by a closed enum.
const schemaPermissionsSeed = `
INSERT INTO permissions (id, name, resource_type, description) VALUES
    ('perm_books_read', 'books.read', 'book', 'View books'),
    ('perm_books_manage', 'books.manage', 'book', 'Archive, unarchive, and refresh book metadata'),
    ('perm_users_manage', 'users.manage', 'user', 'Manage user accounts'),
    ('perm_roles_manage', 'roles.manage', 'role', 'Manage roles and permission assignments'),
    ('perm_invitations_manage', 'invitations.manage', 'invitation', 'Issue and revoke invitations'),
    ('perm_tags_manage', 'tags.manage', 'tag', 'Create and delete tags'),
    ('perm_library_manage', 'library.manage', 'library', 'Trigger scans and manage library roots'),
    ('perm_mature_read', 'mature.read', 'tag', 'View books tagged as mature content');

INSERT INTO roles (id, name, description, created_at, updated_at) VALUES
    ('role_administrator', 'administrator', 'Full administrative access', datetime('now'), datetime('now')),
    ('role_member', 'member', 'Standard user access', datetime('now'), datetime('now'));

INSERT INTO role_permissions (role_id, permission_id)
    SELECT 'role_administrator', id FROM permissions;

INSERT INTO role_permissions (role_id, permission_id) VALUES
    ('role_member', 'perm_books_read');
`

// schemaTagsSeed inserts a baseline catalog of format/genre/rating tags
// with stable names so the indexer's auto-tagging has somewhere to land.
const schemaTagsSeed = `
INSERT INTO tags (id, name, category, requires_permission, seeded, created_at, updated_at) VALUES
    ('tag_epub', 'EPUB', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_pdf', 'PDF', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_mobi', 'MOBI', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_azw', 'AZW', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_azw3', 'AZW3', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_cbz', 'CBZ', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_cbr', 'CBR', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_djvu', 'DJVU', 'format', '', 1, datetime('now'), datetime('now')),
    ('tag_fiction', 'Fiction', 'genre', '', 1, datetime('now'), datetime('now')),
    ('tag_nonfiction', 'Non-Fiction', 'genre', '', 1, datetime('now'), datetime('now')),
    ('tag_scifi', 'Science Fiction', 'genre', '', 1, datetime('now'), datetime('now')),
    ('tag_fantasy', 'Fantasy', 'genre', '', 1, datetime('now'), datetime('now')),
    ('tag_mature', 'Mature', 'content-rating', 'mature.read', 1, datetime('now'), datetime('now'));
`

// migrate applies every migration in migrations whose name is not already
// recorded in schema_migrations, in order, each inside its own transaction.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		name TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return err
	}

	applied := map[string]bool{}
	rows, err := s.db.Query(`SELECT name FROM schema_migrations`)
	if err != nil {
		return err
	}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		applied[name] = true
	}
	rows.Close()

	for _, m := range migrations {
		if applied[m.name] {
			continue
		}
		if err := s.applyMigration(m); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) applyMigration(m migration) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.Exec(m.apply); err != nil {
		return &migrationError{name: m.name, err: err}
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (name, applied_at) VALUES (?, datetime('now'))`, m.name); err != nil {
		return &migrationError{name: m.name, err: err}
	}
	return tx.Commit()
}

type migrationError struct {
	name string
	err  error
}

func (e *migrationError) Error() string {
	return "migration " + e.name + ": " + e.err.Error()
}

func (e *migrationError) Unwrap() error { return e.err }
