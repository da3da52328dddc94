package db

// Schema contains all the SQL statements for the application database.
//
// note_categories has no ON DELETE CASCADE on the category side: deleting a
// category that is still attached to notes fails with a foreign key violation,
// which the service layer surfaces as a retryable deletion error. Deleting a
// note removes its join rows inside the note delete transaction.
const Schema = `
-- Users table: account credentials and identity
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    email TEXT UNIQUE NOT NULL CHECK(length(email) <= 64),
    username TEXT UNIQUE NOT NULL CHECK(length(username) <= 64),
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_users_username ON users(username);

-- Notes table: each note has exactly one owner
CREATE TABLE IF NOT EXISTS notes (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL CHECK(length(title) <= 500),
    content TEXT NOT NULL CHECK(length(content) <= 10000),
    user_id TEXT NOT NULL REFERENCES users(id),
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notes_user_id ON notes(user_id);

-- Categories table: shared labels, not owned by any user
CREATE TABLE IF NOT EXISTS categories (
    id TEXT PRIMARY KEY,
    name TEXT UNIQUE NOT NULL CHECK(length(name) <= 100),
    created_at INTEGER NOT NULL
);

-- Join table for the note/category many-to-many relationship
CREATE TABLE IF NOT EXISTS note_categories (
    note_id TEXT NOT NULL REFERENCES notes(id),
    category_id TEXT NOT NULL REFERENCES categories(id),
    PRIMARY KEY (note_id, category_id)
);
CREATE INDEX IF NOT EXISTS idx_note_categories_category ON note_categories(category_id);

-- Sessions table: stores active user sessions
CREATE TABLE IF NOT EXISTS sessions (
    session_id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL REFERENCES users(id),
    expires_at INTEGER NOT NULL,
    created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions(user_id);
CREATE INDEX IF NOT EXISTS idx_sessions_expires_at ON sessions(expires_at);
`
