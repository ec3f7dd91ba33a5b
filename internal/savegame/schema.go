package savegame

// Schema is the SQL schema for the save game database.
const Schema = `
CREATE TABLE IF NOT EXISTS saves (
    slot        TEXT PRIMARY KEY,
    title       TEXT NOT NULL DEFAULT '',
    chapter     TEXT NOT NULL,
    data        TEXT NOT NULL,
    saved_at    TEXT NOT NULL,
    created_at  TEXT NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_saves_saved_at ON saves(saved_at);
`
