package history

const schemaSQL = `
CREATE TABLE IF NOT EXISTS query_history (
    id            INTEGER PRIMARY KEY,
    query_text    TEXT NOT NULL,
    language      TEXT NOT NULL,
    row_count     INTEGER NOT NULL DEFAULT 0,
    duration_ms   INTEGER NOT NULL DEFAULT 0,
    status        TEXT NOT NULL,
    error_message TEXT,
    executed_at   TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_history_executed ON query_history(executed_at);
`
