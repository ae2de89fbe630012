package db

import "context"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
    id          uuid PRIMARY KEY DEFAULT gen_random_uuid(),
    kind        text NOT NULL,
    status      text NOT NULL DEFAULT 'PENDING',
    image_id    text NOT NULL,
    prompt      text NOT NULL,
    sketch      bytea,
    result      text,
    error       text,
    created_at  timestamptz NOT NULL DEFAULT now(),
    updated_at  timestamptz NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS jobs_pending_idx ON jobs (created_at) WHERE status = 'PENDING';

CREATE TABLE IF NOT EXISTS image_records (
    image_id            text PRIMARY KEY,
    latest_version      int NOT NULL,
    conversation_handle text NOT NULL,
    updated_at          timestamptz NOT NULL DEFAULT now()
);
`

// EnsureSchema creates the queue and state tables if they do not exist yet.
// Both processes call it at startup so either can be brought up first.
func EnsureSchema(ctx context.Context, db DBTX) error {
	_, err := db.Exec(ctx, schema)
	return err
}
