package db

// schemaVersion is the version written by the latest migration
const schemaVersion = 2

const schema = `
CREATE TABLE IF NOT EXISTS schema_info (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS records (
    collection TEXT NOT NULL,
    id TEXT NOT NULL,
    data JSON NOT NULL,
    updated_at INTEGER NOT NULL,
    PRIMARY KEY (collection, id)
);

CREATE INDEX IF NOT EXISTS idx_items_brand
    ON records(json_extract(data, '$.brand')) WHERE collection = 'items';
CREATE INDEX IF NOT EXISTS idx_receipts_date
    ON records(json_extract(data, '$.date')) WHERE collection = 'receipts';
CREATE INDEX IF NOT EXISTS idx_movements_product
    ON records(json_extract(data, '$.productId')) WHERE collection = 'stockMovements';
CREATE INDEX IF NOT EXISTS idx_movements_timestamp
    ON records(json_extract(data, '$.timestamp')) WHERE collection = 'stockMovements';
CREATE INDEX IF NOT EXISTS idx_suppliers_name
    ON records(json_extract(data, '$.name')) WHERE collection = 'suppliers';
CREATE INDEX IF NOT EXISTS idx_pos_status
    ON records(json_extract(data, '$.status')) WHERE collection = 'purchaseOrders';
CREATE INDEX IF NOT EXISTS idx_pos_supplier
    ON records(json_extract(data, '$.supplierId')) WHERE collection = 'purchaseOrders';

-- AUTOINCREMENT: ids are never reused, so enqueue order is strictly increasing
CREATE TABLE IF NOT EXISTS sync_queue (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    op TEXT NOT NULL,
    store TEXT NOT NULL,
    entity_key TEXT,
    payload JSON,
    created_at INTEGER NOT NULL,
    attempts INTEGER NOT NULL DEFAULT 0,
    next_attempt_at INTEGER NOT NULL,
    failed INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_sync_queue_created ON sync_queue(created_at);

CREATE TABLE IF NOT EXISTS profiles (
    uid TEXT PRIMARY KEY,
    email TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL DEFAULT '',
    password_hash TEXT NOT NULL DEFAULT '',
    cached_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_profiles_email ON profiles(email);
`
