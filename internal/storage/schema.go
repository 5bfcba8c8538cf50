package storage

// Shared DDL for both backends. Identifier columns have no
// auto-increment on purpose: the repositories assign ids manually
// inside the insert transaction so the two engines behave the same.
const schema = `
CREATE TABLE IF NOT EXISTS properties (
    id                   TEXT PRIMARY KEY,
    url                  TEXT NOT NULL,
    city                 TEXT NOT NULL,
    price                INTEGER,
    rooms                DOUBLE,
    size                 DOUBLE,
    floor                INTEGER,
    total_floors         INTEGER,
    address              TEXT NOT NULL DEFAULT '',
    neighborhood         TEXT NOT NULL DEFAULT '',
    property_type        TEXT NOT NULL DEFAULT '',
    description          TEXT NOT NULL DEFAULT '',
    has_elevator         BOOLEAN NOT NULL DEFAULT FALSE,
    has_parking          BOOLEAN NOT NULL DEFAULT FALSE,
    has_balcony          BOOLEAN NOT NULL DEFAULT FALSE,
    has_safe_room        BOOLEAN NOT NULL DEFAULT FALSE,
    has_air_conditioning BOOLEAN NOT NULL DEFAULT FALSE,
    has_bars             BOOLEAN NOT NULL DEFAULT FALSE,
    has_storage_room     BOOLEAN NOT NULL DEFAULT FALSE,
    is_accessible        BOOLEAN NOT NULL DEFAULT FALSE,
    is_renovated         BOOLEAN NOT NULL DEFAULT FALSE,
    last_seen_at         TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_properties_city ON properties(city);
CREATE INDEX IF NOT EXISTS idx_properties_last_seen ON properties(last_seen_at);

CREATE TABLE IF NOT EXISTS property_images (
    id          BIGINT PRIMARY KEY,
    property_id TEXT NOT NULL,
    image_url   TEXT NOT NULL,
    sort_order  INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS idx_images_property ON property_images(property_id);

CREATE TABLE IF NOT EXISTS transaction_history (
    id          BIGINT PRIMARY KEY,
    property_id TEXT NOT NULL,
    date        TIMESTAMP,
    address     TEXT NOT NULL DEFAULT '',
    rooms       DOUBLE,
    floor       INTEGER,
    size        DOUBLE,
    price       INTEGER
);

CREATE INDEX IF NOT EXISTS idx_transactions_property ON transaction_history(property_id);

CREATE TABLE IF NOT EXISTS nearby_schools (
    id              BIGINT PRIMARY KEY,
    property_id     TEXT NOT NULL,
    name            TEXT NOT NULL,
    school_type     TEXT NOT NULL DEFAULT '',
    grades          TEXT NOT NULL DEFAULT '',
    distance_meters DOUBLE
);

CREATE INDEX IF NOT EXISTS idx_schools_property ON nearby_schools(property_id);

CREATE TABLE IF NOT EXISTS neighborhood_ratings (
    id               BIGINT PRIMARY KEY,
    property_id      TEXT NOT NULL,
    overall_rating   DOUBLE,
    schools_rating   DOUBLE,
    transport_rating DOUBLE,
    parks_rating     DOUBLE,
    quiet_rating     DOUBLE,
    safety_rating    DOUBLE
);

CREATE INDEX IF NOT EXISTS idx_ratings_property ON neighborhood_ratings(property_id);

CREATE TABLE IF NOT EXISTS price_comparisons (
    id            BIGINT PRIMARY KEY,
    property_id   TEXT NOT NULL,
    rooms         DOUBLE NOT NULL,
    average_price INTEGER,
    listing_count INTEGER
);

CREATE INDEX IF NOT EXISTS idx_comparisons_property ON price_comparisons(property_id);

CREATE TABLE IF NOT EXISTS new_construction_projects (
    id              BIGINT PRIMARY KEY,
    property_id     TEXT NOT NULL,
    name            TEXT NOT NULL,
    status          TEXT NOT NULL DEFAULT '',
    address         TEXT NOT NULL DEFAULT '',
    distance_meters DOUBLE
);

CREATE INDEX IF NOT EXISTS idx_construction_property ON new_construction_projects(property_id);

CREATE TABLE IF NOT EXISTS property_urls_cache (
    id                 BIGINT PRIMARY KEY,
    url                TEXT NOT NULL UNIQUE,
    source_city        TEXT NOT NULL,
    discovered_at_page INTEGER NOT NULL DEFAULT 0,
    discovered_at      TIMESTAMP NOT NULL,
    processed          BOOLEAN NOT NULL DEFAULT FALSE,
    processed_at       TIMESTAMP,
    outcome            TEXT NOT NULL DEFAULT '',
    error_message      TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS idx_urls_cache_city ON property_urls_cache(source_city);
CREATE INDEX IF NOT EXISTS idx_urls_cache_processed ON property_urls_cache(processed);
`
