// Package postgres implements the service repositories on PostgreSQL
// through database/sql and lib/pq. Structured columns (campaign steps,
// handover criteria, custom fields, goal progress, metadata) are stored as
// JSONB. Schema lives in migrations/.
package postgres
