// Package postgres provides the document and chunk store ports on Postgres
// with the pgvector extension.
//
// Chunk vectors live in an unconstrained vector column. Ranking runs in the
// database through the match_document_chunks function that the embedded
// migrations install. Connections come from a pgx pool.
package postgres
