// Package sqlite provides the embedded SQLite implementation of the
// storage ports: the chunk store (documents, chunks and brute-force
// nearest-neighbour search over their embeddings) and the conversation
// store (append-only message logs).
//
// The database is opened in WAL mode and the schema is managed through
// embedded migrations.
package sqlite
