// Package ingest defines the shared domain types and collaborator contracts
// used by the ingestion pipeline: raw source payloads, canonical job records,
// deduplication keys, and the interfaces implemented by sources, storage
// sinks, publishers, clocks, and ID generators.
package ingest
