// Package services implements the driving port interfaces: enrichment,
// ingest, extraction, the per-PDF pipeline and the contract upload flow.
//
// Services reach model providers and stores only through driven ports.
// The pipeline reads and renames stage artifacts on the local filesystem
// directly.
package services
