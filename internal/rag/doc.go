// Package rag implements the two-stage retrieval pipeline over the
// paper corpus.
//
// # Overview
//
// A query flows through four stages:
//
//	CoarseRetriever (paper-level vectors, title + abstract)
//	     |
//	     v
//	Indexer (on-demand full-text indexing of the candidates,
//	         bounded cache with oldest-first eviction)
//	     |
//	     v
//	FineRetriever (chunk-level vectors, restricted to candidates)
//	     |
//	     v
//	Generator (answer grounded in the retrieved chunks)
//
// The coarse index covers every paper cheaply; the fine index only ever
// holds chunks for the bounded set of papers queries have actually
// touched. Syncer keeps the coarse index complete, Reporter exposes the
// drift between store flags and stored vectors, and Resetter wipes both
// indexes for re-embedding.
//
// # Concurrency
//
// Indexer collapses concurrent requests for one paper into a single
// indexing pass and detaches that pass from any single caller's
// cancellation. System indexes candidate papers concurrently and drops
// individual failures instead of failing the whole answer.
package rag
