// Package checkpoint defines persistence-facing contracts for the durable
// markers a wait resumes from, plus in-memory and bbolt-backed stores.
//
// Responsibilities:
//   - Store only loads/saves a single Checkpoint for a single Ref.
//   - Stores never reorder history: a Save carrying a sequence lower than
//     the stored one fails with ErrRegression.
//
// Deterministic keys:
//
//	Ref.Identifier() yields `<stream>/<consumer>`. BoltStore keeps one bucket
//	per stream and keys records by consumer.
package checkpoint
