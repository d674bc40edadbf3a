// Package jobs owns the durable job record: its data model, the rules a
// partial update must obey, and the stores that persist it.
//
// Two Store implementations share one contract. FileStore keeps one job.json
// per job directory and replaces it atomically on every mutation, guarding
// each read-modify-write with a per-job mutex and an advisory file lock.
// SQLiteStore keeps the same record in a single table and applies each
// mutation inside an immediate transaction. Both keep staged inputs and
// generated artifacts on disk under <data_dir>/jobs/<id>/.
//
// Not-found outcomes are reported with services.ErrNotFound; I/O failures are
// wrapped with services.ErrStorage and always surfaced.
package jobs
