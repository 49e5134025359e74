// Package syncer pushes local records to the remote document store.
//
// Overview
//
// The local store is authoritative. The engine reads records from it and
// mirrors them to the remote store; nothing is ever pulled back.
//
//	Local Store (SQLite)
//	     ├── institute, classes, students, staff, ...
//	                     ↓
//	                  Engine ── serialize.ToRemote
//	                     ↓
//	     Remote Store  {tag}_{localId} documents, upsert-merge
//
// Every write is an upsert-merge against a document id derived from the
// collection and the local id, so repeating a sync never duplicates or
// clobbers remote data.
//
// Full syncs visit collections in a fixed order and stop at the first
// collection that fails. Batches are committed one after another and hold at
// most Config.BatchSize writes. Progress is reported through a
// status.Tracker shared with the rest of the process.
package syncer
