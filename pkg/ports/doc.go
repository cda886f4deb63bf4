/*
Package ports defines the driven ports (interfaces) of Runecast.

These interfaces decouple the reading session and history logic from external
implementations, allowing Runecast to work with various storage backends and
text-generation services.

# Key Interfaces

  - HistoryStore: Persists completed readings (memory, file, SQLite, Badger, Redis).
  - Interpreter: Produces the narrative interpretation of a completed spread.
  - PatternAnalyzer: Summarizes recurring patterns across the history.
  - DistributedLocker: Serializes history writes across processes sharing a store.
*/
package ports
