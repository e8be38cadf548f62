/*
Package ports defines the driven ports (interfaces) for the taleweave engine.

These interfaces decouple the core logic from external implementations, allowing
the engine to work with various storage backends, generation providers, and
lock managers.

# Key Interfaces

  - KVStore: Persists whole collections (dialogue trees, world books, regex scripts) and binary blobs.
  - Generator: Produces the narrative text for one turn.
  - DistributedLocker: Provides distributed locking for concurrent access to one owner's collections.
*/
package ports
