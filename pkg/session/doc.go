/*
Package session serializes read-modify-write cycles on persisted collections.

Dialogue trees, world books and regex scripts are each stored as one value per
collection, so two writers that read the same snapshot would otherwise lose one
another's edits. Manager holds a reference-counted mutex per key and, when a
ports.DistributedLocker is configured, a distributed lock as well, so replicas
sharing one Redis store serialize too.
*/
package session
