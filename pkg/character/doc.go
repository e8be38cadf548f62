// Package character stores the character profiles stories are played against.
//
// Characters live in one KV collection keyed by id. Avatars, when present, are
// kept as blobs beside the collection.
package character
