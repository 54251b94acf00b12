// Package datamodel is a schema-driven model engine for observation data.
//
// A model pairs a declarative schema with a storage backend. The schema
// names every field, its type and constraints, and where it lives inside a
// record container; the backend holds the values. Reads fall back to
// schema defaults, array defaults take their shape from the model's
// primary array, and every write is validated before it commits, so a
// failed assignment never corrupts stored state.
//
// Models round-trip through a deterministic container format: fields the
// schema maps to container placements become header cards and payloads,
// everything else travels through a reserved metadata record, and cards no
// schema claims are preserved under the _extra_fits subtree.
package datamodel
