// Package docstore holds embedded document chunks and owns their lifetime.
//
// A chunk is the unit of retrieval: a bounded slice of one source document's
// text together with its embedding vector and citation metadata. Chunks are
// immutable after insertion; replacing a document means deleting all chunks
// for its parent ID and inserting a fresh set.
//
// Two implementations are provided:
//   - MemoryStore: in-process map with copy-on-read snapshots (default)
//   - ChromemStore: chromem-go backed variant that mirrors chunks into an
//     embedded persistent vector database
package docstore
