// Package embeddings provides embedding generation via multiple providers.
//
// Two interchangeable providers exist: a remote TEI (text-embeddings-inference)
// HTTP service and a local FastEmbed ONNX runtime. Both are selected once at
// startup through NewProvider; callers depend only on the Provider interface
// and never branch on provider identity.
//
// Vectors from different providers are not interchangeable. A populated
// document store is bound to the provider configuration it was embedded
// with; switching providers requires re-embedding all chunks.
package embeddings
