// Package clip defines the generation domain: a Video owns a batch of
// GenerationJobs, each of which asks one external provider for one clip.
//
// Jobs move queued → dispatched → processing → completed | failed, or are
// canceled by an operator. A provider request id is attached at most once.
// Completed and canceled jobs ignore further provider callbacks.
//
// A Video moves draft → processing → completed | failed. Failed is kept
// for "no clip succeeded"; partial success is a completed video carrying a
// failure summary message.
//
// [Store] is the persistence contract the orchestrators depend on.
package clip
