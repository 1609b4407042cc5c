// Package dlq parks outbound webhook deliveries that exhausted their
// retry budget so they can be inspected, replayed or purged.
//
// The webhook service calls [Service.Push] when a delivery gives up. The
// original signed payload, target URL, attempt count and final error are
// kept. [Service.Replay] re-sends the payload through a [Sender] and stamps
// ReplayedAt.
//
// Admin routes:
//   - GET  /v1/dlq                 list entries
//   - GET  /v1/dlq/:entryId        get one entry
//   - POST /v1/dlq/:entryId/replay re-send one entry
//   - POST /v1/dlq/purge           purge old entries
package dlq
