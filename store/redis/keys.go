package redis

// Redis key naming conventions. All keys are prefixed with "zencourt:" to
// avoid collisions with other tenants of the same instance.

const keyPrefix = "zencourt:"

// ── Video keys ──

// videoKey returns the key for a video entity: zencourt:video:{id}
func videoKey(id string) string { return keyPrefix + "video:" + id }

// videoJobsKey returns the Set of job IDs owned by a video.
func videoJobsKey(videoID string) string { return keyPrefix + "video_jobs:" + videoID }

// ── Generation job keys ──

// jobKey returns the key for a generation job entity: zencourt:job:{id}
func jobKey(id string) string { return keyPrefix + "job:" + id }

// requestKey maps a provider request id to its job id.
func requestKey(requestID string) string { return keyPrefix + "request:" + requestID }

// ── DLQ keys ──

// dlqKey returns the key for a DLQ entry entity: zencourt:dlq:{id}
func dlqKey(id string) string { return keyPrefix + "dlq:" + id }

// dlqIndexKey is the Sorted Set of DLQ entry IDs scored by failed_at.
const dlqIndexKey = keyPrefix + "dlq_idx"
