// Package webhook delivers signed status payloads to caller-specified URLs.
//
// Every delivery is a JSON POST signed with HMAC-SHA256 over the exact body
// bytes. The hex digest travels in X-Webhook-Signature next to the attempt
// number, the payload timestamp and a per-delivery id:
//
//	svc := webhook.NewService(webhook.WithSecret(secret))
//	d, err := svc.Deliver(ctx, webhook.Options{URL: url, Payload: p})
//
// 2xx responses succeed. Statuses classified non-retryable by
// backoff.IsRetryableHTTPStatus fail immediately; retryable statuses and
// network errors are retried with exponential backoff scaled by the
// service multiplier plus ±10% jitter, capped at 30 minutes. Exhausted
// deliveries are handed to an optional dead letter sink.
//
// [Notifier] builds job and video status payloads and delivers them in the
// background to the video's callback URL. Its failures are logged and
// never surface to the orchestrators.
package webhook
