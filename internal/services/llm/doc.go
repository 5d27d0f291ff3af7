// Package llm provides an OpenRouter-compatible chat completion client.
//
// It is the default Completer behind the content generator, topic suggester
// and vision tagger. Requests ask for a JSON object response; DecodeJSON
// tolerates code fences and surrounding prose in model output.
//
// # Retry Behaviour
//
// The client retries HTTP 408/429/5xx responses, empty completions and
// network timeouts with exponential backoff (base 1s, max 10s, up to 5
// attempts by default), honouring Retry-After. Context cancellation aborts
// retries immediately.
package llm
