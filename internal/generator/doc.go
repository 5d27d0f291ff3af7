// Package generator turns project context into social posts and topic ideas
// through an llm.Completer.
//
// Generate returns the post text, a 0-10 quality score, hashtags, and an
// optional media pick. SuggestTopics drops ideas whose lexical fingerprint is
// too close to a recent topic. The task handlers bind both operations to the
// generate_content and topic_suggestion task types and persist their output
// through the content store.
package generator
