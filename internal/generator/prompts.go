package generator

import (
	"fmt"
	"sort"
	"strings"
)

const postSystemPrompt = `You are a social media copywriter for a small business.
Write one post in the language of the project context. Respond with JSON only:
{"text": "...", "score": 0-10, "topic": "...", "hashtags": ["..."], "media_url": "..."}
score is your honest estimate of post quality and engagement potential.
media_url must be one of the offered media URLs or empty.`

const topicSystemPrompt = `You plan social media content for a small business.
Propose fresh post topics that do not repeat the recent ones. Respond with JSON only:
{"topics": [{"topic": "...", "rationale": "..."}]}`

func buildPostPrompt(req Request) string {
	var b strings.Builder
	line := func(label, value string) {
		if value = strings.TrimSpace(value); value != "" {
			fmt.Fprintf(&b, "%s: %s\n", label, value)
		}
	}
	line("Project", req.ProjectName)
	line("Platform", req.Platform)
	line("Content type", req.ContentType)
	line("Content strategy", req.ContentStrategy)
	line("Strategy weights", describeWeights(req.StrategyWeights))
	line("Topic", req.Topic)
	line("Notes", req.Notes)
	if req.Topic == "" && len(req.RecentTopics) > 0 {
		line("Avoid repeating", strings.Join(req.RecentTopics, "; "))
	}
	if len(req.Media) > 0 {
		b.WriteString("Available media:\n")
		for _, m := range req.Media {
			fmt.Fprintf(&b, "- %s (%s) tags: %s\n", m.URL, m.Description, strings.Join(m.Tags, ", "))
		}
	}
	return b.String()
}

func buildTopicPrompt(req TopicRequest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Project: %s\n", req.ProjectName)
	if req.ContentStrategy != "" {
		fmt.Fprintf(&b, "Content strategy: %s\n", req.ContentStrategy)
	}
	fmt.Fprintf(&b, "Number of topics: %d\n", req.Count)
	if len(req.Recent) > 0 {
		b.WriteString("Recent topics:\n")
		for _, topic := range req.Recent {
			fmt.Fprintf(&b, "- %s\n", topic)
		}
	}
	return b.String()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
