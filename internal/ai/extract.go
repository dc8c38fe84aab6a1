package ai

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Extraction is the structured output distilled from a debriefing's answers.
type Extraction struct {
	Summary     string   `json:"summary"`
	KeyPoints   []string `json:"key_points"`
	ActionItems []string `json:"action_items"`
	NextSteps   []string `json:"next_steps"`
	Sentiment   string   `json:"sentiment"`
	Confidence  float64  `json:"confidence"`
}

// QA is one answered debriefing question.
type QA struct {
	Prompt string
	Answer string
}

const extractSystemPrompt = `You are a sales meeting analyst. Given a rep's answers to debriefing questions, produce sections titled Summary, Key Points, Action Items, and Next Steps. Use "- " bullets inside list sections.`

// ExtractInsights distills structured insights from the answered questions.
// With a configured model it prompts the LLM and parses the sectioned reply;
// otherwise, or when the call fails, it falls back to heuristic extraction
// from the raw answers.
func (c *Client) ExtractInsights(ctx context.Context, qas []QA) (*Extraction, error) {
	if c.Enabled() {
		var sb strings.Builder
		for _, qa := range qas {
			fmt.Fprintf(&sb, "Q: %s\nA: %s\n\n", qa.Prompt, qa.Answer)
		}
		reply, err := c.Complete(ctx, extractSystemPrompt, sb.String())
		if err == nil {
			extraction := parseSections(reply)
			extraction.Sentiment = detectSentiment(reply)
			extraction.Confidence = 0.9
			return extraction, nil
		}
		c.logger.WarnContext(ctx, "llm extraction failed, using heuristics", "error", err)
	}
	return heuristicExtract(qas), nil
}

var bulletRe = regexp.MustCompile(`(?m)^\s*(?:[-*\x{2022}]|\d+[.)])\s+(.+)$`)

// extractBullets pulls "- item", "* item", and "1. item" style lines.
func extractBullets(text string) []string {
	var items []string
	for _, match := range bulletRe.FindAllStringSubmatch(text, -1) {
		item := strings.TrimSpace(match[1])
		if item != "" {
			items = append(items, item)
		}
	}
	return items
}

var sectionHeadings = map[string]string{
	"summary":      "summary",
	"key points":   "key_points",
	"action items": "action_items",
	"next steps":   "next_steps",
}

// parseSections splits a sectioned reply on its headings and collects the
// bullets (or prose, for the summary) under each.
func parseSections(text string) *Extraction {
	extraction := &Extraction{}
	current := ""
	var buf strings.Builder

	flush := func() {
		body := strings.TrimSpace(buf.String())
		buf.Reset()
		if body == "" {
			return
		}
		switch current {
		case "summary":
			extraction.Summary = body
		case "key_points":
			extraction.KeyPoints = extractBullets(body)
		case "action_items":
			extraction.ActionItems = extractBullets(body)
		case "next_steps":
			extraction.NextSteps = extractBullets(body)
		}
	}

	for _, line := range strings.Split(text, "\n") {
		heading := strings.ToLower(strings.Trim(strings.TrimSpace(line), "#*: "))
		if section, ok := sectionHeadings[heading]; ok {
			flush()
			current = section
			continue
		}
		if current != "" {
			buf.WriteString(line)
			buf.WriteString("\n")
		}
	}
	flush()
	return extraction
}

var positiveWords = []string{"great", "excited", "interested", "positive", "agreed", "progress", "win", "good", "strong"}
var negativeWords = []string{"concern", "objection", "stalled", "negative", "lost", "pushback", "risk", "hesitant", "delay"}

// detectSentiment does a simple keyword count over the text.
func detectSentiment(text string) string {
	lower := strings.ToLower(text)
	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(lower, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(lower, w)
	}
	switch {
	case pos > neg:
		return "positive"
	case neg > pos:
		return "negative"
	default:
		return "neutral"
	}
}

// heuristicExtract builds an extraction directly from the answers: the first
// answer becomes the summary, bulleted answers become list items, and answers
// mentioning follow-up verbs become action items.
func heuristicExtract(qas []QA) *Extraction {
	extraction := &Extraction{Confidence: 0.5}

	var all strings.Builder
	for i, qa := range qas {
		answer := strings.TrimSpace(qa.Answer)
		if answer == "" {
			continue
		}
		all.WriteString(answer)
		all.WriteString("\n")

		if i == 0 && extraction.Summary == "" {
			extraction.Summary = answer
			continue
		}

		bullets := extractBullets(answer)
		if len(bullets) == 0 {
			bullets = []string{answer}
		}

		prompt := strings.ToLower(qa.Prompt)
		switch {
		case strings.Contains(prompt, "action") || strings.Contains(prompt, "follow"):
			extraction.ActionItems = append(extraction.ActionItems, bullets...)
		case strings.Contains(prompt, "next"):
			extraction.NextSteps = append(extraction.NextSteps, bullets...)
		default:
			extraction.KeyPoints = append(extraction.KeyPoints, bullets...)
		}
	}

	extraction.Sentiment = detectSentiment(all.String())
	return extraction
}
