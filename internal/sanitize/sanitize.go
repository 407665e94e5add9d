// Package sanitize normalizes untrusted text at the two trust boundaries:
// raw user input entering the pipeline, and completion-service output
// entering a draft field.
package sanitize

import (
	"regexp"
	"strings"
)

// MaxInputLength is the cap applied to raw user input, in runes.
const MaxInputLength = 1000

var (
	scriptTagRe = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	htmlTagRe   = regexp.MustCompile(`</?[^<>]+(>|$)`)
	controlRe   = regexp.MustCompile("[\x00-\x09\x0b-\x1f\x7f]")

	injectionRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)ignore previous instructions`),
		regexp.MustCompile(`(?i)you are now`),
		regexp.MustCompile(`(?i)system role`),
		regexp.MustCompile(`(?i)pretend to be`),
		regexp.MustCompile(`(?i)disregard the previous`),
		regexp.MustCompile(`(?i)as an ai language model`),
	}
)

// Input defangs raw user text before it enters the pipeline: length cap,
// markup stripping, prompt-injection redaction, control-character removal
// (newlines survive). It never fails; empty input yields an empty string.
func Input(raw string) string {
	input := strings.TrimSpace(raw)
	if input == "" {
		return ""
	}

	if runes := []rune(input); len(runes) > MaxInputLength {
		input = string(runes[:MaxInputLength])
	}

	input = scriptTagRe.ReplaceAllString(input, "[removed script]")
	input = htmlTagRe.ReplaceAllString(input, "")

	for _, re := range injectionRes {
		input = re.ReplaceAllString(input, "[filtered]")
	}

	return controlRe.ReplaceAllString(input, "")
}

var (
	codeBlockRe     = regexp.MustCompile("(?s)```.*?```")
	preambleRe      = regexp.MustCompile(`(?i)^certainly!?[,.]?\s*`)
	leadingLabelRe  = regexp.MustCompile(`(?im)^\s*(\*\*|__)?(subject|description|priority)(\*\*|__)?\s*[:\-–—]+\s*`)
	boldLabelRe     = regexp.MustCompile(`(?i)\*\*(subject|description|priority)\*\*[:\-–—]?\s*`)
	plainLabelRe    = regexp.MustCompile(`(?i)(subject|description|priority)[:\-–—]\s*`)
	dividerRe       = regexp.MustCompile(`(?s)---.*?---`)
	leadingDashesRe = regexp.MustCompile(`^[-–—\s]+`)
)

// ModelOutput strips the preambles, code fences, and field labels the
// completion service tends to wrap around a rewritten draft field.
func ModelOutput(text string) string {
	if text == "" {
		return ""
	}

	text = codeBlockRe.ReplaceAllString(text, "")
	text = preambleRe.ReplaceAllString(text, "")
	text = leadingLabelRe.ReplaceAllString(text, "")
	text = boldLabelRe.ReplaceAllString(text, "")
	text = plainLabelRe.ReplaceAllString(text, "")
	text = dividerRe.ReplaceAllString(text, "")
	text = leadingDashesRe.ReplaceAllString(text, "")

	return strings.TrimSpace(text)
}

var fenceRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

// StripCodeFence removes a surrounding markdown code fence from a structured
// response, if present. The inner content is returned trimmed.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); m != nil {
		return m[1]
	}
	return s
}
