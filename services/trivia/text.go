package trivia

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)

// Normalize lower-cases s, turns every run of characters outside a-z and
// 0-9 into one space and trims the result. Answers and replies are
// compared in this form.
func Normalize(s string) string {
	return strings.TrimSpace(nonAlnum.ReplaceAllString(strings.ToLower(s), " "))
}

// FormatPrompt renders the public round post.
func FormatPrompt(level int, category, question string) string {
	return fmt.Sprintf("🎯 Level %d · %s Trivia\n%s\n\nReply with your answer!", level, titleCase(category), question)
}

// FormatAnnouncement renders the winner acknowledgment.
func FormatAnnouncement(handle, answer string) string {
	return fmt.Sprintf("🏆 %s got it! Answer: %s", handle, answer)
}

// titleCase upper-cases the first letter of every letter run, so
// "american_music" becomes "American_Music".
func titleCase(s string) string {
	var b strings.Builder
	prevLetter := false
	for _, r := range s {
		if unicode.IsLetter(r) {
			if prevLetter {
				b.WriteRune(unicode.ToLower(r))
			} else {
				b.WriteRune(unicode.ToUpper(r))
			}
			prevLetter = true
			continue
		}
		b.WriteRune(r)
		prevLetter = false
	}
	return b.String()
}
