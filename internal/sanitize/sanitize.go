// Package sanitize strips markup from user-supplied text before it is
// stored. Onboarding fields are plain text; bluemonday's strict policy
// removes every tag while keeping the text content.
package sanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

// policy is the singleton bluemonday policy. Initialized once via sync.Once
// for thread-safe lazy initialization.
var (
	policy     *bluemonday.Policy
	policyOnce sync.Once
)

func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		policy = bluemonday.StrictPolicy()
	})
	return policy
}

// PlainText removes all HTML from input and trims surrounding whitespace.
// Entities produced by the policy are decoded again, since templates
// escape on output and double escaping would show "&amp;" to users.
func PlainText(input string) string {
	if input == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getPolicy().Sanitize(input)))
}
