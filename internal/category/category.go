// Package category maps tracked subjects (hostnames, activity names) onto a
// fixed set of category labels.
package category

import "strings"

// Category is a classification label for tracked activity.
type Category string

const (
	Work          Category = "Work"
	Social        Category = "Social"
	Entertainment Category = "Entertainment"
	Utilities     Category = "Utilities"
	Other         Category = "Other"
)

// All returns the full category set in its fixed display order. Aggregates
// zero-fill this set so category maps can be summed without existence checks.
func All() []Category {
	return []Category{Work, Social, Entertainment, Utilities, Other}
}

// Rule maps a category to the substring patterns that select it.
type Rule struct {
	Category Category `yaml:"category"`
	Patterns []string `yaml:"patterns"`
}

// Classifier assigns categories by ordered first-match substring containment.
// Matching is case-insensitive. Subjects matching no rule classify as Other.
//
// Classification happens once, at ingestion: changing the rule table never
// rewrites already-aggregated history.
type Classifier struct {
	rules []Rule
}

// New builds a classifier from an ordered rule table.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// Default returns a classifier with the built-in domain table.
func Default() *Classifier {
	return New(DefaultRules())
}

// DefaultRules is the built-in domain classification table.
func DefaultRules() []Rule {
	return []Rule{
		{Category: Entertainment, Patterns: []string{
			"youtube.com", "netflix.com", "twitch.tv", "spotify.com",
			"hulu.com", "disneyplus.com", "hbomax.com",
		}},
		{Category: Social, Patterns: []string{
			"twitter.com", "x.com", "instagram.com", "tiktok.com",
			"reddit.com", "facebook.com", "linkedin.com", "discord.com",
		}},
		{Category: Work, Patterns: []string{
			"github.com", "stackoverflow.com", "figma.com", "notion.so",
			"slack.com", "linear.app", "jira.com", "confluence.com",
			"zoom.us", "teams.microsoft.com",
		}},
		{Category: Utilities, Patterns: []string{
			"gmail.com", "google.com", "calendar.google.com",
			"docs.google.com", "drive.google.com", "maps.google.com",
			"weather.com", "wikipedia.org",
		}},
	}
}

// Classify returns the category for a subject. First matching rule wins.
func (c *Classifier) Classify(subject string) Category {
	lower := strings.ToLower(subject)
	for _, r := range c.rules {
		for _, p := range r.Patterns {
			if strings.Contains(lower, strings.ToLower(p)) {
				return r.Category
			}
		}
	}
	return Other
}

// Rules returns the classifier's rule table in match order.
func (c *Classifier) Rules() []Rule {
	return c.rules
}
