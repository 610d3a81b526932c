// Package greeting picks a time-of-day greeting and personalizes it.
package greeting

import (
	_ "embed"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// NamePlaceholder is replaced by the username in greeting templates.
const NamePlaceholder = "{{name}}"

//go:embed data/greetings.yaml
var bundledGreetings []byte

// Range is a half-open hour interval [Start, End).
type Range struct {
	Start int `yaml:"start"`
	End   int `yaml:"end"`
}

type Period struct {
	Range    Range    `yaml:"range"`
	Messages []string `yaml:"messages"`
}

type Service struct {
	periods []Period
	intn    func(n int) int
}

func NewService(periods []Period) *Service {
	return &Service{periods: periods, intn: rand.Intn}
}

// WithRand replaces the message picker, mostly for tests.
func (s *Service) WithRand(intn func(n int) int) *Service {
	s.intn = intn
	return s
}

// Greeting returns a random message of the first period containing now's
// hour, or "" when none does.
func (s *Service) Greeting(now time.Time) string {
	hour := now.Hour()
	for _, p := range s.periods {
		if hour >= p.Range.Start && hour < p.Range.End {
			if len(p.Messages) == 0 {
				return ""
			}
			return p.Messages[s.intn(len(p.Messages))]
		}
	}
	return ""
}

// Personalize fills the name placeholder. Without a username the
// ", {{name}}" fragment is dropped instead.
func Personalize(template, username string) string {
	if username != "" {
		return strings.Replace(template, NamePlaceholder, username, 1)
	}
	return strings.Replace(template, ", "+NamePlaceholder, "", 1)
}

// LoadPeriods reads a YAML greeting table from path, or the bundled one when path is empty.
func LoadPeriods(path string) ([]Period, error) {
	raw := bundledGreetings
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read greetings: %w", err)
		}
		raw = b
	}

	var periods []Period
	if err := yaml.Unmarshal(raw, &periods); err != nil {
		return nil, fmt.Errorf("parse greetings: %w", err)
	}
	for i, p := range periods {
		if p.Range.Start < 0 || p.Range.End > 24 || p.Range.Start >= p.Range.End {
			return nil, fmt.Errorf("greetings: period %d has invalid range %d-%d", i, p.Range.Start, p.Range.End)
		}
	}
	return periods, nil
}
