// Package moderation gates all outbound content before it can touch any
// room or message state. Checks run in a fixed order and short-circuit on
// the first failure; a rejection never mutates anything and is reported to
// the acting connection only.
package moderation

import (
	"log/slog"
	"regexp"
	"strings"
	"unicode"

	goahocorasick "github.com/anknown/ahocorasick"

	"chatroom/errors"
)

// DefaultMaxContentLength bounds a single message after trimming.
const DefaultMaxContentLength = 500

// forbiddenSignatures are executable/markup injection markers. They are
// matched case-insensitively as plain substrings via the Aho-Corasick
// automaton, so one pass over the content covers the whole list.
var forbiddenSignatures = []string{
	"<script",
	"<iframe",
	"javascript:",
	"data:text/html",
	"onclick=",
	"onload=",
	"eval(",
	"expression(",
}

// maxRepeatRun is the longest accepted run of one repeated character.
const maxRepeatRun = 10

// uppercaseRatioLimit rejects shouting once content is longer than
// uppercaseMinLength characters.
const (
	uppercaseRatioLimit = 0.7
	uppercaseMinLength  = 10
)

type Pipeline struct {
	matcher          *goahocorasick.Machine
	maxContentLength int
	limiter          *RateLimiter
	log              *slog.Logger
}

// NewPipeline builds the signature automaton once; the pipeline is then
// safe for concurrent use.
func NewPipeline(maxContentLength int, limiter *RateLimiter, log *slog.Logger) (*Pipeline, error) {
	if maxContentLength <= 0 {
		maxContentLength = DefaultMaxContentLength
	}
	patterns := make([][]rune, len(forbiddenSignatures))
	for i, signature := range forbiddenSignatures {
		patterns[i] = []rune(signature)
	}
	m := new(goahocorasick.Machine)
	if err := m.Build(patterns); err != nil {
		return nil, err
	}
	return &Pipeline{
		matcher:          m,
		maxContentLength: maxContentLength,
		limiter:          limiter,
		log:              log,
	}, nil
}

// Validate applies, in order: empty, too long, forbidden pattern, spam,
// rate limit. The rate counter is only consulted last, so a rejected
// payload never burns an action from the actor's window.
func (p *Pipeline) Validate(content, actorID, action string) error {
	trimmed := strings.TrimSpace(content)

	if len(trimmed) == 0 {
		return errors.ErrEmptyContent
	}
	if len([]rune(trimmed)) > p.maxContentLength {
		return errors.ErrContentTooLong
	}
	if p.containsForbiddenPattern(trimmed) {
		return errors.ErrForbiddenPattern
	}
	if looksLikeSpam(trimmed) {
		return errors.ErrSpamDetected
	}
	if p.limiter != nil && !p.limiter.Allow(actorID, action) {
		return errors.ErrRateLimited
	}
	return nil
}

// AllowAction consults only the rate window, for payloads whose content is
// opaque to the server (encrypted private messages).
func (p *Pipeline) AllowAction(actorID, action string) error {
	if p.limiter != nil && !p.limiter.Allow(actorID, action) {
		return errors.ErrRateLimited
	}
	return nil
}

func (p *Pipeline) containsForbiddenPattern(content string) bool {
	lowered := []rune(strings.ToLower(content))
	return len(p.matcher.MultiPatternSearch(lowered, true)) > 0
}

// looksLikeSpam flags a run of one character repeated more than maxRepeatRun
// times, or mostly-uppercase content once it is long enough to matter.
func looksLikeSpam(content string) bool {
	runes := []rune(content)

	run := 1
	for i := 1; i < len(runes); i++ {
		if runes[i] == runes[i-1] {
			run++
			if run > maxRepeatRun {
				return true
			}
		} else {
			run = 1
		}
	}

	if len(runes) > uppercaseMinLength {
		upper := 0
		for _, r := range runes {
			if unicode.IsUpper(r) {
				upper++
			}
		}
		if float64(upper)/float64(len(runes)) > uppercaseRatioLimit {
			return true
		}
	}
	return false
}

var roomNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_\- #]+$`)

// RoomNameMaxLength bounds a room name after trimming.
const RoomNameMaxLength = 50

// ValidateRoomName checks length and charset of a requested room name.
// Uniqueness is the directory's concern, not this gate's.
func ValidateRoomName(name string) error {
	trimmed := strings.TrimSpace(name)
	if len(trimmed) < 2 || len(trimmed) > RoomNameMaxLength {
		return errors.ErrInvalidRoomName
	}
	if !roomNamePattern.MatchString(trimmed) {
		return errors.ErrInvalidRoomName
	}
	return nil
}
