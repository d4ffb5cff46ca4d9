package emotion

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

// Emotion names a primary emotion recognised from facial action units.
type Emotion string

const (
	Happiness Emotion = "happiness"
	Sadness   Emotion = "sadness"
	Surprise  Emotion = "surprise"
	Fear      Emotion = "fear"
	Anger     Emotion = "anger"
	Disgust   Emotion = "disgust"
)

// Neutral is the dominant label when no emotion reaches the threshold.
const Neutral = "neutral"

// Canonical is the declaration order of the six primary emotions. It is also
// the tie-break priority of the default pattern set.
var Canonical = []Emotion{Happiness, Sadness, Surprise, Fear, Anger, Disgust}

var (
	ErrEmptyGroup       = errors.New("au group has no members")
	ErrEmptyPattern     = errors.New("pattern has no au groups")
	ErrDuplicateEmotion = errors.New("emotion defined more than once")
	ErrReservedEmotion  = errors.New("emotion name is reserved")
	ErrUnnamedEmotion   = errors.New("pattern has no emotion name")
)

// Group is a set of interchangeable AU variants, typically the left and
// right forms of one facial action. It is satisfied by any one member.
type Group []string

// Pattern defines an emotion as the conjunction of its groups.
type Pattern struct {
	Emotion Emotion `yaml:"emotion"`
	Groups  []Group `yaml:"groups"`
}

// PatternSet is a validated, ordered, read-only pattern table. Order is the
// tie-break priority used by the matcher. A PatternSet is safe for
// concurrent use.
type PatternSet struct {
	patterns []Pattern
}

// NewPatternSet validates the patterns and copies them into a set.
func NewPatternSet(patterns ...Pattern) (*PatternSet, error) {
	seen := make(map[Emotion]bool, len(patterns))
	out := make([]Pattern, 0, len(patterns))
	for _, p := range patterns {
		name := Emotion(strings.TrimSpace(string(p.Emotion)))
		switch {
		case name == "":
			return nil, fmt.Errorf("pattern %d: %w", len(out), ErrUnnamedEmotion)
		case name == Neutral:
			return nil, fmt.Errorf("%s: %w", name, ErrReservedEmotion)
		case seen[name]:
			return nil, fmt.Errorf("%s: %w", name, ErrDuplicateEmotion)
		case len(p.Groups) == 0:
			return nil, fmt.Errorf("%s: %w", name, ErrEmptyPattern)
		}
		seen[name] = true

		groups := make([]Group, 0, len(p.Groups))
		for i, g := range p.Groups {
			members := make(Group, 0, len(g))
			for _, au := range g {
				if au = strings.TrimSpace(au); au != "" {
					members = append(members, au)
				}
			}
			if len(members) == 0 {
				return nil, fmt.Errorf("%s group %d: %w", name, i, ErrEmptyGroup)
			}
			groups = append(groups, members)
		}
		out = append(out, Pattern{Emotion: name, Groups: groups})
	}
	return &PatternSet{patterns: out}, nil
}

// MustPatternSet is like NewPatternSet but panics on invalid input.
func MustPatternSet(patterns ...Pattern) *PatternSet {
	s, err := NewPatternSet(patterns...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of patterns.
func (s *PatternSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.patterns)
}

// Emotions returns the configured emotions in priority order.
func (s *PatternSet) Emotions() []Emotion {
	out := make([]Emotion, 0, s.Len())
	for _, p := range s.all() {
		out = append(out, p.Emotion)
	}
	return out
}

// Patterns returns a deep copy of the table.
func (s *PatternSet) Patterns() []Pattern {
	out := make([]Pattern, 0, s.Len())
	for _, p := range s.all() {
		groups := make([]Group, len(p.Groups))
		for i, g := range p.Groups {
			groups[i] = append(Group(nil), g...)
		}
		out = append(out, Pattern{Emotion: p.Emotion, Groups: groups})
	}
	return out
}

func (s *PatternSet) all() []Pattern {
	if s == nil {
		return nil
	}
	return s.patterns
}

// LoadPatterns decodes a YAML sequence of patterns, each a mapping with an
// "emotion" name and "groups", a list of AU name lists. Sequence order is
// the tie-break priority. An empty document yields an empty set.
func LoadPatterns(r io.Reader) (*PatternSet, error) {
	var patterns []Pattern
	if err := yaml.NewDecoder(r).Decode(&patterns); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode patterns: %w", err)
	}
	return NewPatternSet(patterns...)
}

// WritePatterns encodes the table in the format read by LoadPatterns.
func WritePatterns(w io.Writer, s *PatternSet) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s.Patterns()); err != nil {
		return fmt.Errorf("encode patterns: %w", err)
	}
	return enc.Close()
}

// DefaultPatterns returns the built-in FACS table for the six primary emotions.
func DefaultPatterns() *PatternSet {
	var (
		au1  = Group{"InnerBrowRaiserL", "InnerBrowRaiserR"}
		au2  = Group{"OuterBrowRaiserL", "OuterBrowRaiserR"}
		au4  = Group{"BrowLowererL", "BrowLowererR"}
		au5  = Group{"UpperLidRaiserL", "UpperLidRaiserR"}
		au6  = Group{"CheekRaiserL", "CheekRaiserR"}
		au7  = Group{"LidTightenerL", "LidTightenerR"}
		au9  = Group{"NoseWrinklerL", "NoseWrinklerR"}
		au10 = Group{"UpperLipRaiserL", "UpperLipRaiserR"}
		au12 = Group{"LipCornerPullerL", "LipCornerPullerR"}
		au15 = Group{"LipCornerDepressorL", "LipCornerDepressorR"}
		au16 = Group{"LowerLipDepressorL", "LowerLipDepressorR"}
		au17 = Group{"ChinRaiserB", "ChinRaiserT"}
		au20 = Group{"LipStretcherL", "LipStretcherR"}
		au23 = Group{"LipTightenerL", "LipTightenerR"}
		au24 = Group{"LipPressorL", "LipPressorR"}
		au26 = Group{"JawDrop"}
	)
	return MustPatternSet(
		Pattern{Emotion: Happiness, Groups: []Group{au6, au12}},
		Pattern{Emotion: Sadness, Groups: []Group{au1, au4, au15}},
		Pattern{Emotion: Surprise, Groups: []Group{au1, au2, au5, au26}},
		Pattern{Emotion: Fear, Groups: []Group{au1, au2, au4, au5, au20, au26}},
		Pattern{Emotion: Anger, Groups: []Group{au4, au5, au7, au23, au24}},
		Pattern{Emotion: Disgust, Groups: []Group{au9, au10, au15, au16, au17}},
	)
}
