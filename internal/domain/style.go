package domain

import (
	"fmt"
	"strings"
)

// Style is the shape of an explanation.
type Style int

const (
	StyleStandard Style = iota + 1
	StyleStorytelling
	StyleTechnical
)

// Styles lists every supported style in display order.
var Styles = []Style{StyleStandard, StyleStorytelling, StyleTechnical}

// ParseStyle accepts the canonical names plus the labels older clients send.
func ParseStyle(s string) (Style, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "standard":
		return StyleStandard, nil
	case "storytelling":
		return StyleStorytelling, nil
	case "technical", "technical breakdown":
		return StyleTechnical, nil
	}
	return 0, fmt.Errorf("domain: unknown answer style %q", s)
}

func (s Style) String() string {
	switch s {
	case StyleStandard:
		return "standard"
	case StyleStorytelling:
		return "storytelling"
	case StyleTechnical:
		return "technical"
	}
	return fmt.Sprintf("Style(%d)", int(s))
}

// Suffix is appended to the level phrase; the standard style adds nothing.
func (s Style) Suffix() string {
	switch s {
	case StyleStandard:
		return ""
	case StyleStorytelling:
		return " Use analogies and make it like a fun story."
	case StyleTechnical:
		return " Break it down into technical bullet points."
	}
	panic(fmt.Sprintf("domain: no suffix for %v", s))
}

// Instruction is the style guidance given to a generation model.
func (s Style) Instruction() string {
	switch s {
	case StyleStandard:
		return ""
	case StyleStorytelling:
		return " Make it a fun story or use creative analogies."
	case StyleTechnical:
		return " Break down the explanation into bullet points with technical detail."
	}
	panic(fmt.Sprintf("domain: no instruction for %v", s))
}

// Valid reports whether s is one of Styles.
func (s Style) Valid() bool {
	return s >= StyleStandard && s <= StyleTechnical
}
