package domain

import (
	"fmt"
	"strings"
)

// Level is the difficulty an explanation is pitched at.
type Level int

const (
	LevelChild Level = iota + 1
	LevelIntermediate
	LevelExpert
)

// Levels lists every supported level in display order.
var Levels = []Level{LevelChild, LevelIntermediate, LevelExpert}

// ParseLevel accepts the canonical names plus the labels older clients send.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "child", "eli5", "eli5 (child)", "child-friendly":
		return LevelChild, nil
	case "intermediate":
		return LevelIntermediate, nil
	case "expert":
		return LevelExpert, nil
	}
	return 0, fmt.Errorf("domain: unknown difficulty level %q", s)
}

func (l Level) String() string {
	switch l {
	case LevelChild:
		return "child"
	case LevelIntermediate:
		return "intermediate"
	case LevelExpert:
		return "expert"
	}
	return fmt.Sprintf("Level(%d)", int(l))
}

// Phrase completes "Here's an explanation ...".
func (l Level) Phrase() string {
	switch l {
	case LevelChild:
		return "like you're explaining to a 5-year-old child"
	case LevelIntermediate:
		return "like you're teaching a teenager"
	case LevelExpert:
		return "like you're a professor explaining to graduate students"
	}
	panic(fmt.Sprintf("domain: no phrase for %v", l))
}

// Instruction is the level guidance given to a generation model.
func (l Level) Instruction() string {
	switch l {
	case LevelChild:
		return "Explain like I'm 5 years old. Use very simple words and short sentences."
	case LevelIntermediate:
		return "Explain like you're teaching a curious teenager."
	case LevelExpert:
		return "Explain like a computer science professor with technical depth."
	}
	panic(fmt.Sprintf("domain: no instruction for %v", l))
}

// Valid reports whether l is one of Levels.
func (l Level) Valid() bool {
	return l >= LevelChild && l <= LevelExpert
}
