package automap

import (
	"workbench-mapper/internal/common"
	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/match"
)

// Config holds the tuning knobs of the auto-mapper.
type Config struct {
	// MaxSuggestions is the maximum number of paths returned per header.
	MaxSuggestions int
	// MaxDepth is the maximum number of relationships crossed from the base table.
	MaxDepth int
	// FuzzyThreshold is the minimum similarity accepted by the fuzzy stage.
	FuzzyThreshold float64
	// Synonyms are alternative header phrases per table field.
	Synonyms Synonyms
}

// DefaultConfig returns the default auto-mapper configuration.
func DefaultConfig() Config {
	return Config{
		MaxSuggestions: 3,
		MaxDepth:       3,
		FuzzyThreshold: match.DefaultMinScore,
		Synonyms:       DefaultSynonyms(),
	}
}

// Scope tells the mapper which call site it serves.
type Scope int

const (
	// ScopeAutomapper maps a batch of headers. It fills the cache and
	// claims every chosen path, so later headers get other paths.
	ScopeAutomapper Scope = iota
	// ScopeSuggestion answers an interactive prompt. It only reads the cache.
	ScopeSuggestion
)

// String returns the scope name.
func (s Scope) String() string {
	switch s {
	case ScopeAutomapper:
		return "automapper"
	case ScopeSuggestion:
		return "suggestion"
	default:
		return common.UnknownStr
	}
}

// Stage is the matching stage that produced a suggestion.
type Stage int

const (
	StageNone Stage = iota
	StageLabel
	StageSynonym
	StageFuzzy
)

// String returns the stage name.
func (s Stage) String() string {
	switch s {
	case StageNone:
		return "none"
	case StageLabel:
		return "label"
	case StageSynonym:
		return "synonym"
	case StageFuzzy:
		return "fuzzy"
	default:
		return common.UnknownStr
	}
}

// Options are per-call settings.
type Options struct {
	Scope Scope
	// Existing holds mappings made before this call. Their paths are
	// never suggested again.
	Existing *mapping.Tree
}
