package automap

import (
	"fmt"
	"log/slog"
	"strings"

	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/match"
	"workbench-mapper/internal/schema"
)

// Mapper proposes mapping paths for headers against one schema graph.
type Mapper struct {
	graph  *schema.Graph
	config Config
	cache  *Cache
	logger *slog.Logger
}

// NewMapper creates a Mapper. A nil cache gets a private one and a nil
// logger means slog.Default().
func NewMapper(graph *schema.Graph, config Config, cache *Cache, logger *slog.Logger) *Mapper {
	if cache == nil {
		cache = NewCache()
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Mapper{
		graph:  graph,
		config: config,
		cache:  cache,
		logger: logger.With(slog.String("component", "automap")),
	}
}

// option is a path a target offers to a header.
type option struct {
	target *target
	path   mapping.Path
	// numbered is set when the header chose the to-many instance.
	numbered bool
}

type scoreFunc func(text string, t *target) (float64, bool)

// AutoMap proposes paths for every header. The result lists headers in
// input order; headers no stage matched have no paths.
func (m *Mapper) AutoMap(headers []string, baseTable string, opts Options) (Result, error) {
	table, err := m.graph.MustTable(baseTable)
	if err != nil {
		return Result{}, fmt.Errorf("failed to automap: %w", err)
	}

	key := cacheKey{table: table.Name, version: m.graph.Version()}
	fill := func() []target {
		return walk(m.graph, table.Name, m.config.MaxDepth)
	}

	var targets []target

	if opts.Scope == ScopeAutomapper {
		targets = m.cache.getOrFill(key, fill)
	} else if cached, ok := m.cache.get(key); ok {
		targets = cached
	} else {
		targets = fill()
	}

	claimed := newClaims(opts.Existing)
	res := Result{BaseTable: table.Name}

	for _, raw := range headers {
		s, ranked := m.suggest(parseHeader(raw), targets, claimed)
		res.Suggestions = append(res.Suggestions, s)

		best, ok := s.Best()
		if !ok {
			res.Diagnostics.AddWarning("unmapped_header",
				fmt.Sprintf("no field matches header %q", raw), table.Name, "")

			continue
		}

		if opts.Scope == ScopeAutomapper {
			claimed.add(best)
		}

		res.Diagnostics.AddInfo("automapped",
			fmt.Sprintf("header %q matched by %s (score %.2f)", raw, s.Stage, s.Score),
			table.Name, best.String())

		if ranked.IsAmbiguous(match.DefaultAmbiguityThreshold) {
			res.Diagnostics.AddInfo("ambiguous_header",
				fmt.Sprintf("header %q also matches %s equally well", raw, ranked[1].Key),
				table.Name, best.String())
		}

		m.logger.Debug("automapped header",
			slog.String("header", raw),
			slog.String("stage", s.Stage.String()),
			slog.String("path", best.String()),
			slog.String("scope", opts.Scope.String()))
	}

	return res, nil
}

// Suggest proposes paths for a single header without touching the cache.
func (m *Mapper) Suggest(header, baseTable string, existing *mapping.Tree) (Suggestion, error) {
	res, err := m.AutoMap([]string{header}, baseTable, Options{Scope: ScopeSuggestion, Existing: existing})
	if err != nil {
		return Suggestion{}, err
	}

	return res.Suggestions[0], nil
}

func (m *Mapper) suggest(h header, targets []target, claimed *claims) (Suggestion, match.CandidateList[mapping.Path]) {
	stages := []struct {
		stage Stage
		score scoreFunc
	}{
		{StageLabel, m.labelScore},
		{StageSynonym, m.synonymScore},
		{StageFuzzy, m.fuzzyScore},
	}

	for _, st := range stages {
		picked := m.pick(rank(h, targets, st.score), claimed)
		if len(picked) == 0 {
			continue
		}

		s := Suggestion{Header: h.raw, Stage: st.stage, Score: picked[0].Score}
		for _, c := range picked {
			s.Paths = append(s.Paths, c.Item)
		}

		return s, picked
	}

	return Suggestion{Header: h.raw}, nil
}

// rank scores every target against the header and its numbered form.
func rank(h header, targets []target, score scoreFunc) match.CandidateList[option] {
	var (
		list  match.CandidateList[option]
		index = map[string]int{}
	)

	consider := func(text string, t *target, n int) {
		s, ok := score(text, t)
		if !ok {
			return
		}

		opt := option{target: t, path: t.path, numbered: n > 0}
		if opt.numbered {
			opt.path = t.withIndex(n)
		}

		key := opt.path.String()
		if i, seen := index[key]; seen {
			list[i].Score = max(list[i].Score, s)
			return
		}

		index[key] = len(list)
		list = append(list, match.Candidate[option]{Item: opt, Key: key, Score: s, Depth: t.depth})
	}

	for i := range targets {
		t := &targets[i]

		consider(h.phrase, t, 0)

		if h.numbered != "" && t.toMany >= 0 {
			consider(h.numbered, t, h.index)
		}
	}

	return list.Rank()
}

// pick takes the best options that are still free. A claimed to-many
// path moves to the next free instance unless the header named one.
func (m *Mapper) pick(ranked match.CandidateList[option], claimed *claims) match.CandidateList[mapping.Path] {
	var (
		picked match.CandidateList[mapping.Path]
		seen   = map[string]bool{}
	)

	for _, c := range ranked {
		path := c.Item.path

		if claimed.has(path) {
			if c.Item.numbered || c.Item.target.toMany < 0 {
				continue
			}

			path = claimed.nextFree(c.Item.target)
		}

		key := path.String()
		if seen[key] {
			continue
		}

		seen[key] = true
		picked = append(picked, match.Candidate[mapping.Path]{Item: path, Key: key, Score: c.Score, Depth: c.Depth})

		if len(picked) == m.config.MaxSuggestions {
			break
		}
	}

	return picked
}

func (m *Mapper) labelScore(text string, t *target) (float64, bool) {
	best, ok := 0.0, false

	if used, matched := qualifiedMatch(text, t.chain, t.label); matched {
		best, ok = specificity(used, len(t.chain)), true
	}

	// "Species" stands for the name of the Species rank.
	if t.rank != "" && strings.EqualFold(t.field, "name") {
		chain := t.chain[:len(t.chain)-1]
		if used, matched := qualifiedMatch(text, chain, t.rank); matched {
			best, ok = max(best, specificity(used, len(chain))), true
		}
	}

	return best, ok
}

func (m *Mapper) synonymScore(text string, t *target) (float64, bool) {
	best, ok := 0.0, false

	for _, phrase := range m.config.Synonyms.Lookup(t.table, t.field) {
		if used, matched := qualifiedMatch(text, t.chain, phrase); matched {
			best, ok = max(best, specificity(used, len(t.chain))), true
		}
	}

	return best, ok
}

func (m *Mapper) fuzzyScore(text string, t *target) (float64, bool) {
	s := max(match.HeaderScore(text, t.qualifiedLabel()), match.HeaderScore(text, t.label))

	if t.rank != "" && strings.EqualFold(t.field, "name") {
		s = max(s, match.HeaderScore(text, t.rank))
	}

	return s, s >= m.config.FuzzyThreshold
}

// claims is the set of paths already taken.
type claims struct {
	paths map[string]bool
}

func newClaims(existing *mapping.Tree) *claims {
	c := &claims{paths: map[string]bool{}}

	if existing != nil {
		for _, e := range mapping.TreeToArray(existing) {
			c.add(e.Path)
		}
	}

	return c
}

func (c *claims) key(p mapping.Path) string {
	return strings.ToLower(p.String())
}

func (c *claims) has(p mapping.Path) bool {
	return c.paths[c.key(p)]
}

func (c *claims) add(p mapping.Path) {
	c.paths[c.key(p)] = true
}

// nextFree returns the target path at the first unclaimed to-many instance.
func (c *claims) nextFree(t *target) mapping.Path {
	for n := 2; ; n++ {
		if p := t.withIndex(n); !c.has(p) {
			return p
		}
	}
}
