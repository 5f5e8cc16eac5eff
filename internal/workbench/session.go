// Package workbench ties the mapping engine to one open dataset: the schema,
// the mapping tree, the auto-mapper cache, live validation and the
// disambiguation choices of its rows.
package workbench

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"workbench-mapper/internal/automap"
	"workbench-mapper/internal/common"
	"workbench-mapper/internal/diagnostic"
	"workbench-mapper/internal/mapping"
	"workbench-mapper/internal/plan"
	"workbench-mapper/internal/scheduler"
	"workbench-mapper/internal/schema"
	"workbench-mapper/internal/validation"
)

var (
	ErrNoBaseTable  = errors.New("base table is not set")
	ErrNotAmbiguous = errors.New("cell has no ambiguous record match")
	ErrNoRecords    = errors.New("none of the matched records exist")
)

// Options configure a session.
type Options struct {
	// Provider serves the schema graph. When nil, one is created from Fetcher.
	Provider *schema.Provider
	Fetcher  schema.Fetcher
	// SchemaVersion is the opaque version token of the schema.
	SchemaVersion string

	Grid      Grid
	Validator scheduler.Validator
	Lookup    RecordLookup

	Automap   automap.Config
	Scheduler scheduler.Config
	Logger    *slog.Logger
}

// DefaultOptions returns options with the default auto-mapper and
// scheduler configuration.
func DefaultOptions() Options {
	return Options{
		Automap:   automap.DefaultConfig(),
		Scheduler: scheduler.DefaultConfig(),
	}
}

type cell struct {
	row, col int
}

// Session is one open dataset. It is safe for concurrent use; results of
// live validation are applied from the scheduler goroutine.
type Session struct {
	id       uuid.UUID
	graph    *schema.Graph
	grid     Grid
	lookup   RecordLookup
	logger   *slog.Logger
	cache    *automap.Cache
	mapper   *automap.Mapper
	registry *validation.Registry
	sched    *scheduler.Scheduler

	mu        sync.Mutex
	baseTable string
	tree      *mapping.Tree
	mustMatch []mapping.Path
	interp    *validation.Interpreter
	cells     map[cell]validation.CellState
	live      bool
}

// New fetches the schema and opens a session.
func New(ctx context.Context, opts Options) (*Session, error) {
	if opts.Grid == nil {
		return nil, errors.New("grid is required")
	}

	if opts.Validator == nil {
		return nil, errors.New("validator is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	id := uuid.New()
	logger = logger.With(slog.String("session_id", id.String()))

	provider := opts.Provider
	if provider == nil {
		if opts.Fetcher == nil {
			return nil, errors.New("schema fetcher is required")
		}

		provider = schema.NewProvider(opts.Fetcher, logger)
	}

	graph, err := provider.Get(ctx, opts.SchemaVersion)
	if err != nil {
		return nil, fmt.Errorf("failed to open session: %w", err)
	}

	config := opts.Automap
	if config.MaxSuggestions <= 0 {
		config = automap.DefaultConfig()
	}

	s := &Session{
		id:       id,
		graph:    graph,
		grid:     opts.Grid,
		lookup:   opts.Lookup,
		logger:   logger,
		cache:    automap.NewCache(),
		registry: validation.NewRegistry(),
		tree:     mapping.NewTree(),
		cells:    map[cell]validation.CellState{},
	}

	s.mapper = automap.NewMapper(graph, config, s.cache, logger)
	s.sched = scheduler.New(opts.Validator, s.rowValues, s.applyResult, opts.Scheduler, logger)

	logger.Info("session opened", slog.String("schema_version", graph.Version()))

	return s, nil
}

// ID returns the session ID.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Graph returns the schema graph of the session.
func (s *Session) Graph() *schema.Graph {
	return s.graph
}

// Close stops live validation for good.
func (s *Session) Close() {
	s.sched.Close()
	s.logger.Info("session closed")
}

// BaseTable returns the table the dataset is uploaded to.
func (s *Session) BaseTable() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.baseTable
}

// SetBaseTable selects the base table. Changing it drops the mapping.
func (s *Session) SetBaseTable(table string) error {
	t, err := s.graph.MustTable(table)
	if err != nil {
		return fmt.Errorf("failed to set base table: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Name == s.baseTable {
		return nil
	}

	s.baseTable = t.Name
	s.mustMatch = nil
	s.cache.Invalidate()
	s.setTreeLocked(mapping.NewTree())

	return nil
}

// AutoMap maps the given headers, or every unmapped dataset column when
// none are given, and merges the result into the mapping. Headers that are
// already mapped are left alone.
func (s *Session) AutoMap(headers ...string) (automap.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseTable == "" {
		return automap.Result{}, ErrNoBaseTable
	}

	if len(headers) == 0 {
		headers = s.grid.Columns()
	}

	mapped := s.mappedHeadersLocked()
	headers = slices.DeleteFunc(slices.Clone(headers), func(h string) bool { return mapped[h] })

	res, err := s.mapper.AutoMap(headers, s.baseTable, automap.Options{
		Scope:    automap.ScopeAutomapper,
		Existing: s.tree,
	})
	if err != nil {
		return automap.Result{}, err
	}

	found, err := res.Tree()
	if err != nil {
		return automap.Result{}, fmt.Errorf("failed to build automapped tree: %w", err)
	}

	merged, err := mapping.Merge(s.tree, found)
	if err != nil {
		return automap.Result{}, fmt.Errorf("failed to merge automapped tree: %w", err)
	}

	s.setTreeLocked(merged)

	s.logger.Info("headers automapped",
		slog.Int("headers", len(headers)),
		slog.Int("unmapped", len(res.Unmapped())))

	return res, nil
}

// Suggest proposes paths for one header without changing the mapping.
func (s *Session) Suggest(header string) (automap.Suggestion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseTable == "" {
		return automap.Suggestion{}, ErrNoBaseTable
	}

	return s.mapper.Suggest(header, s.baseTable, s.tree)
}

func (s *Session) mappedHeadersLocked() map[string]bool {
	mapped := map[string]bool{}

	for _, e := range mapping.TreeToArray(s.tree) {
		if e.Leaf.Kind != mapping.NewStaticColumn {
			mapped[e.Leaf.Value] = true
		}
	}

	return mapped
}

// Tree returns a copy of the mapping.
func (s *Session) Tree() *mapping.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.tree.Clone()
}

// SetTree replaces the mapping. Validation starts over.
func (s *Session) SetTree(tree *mapping.Tree) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.setTreeLocked(tree.Clone())
}

// SetMustMatch replaces the relationships whose records must already exist.
func (s *Session) SetMustMatch(paths ...mapping.Path) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mustMatch = slices.Clone(paths)
}

func (s *Session) setTreeLocked(tree *mapping.Tree) {
	s.tree = tree
	s.interp = nil

	s.sched.Reset()
	s.registry.Reset()
	s.clearAnnotationsLocked()

	if s.live {
		s.revalidateLocked()
	}
}

// Plan returns the current mapping as an upload plan.
func (s *Session) Plan() plan.MappingPlan {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.planLocked()
}

func (s *Session) planLocked() plan.MappingPlan {
	return plan.MappingPlan{
		BaseTable: s.baseTable,
		Tree:      s.tree.Clone(),
		MustMatch: slices.Clone(s.mustMatch),
	}
}

// LoadPlan replaces the mapping with a stored upload plan. A non-empty
// resourceTable must match the base table of the plan.
func (s *Session) LoadPlan(raw []byte, resourceTable string) error {
	var (
		p   plan.MappingPlan
		err error
	)

	if resourceTable == "" {
		p, err = plan.Unmarshal(raw)
	} else {
		p, err = plan.UnmarshalFor(raw, resourceTable)
	}

	if err != nil {
		return fmt.Errorf("failed to load upload plan: %w", err)
	}

	t, err := s.graph.MustTable(p.BaseTable)
	if err != nil {
		return fmt.Errorf("failed to load upload plan: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if t.Name != s.baseTable {
		s.cache.Invalidate()
	}

	s.baseTable = t.Name
	s.mustMatch = p.MustMatch
	s.setTreeLocked(p.Tree)

	s.logger.Info("upload plan loaded", slog.String("base_table", t.Name))

	return nil
}

// SavePlan encodes the mapping as upload plan JSON.
func (s *Session) SavePlan() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseTable == "" {
		return nil, ErrNoBaseTable
	}

	return plan.Marshal(s.planLocked())
}

// MissingRequired lists the required fields the mapping does not cover.
func (s *Session) MissingRequired() []mapping.Path {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.baseTable == "" {
		return nil
	}

	return mapping.FindMissingRequired(s.graph, s.baseTable, s.tree)
}

// CheckPlan validates the mapping against the schema.
func (s *Session) CheckPlan() *diagnostic.Diagnostics {
	s.mu.Lock()
	defer s.mu.Unlock()

	return plan.Validate(s.graph, s.planLocked())
}

// CellState returns the validation state of a cell.
func (s *Session) CellState(row, col int) validation.CellState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cells[cell{row, col}]
}

// Stats counts annotated cells.
type Stats struct {
	New           int
	Invalid       int
	Modified      int
	SearchMatches int
}

// Stats returns the cell counts of the dataset.
func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	var st Stats

	for _, c := range s.cells {
		if c.IsNew {
			st.New++
		}

		switch c.Status {
		case validation.StatusInvalid:
			st.Invalid++
		case validation.StatusModified:
			st.Modified++
		}

		if c.IsSearchMatch {
			st.SearchMatches++
		}
	}

	return st
}

// Search marks the cells whose value contains query, ignoring case, and
// returns how many matched. Earlier marks are cleared; an empty query only
// clears them.
func (s *Session) Search(query string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range s.sortedCellsLocked() {
		if s.cells[key].IsSearchMatch {
			s.setCellLocked(key.row, key.col, s.cells[key].Searched(false))
		}
	}

	if query == "" {
		return 0
	}

	var (
		q       = strings.ToLower(query)
		columns = len(s.grid.Columns())
		matches int
	)

	for _, row := range s.grid.Rows() {
		for col := range columns {
			if !strings.Contains(strings.ToLower(s.grid.Value(row, col)), q) {
				continue
			}

			s.setCellLocked(row, col, s.cells[cell{row, col}].Searched(true))
			matches++
		}
	}

	return matches
}

// IsAmbiguous reports whether a cell belongs to a record match that needs
// disambiguation.
func (s *Session) IsAmbiguous(row, col int) bool {
	return s.registry.IsAmbiguous(row, col)
}

func (s *Session) setCellLocked(row, col int, next validation.CellState) {
	key := cell{row, col}

	for _, e := range validation.Diff(row, col, s.cells[key], next) {
		switch e.Kind {
		case validation.EffectAnnotate:
			s.grid.SetAnnotations(e.Row, e.Col, e.Annotations)
		case validation.EffectComment:
			s.grid.SetComment(e.Row, e.Col, e.Comment)
		}
	}

	if next.Equal(validation.CellState{}) {
		delete(s.cells, key)
	} else {
		s.cells[key] = next
	}
}

func (s *Session) sortedCellsLocked() []cell {
	keys := make([]cell, 0, len(s.cells))
	for key := range s.cells {
		keys = append(keys, key)
	}

	slices.SortFunc(keys, func(a, b cell) int {
		return cmp.Or(cmp.Compare(a.row, b.row), cmp.Compare(a.col, b.col))
	})

	return keys
}

func (s *Session) clearAnnotationsLocked() {
	for _, key := range s.sortedCellsLocked() {
		s.setCellLocked(key.row, key.col, s.cells[key].Reset())
	}
}

// SetLiveValidation turns live validation on or off. Turning it on queues
// every row so the top row is validated first; turning it off stops the
// scheduler and clears validation annotations.
func (s *Session) SetLiveValidation(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if on == s.live {
		return
	}

	s.live = on
	s.sched.Reset()
	s.clearAnnotationsLocked()

	if on {
		s.revalidateLocked()
	}

	s.logger.Info("live validation toggled", slog.Bool("on", on))
}

// LiveValidation reports whether live validation is on.
func (s *Session) LiveValidation() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.live
}

func (s *Session) revalidateLocked() {
	rows := s.grid.Rows()
	payloadCol := len(s.grid.Columns())

	for _, row := range rows {
		choices, err := validation.DecodePayload(s.grid.Value(row, payloadCol))
		if err != nil {
			s.logger.Warn("ignored broken row payload", slog.Int("row", row), slog.Any("error", err))
		}

		s.registry.LoadChoices(row, choices)
	}

	reversed := slices.Clone(rows)
	slices.Reverse(reversed)
	s.sched.Enqueue(reversed...)
}

// Wait blocks until live validation has no queued rows.
func (s *Session) Wait(ctx context.Context) error {
	return s.sched.Wait(ctx)
}

// Err returns the protocol error that halted live validation, if any.
func (s *Session) Err() error {
	return s.sched.Err()
}

func (s *Session) rowValues(row int) ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !slices.Contains(s.grid.Rows(), row) {
		return nil, false
	}

	n := len(s.grid.Columns())
	values := make([]string, n+1)

	for col := range values {
		values[col] = s.grid.Value(row, col)
	}

	return values, true
}

func (s *Session) applyResult(_ context.Context, job scheduler.Job, result *validation.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.live || !s.sched.Current(job) {
		s.logger.Debug("stale result dropped", slog.Int("row", job.Row))

		return nil
	}

	return s.applyRowLocked(job.Row, result)
}

func (s *Session) applyRowLocked(row int, result *validation.Result) error {
	if s.interp == nil {
		s.interp = validation.NewInterpreter(s.grid.Columns(), s.tree)
	}

	report, err := s.interp.Interpret(result)
	if err != nil {
		return fmt.Errorf("failed to apply result of row %d: %w", row, err)
	}

	s.registry.SetPending(row, report.Ambiguities)

	for col := range s.grid.Columns() {
		key := cell{row, col}
		s.setCellLocked(row, col, s.cells[key].Validated(report.Issues[col], report.New[col]))
	}

	return nil
}

// ApplyStoredResults shows results of a whole-dataset validation, indexed
// by physical row. Live validation is turned off.
func (s *Session) ApplyStoredResults(results []*validation.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.live = false
	s.sched.Reset()
	s.registry.Reset()
	s.clearAnnotationsLocked()

	for row, result := range results {
		if err := s.applyRowLocked(row, result); err != nil {
			return err
		}
	}

	return nil
}

// EditCell sets a cell value. The row's disambiguation choices are dropped
// and, when the column is mapped, the row is queued for validation.
func (s *Session) EditCell(row, col int, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	columns := s.grid.Columns()
	if !common.IsInRange(0, col, len(columns)-1) {
		return fmt.Errorf("column %d is out of range", col)
	}

	if s.grid.Value(row, col) == value {
		return nil
	}

	s.grid.SetValue(row, col, value)
	s.setCellLocked(row, col, s.cells[cell{row, col}].Edit())

	s.registry.ClearRow(row)
	s.writeChoicesLocked(row)

	if s.live && s.mappedHeadersLocked()[columns[col]] {
		s.sched.Enqueue(row)
	}

	return nil
}

func (s *Session) writeChoicesLocked(row int) {
	payloadCol := len(s.grid.Columns())

	raw, err := validation.EncodePayload(s.grid.Value(row, payloadCol), s.registry.Choices(row))
	if err != nil {
		s.logger.Warn("failed to write row payload", slog.Int("row", row), slog.Any("error", err))

		return
	}

	s.grid.SetValue(row, payloadCol, raw)
}

func (s *Session) candidateLocked(row, col int) (validation.Candidate, error) {
	c, ok := s.registry.Candidate(row, col)
	if !ok {
		return validation.Candidate{}, fmt.Errorf("row %d column %d: %w", row, col, ErrNotAmbiguous)
	}

	return c, nil
}

func (s *Session) resolveLocked(row int, c validation.Candidate, id int) {
	cols := s.registry.Resolve(row, c.MappingPath, id)
	s.writeChoicesLocked(row)

	for _, col := range cols {
		s.setCellLocked(row, col, s.cells[cell{row, col}].Edit())
	}
}

// Disambiguate picks the record for the ambiguous match covering a cell
// and queues the row for validation.
func (s *Session) Disambiguate(row, col, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.candidateLocked(row, col)
	if err != nil {
		return err
	}

	if !slices.Contains(c.IDs, id) {
		return fmt.Errorf("record %d is not a candidate of %s", id, c.MappingPath)
	}

	s.resolveLocked(row, c, id)

	if s.live {
		s.sched.Enqueue(row)
	}

	return nil
}

// DisambiguateAll picks the record for the match covering a cell and for
// every unresolved match with the same key in other rows. Rows that are
// queued or being validated are skipped. It returns the changed rows in
// descending order.
func (s *Session) DisambiguateAll(row, col, id int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := s.candidateLocked(row, col)
	if err != nil {
		return nil, err
	}

	if !slices.Contains(c.IDs, id) {
		return nil, fmt.Errorf("record %d is not a candidate of %s", id, c.MappingPath)
	}

	s.resolveLocked(row, c, id)

	rows := s.registry.ResolveAll(c.MappingPath, c.Key, id, s.sched.Busy)
	for _, r := range rows {
		s.writeChoicesLocked(r)

		if other, ok := s.registry.Candidate(r, col); ok {
			for _, oc := range other.Columns {
				s.setCellLocked(r, oc, s.cells[cell{r, oc}].Edit())
			}
		}
	}

	rows = append(rows, row)
	slices.SortFunc(rows, func(a, b int) int { return cmp.Compare(b, a) })

	if s.live {
		s.sched.Enqueue(rows...)
	}

	s.logger.Info("disambiguated rows",
		slog.String("path", c.MappingPath.String()),
		slog.Int("record", id),
		slog.Int("rows", len(rows)))

	return rows, nil
}

// DisambiguationChoices fetches the candidate records of the ambiguous
// match covering a cell.
func (s *Session) DisambiguationChoices(ctx context.Context, row, col int) ([]Record, error) {
	s.mu.Lock()
	c, err := s.candidateLocked(row, col)
	base := s.baseTable
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}

	if s.lookup == nil {
		return nil, errors.New("record lookup is not configured")
	}

	table, err := mapping.TableAt(s.graph, base, c.MappingPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", c.MappingPath, err)
	}

	records, err := s.lookup.LookupRecords(ctx, table, c.IDs)
	if err != nil {
		return nil, fmt.Errorf("failed to look up %s records: %w", table, err)
	}

	if common.IsEmpty(records) {
		return nil, ErrNoRecords
	}

	return records, nil
}

// RemoveRows forgets removed rows: their queued validations, choices and
// cell states.
func (s *Session) RemoveRows(rows ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sched.Remove(rows...)
	s.registry.Remove(rows...)

	for key := range s.cells {
		if slices.Contains(rows, key.row) {
			delete(s.cells, key)
		}
	}
}
