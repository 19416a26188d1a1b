package ui

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cymbal-labs/searchdemo/internal/metrics"
	"github.com/cymbal-labs/searchdemo/internal/search"
	"github.com/cymbal-labs/searchdemo/internal/state"
)

// Field names a numeric ranking parameter.
type Field string

const (
	FieldPageSize                  Field = "pageSize"
	FieldSummaryResultCount        Field = "summaryResultCount"
	FieldMaxSnippetCount           Field = "maxSnippetCount"
	FieldMaxExtractiveAnswerCount  Field = "maxExtractiveAnswerCount"
	FieldMaxExtractiveSegmentCount Field = "maxExtractiveSegmentCount"
)

// Fields lists the form fields in display order.
var Fields = []Field{
	FieldPageSize,
	FieldSummaryResultCount,
	FieldMaxSnippetCount,
	FieldMaxExtractiveAnswerCount,
	FieldMaxExtractiveSegmentCount,
}

var fieldLabels = map[Field]string{
	FieldPageSize:                  "Page size",
	FieldSummaryResultCount:        "Summary result count",
	FieldMaxSnippetCount:           "Max snippet count",
	FieldMaxExtractiveAnswerCount:  "Max extractive answer count",
	FieldMaxExtractiveSegmentCount: "Max extractive segment count",
}

// Label returns the human readable field name.
func (f Field) Label() string {
	if label, ok := fieldLabels[f]; ok {
		return label
	}
	return string(f)
}

// ParseField resolves a field name.
func ParseField(name string) (Field, bool) {
	f := Field(strings.TrimSpace(name))
	_, ok := fieldLabels[f]
	return f, ok
}

// invalid is the sentinel stored for input that is not a number.
const invalid = -1

// FieldError reports a parameter that is not a valid positive integer.
type FieldError struct {
	Field Field
	Raw   string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s must be a positive integer, got %q", e.Field.Label(), e.Raw)
}

// Searcher performs a backend search.
type Searcher interface {
	Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error)
}

// BusyObserver is told when the form enters or leaves the busy state.
type BusyObserver func(busy bool)

// ParameterForm holds the five numeric ranking parameters and runs searches.
// Field values are local to the form; only the query lives in the store.
type ParameterForm struct {
	store    *state.Store
	searcher Searcher
	logger   *logging.Logger

	mu       sync.Mutex
	values   map[Field]int
	raw      map[Field]string
	inflight int
	nextID   int
	busyObs  map[int]BusyObserver
	lastErr  error
}

// NewParameterForm returns a form with every field at its default.
func NewParameterForm(store *state.Store, searcher Searcher, logger *logging.Logger) *ParameterForm {
	f := &ParameterForm{
		store:    store,
		searcher: searcher,
		logger:   logger,
		values:   make(map[Field]int, len(Fields)),
		raw:      make(map[Field]string, len(Fields)),
		busyObs:  make(map[int]BusyObserver),
	}
	for _, field := range Fields {
		f.values[field] = search.DefaultCount
		f.raw[field] = strconv.Itoa(search.DefaultCount)
	}
	return f
}

// SetField coerces raw to a number and stores it. Input that does not parse
// as an integer is kept as an invalid marker and blocks the next search.
func (f *ParameterForm) SetField(field Field, raw string) error {
	if _, ok := fieldLabels[field]; !ok {
		return fmt.Errorf("unknown field %q", field)
	}

	value := invalid
	if n, err := strconv.Atoi(strings.TrimSpace(raw)); err == nil {
		value = n
	}

	f.mu.Lock()
	f.values[field] = value
	f.raw[field] = raw
	f.mu.Unlock()
	return nil
}

// Value returns the coerced value of field and whether it is a valid count.
func (f *ParameterForm) Value(field Field) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v, ok := f.values[field]
	return v, ok && v >= search.MinCount
}

// Raw returns the text last entered for field.
func (f *ParameterForm) Raw(field Field) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw[field]
}

// Busy reports whether at least one search is in flight.
func (f *ParameterForm) Busy() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.inflight > 0
}

// LastError returns the backend error of the most recent completed search, or
// nil when it succeeded.
func (f *ParameterForm) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastErr
}

// SubscribeBusy registers fn for busy transitions and returns a function that
// removes it.
func (f *ParameterForm) SubscribeBusy(fn BusyObserver) func() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.nextID++
	id := f.nextID
	f.busyObs[id] = fn

	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.busyObs, id)
	}
}

// Request builds the request the next search would send. It fails with
// search.ErrEmptyQuery on a blank query or a *FieldError on an invalid field.
func (f *ParameterForm) Request() (search.SearchRequest, error) {
	query := f.store.Query()
	if strings.TrimSpace(query) == "" {
		return search.SearchRequest{}, search.ErrEmptyQuery
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	for _, field := range Fields {
		if f.values[field] < search.MinCount {
			return search.SearchRequest{}, &FieldError{Field: field, Raw: f.raw[field]}
		}
	}

	return search.SearchRequest{
		Query:                     query,
		PageSize:                  f.values[FieldPageSize],
		SummaryResultCount:        f.values[FieldSummaryResultCount],
		MaxSnippetCount:           f.values[FieldMaxSnippetCount],
		MaxExtractiveAnswerCount:  f.values[FieldMaxExtractiveAnswerCount],
		MaxExtractiveSegmentCount: f.values[FieldMaxExtractiveSegmentCount],
	}, nil
}

// Search validates, calls the backend and writes the outcome into the store
// before returning. Only validation failures are returned; a backend failure
// is logged, stored as an empty response and reported by LastError.
func (f *ParameterForm) Search(ctx context.Context) error {
	req, err := f.prepare()
	if err != nil {
		return err
	}

	ticket := f.begin()
	f.run(ctx, ticket, req)
	return nil
}

// Start is Search with the backend call moved to a new goroutine. Validation
// and entering the busy state happen before it returns; done, when non-nil, is
// closed once the outcome has been stored.
func (f *ParameterForm) Start(ctx context.Context, done chan<- struct{}) error {
	req, err := f.prepare()
	if err != nil {
		if done != nil {
			close(done)
		}
		return err
	}

	ticket := f.begin()
	go func() {
		f.run(ctx, ticket, req)
		if done != nil {
			close(done)
		}
	}()
	return nil
}

func (f *ParameterForm) prepare() (search.SearchRequest, error) {
	req, err := f.Request()
	if err == nil {
		return req, nil
	}

	reason := "invalid_field"
	if errors.Is(err, search.ErrEmptyQuery) {
		reason = "empty_query"
	}
	metrics.RecordValidationRejection(reason)
	f.log().debug("search rejected", zap.String("reason", reason), zap.Error(err))
	return search.SearchRequest{}, err
}

func (f *ParameterForm) begin() uint64 {
	ticket := f.store.Begin()
	f.setInflight(+1)
	return ticket
}

func (f *ParameterForm) run(ctx context.Context, ticket uint64, req search.SearchRequest) {
	defer f.setInflight(-1)

	searchID := uuid.New().String()
	start := time.Now()

	resp, err := f.searcher.Search(ctx, req)
	duration := time.Since(start)

	f.mu.Lock()
	f.lastErr = err
	f.mu.Unlock()

	if err != nil {
		resp = nil
		metrics.RecordSearch(metrics.OutcomeFailure, duration)
		f.log().warn("search failed",
			zap.String("search_id", searchID),
			zap.String("query", req.Query),
			zap.Duration("duration", duration),
			zap.Error(err))
	} else {
		metrics.RecordSearch(metrics.OutcomeSuccess, duration)
		f.log().debug("search completed",
			zap.String("search_id", searchID),
			zap.String("query", req.Query),
			zap.Int("results", resultCount(resp)),
			zap.Duration("duration", duration))
	}

	if !f.store.SetResponseFor(ticket, resp) {
		metrics.RecordStaleResponse()
		f.log().debug("stale search response dropped",
			zap.String("search_id", searchID),
			zap.Uint64("ticket", ticket))
	}
}

func (f *ParameterForm) setInflight(delta int) {
	f.mu.Lock()
	before := f.inflight > 0
	f.inflight += delta
	after := f.inflight > 0
	observers := make([]BusyObserver, 0, len(f.busyObs))
	if before != after {
		for _, id := range slices.Sorted(maps.Keys(f.busyObs)) {
			observers = append(observers, f.busyObs[id])
		}
	}
	f.mu.Unlock()

	for _, fn := range observers {
		fn(after)
	}
}

func (f *ParameterForm) log() formLogger {
	return formLogger{f.logger}
}

type formLogger struct{ l *logging.Logger }

func (l formLogger) debug(msg string, fields ...zap.Field) {
	if l.l != nil {
		l.l.Debug(msg, fields...)
	}
}

func (l formLogger) warn(msg string, fields ...zap.Field) {
	if l.l != nil {
		l.l.Warn(msg, fields...)
	}
}

func resultCount(resp *search.SearchResponse) int {
	if resp == nil {
		return 0
	}
	return len(resp.Results)
}
