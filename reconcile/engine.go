package reconcile

import "context"

// =============================================================================
// ENGINE - One full pass of the pipeline at one as-of date
// =============================================================================

// Engine runs the reconciliation pipeline for a fixed reporting year.
// It holds no state between calls.
type Engine struct {
	Year int
}

// NewEngine returns an engine for the given reporting year.
func NewEngine(year int) *Engine {
	return &Engine{Year: year}
}

// Compute reconciles ds as of asOf. It never fails: anomalous rows are
// dropped and counted in Result.Diagnostics.
func (e *Engine) Compute(ds Dataset, asOf Date) *Result {
	masters, missing := BuildMasters(ds.Plan, e.Year)
	targets := AggregateTargets(ds.Plan)
	actuals := AggregateActuals(ds.Activities, e.Year, asOf)

	joined, dropped := Join(targets.Targets, actuals.Counts, masters)
	rows := make([]DashboardRow, len(joined))
	for i, r := range joined {
		rows[i] = Evaluate(r, asOf)
	}

	return &Result{
		AsOf:    asOf,
		Year:    e.Year,
		Masters: masters,
		Rows:    rows,
		Diagnostics: Diagnostics{
			PlanMissingEntity:      missing,
			PlanIncompleteTarget:   targets.Incomplete,
			ActivityMissingEntity:  actuals.MissingEntity,
			ActivityUndated:        actuals.Undated,
			ActivityAfterAsOf:      actuals.AfterAsOf,
			ActivityUnmapped:       actuals.Unmapped,
			ActivityCounted:        actuals.Counted,
			RowsMissingLocation:    dropped,
			UnmappedPlanTaskLabels: targets.UnmappedLabels,
		},
	}
}

// ValidateAsOf checks that asOf falls inside the engine's reporting year.
func (e *Engine) ValidateAsOf(asOf Date) error {
	if asOf.IsZero() || asOf.Year() != e.Year {
		return &AsOfOutOfRangeError{AsOf: asOf, Year: e.Year}
	}
	return nil
}

// Bind returns a Computer that reconciles ds at any as-of date.
func (e *Engine) Bind(ds Dataset) Computer {
	return &boundEngine{engine: e, data: ds}
}

// Computer produces a Result for an as-of date. Implementations may cache.
type Computer interface {
	ComputeAt(ctx context.Context, asOf Date) (*Result, error)
}

type boundEngine struct {
	engine *Engine
	data   Dataset
}

func (b *boundEngine) ComputeAt(ctx context.Context, asOf Date) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return b.engine.Compute(b.data, asOf), nil
}
