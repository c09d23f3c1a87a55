package reports

import "context"

// Source produces reports from committed state. The service implements it
// directly and the report cache wraps it.
type Source interface {
	Productivity(ctx context.Context, q Query) (Report, error)
	Summary(ctx context.Context, q Query) (Summary, error)
}
