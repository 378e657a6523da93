package llm

import "context"

// Call labels the model requests made under a context for logs and
// metrics.
type Call struct {
	Purpose    string
	QuestionID string
}

type callKey struct{}

// WithCall attaches c to ctx.
func WithCall(ctx context.Context, c Call) context.Context {
	return context.WithValue(ctx, callKey{}, c)
}

// CallFrom returns the label attached to ctx. An unlabelled context has
// purpose "unknown".
func CallFrom(ctx context.Context) Call {
	c, _ := ctx.Value(callKey{}).(Call)
	if c.Purpose == "" {
		c.Purpose = "unknown"
	}
	return c
}
