package llm

import "context"

type ctxKey int

const (
	purposeKey ctxKey = iota
	subjectKey
)

// WithPurpose labels requests made with ctx, e.g. "segment-scoring".
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey, purpose)
}

// PurposeFrom returns the purpose label on ctx, or "unknown".
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey).(string); ok && v != "" {
		return v
	}
	return "unknown"
}

// WithSubject names what a request is about, such as the dialogue and
// segment being marked. It is stored with the request event so usage can
// be traced back to a practice session.
func WithSubject(ctx context.Context, subject string) context.Context {
	return context.WithValue(ctx, subjectKey, subject)
}

// SubjectFrom returns the subject on ctx, or "".
func SubjectFrom(ctx context.Context) string {
	v, _ := ctx.Value(subjectKey).(string)
	return v
}
