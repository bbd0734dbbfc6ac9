// Package report sends unexpected failures somewhere a human will see them.
package report

import (
	"context"
	"log/slog"
	"strconv"

	"github.com/rollbar/rollbar-go"

	"github.com/nanacaring/cmsportal/internal/api"
)

// Reporter records an unexpected error.
type Reporter interface {
	Report(ctx context.Context, err error, extras map[string]any)
	Close() error
}

type userKey struct{}

// WithUser attaches the signed-in user to ctx for reports.
func WithUser(ctx context.Context, u api.User) context.Context {
	return context.WithValue(ctx, userKey{}, u)
}

// UserFrom returns the user attached by WithUser.
func UserFrom(ctx context.Context) (api.User, bool) {
	u, ok := ctx.Value(userKey{}).(api.User)
	return u, ok
}

// Config selects and configures the reporter.
type Config struct {
	RollbarToken string
	Environment  string
	Version      string
	Host         string
}

// New returns a rollbar reporter when a token is configured and a log-only
// reporter otherwise.
func New(cfg Config, logger *slog.Logger) Reporter {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.RollbarToken == "" {
		return Log{Logger: logger}
	}
	client := rollbar.New(cfg.RollbarToken, cfg.Environment, cfg.Version, cfg.Host, "")
	return &Rollbar{client: client, logger: logger}
}

// Log writes reports to a logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) Report(ctx context.Context, err error, extras map[string]any) {
	if err == nil {
		return
	}
	args := make([]any, 0, 2*len(extras)+4)
	args = append(args, "error", err)
	if u, ok := UserFrom(ctx); ok {
		args = append(args, "user_id", u.ID)
	}
	for k, v := range extras {
		args = append(args, k, v)
	}
	l.Logger.ErrorContext(ctx, "unhandled error", args...)
}

func (Log) Close() error { return nil }

// Rollbar sends reports to rollbar and logs them.
type Rollbar struct {
	client *rollbar.Client
	logger *slog.Logger
}

func (r *Rollbar) Report(ctx context.Context, err error, extras map[string]any) {
	if err == nil {
		return
	}
	if u, ok := UserFrom(ctx); ok {
		ctx = rollbar.NewPersonContext(ctx, &rollbar.Person{
			Id:       strconv.FormatInt(u.ID, 10),
			Username: u.Username,
			Email:    u.Email,
		})
	}
	r.client.ErrorWithExtrasAndContext(ctx, rollbar.ERR, err, extras)
	Log{Logger: r.logger}.Report(ctx, err, extras)
}

// Close flushes pending reports.
func (r *Rollbar) Close() error {
	return r.client.Close()
}
