package agent

import (
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/foundermate/foundermate/internal/model"
	"github.com/foundermate/foundermate/internal/service/completion"
)

// Context is the per-invocation data bundle handed to an agent's execute
// function: the caller's identity, a store scoped to that identity, the
// completion provider, and ambient data (profile, current date).
//
// A Context is constructed fresh for each invocation and discarded after;
// it is never shared or cached across invocations or users.
type Context struct {
	UserID    uuid.UUID
	Store     Store
	Completer completion.Provider
	Profile   *model.UserProfile
	Today     time.Time
	Logger    *slog.Logger
}
