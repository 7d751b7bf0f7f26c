package calendar

import (
	"context"
	"fmt"

	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

// Factory builds the Source for one stored connection.
type Factory func(conn model.CalendarConnection) (Source, error)

// Connected pairs a stored connection with its source. Err is set instead of
// Source when the connection could not be turned into one; the failure
// belongs to that connection only.
type Connected struct {
	Connection model.CalendarConnection
	Source     Source
	Err        error
}

// Resolver looks up a user's connections and builds their sources through
// the factory registered for each provider kind.
type Resolver struct {
	conns     repository.ConnectionRepository
	factories map[model.CalendarSource]Factory
}

func NewResolver(conns repository.ConnectionRepository, factories map[model.CalendarSource]Factory) *Resolver {
	return &Resolver{conns: conns, factories: factories}
}

// Sources returns one entry per stored connection. Only a failure to list
// the connections is returned as an error.
func (r *Resolver) Sources(ctx context.Context, userID string) ([]Connected, error) {
	conns, err := r.conns.ListConnections(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("calendar: listing connections: %w", err)
	}

	out := make([]Connected, 0, len(conns))
	for _, c := range conns {
		entry := Connected{Connection: c}
		factory, ok := r.factories[c.Source]
		if !ok {
			entry.Err = fmt.Errorf("calendar: no provider registered for %q", c.Source)
		} else if entry.Source, entry.Err = factory(c); entry.Err != nil {
			entry.Err = fmt.Errorf("calendar: building %s source: %w", c.Source, entry.Err)
		}
		out = append(out, entry)
	}
	return out, nil
}
