package inmemdb

import (
	"context"

	"github.com/trezcool/campus/core"
	"github.com/trezcool/campus/core/event"
)

type eventRepository struct {
	db *DB
}

func NewEventRepository(db *DB) event.Repository {
	return &eventRepository{db: db}
}

func (repo *eventRepository) Create(ctx context.Context, e event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	e.Status = "" // derived on read
	return repo.db.events.insert(e), nil
}

func (repo *eventRepository) Query(ctx context.Context, q core.ListQuery) ([]event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()
	return applyQuery(repo.db.events.all(), q)
}

func (repo *eventRepository) GetByID(ctx context.Context, id int64) (event.Event, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if e, ok := repo.db.events.get(id); ok {
		return e, nil
	}
	return event.Event{}, event.ErrNotFound
}

func (repo *eventRepository) Update(ctx context.Context, e event.Event) (event.Event, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	e.Status = ""
	if !repo.db.events.put(e) {
		return event.Event{}, event.ErrNotFound
	}
	return e, nil
}

func (repo *eventRepository) Delete(ctx context.Context, id int64) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.events.get(id); !ok {
		return event.ErrNotFound
	}
	repo.db.events.delete(id)
	return nil
}
