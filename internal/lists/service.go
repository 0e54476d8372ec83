// Package lists implements the mutation and query API for lists and items.
// All mutations run through one Service, which is the single writer for
// the entity store; each mutation and its renumbering commit together.
package lists

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nhle/tada/internal/model"
	"github.com/nhle/tada/internal/order"
	"github.com/nhle/tada/internal/store"
)

var (
	// ErrEmptyName is returned when a list name is blank.
	ErrEmptyName = errors.New("name must not be empty")
	// ErrEmptyText is returned when an item text is blank.
	ErrEmptyText = errors.New("text must not be empty")
	// ErrInvalidMove is returned when a move names an entity that cannot
	// take part in it, such as a completed item or one from another list.
	ErrInvalidMove = errors.New("invalid move")
)

// Option configures a Service.
type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator replaces the UUID generator for new entities.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) { s.newID = gen }
}

// Service owns every write to lists and items.
type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
	newID func() string

	mu sync.Mutex
}

// New creates a Service on top of st.
func New(st store.Store, log *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store: st,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store returns the underlying entity store.
func (s *Service) Store() store.Store { return s.store }

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// update serializes fn against every other write and logs failures.
func (s *Service) update(ctx context.Context, op string, origin store.Origin, fn func(store.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.Update(ctx, origin, fn); err != nil {
		if isUserError(err) {
			s.log.Warn("mutation rejected", zap.String("op", op), zap.Error(err))
		} else {
			s.log.Error("mutation failed", zap.String("op", op), zap.Error(err))
		}
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func isUserError(err error) bool {
	return errors.Is(err, ErrEmptyName) ||
		errors.Is(err, ErrEmptyText) ||
		errors.Is(err, ErrInvalidMove) ||
		errors.Is(err, store.ErrNotFound)
}

// EnsureDefaultList creates the default list when the workspace is empty.
// It reports whether a list was created.
func (s *Service) EnsureDefaultList(ctx context.Context) (model.List, bool, error) {
	var (
		list    model.List
		created bool
	)
	err := s.update(ctx, "ensure default list", store.OriginLocal, func(tx store.Tx) error {
		existing, err := tx.Lists()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			list = existing[0]
			return nil
		}
		list, err = s.insertList(tx, model.DefaultListName, 0)
		created = err == nil
		return err
	})
	return list, created, err
}

// CreateList appends a new list after all existing lists.
func (s *Service) CreateList(ctx context.Context, name string) (model.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.List{}, ErrEmptyName
	}

	var list model.List
	err := s.update(ctx, "create list", store.OriginLocal, func(tx store.Tx) error {
		n, err := tx.CountLists()
		if err != nil {
			return err
		}
		list, err = s.insertList(tx, name, n)
		return err
	})
	return list, err
}

func (s *Service) insertList(tx store.Tx, name string, rank int) (model.List, error) {
	l := model.List{
		ID:           s.newID(),
		Name:         name,
		Order:        rank,
		CreationDate: s.clock(),
	}
	if err := tx.InsertList(l); err != nil {
		return model.List{}, err
	}
	if err := tx.MarkPending(model.KindList, l.ID, "", model.ListFields...); err != nil {
		return model.List{}, err
	}
	return l, nil
}

// RenameList changes a list's name.
func (s *Service) RenameList(ctx context.Context, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}

	return s.update(ctx, "rename list", store.OriginLocal, func(tx store.Tx) error {
		l, err := tx.GetList(id)
		if err != nil {
			return err
		}
		if l.Name == name {
			return nil
		}
		l.Name = name
		if err := tx.UpdateList(*l); err != nil {
			return err
		}
		return tx.MarkPending(model.KindList, id, "", model.FieldName)
	})
}

// DeleteList removes a list and all of its items, then closes the gap in
// the list order.
func (s *Service) DeleteList(ctx context.Context, id string) error {
	return s.update(ctx, "delete list", store.OriginLocal, func(tx store.Tx) error {
		if err := tx.DeleteList(id); err != nil {
			return err
		}
		if err := tx.MarkDeleted(model.KindList, id, ""); err != nil {
			return err
		}
		return renumberLists(tx)
	})
}

// MoveList moves a list before or after another list.
func (s *Service) MoveList(ctx context.Context, id string, p order.Placement) error {
	return s.update(ctx, "move list", store.OriginLocal, func(tx store.Tx) error {
		all, err := tx.Lists()
		if err != nil {
			return err
		}
		entries := order.ListEntries(all)
		order.Sort(entries)

		seq, err := order.Move(order.IDs(entries), id, p)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		return applyListPlan(tx, all, order.Plan(entries, seq))
	})
}

// DuplicateList copies a list and its visible items under a new name. The
// copies get fresh IDs and creation times; text, order, completion and
// started state are preserved. The new list is appended.
func (s *Service) DuplicateList(ctx context.Context, sourceID, name string) (model.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.List{}, ErrEmptyName
	}

	var list model.List
	err := s.update(ctx, "duplicate list", store.OriginLocal, func(tx store.Tx) error {
		if _, err := tx.GetList(sourceID); err != nil {
			return err
		}
		hidden := false
		items, err := tx.Items(store.ItemFilter{ListID: sourceID, Hidden: &hidden})
		if err != nil {
			return err
		}
		existing, err := tx.Lists()
		if err != nil {
			return err
		}

		list, err = s.insertList(tx, name, len(existing))
		if err != nil {
			return err
		}

		now := s.clock()
		for _, src := range items {
			cp := model.Item{
				ID:             s.newID(),
				ListID:         list.ID,
				Text:           src.Text,
				Order:          src.Order,
				CreationTime:   now,
				CompletionTime: src.CompletionTime,
				StartedTime:    src.StartedTime,
			}
			if err := tx.InsertItem(cp); err != nil {
				return err
			}
			if err := tx.MarkPending(model.KindItem, cp.ID, list.ID, model.ItemFields...); err != nil {
				return err
			}
		}
		return renumberActive(tx, list.ID)
	})
	return list, err
}

// SetShared caches whether the backend holds a share record for a list.
// The flag is derived from the backend, so it is not journaled.
func (s *Service) SetShared(ctx context.Context, id string, shared bool) error {
	return s.update(ctx, "set shared", store.OriginRemote, func(tx store.Tx) error {
		l, err := tx.GetList(id)
		if err != nil {
			return err
		}
		if l.Shared == shared {
			return nil
		}
		l.Shared = shared
		return tx.UpdateList(*l)
	})
}
