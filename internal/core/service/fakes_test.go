package service

import (
	"context"
	"sort"
	"sync"

	"github.com/rl1809/lost-found/internal/core/domain"
)

// memStore is an in-memory Transactor plus repositories. Writes inside
// WithinTx are journaled and undone when fn fails, mirroring a rollback.
type memStore struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]domain.User
	items  map[int64]domain.Item
	claims []domain.Claim

	createClaimErr error
	createItemsErr error
	// afterGetItem runs outside the lock once an item has been read
	afterGetItem func()

	commits   int
	rollbacks int
}

func newMemStore() *memStore {
	return &memStore{
		users: make(map[int64]domain.User),
		items: make(map[int64]domain.Item),
	}
}

type undoLogKey struct{}

type undoLog struct {
	mu  sync.Mutex
	fns []func()
}

func (s *memStore) WithinTx(ctx context.Context, fn func(ctx context.Context) error) (err error) {
	log := &undoLog{}
	ctx = context.WithValue(ctx, undoLogKey{}, log)

	defer func() {
		if r := recover(); r != nil {
			s.rollback(log)
			panic(r)
		}
	}()

	if err := fn(ctx); err != nil {
		s.rollback(log)
		return err
	}

	s.mu.Lock()
	s.commits++
	s.mu.Unlock()
	return nil
}

func (s *memStore) rollback(log *undoLog) {
	s.mu.Lock()
	defer s.mu.Unlock()
	log.mu.Lock()
	defer log.mu.Unlock()
	for i := len(log.fns) - 1; i >= 0; i-- {
		log.fns[i]()
	}
	s.rollbacks++
}

// journal must be called with s.mu held.
func (s *memStore) journal(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoLogKey{}).(*undoLog); ok {
		log.mu.Lock()
		log.fns = append(log.fns, undo)
		log.mu.Unlock()
	}
}

func (s *memStore) addUser(u domain.User) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	u.ID = s.nextID
	s.users[u.ID] = u
	return u
}

func (s *memStore) addItem(name string, quantity int) domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	item := domain.Item{ID: s.nextID, Name: name, Quantity: quantity, RemainingQuantity: quantity, Place: "Library"}
	s.items[item.ID] = item
	return item
}

func (s *memStore) item(id int64) domain.Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id]
}

func (s *memStore) claimCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.claims)
}

func (s *memStore) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetUserByID(ctx context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return &u, nil
	}
	return nil, nil
}

func (s *memStore) CreateUser(ctx context.Context, u domain.User) (domain.User, error) {
	return s.addUser(u), nil
}

func (s *memStore) GetItem(ctx context.Context, id int64) (*domain.Item, error) {
	s.mu.Lock()
	item, ok := s.items[id]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	if s.afterGetItem != nil {
		s.afterGetItem()
	}
	return &item, nil
}

func (s *memStore) UpdateItem(ctx context.Context, item *domain.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.items[item.ID]
	if !ok || stored.Version != item.Version {
		return domain.ErrConcurrentModification
	}

	prev := stored
	stored.RemainingQuantity = item.RemainingQuantity
	stored.UpdatedAt = item.UpdatedAt
	stored.Version++
	s.items[item.ID] = stored
	item.Version = stored.Version

	s.journal(ctx, func() { s.items[prev.ID] = prev })
	return nil
}

func (s *memStore) CreateItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	if s.createItemsErr != nil {
		return nil, s.createItemsErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Item, 0, len(items))
	for _, item := range items {
		s.nextID++
		item.ID = s.nextID
		s.items[item.ID] = item
		id := item.ID
		s.journal(ctx, func() { delete(s.items, id) })
		out = append(out, item)
	}
	return out, nil
}

func (s *memStore) ListAvailableItems(ctx context.Context, req domain.PageRequest) (domain.Page[domain.Item], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var available []domain.Item
	for _, item := range s.items {
		if item.IsAvailable() {
			available = append(available, item)
		}
	}
	sort.Slice(available, func(i, j int) bool { return available[i].ID < available[j].ID })
	return paginate(available, req), nil
}

func (s *memStore) ExistsClaim(ctx context.Context, userID, itemID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.claims {
		if c.UserID == userID && c.ItemID == itemID {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) CreateClaim(ctx context.Context, c domain.Claim) (domain.Claim, error) {
	if s.createClaimErr != nil {
		return domain.Claim{}, s.createClaimErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.claims {
		if existing.UserID == c.UserID && existing.ItemID == c.ItemID {
			return domain.Claim{}, domain.ErrDuplicateClaim
		}
	}
	s.nextID++
	c.ID = s.nextID
	s.claims = append(s.claims, c)
	id := c.ID
	s.journal(ctx, func() {
		for i, existing := range s.claims {
			if existing.ID == id {
				s.claims = append(s.claims[:i], s.claims[i+1:]...)
				return
			}
		}
	})
	return c, nil
}

func (s *memStore) ListClaims(ctx context.Context, req domain.PageRequest) (domain.Page[domain.ClaimView], error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	views := make([]domain.ClaimView, 0, len(s.claims))
	for _, c := range s.claims {
		views = append(views, domain.NewClaimView(c, s.users[c.UserID], s.items[c.ItemID]))
	}
	return paginate(views, req), nil
}

func paginate[T any](all []T, req domain.PageRequest) domain.Page[T] {
	start := min(req.Offset(), len(all))
	end := min(start+req.Size, len(all))
	return domain.NewPage(all[start:end], req, int64(len(all)))
}

// memGuard is an in-memory port.ClaimGuard.
type memGuard struct {
	mu       sync.Mutex
	held     map[string]string
	err      error
	released []string
}

func newMemGuard() *memGuard {
	return &memGuard{held: make(map[string]string)}
}

func (g *memGuard) AcquireLock(ctx context.Context, key, value string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return false, g.err
	}
	if _, ok := g.held[key]; ok {
		return false, nil
	}
	g.held[key] = value
	return true, nil
}

func (g *memGuard) ReleaseLock(ctx context.Context, key, value string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.held[key] == value {
		delete(g.held, key)
		g.released = append(g.released, key)
	}
	return nil
}
