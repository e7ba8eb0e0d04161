package services

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"greendrake/freight/internal/auctionerrors"
	"greendrake/freight/internal/config"
	"greendrake/freight/internal/models"
	"greendrake/freight/internal/repository"
)

// memDB is an in-memory stand-in for the Mongo repositories.
type memDB struct {
	mu           sync.Mutex
	nextID       int64
	users        map[int64]models.User
	resets       map[int64]models.PasswordReset
	participants map[int64]models.Participant
	requests     map[int64]models.ParticipantRequest
	auctions     map[int64]models.Auction
	assignments  map[int64]models.AuctionParticipant
	templates    map[string]models.EmailTemplate

	failAssignmentInsert error
}

func newMemDB() *memDB {
	return &memDB{
		nextID:       1000,
		users:        map[int64]models.User{},
		resets:       map[int64]models.PasswordReset{},
		participants: map[int64]models.Participant{},
		requests:     map[int64]models.ParticipantRequest{},
		auctions:     map[int64]models.Auction{},
		assignments:  map[int64]models.AuctionParticipant{},
		templates:    map[string]models.EmailTemplate{},
	}
}

func (m *memDB) id() int64 {
	m.nextID++
	return m.nextID
}

func (m *memDB) store() *repository.Store {
	return &repository.Store{
		Users:          memUsers{m},
		PasswordResets: memResets{m},
		Participants:   memParticipants{m},
		Auctions:       memAuctions{m},
		Assignments:    memAssignments{m},
		EmailTemplates: memTemplates{m},
	}
}

type memSnapshot struct {
	users        map[int64]models.User
	resets       map[int64]models.PasswordReset
	participants map[int64]models.Participant
	requests     map[int64]models.ParticipantRequest
	auctions     map[int64]models.Auction
	assignments  map[int64]models.AuctionParticipant
}

// memTx runs fn against memDB and restores the prior state if fn fails.
type memTx struct {
	db    *memDB
	calls int
}

func (t *memTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	t.calls++
	t.db.mu.Lock()
	snap := memSnapshot{
		users:        maps.Clone(t.db.users),
		resets:       maps.Clone(t.db.resets),
		participants: maps.Clone(t.db.participants),
		requests:     maps.Clone(t.db.requests),
		auctions:     maps.Clone(t.db.auctions),
		assignments:  maps.Clone(t.db.assignments),
	}
	t.db.mu.Unlock()

	if err := fn(ctx); err != nil {
		t.db.mu.Lock()
		t.db.users = snap.users
		t.db.resets = snap.resets
		t.db.participants = snap.participants
		t.db.requests = snap.requests
		t.db.auctions = snap.auctions
		t.db.assignments = snap.assignments
		t.db.mu.Unlock()
		return err
	}
	return nil
}

type memUsers struct{ *memDB }

func (m memUsers) Create(_ context.Context, user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return repository.ErrEmailExists
		}
	}
	user.ID = m.id()
	m.users[user.ID] = *user
	return nil
}

func (m memUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return &u, nil
		}
	}
	return nil, auctionerrors.NewNotFound("user", 0)
}

func (m memUsers) FindByID(_ context.Context, id int64) (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, auctionerrors.NewNotFound("user", id)
	}
	return &u, nil
}

func (m memUsers) mutate(id int64, fn func(u *models.User)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return auctionerrors.NewNotFound("user", id)
	}
	fn(&u)
	m.users[id] = u
	return nil
}

func (m memUsers) SetVerificationToken(_ context.Context, id int64, token string, expires time.Time) error {
	return m.mutate(id, func(u *models.User) {
		u.VerificationToken = token
		u.VerificationTokenExpires = &expires
	})
}

func (m memUsers) MarkVerified(_ context.Context, id int64, at time.Time) error {
	return m.mutate(id, func(u *models.User) {
		u.IsVerified = true
		u.IsActive = true
		u.VerifiedSince = &at
		u.VerificationToken = ""
		u.VerificationTokenExpires = nil
	})
}

func (m memUsers) UpdatePassword(_ context.Context, id int64, hash string, at time.Time) error {
	return m.mutate(id, func(u *models.User) {
		u.PasswordHash = hash
		u.UpdatedAt = at
	})
}

type memResets struct{ *memDB }

func (m memResets) Create(_ context.Context, reset *models.PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	reset.ID = m.id()
	m.resets[reset.ID] = *reset
	return nil
}

func (m memResets) FindValid(_ context.Context, userID int64, token int, now time.Time) (*models.PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var best *models.PasswordReset
	for _, r := range m.resets {
		if r.UserID != userID || r.Token != token || !r.Usable(now) {
			continue
		}
		if best == nil || r.TokenExpiresAt.After(best.TokenExpiresAt) {
			r := r
			best = &r
		}
	}
	if best == nil {
		return nil, auctionerrors.NewNotFound("password reset", 0)
	}
	return best, nil
}

func (m memResets) Invalidate(_ context.Context, id int64, at, lockedUntil time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.resets[id]
	if !ok || !r.Usable(at) {
		return auctionerrors.NewNotFound("password reset", id)
	}
	r.TokenValidUntil = &at
	r.TokenLockedUntil = &lockedUntil
	m.resets[id] = r
	return nil
}

type memParticipants struct{ *memDB }

func (m memParticipants) ListActive(_ context.Context) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Participant{}
	for _, p := range m.participants {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return strings.Compare(out[i].Name, out[j].Name) < 0 })
	return out, nil
}

func (m memParticipants) Create(_ context.Context, p *models.Participant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.id()
	m.participants[p.ID] = *p
	return nil
}

func (m memParticipants) FindByID(_ context.Context, id int64) (*models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return nil, auctionerrors.NewNotFound("participant", id)
	}
	return &p, nil
}

func (m memParticipants) FindByIDs(_ context.Context, ids []int64) ([]models.Participant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Participant{}
	for _, id := range ids {
		if p, ok := m.participants[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m memParticipants) mutate(id int64, fn func(p *models.Participant)) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.participants[id]
	if !ok {
		return auctionerrors.NewNotFound("participant", id)
	}
	fn(&p)
	m.participants[id] = p
	return nil
}

func (m memParticipants) Update(_ context.Context, id int64, patch repository.ParticipantPatch, at time.Time) error {
	return m.mutate(id, func(p *models.Participant) {
		if patch.Name != nil {
			p.Name = *patch.Name
		}
		if patch.Email != nil {
			p.Email = *patch.Email
		}
		if patch.ContactName != nil {
			p.ContactName = *patch.ContactName
		}
		if patch.Phone != nil {
			p.Phone = *patch.Phone
		}
		p.UpdatedAt = at
	})
}

func (m memParticipants) SetActive(_ context.Context, id int64, active bool, at time.Time) error {
	return m.mutate(id, func(p *models.Participant) {
		p.IsActive = active
		if active {
			p.ActiveSince = &at
		}
		p.UpdatedAt = at
	})
}

func (m memParticipants) AppendRequest(_ context.Context, req *models.ParticipantRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	req.ID = m.id()
	m.requests[req.ID] = *req
	return nil
}

func (m memParticipants) LatestRequests(_ context.Context, ids []int64) (map[int64]models.ParticipantRequest, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var log []models.ParticipantRequest
	for _, r := range m.requests {
		if slices.Contains(ids, r.ParticipantID) {
			log = append(log, r)
		}
	}
	return models.LatestRequests(log), nil
}

type memAuctions struct{ *memDB }

func (m memAuctions) Create(_ context.Context, a *models.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.id()
	m.auctions[a.ID] = *a
	return nil
}

func (m memAuctions) FindOwned(_ context.Context, userID, id int64) (*models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[id]
	if !ok || a.UserID != userID || !a.IsActive {
		return nil, auctionerrors.NewNotFound("auction", id)
	}
	return &a, nil
}

func (m memAuctions) ListByUser(_ context.Context, userID int64) ([]models.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Auction{}
	for _, a := range m.auctions {
		if a.UserID == userID && a.IsActive {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m memAuctions) UpdateDetail(ctx context.Context, userID, id int64, detail models.AuctionDetail, at time.Time) (*models.Auction, error) {
	a, err := m.FindOwned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Detail = detail
	a.UpdatedAt = at
	m.auctions[id] = *a
	return a, nil
}

func (m memAuctions) Deactivate(ctx context.Context, userID, id int64, at time.Time) error {
	a, err := m.FindOwned(ctx, userID, id)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.IsActive = false
	a.UpdatedAt = at
	m.auctions[id] = *a
	return nil
}

type memAssignments struct{ *memDB }

func (m memAssignments) ReplaceForAuction(_ context.Context, auctionID int64, rows []models.AuctionParticipant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, row := range m.assignments {
		if row.AuctionID == auctionID {
			delete(m.assignments, id)
		}
	}
	if m.failAssignmentInsert != nil {
		return m.failAssignmentInsert
	}
	seen := map[int64]bool{}
	for i := range rows {
		if seen[rows[i].ParticipantID] {
			return errors.New("duplicate key error: auction_participant_unique")
		}
		seen[rows[i].ParticipantID] = true
		rows[i].ID = m.id()
		rows[i].AuctionID = auctionID
		m.assignments[rows[i].ID] = rows[i]
	}
	return nil
}

func (m memAssignments) ListByAuction(_ context.Context, auctionID int64) ([]models.AuctionParticipant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.AuctionParticipant{}
	for _, row := range m.assignments {
		if row.AuctionID == auctionID {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memAssignments) AuctionIDsByParticipant(_ context.Context, participantID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := []int64{}
	for _, row := range m.assignments {
		if row.ParticipantID == participantID && !slices.Contains(ids, row.AuctionID) {
			ids = append(ids, row.AuctionID)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

type memTemplates struct{ *memDB }

func (m memTemplates) Find(_ context.Context, templateID, locale string) (*models.EmailTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	tpl, ok := m.templates[templateID+"/"+locale]
	if !ok {
		return nil, auctionerrors.NewNotFound("email template "+templateID, 0)
	}
	return &tpl, nil
}

func (m memTemplates) Save(_ context.Context, tpl *models.EmailTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.templates[tpl.TemplateID+"/"+tpl.Locale] = *tpl
	return nil
}

func (m memTemplates) Delete(_ context.Context, templateID, locale string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.templates, templateID+"/"+locale)
	return nil
}

type sentMail struct {
	to, templateID string
	data           map[string]any
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []sentMail
	err  error
}

func (f *fakeMailer) Send(_ context.Context, to, templateID string, data map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, sentMail{to: to, templateID: templateID, data: data})
	return nil
}

func (f *fakeMailer) last() sentMail {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[len(f.sent)-1]
}

type fakeViewCache struct {
	mu          sync.Mutex
	entries     map[int64]models.CachedAuctionView
	versions    map[int64]int64
	invalidated []int64
	getErr      error
	// beforeSet runs ahead of every SetAuctionView, outside the lock.
	beforeSet func()
}

func newFakeViewCache() *fakeViewCache {
	return &fakeViewCache{entries: map[int64]models.CachedAuctionView{}, versions: map[int64]int64{}}
}

func (c *fakeViewCache) GetAuctionView(_ context.Context, auctionID int64) (*models.CachedAuctionView, int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, 0, c.getErr
	}
	e, ok := c.entries[auctionID]
	if !ok {
		return nil, c.versions[auctionID], nil
	}
	return &e, c.versions[auctionID], nil
}

func (c *fakeViewCache) SetAuctionView(_ context.Context, auctionID, version int64, entry *models.CachedAuctionView) (bool, error) {
	if c.beforeSet != nil {
		c.beforeSet()
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.versions[auctionID] != version {
		return false, nil
	}
	c.entries[auctionID] = *entry
	return true, nil
}

func (c *fakeViewCache) InvalidateAuctionView(_ context.Context, auctionIDs ...int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range auctionIDs {
		delete(c.entries, id)
		c.versions[id]++
		c.invalidated = append(c.invalidated, id)
	}
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		JwtSecret:           "test-secret",
		JwtTTL:              time.Hour,
		VerificationCodeTTL: 15 * time.Minute,
		PasswordResetTTL:    15 * time.Minute,
		PasswordResetLock:   24 * time.Hour,
		CompanyName:         "Freight Co",
	}
}

// seedParticipant inserts a participant with the given row flag and a
// request log ending in latestActive (no log when latestActive is nil).
func (m *memDB) seedParticipant(id int64, rowActive bool, latestActive *bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	m.participants[id] = models.Participant{
		Base:     models.Base{ID: id},
		Name:     "Carrier " + string(rune('A'+id%26)),
		Email:    "carrier@example.com",
		Phone:    5511900000000 + id,
		IsActive: rowActive,
	}
	if latestActive != nil {
		older := m.id()
		m.requests[older] = models.ParticipantRequest{Base: models.Base{ID: older}, ParticipantID: id, IsActive: !*latestActive, CreatedAt: now}
		newer := m.id()
		m.requests[newer] = models.ParticipantRequest{Base: models.Base{ID: newer}, ParticipantID: id, IsActive: *latestActive, CreatedAt: now.Add(time.Minute)}
	}
}

func (m *memDB) seedAuction(id, userID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[id] = models.Auction{
		Base:      models.Base{ID: id},
		UserID:    userID,
		IsActive:  true,
		Detail:    validDetail(),
		CreatedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memDB) assignedIDs(auctionID int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []int64
	for _, row := range m.assignments {
		if row.AuctionID == auctionID {
			ids = append(ids, row.ParticipantID)
		}
	}
	slices.Sort(ids)
	return ids
}

func validDetail() models.AuctionDetail {
	return models.AuctionDetail{
		Description: "Steel coils",
		Freight:     "Truck Load",
		From:        "Santos",
		To:          "Campinas",
		Vehicle:     models.VehicleTruck,
		Type:        models.ServiceFleet,
		Tracking:    models.TrackingRealTime,
		Insurance:   models.InsuranceYes,
	}
}

func boolPtr(b bool) *bool { return &b }
