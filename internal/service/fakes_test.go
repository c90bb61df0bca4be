package service

import (
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"team-match-backend/internal/database/models"
	apperrors "team-match-backend/internal/errors"
	"team-match-backend/internal/lock"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// In-memory doubles for the repositories, the cache and the lock service.
// They reproduce the contracts the services rely on: gorm.ErrRecordNotFound
// for absence, copy-on-read so callers never share memory with the store,
// and zero-wait leases.

type fakeTeamRepo struct {
	mu    sync.Mutex
	teams map[uuid.UUID]models.Team
	nowFn func() time.Time

	failUpdate bool
}

func newFakeTeamRepo() *fakeTeamRepo {
	return &fakeTeamRepo{teams: make(map[uuid.UUID]models.Team), nowFn: time.Now}
}

func (r *fakeTeamRepo) Create(team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if team.ID == uuid.Nil {
		team.ID = uuid.New()
	}
	if team.CreatedAt.IsZero() {
		team.CreatedAt = r.nowFn()
	}
	r.teams[team.ID] = *team
	return nil
}

func (r *fakeTeamRepo) GetByID(id uuid.UUID) (*models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	team, ok := r.teams[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := team
	return &out, nil
}

func (r *fakeTeamRepo) GetByIDs(ids []uuid.UUID) ([]models.Team, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Team, 0, len(ids))
	for _, id := range ids {
		if team, ok := r.teams[id]; ok {
			out = append(out, team)
		}
	}
	return out, nil
}

func (r *fakeTeamRepo) ListActive(limit, offset int) ([]models.Team, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	active := make([]models.Team, 0, len(r.teams))
	for _, team := range r.teams {
		if !team.Deleted && !team.IsExpired(r.nowFn()) {
			active = append(active, team)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].CreatedAt.After(active[j].CreatedAt) })
	total := int64(len(active))
	if offset >= len(active) {
		return []models.Team{}, total, nil
	}
	active = active[offset:]
	if len(active) > limit {
		active = active[:limit]
	}
	return active, total, nil
}

func (r *fakeTeamRepo) ListActiveByCreatedDesc(limit int) ([]models.Team, error) {
	teams, _, err := r.ListActive(limit, 0)
	return teams, err
}

func (r *fakeTeamRepo) Search(query string, limit, offset int) ([]models.Team, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	matched := make([]models.Team, 0)
	for _, team := range r.teams {
		if team.Deleted || team.IsExpired(r.nowFn()) {
			continue
		}
		if strings.Contains(strings.ToLower(team.Name), q) ||
			strings.Contains(strings.ToLower(team.Description), q) ||
			team.ID.String() == query {
			matched = append(matched, team)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.Team{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeTeamRepo) Update(team *models.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return gorm.ErrInvalidTransaction
	}
	if _, ok := r.teams[team.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.teams[team.ID] = *team
	return nil
}

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]models.User
	nowFn func() time.Time

	failUpdate bool
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]models.User), nowFn: time.Now}
}

func (r *fakeUserRepo) Create(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = r.nowFn()
	}
	r.users[user.ID] = *user
	return nil
}

func (r *fakeUserRepo) GetByID(id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := user
	return &out, nil
}

func (r *fakeUserRepo) GetByIDs(ids []uuid.UUID) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(ids))
	for _, id := range ids {
		if user, ok := r.users[id]; ok {
			out = append(out, user)
		}
	}
	return out, nil
}

func (r *fakeUserRepo) GetByAccount(account string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Account == account {
			out := user
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetAll(limit, offset int) ([]models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]models.User, 0, len(r.users))
	for _, user := range r.users {
		all = append(all, user)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := int64(len(all))
	if offset >= len(all) {
		return []models.User{}, total, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, total, nil
}

func (r *fakeUserRepo) Search(query string, limit, offset int) ([]models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	q := strings.ToLower(query)
	matched := make([]models.User, 0)
	for _, user := range r.users {
		if strings.Contains(strings.ToLower(user.Username), q) ||
			strings.Contains(strings.ToLower(user.Bio), q) ||
			user.ID.String() == query {
			matched = append(matched, user)
		}
	}
	total := int64(len(matched))
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeUserRepo) SearchByTags(tags models.TagSet, limit, offset int) ([]models.User, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.User, 0)
	for _, user := range r.users {
		all := true
		for _, tag := range tags {
			if !user.Tags.Contains(tag) {
				all = false
				break
			}
		}
		if all {
			matched = append(matched, user)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.User{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeUserRepo) Update(user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failUpdate {
		return gorm.ErrInvalidTransaction
	}
	if _, ok := r.users[user.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.users[user.ID] = *user
	return nil
}

type fakeRequestRepo struct {
	mu       sync.Mutex
	requests map[uuid.UUID]models.JoinRequest
	nowFn    func() time.Time
}

func newFakeRequestRepo() *fakeRequestRepo {
	return &fakeRequestRepo{requests: make(map[uuid.UUID]models.JoinRequest), nowFn: time.Now}
}

func (r *fakeRequestRepo) Create(request *models.JoinRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if request.ID == uuid.Nil {
		request.ID = uuid.New()
	}
	if request.CreatedAt.IsZero() {
		request.CreatedAt = r.nowFn()
	}
	r.requests[request.ID] = *request
	return nil
}

func (r *fakeRequestRepo) GetByID(id uuid.UUID) (*models.JoinRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	request, ok := r.requests[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	out := request
	return &out, nil
}

func (r *fakeRequestRepo) GetPendingByPair(teamID, subjectUserID uuid.UUID, now time.Time) (*models.JoinRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, request := range r.requests {
		if request.TeamID == teamID && request.SubjectUserID == subjectUserID &&
			request.Status == models.RequestStatusPending &&
			request.ExpiresAt.After(now) {
			out := request
			return &out, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRequestRepo) ListByTeam(teamID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.JoinRequest, 0)
	for _, request := range r.requests {
		if request.TeamID == teamID && (status == "" || request.Status == status) {
			matched = append(matched, request)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.JoinRequest{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeRequestRepo) ListBySubject(subjectUserID uuid.UUID, status string, limit, offset int) ([]models.JoinRequest, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.JoinRequest, 0)
	for _, request := range r.requests {
		if request.SubjectUserID == subjectUserID && (status == "" || request.Status == status) {
			matched = append(matched, request)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := int64(len(matched))
	if offset >= len(matched) {
		return []models.JoinRequest{}, total, nil
	}
	matched = matched[offset:]
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, total, nil
}

func (r *fakeRequestRepo) ListExpiredPending(now time.Time, limit int) ([]models.JoinRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	matched := make([]models.JoinRequest, 0)
	for _, request := range r.requests {
		if request.Status == models.RequestStatusPending && !request.ExpiresAt.After(now) {
			matched = append(matched, request)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ExpiresAt.Before(matched[j].ExpiresAt) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return matched, nil
}

func (r *fakeRequestRepo) Update(request *models.JoinRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[request.ID]; !ok {
		return gorm.ErrRecordNotFound
	}
	r.requests[request.ID] = *request
	return nil
}

// fakeStore is a map-backed cache without TTL handling. Deleted keys and
// misses behave exactly like the Redis store.
type fakeStore struct {
	mu      sync.Mutex
	entries map[string][]byte
	down    bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{entries: make(map[string][]byte)}
}

func (s *fakeStore) GetJSON(ctx context.Context, key string, dest interface{}) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return false
	}
	data, ok := s.entries[key]
	if !ok {
		return false
	}
	return jsonUnmarshal(data, dest)
}

func (s *fakeStore) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return
	}
	if data, ok := jsonMarshal(value); ok {
		s.entries[key] = data
	}
}

func (s *fakeStore) Delete(ctx context.Context, keys ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return
	}
	for _, key := range keys {
		delete(s.entries, key)
	}
}

func (s *fakeStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

func jsonMarshal(v interface{}) ([]byte, bool) {
	data, err := json.Marshal(v)
	return data, err == nil
}

func jsonUnmarshal(data []byte, dest interface{}) bool {
	return json.Unmarshal(data, dest) == nil
}

// fakeLocks grants zero-wait leases from an in-memory set
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (l *fakeLocks) TryAcquire(ctx context.Context, name string) (*lock.Lease, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] {
		return nil, apperrors.NewTooFrequentError("operation already in progress", 10*time.Second)
	}
	l.held[name] = true
	return &lock.Lease{
		Release: func(ctx context.Context) {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, name)
		},
	}, nil
}

func (l *fakeLocks) holdManually(name string) func() {
	l.mu.Lock()
	l.held[name] = true
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		delete(l.held, name)
		l.mu.Unlock()
	}
}

// testEnv wires every service against the in-memory doubles with a frozen
// clock.
type testEnv struct {
	teams    *fakeTeamRepo
	users    *fakeUserRepo
	requests *fakeRequestRepo
	store    *fakeStore
	locks    *fakeLocks

	roster     *RosterService
	teamSvc    *TeamService
	requestSvc *JoinRequestService
	query      *QueryService
	recommend  *RecommendService

	now time.Time
}

func newTestEnv() *testEnv {
	env := &testEnv{
		teams:    newFakeTeamRepo(),
		users:    newFakeUserRepo(),
		requests: newFakeRequestRepo(),
		store:    newFakeStore(),
		locks:    newFakeLocks(),
		now:      time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
	validate := validator.New()
	clock := func() time.Time { return env.now }
	env.teams.nowFn = clock
	env.users.nowFn = clock
	env.requests.nowFn = clock

	env.roster = NewRosterService(env.teams, env.users, env.locks, env.store)
	env.roster.now = clock

	env.teamSvc = NewTeamService(env.teams, env.users, env.roster, env.locks, env.store, validate, "test-salt", 6)
	env.teamSvc.now = clock

	env.requestSvc = NewJoinRequestService(env.requests, env.teams, env.roster, env.locks, validate, 7*24*time.Hour, 60*time.Second)
	env.requestSvc.now = clock

	env.query = NewQueryService(env.teams, env.users, env.store, 5*time.Minute)
	env.query.now = clock

	env.recommend = NewRecommendService(env.teams, env.users, env.store, 5*time.Minute, 30*time.Minute)
	env.recommend.now = clock

	return env
}

func (env *testEnv) addUser(tags ...string) *models.User {
	user := &models.User{
		Account:      "user-" + uuid.NewString()[:8],
		Username:     "user",
		Tags:         models.NormalizeTags(tags),
		TeamIDs:      models.IDSet{},
		PasswordHash: "x",
		Role:         models.UserRoleUser,
	}
	user.CreatedAt = env.now
	if err := env.users.Create(user); err != nil {
		panic(err)
	}
	return user
}

// addTeam creates a public team led by leader with the dual membership
// records in place, bypassing the service layer.
func (env *testEnv) addTeam(leader *models.User, maxMembers int) *models.Team {
	return env.addTeamWithVisibility(leader, maxMembers, models.TeamVisibilityPublic)
}

// addPrivateTeam creates a private team, the only kind applications target
func (env *testEnv) addPrivateTeam(leader *models.User, maxMembers int) *models.Team {
	return env.addTeamWithVisibility(leader, maxMembers, models.TeamVisibilityPrivate)
}

func (env *testEnv) addTeamWithVisibility(leader *models.User, maxMembers int, visibility string) *models.Team {
	team := &models.Team{
		Name:       "team",
		LeaderID:   leader.ID,
		MemberIDs:  models.IDSet{leader.ID},
		MaxMembers: maxMembers,
		Visibility: visibility,
	}
	team.CreatedAt = env.now
	if err := env.teams.Create(team); err != nil {
		panic(err)
	}
	leader.TeamIDs = leader.TeamIDs.Add(team.ID)
	if err := env.users.Update(leader); err != nil {
		panic(err)
	}
	return team
}

// checkMirror asserts the two-sided membership invariant for one pair
func (env *testEnv) mirrored(teamID, userID uuid.UUID) bool {
	team, err := env.teams.GetByID(teamID)
	if err != nil {
		return false
	}
	user, err := env.users.GetByID(userID)
	if err != nil {
		return false
	}
	return team.MemberIDs.Contains(userID) == user.TeamIDs.Contains(teamID)
}
