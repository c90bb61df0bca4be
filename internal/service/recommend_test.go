package service

import (
	"context"
	"testing"
	"time"

	"team-match-backend/internal/cache"
	"team-match-backend/internal/database/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecencyScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 1.0, recencyScore(now, now))
	assert.Equal(t, 1.0, recencyScore(now.Add(time.Hour), now))
	assert.Equal(t, 0.0, recencyScore(now.Add(-recencyWindow), now))
	assert.Equal(t, 0.0, recencyScore(now.Add(-recencyWindow-time.Hour), now))
	assert.InDelta(t, 0.5, recencyScore(now.Add(-15*24*time.Hour), now), 1e-9)
}

func TestFillScore(t *testing.T) {
	// Fill is measured against the fixed six-seat scale regardless of a
	// team's own capacity.
	assert.InDelta(t, 0.5, fillScore(3), 1e-9)
	assert.Equal(t, 1.0, fillScore(6))
	assert.Equal(t, 1.0, fillScore(8))
	assert.Equal(t, 0.0, fillScore(0))
}

func TestMatchScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	team := &models.Team{
		MemberIDs:  models.IDSet{uuid.New(), uuid.New(), uuid.New()},
		MaxMembers: 6,
	}
	team.CreatedAt = now

	// One of the user's two tags overlaps the members' pooled tags,
	// half-full roster, brand new: 0.6*0.5 + 0.2*0.5 + 0.2*1.0
	got := matchScore(models.TagSet{"Go", "Rust"}, team, models.TagSet{"Go", "Redis"}, now)
	assert.InDelta(t, 0.6, got, 1e-9)

	// No user tags: the tag component drops out entirely.
	got = matchScore(models.TagSet{}, team, models.TagSet{"Go", "Redis"}, now)
	assert.InDelta(t, 0.3, got, 1e-9)
}

func TestMatchScoreUsesMemberTagsNotTeamLabels(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	team := &models.Team{
		MemberIDs:  models.IDSet{uuid.New(), uuid.New(), uuid.New()},
		MaxMembers: 6,
		Tags:       models.TagSet{"Java", "Ai"},
	}
	team.CreatedAt = now

	// The team's own label tags match the seeker perfectly, but its members
	// bring different skills; only the overlap with the members counts.
	// 0.6*0.5 + 0.2*0.5 + 0.2*1.0
	got := matchScore(models.TagSet{"Java", "Ai"}, team, models.TagSet{"Java", "Python"}, now)
	assert.InDelta(t, 0.6, got, 1e-9)
}

func TestHotScore(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	team := &models.Team{
		MemberIDs:  models.IDSet{uuid.New(), uuid.New(), uuid.New()},
		MaxMembers: 6,
	}
	team.CreatedAt = now.Add(-15 * 24 * time.Hour)

	// 0.6*0.5 + 0.4*0.5
	assert.InDelta(t, 0.5, hotScore(team, now), 1e-9)
}

func TestHotTeamsOrdering(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// A full brand-new team, a half-full brand-new team, and an empty-ish
	// old team.
	fullLeader := env.addUser()
	full := env.addTeam(fullLeader, 1)

	halfLeader := env.addUser()
	half := env.addTeam(halfLeader, 2)

	oldLeader := env.addUser()
	old := env.addTeam(oldLeader, 6)
	old.CreatedAt = env.now.Add(-29 * 24 * time.Hour)
	require.NoError(t, env.teams.Update(old))

	views, err := env.recommend.HotTeams(ctx, 10)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, full.ID.String(), views[0].ID)
	assert.Equal(t, half.ID.String(), views[1].ID)
	assert.Equal(t, old.ID.String(), views[2].ID)
}

func TestHotTeamsCached(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addTeam(env.addUser(), 6)

	_, err := env.recommend.HotTeams(ctx, 10)
	require.NoError(t, err)
	assert.True(t, env.store.has(cache.HotTeamsKey(10)))

	// A second read is served from the cache even after the data changed.
	env.addTeam(env.addUser(), 6)
	views, err := env.recommend.HotTeams(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, views, 1)

	// Uncached page sizes always recompute.
	views, err = env.recommend.HotTeams(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, views, 2)
	assert.False(t, env.store.has(cache.HotTeamsKey(7)))
}

func TestNewTeamsOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	older := env.addTeam(env.addUser(), 6)
	older.CreatedAt = env.now.Add(-time.Hour)
	require.NoError(t, env.teams.Update(older))
	newest := env.addTeam(env.addUser(), 6)

	views, err := env.recommend.NewTeams(ctx, 10)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, newest.ID.String(), views[0].ID)
	assert.Equal(t, older.ID.String(), views[1].ID)
}

func TestRecommendTeamsExcludesOwnAndFull(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser("go", "redis")

	mine := env.addTeam(user, 6)
	full := env.addTeam(env.addUser(), 1)
	open := env.addTeam(env.addUser("go"), 6)

	expired := env.addTeam(env.addUser(), 6)
	past := env.now.Add(-time.Minute)
	expired.ExpiresAt = &past
	require.NoError(t, env.teams.Update(expired))

	views, err := env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, open.ID.String(), views[0].ID)
	for _, v := range views {
		assert.NotEqual(t, mine.ID.String(), v.ID)
		assert.NotEqual(t, full.ID.String(), v.ID)
		assert.NotEqual(t, expired.ID.String(), v.ID)
	}
}

func TestRecommendTeamsRanksByTagOverlap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser("go", "redis", "postgres")

	// The members' pooled tags drive the ranking; the noMatch team even
	// advertises the seeker's exact tags on its label without effect.
	noMatch := env.addTeam(env.addUser(), 6)
	noMatch.Tags = models.TagSet{"Go", "Redis", "Postgres"}
	require.NoError(t, env.teams.Update(noMatch))
	oneMatch := env.addTeam(env.addUser("go"), 6)
	twoMatch := env.addTeam(env.addUser("go", "redis"), 6)

	views, err := env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 3)
	assert.Equal(t, twoMatch.ID.String(), views[0].ID)
	assert.Equal(t, oneMatch.ID.String(), views[1].ID)
	assert.Equal(t, noMatch.ID.String(), views[2].ID)
}

func TestRecommendTeamsPoolsAllMemberTags(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser("go", "redis")

	// The matching tag belongs to a rank-and-file member, not the leader.
	team := env.addTeam(env.addUser(), 6)
	member := env.addUser("redis")
	require.NoError(t, env.roster.AddMember(ctx, team.ID, member.ID))
	other := env.addTeam(env.addUser(), 6)
	require.NoError(t, env.roster.AddMember(ctx, other.ID, env.addUser().ID))

	views, err := env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, team.ID.String(), views[0].ID)
}

func TestRankTeamsDropsZeroScores(t *testing.T) {
	scoreless := models.Team{}
	scoreless.ID = uuid.New()
	scored := models.Team{}
	scored.ID = uuid.New()

	views := rankTeams([]models.Team{scoreless, scored}, func(team *models.Team) float64 {
		if team.ID == scored.ID {
			return 0.4
		}
		return 0
	}, 10, true)
	require.Len(t, views, 1)
	assert.Equal(t, scored.ID.String(), views[0].ID)

	// The hot listing keeps zero scorers.
	views = rankTeams([]models.Team{scoreless, scored}, func(*models.Team) float64 { return 0 }, 10, false)
	assert.Len(t, views, 2)
}

func TestHotTeamsSkipExpiredTeams(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	alive := env.addTeam(env.addUser(), 6)

	expired := env.addTeam(env.addUser(), 6)
	past := env.now.Add(-time.Minute)
	expired.ExpiresAt = &past
	require.NoError(t, env.teams.Update(expired))

	views, err := env.recommend.HotTeams(ctx, 7)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, alive.ID.String(), views[0].ID)
}

func TestRecommendTeamsNoTagsFallsBackToHot(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser()

	hottest := env.addTeam(env.addUser(), 1)
	env.addTeam(env.addUser(), 6)

	views, err := env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, hottest.ID.String(), views[0].ID)
	// The fallback is the shared hot listing, cached under its own key.
	assert.True(t, env.store.has(cache.HotTeamsKey(10)))
	assert.False(t, env.store.has(cache.RecommendTeamsKey(user.ID, 10)))
}

func TestRecommendTeamsPinned(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser("go")

	organic := env.addTeam(env.addUser("go"), 6)
	promoted := env.addTeam(env.addUser(), 6)

	require.NoError(t, env.recommend.PinRecommendation(ctx, user.ID, []uuid.UUID{promoted.ID}))

	views, err := env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, promoted.ID.String(), views[0].ID)
	assert.Equal(t, organic.ID.String(), views[1].ID)
	// Pinned listings are never cached.
	assert.False(t, env.store.has(cache.RecommendTeamsKey(user.ID, 10)))

	env.recommend.UnpinRecommendation(ctx, user.ID)
	views, err = env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	assert.Equal(t, organic.ID.String(), views[0].ID)
}

func TestRecommendTeamsPinnedSkipsDeadTeams(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser("go")
	organic := env.addTeam(env.addUser("go"), 6)

	dead := env.addTeam(env.addUser(), 6)
	dead.Deleted = true
	require.NoError(t, env.teams.Update(dead))

	require.NoError(t, env.recommend.PinRecommendation(ctx, user.ID, []uuid.UUID{dead.ID}))

	views, err := env.recommend.RecommendTeams(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, organic.ID.String(), views[0].ID)
}

func TestPinRecommendationValidation(t *testing.T) {
	env := newTestEnv()
	err := env.recommend.PinRecommendation(context.Background(), uuid.New(), nil)
	assert.Error(t, err)
}

func TestMatchUsers(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	user := env.addUser("go", "redis", "postgres")

	none := env.addUser("rust")
	one := env.addUser("go")
	two := env.addUser("go", "redis")

	matched, err := env.recommend.MatchUsers(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, matched, 2)
	assert.Equal(t, two.ID.String(), matched[0].ID)
	assert.Equal(t, one.ID.String(), matched[1].ID)
	for _, m := range matched {
		assert.NotEqual(t, none.ID.String(), m.ID)
		assert.NotEqual(t, user.ID.String(), m.ID)
	}
}

func TestMatchUsersTagNormalization(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// Tags are normalized on write, so differently-cased input still matches.
	user := env.addUser("GO")
	other := env.addUser("go")

	matched, err := env.recommend.MatchUsers(ctx, user.ID, 10)
	require.NoError(t, err)
	require.Len(t, matched, 1)
	assert.Equal(t, other.ID.String(), matched[0].ID)
}

func TestDropListings(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	env.addTeam(env.addUser(), 6)

	_, err := env.recommend.HotTeams(ctx, 10)
	require.NoError(t, err)
	_, err = env.recommend.NewTeams(ctx, 10)
	require.NoError(t, err)
	require.True(t, env.store.has(cache.HotTeamsKey(10)))
	require.True(t, env.store.has(cache.NewTeamsKey(10)))

	env.recommend.DropListings(ctx, 10)
	assert.False(t, env.store.has(cache.HotTeamsKey(10)))
	assert.False(t, env.store.has(cache.NewTeamsKey(10)))
}
