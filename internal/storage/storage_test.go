package storage_test

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"sync"
	"testing"
	"time"

	"grievancedesk/backend/internal/models"
	"grievancedesk/backend/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// store is shared by every integration test; nil when Docker is unavailable
// or the run is -short.
var store *storage.Service

func TestMain(m *testing.M) {
	flag.Parse()
	if testing.Short() {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := withoutPanic(func() (*postgres.PostgresContainer, error) {
		return postgres.Run(ctx,
			"postgres:16-alpine",
			postgres.WithDatabase("grievances_test"),
			postgres.WithUsername("grievances_test"),
			postgres.WithPassword("grievances_test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(60*time.Second)),
		)
	})
	if err != nil {
		log.Printf("postgres container unavailable, skipping integration tests: %v", err)
		os.Exit(m.Run())
	}

	code := func() int {
		defer func() {
			if err := container.Terminate(ctx); err != nil {
				log.Printf("failed to terminate postgres container: %v", err)
			}
		}()

		connStr, err := container.ConnectionString(ctx, "sslmode=disable")
		if err != nil {
			log.Printf("connection string: %v", err)
			return 1
		}
		db, err := storage.Open(connStr)
		if err != nil {
			log.Printf("open: %v", err)
			return 1
		}
		if err := storage.Migrate(db); err != nil {
			log.Printf("migrate: %v", err)
			return 1
		}
		store = storage.NewStorageService(db, nil)
		return m.Run()
	}()
	os.Exit(code)
}

// withoutPanic runs fn and reports a panic as an error. testcontainers panics
// instead of returning an error when no Docker host can be found.
func withoutPanic[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			v, err = zero, fmt.Errorf("recovered: %v", r)
		}
	}()
	return fn()
}

func TestWithoutPanic(t *testing.T) {
	_, err := withoutPanic(func() (int, error) { panic("rootless Docker not found") })
	assert.EqualError(t, err, "recovered: rootless Docker not found")

	v, err := withoutPanic(func() (int, error) { return 7, nil })
	assert.NoError(t, err)
	assert.Equal(t, 7, v)
}

func requireStore(t *testing.T) *storage.Service {
	t.Helper()
	if store == nil {
		t.Skip("integration test requires Docker")
	}
	return store
}

var seq struct {
	sync.Mutex
	n int
}

func unique(prefix string) string {
	seq.Lock()
	defer seq.Unlock()
	seq.n++
	return fmt.Sprintf("%s-%d-%d", prefix, time.Now().UnixNano(), seq.n)
}

type fixture struct {
	dept    *models.Department
	student *models.User
	admin   *models.User
	staff   *models.User
	g       *models.Grievance
}

func seed(t *testing.T, s *storage.Service) fixture {
	t.Helper()
	ctx := context.Background()

	dept := &models.Department{Code: unique("CS"), Name: "Computer Science"}
	require.NoError(t, s.CreateDepartment(ctx, dept))
	cat := &models.Category{Name: "Infrastructure", IsActive: true}
	require.NoError(t, s.CreateCategory(ctx, cat))

	student := &models.User{Email: unique("student") + "@example.edu", Role: models.RoleStudent, IsActive: true}
	admin := &models.User{Email: unique("admin") + "@example.edu", Role: models.RoleAdmin, DepartmentID: &dept.ID, IsActive: true}
	staff := &models.User{Email: unique("staff") + "@example.edu", Role: models.RoleStaff, DepartmentID: &dept.ID, IsActive: true}
	for _, u := range []*models.User{student, admin, staff} {
		require.NoError(t, s.CreateUser(ctx, u))
	}

	g := &models.Grievance{
		Title:        "Lab projector broken",
		StudentID:    student.ID,
		CategoryID:   cat.ID,
		DepartmentID: dept.ID,
		Priority:     models.PriorityHigh,
	}
	entry := &models.TimelineEntry{Status: models.StatusSubmitted, Note: "Grievance submitted", UpdatedBy: &student.ID}
	require.NoError(t, s.CreateGrievance(ctx, g, entry))

	return fixture{dept: dept, student: student, admin: admin, staff: staff, g: g}
}

func TestCreateGrievance_AssignsCodeAndTimeline(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	got, err := s.GetGrievance(ctx, f.g.ID)
	require.NoError(t, err)
	assert.Regexp(t, `^GRV\d+$`, got.Code)
	assert.Equal(t, models.StatusSubmitted, got.Status)
	assert.Equal(t, 0, got.Version)

	entries, err := s.ListTimeline(ctx, f.g.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, f.g.ID, entries[0].GrievanceID)
}

func TestGetGrievance_NotFound(t *testing.T) {
	s := requireStore(t)

	_, err := s.GetGrievance(context.Background(), 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

// Two admins claiming the same grievance from the same snapshot: exactly one wins.
func TestApplyTransition_ConcurrentClaims(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			g := *f.g
			admin := f.admin.ID
			g.AssignedTo = &admin
			g.AssignedAdminID = &admin
			g.TransitionTo(models.StatusAssignedToAdmin, admin, time.Now())
			entry := models.NewTimelineEntry(&g, models.StatusSubmitted, "claim", "claimed", &admin)
			results[i] = s.ApplyTransition(ctx, &g, 0, entry)
		}(i)
	}
	wg.Wait()

	var ok, stale int
	for _, err := range results {
		if err == nil {
			ok++
			continue
		}
		assert.ErrorIs(t, err, storage.ErrStaleWrite)
		stale++
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, stale)

	got, err := s.GetGrievance(ctx, f.g.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Version)
	assert.Equal(t, models.StatusAssignedToAdmin, got.Status)

	entries, err := s.ListTimeline(ctx, f.g.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "the losing claim must not leave a timeline entry")
}

func TestApplyTransition_PersistsNullableColumns(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	g := *f.g
	staff := f.staff.ID
	g.AssignedTo = &staff
	g.TransitionTo(models.StatusResolved, staff, time.Now())
	require.NoError(t, s.ApplyTransition(ctx, &g, 0, nil))
	assert.Equal(t, 1, g.Version)

	g.TransitionTo(models.StatusInProgress, staff, time.Now())
	require.NoError(t, s.ApplyTransition(ctx, &g, 1, nil))

	got, err := s.GetGrievance(ctx, f.g.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ResolvedAt)
	assert.Nil(t, got.ResolvedBy)
	assert.Equal(t, f.g.Code, got.Code, "code never changes")
}

func TestCountGrievancesByStatus(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	counts, err := s.CountGrievancesByStatus(ctx, storage.GrievanceScope{DepartmentID: &f.dept.ID})
	require.NoError(t, err)
	assert.Equal(t, int64(1), counts[models.StatusSubmitted])
	assert.Zero(t, counts[models.StatusResolved])
}

func TestRemarks_StudentView(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	remarks := []*models.Remark{
		{GrievanceID: f.g.ID, UserID: f.staff.ID, UserType: models.RoleStaff, Message: "public staff"},
		{GrievanceID: f.g.ID, UserID: f.staff.ID, UserType: models.RoleStaff, Message: "internal staff", IsInternal: true},
		{GrievanceID: f.g.ID, UserID: f.student.ID, UserType: models.RoleStudent, Message: "internal student", IsInternal: true},
	}
	for _, r := range remarks {
		require.NoError(t, s.CreateRemark(ctx, r))
	}

	all, err := s.ListRemarks(ctx, f.g.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	visible, err := s.ListRemarks(ctx, f.g.ID, true)
	require.NoError(t, err)
	var messages []string
	for _, r := range visible {
		messages = append(messages, r.Message)
	}
	assert.ElementsMatch(t, []string{"public staff", "internal student"}, messages)

	n, err := s.CountRemarks(ctx, f.g.ID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	latest, err := s.LatestRemark(ctx, f.g.ID, false)
	require.NoError(t, err)
	assert.Equal(t, "internal student", latest.Message)
}

func TestMarkNotificationRead_Once(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	n := &models.Notification{UserID: f.student.ID, Type: models.NotificationStatusUpdate, Title: "Status Updated"}
	require.NoError(t, s.CreateNotification(ctx, n))

	first := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
	changed, err := s.MarkNotificationRead(ctx, n.ID, first)
	require.NoError(t, err)
	assert.True(t, changed)

	changed, err = s.MarkNotificationRead(ctx, n.ID, time.Now())
	require.NoError(t, err)
	assert.False(t, changed)

	got, err := s.GetNotification(ctx, n.ID)
	require.NoError(t, err)
	assert.True(t, got.IsRead)
	require.NotNil(t, got.ReadAt)
	assert.True(t, first.Equal(got.ReadAt.UTC().Truncate(time.Millisecond)))

	unread, err := s.CountUnreadNotifications(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Zero(t, unread)
}

func TestNotifications_MarkAllAndPurge(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	for i := 0; i < 3; i++ {
		require.NoError(t, s.CreateNotification(ctx, &models.Notification{UserID: f.staff.ID, Title: "n"}))
	}

	updated, err := s.MarkAllNotificationsRead(ctx, f.staff.ID, time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(3), updated)

	unread, err := s.ListNotifications(ctx, f.staff.ID, true)
	require.NoError(t, err)
	assert.Empty(t, unread)

	purged, err := s.PurgeNotificationsBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, purged, int64(3))

	assert.ErrorIs(t, s.DeleteNotification(ctx, 999999), storage.ErrNotFound)
}

func TestGetOrCreatePreference(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	pref, err := s.GetOrCreatePreference(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultPreference(f.student.ID).StatusUpdates, pref.StatusUpdates)
	assert.True(t, pref.PushNotifications)

	pref.NewRemarks = false
	require.NoError(t, s.SavePreference(ctx, pref))

	again, err := s.GetOrCreatePreference(ctx, f.student.ID)
	require.NoError(t, err)
	assert.False(t, again.NewRemarks)
	assert.True(t, again.StatusUpdates)
}

func TestFeedback_UniqueAndAverage(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	avg, err := s.AverageRating(ctx, f.g.ID)
	require.NoError(t, err)
	assert.Nil(t, avg)

	require.NoError(t, s.CreateFeedback(ctx, &models.Feedback{GrievanceID: f.g.ID, SubmittedBy: f.student.ID, Rating: 4}))
	err = s.CreateFeedback(ctx, &models.Feedback{GrievanceID: f.g.ID, SubmittedBy: f.student.ID, Rating: 1})
	assert.ErrorIs(t, err, storage.ErrDuplicate)

	require.NoError(t, s.CreateFeedback(ctx, &models.Feedback{GrievanceID: f.g.ID, SubmittedBy: f.staff.ID, Rating: 5}))
	require.NoError(t, s.CreateFeedback(ctx, &models.Feedback{GrievanceID: f.g.ID, SubmittedBy: f.admin.ID, Rating: 3}))

	avg, err = s.AverageRating(ctx, f.g.ID)
	require.NoError(t, err)
	require.NotNil(t, avg)
	assert.InDelta(t, 4.0, *avg, 1e-9)

	mine, err := s.ListFeedbackBySubmitter(ctx, f.student.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
}

func TestCreate_KeepsExplicitInactiveFlag(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	cat := &models.Category{Name: "Retired", IsActive: false}
	require.NoError(t, s.CreateCategory(ctx, cat))
	gotCat, err := s.GetCategory(ctx, cat.ID)
	require.NoError(t, err)
	assert.False(t, gotCat.IsActive)

	gone := &models.User{Email: unique("gone") + "@example.edu", Role: models.RoleStaff, DepartmentID: &f.dept.ID, IsActive: false}
	require.NoError(t, s.CreateUser(ctx, gone))
	gotUser, err := s.GetUserByID(ctx, gone.ID)
	require.NoError(t, err)
	assert.False(t, gotUser.IsActive)

	staff, err := s.ListStaff(ctx, f.dept.ID)
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.Equal(t, f.staff.ID, staff[0].ID)
}

func TestTelegramLinkCode_SingleUse(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)
	now := time.Now()

	first := &models.TelegramLinkCode{Code: unique("first"), UserID: f.staff.ID, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, s.ReplaceTelegramLinkCode(ctx, first))
	second := &models.TelegramLinkCode{Code: unique("second"), UserID: f.staff.ID, ExpiresAt: now.Add(time.Minute)}
	require.NoError(t, s.ReplaceTelegramLinkCode(ctx, second))

	_, err := s.ConsumeTelegramLinkCode(ctx, first.Code, now)
	assert.ErrorIs(t, err, storage.ErrNotFound, "a newer code replaces the older one")

	userID, err := s.ConsumeTelegramLinkCode(ctx, second.Code, now)
	require.NoError(t, err)
	assert.Equal(t, f.staff.ID, userID)

	_, err = s.ConsumeTelegramLinkCode(ctx, second.Code, now)
	assert.ErrorIs(t, err, storage.ErrNotFound, "codes are single use")

	expired := &models.TelegramLinkCode{Code: unique("expired"), UserID: f.admin.ID, ExpiresAt: now.Add(-time.Second)}
	require.NoError(t, s.ReplaceTelegramLinkCode(ctx, expired))
	_, err = s.ConsumeTelegramLinkCode(ctx, expired.Code, now)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestGetUserByTelegramChat(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	chat := time.Now().UnixNano()
	f.staff.TelegramChatID = &chat
	require.NoError(t, s.UpdateUser(ctx, f.staff))

	got, err := s.GetUserByTelegramChat(ctx, chat)
	require.NoError(t, err)
	assert.Equal(t, f.staff.ID, got.ID)

	_, err = s.GetUserByTelegramChat(ctx, chat+1)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLatestTimelineEntry(t *testing.T) {
	s := requireStore(t)
	ctx := context.Background()
	f := seed(t, s)

	g := *f.g
	admin := f.admin.ID
	g.AssignedTo = &admin
	g.TransitionTo(models.StatusAssignedToAdmin, admin, time.Now())
	require.NoError(t, s.ApplyTransition(ctx, &g, 0, models.NewTimelineEntry(&g, models.StatusSubmitted, "claim", "claimed", &admin)))

	latest, err := s.LatestTimelineEntry(ctx, f.g.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAssignedToAdmin, latest.Status)

	_, err = s.LatestTimelineEntry(ctx, 999999)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
