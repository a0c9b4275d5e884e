package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/interfaces"
	"github.com/ternarybob/fueltrack/internal/models"
)

type fakeUserStorage struct {
	mu       sync.Mutex
	users    []*models.User
	settings map[string]*models.UserSettings
}

func newFakeUserStorage() *fakeUserStorage {
	return &fakeUserStorage{settings: map[string]*models.UserSettings{}}
}

func (f *fakeUserStorage) SaveUser(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users = append(f.users, user)
	return nil
}

func (f *fakeUserStorage) GetUser(ctx context.Context, userID string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.ID == userID {
			return u, nil
		}
	}
	return nil, assert.AnError
}

func (f *fakeUserStorage) ListUsers(ctx context.Context) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*models.User{}, f.users...), nil
}

func (f *fakeUserStorage) ListUsersByRoles(ctx context.Context, roles []string) ([]*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []*models.User
	for _, u := range f.users {
		for _, role := range roles {
			if u.Role == role {
				matched = append(matched, u)
				break
			}
		}
	}
	return matched, nil
}

func (f *fakeUserStorage) SaveSettings(ctx context.Context, settings *models.UserSettings) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.settings[settings.UserID] = settings
	return nil
}

func (f *fakeUserStorage) GetSettings(ctx context.Context, userID string) (*models.UserSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if s, ok := f.settings[userID]; ok {
		return s, nil
	}
	return nil, assert.AnError
}

type fakeNotificationStorage struct {
	mu    sync.Mutex
	saved []*models.Notification
}

func (f *fakeNotificationStorage) SaveNotification(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, notification)
	return nil
}

func (f *fakeNotificationStorage) ListForUser(ctx context.Context, userID string, limit int) ([]*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, n := range f.saved {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStorage) MarkRead(ctx context.Context, id string) error { return nil }

type emitCall struct {
	userID string
	event  string
}

type recordingNotifier struct {
	mu    sync.Mutex
	emits []emitCall
}

func (r *recordingNotifier) EmitToUser(userID string, event string, payload interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emits = append(r.emits, emitCall{userID, event})
	return nil
}

type stubEvents struct{}

func (s *stubEvents) Subscribe(eventType interfaces.EventType, handler interfaces.EventHandler) error {
	return nil
}
func (s *stubEvents) Publish(ctx context.Context, event interfaces.Event) error     { return nil }
func (s *stubEvents) PublishSync(ctx context.Context, event interfaces.Event) error { return nil }
func (s *stubEvents) Close() error                                                  { return nil }

func addUser(users *fakeUserStorage, id, role string, prefs *models.NotificationSettings) {
	users.users = append(users.users, &models.User{ID: id, Role: role, CreatedAt: time.Now()})
	if prefs != nil {
		users.settings[id] = &models.UserSettings{
			UserID:        id,
			Notifications: *prefs,
		}
	}
}

func TestCreateNotificationDefaultsAllowDelivery(t *testing.T) {
	users := newFakeUserStorage()
	addUser(users, "u1", models.RoleViewer, nil) // no stored settings

	store := &fakeNotificationStorage{}
	notifier := &recordingNotifier{}
	svc := NewService(users, store, notifier, &stubEvents{}, common.GetLogger())

	n, err := svc.CreateNotification(context.Background(), "u1", models.NotificationUpdate, "12 new fuel_data records are available", nil)
	require.NoError(t, err)
	require.NotNil(t, n)
	assert.False(t, n.Read)

	require.Len(t, store.saved, 1)
	assert.Equal(t, "u1", store.saved[0].UserID)

	require.Len(t, notifier.emits, 1)
	assert.Equal(t, emitCall{"u1", "notification"}, notifier.emits[0])
}

func TestCreateNotificationSuppressedWhenDisabled(t *testing.T) {
	users := newFakeUserStorage()
	addUser(users, "u1", models.RoleViewer, &models.NotificationSettings{Enabled: false})

	store := &fakeNotificationStorage{}
	notifier := &recordingNotifier{}
	svc := NewService(users, store, notifier, &stubEvents{}, common.GetLogger())

	n, err := svc.CreateNotification(context.Background(), "u1", models.NotificationUpdate, "msg", nil)
	require.NoError(t, err)
	assert.Nil(t, n)
	assert.Empty(t, store.saved)
	assert.Empty(t, notifier.emits)
}

func TestCreateNotificationSuppressedByTypeAllowList(t *testing.T) {
	users := newFakeUserStorage()
	addUser(users, "u1", models.RoleViewer, &models.NotificationSettings{
		Enabled: true,
		Types:   []string{string(models.NotificationAlert)},
	})

	store := &fakeNotificationStorage{}
	svc := NewService(users, store, nil, &stubEvents{}, common.GetLogger())

	n, err := svc.CreateNotification(context.Background(), "u1", models.NotificationUpdate, "msg", nil)
	require.NoError(t, err)
	assert.Nil(t, n)

	n, err = svc.CreateNotification(context.Background(), "u1", models.NotificationAlert, "msg", nil)
	require.NoError(t, err)
	assert.NotNil(t, n)
	require.Len(t, store.saved, 1)
}

func TestNotifyAllCountsOnlyDelivered(t *testing.T) {
	users := newFakeUserStorage()
	addUser(users, "u1", models.RoleAdmin, nil)
	addUser(users, "u2", models.RoleViewer, &models.NotificationSettings{Enabled: false})
	addUser(users, "u3", models.RoleDataManager, &models.NotificationSettings{Enabled: true})

	store := &fakeNotificationStorage{}
	svc := NewService(users, store, nil, &stubEvents{}, common.GetLogger())

	sent := svc.NotifyAll(context.Background(), models.NotificationUpdate, "msg", map[string]interface{}{"category": "fuel_data"})
	assert.Equal(t, 2, sent)
	assert.Len(t, store.saved, 2)
}

func TestNotifyAdminsTargetsAdminRoleOnly(t *testing.T) {
	users := newFakeUserStorage()
	addUser(users, "u1", models.RoleAdmin, nil)
	addUser(users, "u2", models.RoleDataManager, nil)
	addUser(users, "u3", models.RoleViewer, nil)

	store := &fakeNotificationStorage{}
	svc := NewService(users, store, nil, &stubEvents{}, common.GetLogger())

	sent := svc.NotifyAdmins(context.Background(), models.NotificationProcessingError, "Data processing failed: boom", nil)
	assert.Equal(t, 1, sent)
	require.Len(t, store.saved, 1)
	assert.Equal(t, "u1", store.saved[0].UserID)
	assert.Equal(t, models.NotificationProcessingError, store.saved[0].Type)
}
