package service_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pocketpages/internal/domain"
	"pocketpages/internal/event"
	"pocketpages/internal/service"
	"pocketpages/internal/storage"
)

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.OpenSQLite(filepath.Join(t.TempDir(), "pages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// ─────────────────────────────────────────────────────────────
// RunningJobsGuard tests
// ─────────────────────────────────────────────────────────────

func TestRunningGuard_TryLock(t *testing.T) {
	var g service.ExportedRunningGuard

	require.True(t, g.TryLock("job-1"))
	assert.False(t, g.TryLock("job-1"), "second TryLock for same job must fail")
	require.True(t, g.TryLock("job-2"))
	assert.True(t, g.Running("job-1"))

	g.Unlock("job-1")
	g.Unlock("job-2")
	g.Unlock("job-2") // extra unlock is ignored
	assert.False(t, g.Running("job-1"))

	require.True(t, g.TryLock("job-1"))
	g.Unlock("job-1")
}

func TestRunningGuard_WaitAll(t *testing.T) {
	var g service.ExportedRunningGuard
	require.True(t, g.TryLock("job-a"))

	done := make(chan struct{})
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		g.WaitAll(ctx)
		close(done)
	}()

	go func() {
		time.Sleep(20 * time.Millisecond)
		g.Unlock("job-a")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("WaitAll timed out")
	}
}

// ─────────────────────────────────────────────────────────────
// PageService tests
// ─────────────────────────────────────────────────────────────

func TestPageService_Lifecycle(t *testing.T) {
	ctx := context.Background()
	em := &event.MockEmitter{}
	svc := service.NewPageService(storage.NewPageStore(openDB(t)), em, zerolog.Nop())

	p, err := svc.Create(ctx, "Reading list")
	require.NoError(t, err)
	require.Len(t, p.Blocks, 1)

	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Reading list", active[0].Title)

	require.NoError(t, svc.MoveToTrash(ctx, p.ID))
	trash, err := svc.ListTrash(ctx)
	require.NoError(t, err)
	require.Len(t, trash, 1)

	require.NoError(t, svc.Restore(ctx, p.ID))
	active, err = svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	require.NoError(t, svc.Purge(ctx, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrPageNotFound)

	assert.Len(t, em.Named(service.EventPagesChanged), 4)
}

func TestPageService_MissingPage(t *testing.T) {
	ctx := context.Background()
	em := &event.MockEmitter{}
	svc := service.NewPageService(storage.NewPageStore(openDB(t)), em, zerolog.Nop())

	assert.ErrorIs(t, svc.MoveToTrash(ctx, "nope"), domain.ErrPageNotFound)
	assert.ErrorIs(t, svc.Restore(ctx, "nope"), domain.ErrPageNotFound)
	assert.ErrorIs(t, svc.Purge(ctx, "nope"), domain.ErrPageNotFound)
	assert.Empty(t, em.Events())
}

func TestPageService_EmptyTrash(t *testing.T) {
	ctx := context.Background()
	svc := service.NewPageService(storage.NewPageStore(openDB(t)), nil, zerolog.Nop())

	var ids []string
	for _, title := range []string{"a", "b", "c"} {
		p, err := svc.Create(ctx, title)
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}
	require.NoError(t, svc.MoveToTrash(ctx, ids[0]))
	require.NoError(t, svc.MoveToTrash(ctx, ids[1]))

	n, err := svc.EmptyTrash(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	trash, err := svc.ListTrash(ctx)
	require.NoError(t, err)
	assert.Empty(t, trash)
	active, err := svc.ListActive(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestPageService_Search(t *testing.T) {
	ctx := context.Background()
	store := storage.NewPageStore(openDB(t))
	svc := service.NewPageService(store, nil, zerolog.Nop())

	recipes, err := svc.Create(ctx, "Recipes")
	require.NoError(t, err)
	recipes.Blocks[0].Content = "Pancakes with Blueberries"
	require.NoError(t, store.SavePage(ctx, recipes))
	_, err = svc.Create(ctx, "Taxes")
	require.NoError(t, err)

	found, err := svc.Search(ctx, "blueberries")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, recipes.ID, found[0].ID)

	found, err = svc.Search(ctx, "TAX")
	require.NoError(t, err)
	require.Len(t, found, 1)

	found, err = svc.Search(ctx, "  ")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

// ─────────────────────────────────────────────────────────────
// TrashService tests
// ─────────────────────────────────────────────────────────────

func TestTrashService_PurgeExpired(t *testing.T) {
	ctx := context.Background()
	store := storage.NewPageStore(openDB(t))
	em := &event.MockEmitter{}
	trash := service.NewTrashService(store, 30, "@daily", em, zerolog.Nop())

	p := domain.NewPage()
	require.NoError(t, store.SavePage(ctx, p))
	require.NoError(t, store.SoftDelete(ctx, p.ID))

	n, err := trash.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "freshly trashed page is within retention")

	service.SetTrashClock(trash, func() time.Time { return time.Now().Add(31 * 24 * time.Hour) })
	n, err = trash.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, em.Named(service.EventPagesChanged), 1)
}

func TestTrashService_Disabled(t *testing.T) {
	ctx := context.Background()
	store := storage.NewPageStore(openDB(t))
	trash := service.NewTrashService(store, 0, "@daily", nil, zerolog.Nop())

	assert.False(t, trash.Enabled())
	require.NoError(t, trash.Start(ctx))
	n, err := trash.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	trash.Stop()
}

func TestTrashService_InvalidSchedule(t *testing.T) {
	trash := service.NewTrashService(nil, 7, "not a cron line", nil, zerolog.Nop())
	assert.Error(t, trash.Start(context.Background()))
}

func TestTrashService_StartStop(t *testing.T) {
	store := storage.NewPageStore(openDB(t))
	trash := service.NewTrashService(store, 7, "@hourly", nil, zerolog.Nop())
	require.NoError(t, trash.Start(context.Background()))
	trash.Stop()
	trash.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	trash.Wait(ctx)
}

// ─────────────────────────────────────────────────────────────
// SettingsService tests
// ─────────────────────────────────────────────────────────────

func TestSettings_ThemeDefaultsToSystem(t *testing.T) {
	ctx := context.Background()
	svc := service.NewSettingsService(storage.NewSettingsStore(openDB(t)))
	assert.Equal(t, service.ThemeSystem, svc.Theme(ctx))

	assert.Equal(t, service.ThemeSystem, service.NewSettingsService(nil).Theme(ctx))
}

func TestSettings_SetAndGet(t *testing.T) {
	ctx := context.Background()
	svc := service.NewSettingsService(storage.NewSettingsStore(openDB(t)))

	require.NoError(t, svc.Set(ctx, service.SettingTheme, "Dark"))
	assert.Equal(t, service.ThemeDark, svc.Theme(ctx))

	v, err := svc.Get(ctx, service.SettingTheme)
	require.NoError(t, err)
	assert.Equal(t, "dark", v)

	assert.ErrorIs(t, svc.Set(ctx, service.SettingTheme, "sepia"), service.ErrInvalidSetting)
	assert.ErrorIs(t, svc.Set(ctx, "font", "mono"), service.ErrInvalidSetting)
	_, err = svc.Get(ctx, "font")
	assert.ErrorIs(t, err, service.ErrInvalidSetting)
}
