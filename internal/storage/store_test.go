package storage

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	logx "pewwatch/pkg/logx"
)

type storeOpener func(t *testing.T, dir string) Store

func testDrivers() map[string]storeOpener {
	return map[string]storeOpener{
		"file": func(t *testing.T, dir string) Store {
			st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state.db")}, logx.Nop())
			require.NoError(t, err)
			return st
		},
		"sqlite": func(t *testing.T, dir string) Store {
			st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(dir, "state.db")}, logx.Nop())
			require.NoError(t, err)
			return st
		},
	}
}

func TestOpenDisabled(t *testing.T) {
	t.Parallel()
	for _, driver := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: driver}, logx.Nop())
		require.NoError(t, err)
		assert.Nil(t, st)
	}
	_, err := Open(Config{Driver: "redis"}, logx.Nop())
	require.Error(t, err)
}

func TestEndpointStateRoundTrip(t *testing.T) {
	t.Parallel()
	for driver, open := range testDrivers() {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			dir := t.TempDir()
			ctx := context.Background()
			st := open(t, dir)

			_, err := st.GetEndpointState(ctx, "api")
			require.True(t, errors.Is(err, ErrNotFound), "got %v", err)

			since := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
			require.NoError(t, st.PutEndpointState(ctx, EndpointState{Name: "api", DownSince: &since, Failures: 3, CheckedAt: since}))
			require.NoError(t, st.PutEndpointState(ctx, EndpointState{Name: "web", Up: true, CheckedAt: since}))

			got, err := st.GetEndpointState(ctx, "api")
			require.NoError(t, err)
			assert.False(t, got.Up)
			require.NotNil(t, got.DownSince)
			assert.True(t, since.Equal(*got.DownSince))
			assert.Equal(t, 3, got.Failures)

			require.NoError(t, st.DeleteEndpointState(ctx, "web"))
			list, err := st.ListEndpointStates(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, "api", list[0].Name)

			// State survives reopen.
			require.NoError(t, st.Close())
			st = open(t, dir)
			defer st.Close()
			got, err = st.GetEndpointState(ctx, "api")
			require.NoError(t, err)
			require.NotNil(t, got.DownSince)
		})
	}
}

func TestRecentNotificationsNewestFirst(t *testing.T) {
	t.Parallel()
	for driver, open := range testDrivers() {
		t.Run(driver, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()
			st := open(t, t.TempDir())
			defer st.Close()

			for i := 0; i < 5; i++ {
				n := Notification{ID: fmt.Sprint(i), At: time.Now(), Channel: "webhook", Text: fmt.Sprintf("msg %d", i)}
				if i == 4 {
					n.Error = "webhook: status 500"
				}
				require.NoError(t, st.AppendNotification(ctx, n))
			}

			got, err := st.RecentNotifications(ctx, 3)
			require.NoError(t, err)
			require.Len(t, got, 3)
			assert.Equal(t, "msg 4", got[0].Text)
			assert.Equal(t, "webhook: status 500", got[0].Error)
			assert.Equal(t, "msg 2", got[2].Text)
		})
	}
}
