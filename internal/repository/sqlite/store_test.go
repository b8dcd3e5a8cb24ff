package sqlite

import (
	"testing"

	"github.com/stretchr/testify/require"

	"casino-bot/internal/model"
	"casino-bot/internal/repository"
	"casino-bot/internal/repository/storetest"
)

func newTestStore(t *testing.T) repository.Store {
	t.Helper()
	s, err := Open(":memory:", storetest.StartingBalance)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	storetest.Run(t, newTestStore)
}

func TestOpen_FileReopen(t *testing.T) {
	path := t.TempDir() + "/casino.db"

	s, err := Open(path, 1000)
	require.NoError(t, err)
	_, err = s.UpdateAccount(t.Context(), 9, func(a *model.Account) error {
		a.Balance = 4242
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = Open(path, 1000)
	require.NoError(t, err)
	defer s.Close()

	acct, err := s.GetAccount(t.Context(), 9)
	require.NoError(t, err)
	require.Equal(t, int64(4242), acct.Balance)
}
