package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linkwatch/internal/domain"
	"linkwatch/internal/loader"
	"linkwatch/internal/repository"
)

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

func smallTopology() *domain.Topology {
	topo := domain.NewTopology()
	topo.AddDevice(domain.Device{
		Name:        "R1",
		Kind:        domain.DeviceKindRouter,
		Address:     "10.0.0.1",
		Credentials: &domain.Credentials{Username: "admin", Password: "secret"},
		Transport:   domain.TransportSSH,
		Port:        2222,
	})
	topo.AddDevice(domain.Device{Name: "SW", Kind: domain.DeviceKindSwitch, Address: "10.0.1.1"})
	topo.AddDevice(domain.Device{Name: "H2", Kind: domain.DeviceKindHost, Address: "10.0.1.12"})
	topo.AddDevice(domain.Device{Name: "H1", Kind: domain.DeviceKindHost, Address: "10.0.1.11"})
	topo.AddEdge("R1", "SW", "10.0.1.0/24")
	topo.AddEdge("SW", "H2", "")
	topo.AddEdge("SW", "H1", "")
	topo.Attach("R1", "SW")
	topo.Attach("SW", "H2", "H1")
	topo.SetUplink("SW", "R1")
	return topo
}

func TestNullHelpers(t *testing.T) {
	assert.Equal(t, "", nullToString(sql.NullString{}))
	assert.Equal(t, "x", nullToString(sql.NullString{String: "x", Valid: true}))
	assert.False(t, stringToNull("").Valid)
	assert.Equal(t, sql.NullString{String: "x", Valid: true}, stringToNull("x"))
}

func TestLoadEmpty(t *testing.T) {
	repo := newTestRepo(t)

	_, err := repo.LoadTopology(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoTopology)

	_, err = repo.Info(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoTopology)
}

func TestSaveLoadPreservesOrder(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()
	in := smallTopology()

	require.NoError(t, repo.SaveTopology(ctx, in, "test.yaml"))

	out, err := repo.LoadTopology(ctx)
	require.NoError(t, err)

	assert.Equal(t, in.Devices, out.Devices)
	assert.Equal(t, in.Edges, out.Edges)
	assert.Equal(t, []string{"H2", "H1"}, out.Attachments["SW"])
	assert.Equal(t, "R1", out.Uplinks["SW"])

	r1, ok := out.Device("R1")
	require.True(t, ok)
	assert.Equal(t, "secret", r1.Credentials.Password)
	assert.Equal(t, "10.0.1.0/24", out.Edges[0].Subnet)

	info, err := repo.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "test.yaml", info.Source)
	assert.Equal(t, 4, info.Devices)
	assert.Equal(t, 3, info.Edges)
	assert.False(t, info.SavedAt.IsZero())
}

func TestSaveReplaces(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveTopology(ctx, smallTopology(), "small"))

	lab, err := loader.Default()
	require.NoError(t, err)
	require.NoError(t, repo.SaveTopology(ctx, lab, "builtin"))

	out, err := repo.LoadTopology(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Devices, 19)
	assert.Len(t, out.Edges, 19)
	_, ok := out.Device("SW")
	assert.False(t, ok)

	// Adjacency survives the round trip
	idx := domain.NewAdjacencyIndex(out)
	sw, ok := idx.SwitchOf("Ubuntu20.04VM-1")
	require.True(t, ok)
	assert.Equal(t, "Switch1", sw)
}

func TestSaveRejectsInvalid(t *testing.T) {
	repo := newTestRepo(t)
	topo := smallTopology()
	topo.AddEdge("R1", "R9", "")

	err := repo.SaveTopology(context.Background(), topo, "bad")
	assert.ErrorIs(t, err, domain.ErrInvalidTopology)

	_, err = repo.LoadTopology(context.Background())
	assert.ErrorIs(t, err, repository.ErrNoTopology)
}

func TestFileDatabasePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "linkwatch.db")
	ctx := context.Background()

	repo, err := New(path)
	require.NoError(t, err)
	require.NoError(t, repo.SaveTopology(ctx, smallTopology(), "file"))
	require.NoError(t, repo.Close())

	reopened, err := New(path)
	require.NoError(t, err)
	defer reopened.Close()

	out, err := reopened.LoadTopology(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Devices, 4)
}

func TestDSN(t *testing.T) {
	assert.Equal(t, "file::memory:?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", dsn(":memory:"))
	assert.Contains(t, dsn("/tmp/x.db"), "/tmp/x.db?")
	assert.Contains(t, dsn("/tmp/x.db"), "journal_mode(WAL)")
	assert.Contains(t, dsn("/tmp/x.db?mode=rwc"), "/tmp/x.db?mode=rwc&")
}
