package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
)

const yamlTopology = `
channels:
  - kind: queue
    name: jobs
    senders: [1]
    receivers: [2]
  - kind: shared-buffer
    name: status
    capacity: 8
`

const tomlTopology = `
[[channels]]
kind = "stream"
name = "pings"
senders = [3]
stream_buffer = 4
`

const jsonTopology = `{"channels": [{"kind": "shm", "name": "board", "receivers": [5, 6]}]}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	full := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
	require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
}

func TestParseTopologyFormats(t *testing.T) {
	tests := []struct {
		name string
		data string
		want []ChannelSpec
	}{
		{
			name: "a.yaml",
			data: yamlTopology,
			want: []ChannelSpec{
				{Kind: "queue", Name: "jobs", Senders: []int{1}, Receivers: []int{2}},
				{Kind: "shared-buffer", Name: "status", Capacity: 8},
			},
		},
		{
			name: "b.toml",
			data: tomlTopology,
			want: []ChannelSpec{{Kind: "stream", Name: "pings", Senders: []int{3}, StreamBuffer: 4}},
		},
		{
			name: "c.json",
			data: jsonTopology,
			want: []ChannelSpec{{Kind: "shm", Name: "board", Receivers: []int{5, 6}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			topo, err := ParseTopology(tt.name, []byte(tt.data))
			require.NoError(t, err)
			assert.Equal(t, tt.want, topo.Channels)
		})
	}
}

func TestParseTopologyErrors(t *testing.T) {
	_, err := ParseTopology("x.ini", []byte("a=b"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	_, err = ParseTopology("x.json", []byte("{not json"))
	assert.Error(t, err)
}

func TestChannelSpecRequest(t *testing.T) {
	req, err := ChannelSpec{Kind: "pipe", Name: "p", Senders: []int{2, 1}}.Request()
	require.NoError(t, err)
	assert.Equal(t, channel.KindStream, req.Kind)
	assert.Equal(t, []security.ActorID{1, 2}, req.AllowedSenders.Slice())
	assert.True(t, req.AllowedReceivers.Empty())

	_, err = ChannelSpec{Kind: "carrier-pigeon"}.Request()
	assert.ErrorIs(t, err, channel.ErrUnknownKind)
}

func TestSeederCreatesChannelsInFileOrder(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "10-core.yaml", yamlTopology)
	writeFile(t, dir, "20-extra/stream.toml", tomlTopology)
	writeFile(t, dir, "30-board.json", jsonTopology)
	writeFile(t, dir, "README.md", "ignored")

	r := newRegistry(t)
	result, err := NewSeeder(r, dir, logging.NewNop()).Seed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SeedResult{Files: 3, Created: 4}, result)

	list := r.List()
	require.Len(t, list, 4)
	names := []string{list[0].Name, list[1].Name, list[2].Name, list[3].Name}
	assert.Equal(t, []string{"jobs", "status", "pings", "board"}, names)
	assert.Equal(t, 8, list[1].Capacity)
	assert.Equal(t, []security.ActorID{5, 6}, list[3].AllowedReceivers.Slice())
}

func TestSeederSkipsBadFilesAndDeclarations(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "bad.json", "{")
	writeFile(t, dir, "mixed.yml", `
channels:
  - kind: telepathy
    name: nope
  - kind: queue
    name: fine
`)

	r := newRegistry(t)
	result, err := NewSeeder(r, dir, nil).Seed(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SeedResult{Files: 2, Created: 1, Failed: 2}, result)
	require.Len(t, r.List(), 1)
	assert.Equal(t, "fine", r.List()[0].Name)
}

func TestSeederMissingOrUnsetDirectory(t *testing.T) {
	r := newRegistry(t)

	result, err := NewSeeder(r, filepath.Join(t.TempDir(), "absent"), nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, result)

	result, err = NewSeeder(r, "", nil).Seed(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SeedResult{}, result)
}
