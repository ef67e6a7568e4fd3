package registry

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"

	"github.com/ipc-control-room/ipc-project/internal/domain/channel"
	"github.com/ipc-control-room/ipc-project/internal/domain/security"
	"github.com/ipc-control-room/ipc-project/internal/infrastructure/logging"
)

// TopologyPattern matches every file the seeder understands.
const TopologyPattern = "**/*.{yaml,yml,toml,json}"

// ErrUnsupportedFormat is returned for files with an unknown extension.
var ErrUnsupportedFormat = errors.New("unsupported topology format")

// Topology is the content of one topology file.
type Topology struct {
	Channels []ChannelSpec `json:"channels" yaml:"channels" toml:"channels"`
}

// ChannelSpec declares one channel.
type ChannelSpec struct {
	Kind         string `json:"kind" yaml:"kind" toml:"kind"`
	Name         string `json:"name" yaml:"name" toml:"name"`
	Senders      []int  `json:"senders,omitempty" yaml:"senders,omitempty" toml:"senders,omitempty"`
	Receivers    []int  `json:"receivers,omitempty" yaml:"receivers,omitempty" toml:"receivers,omitempty"`
	Capacity     int    `json:"capacity,omitempty" yaml:"capacity,omitempty" toml:"capacity,omitempty"`
	StreamBuffer int    `json:"stream_buffer,omitempty" yaml:"stream_buffer,omitempty" toml:"stream_buffer,omitempty"`
}

// Request converts the declaration into a create request.
func (c ChannelSpec) Request() (CreateRequest, error) {
	kind, err := channel.ParseKind(c.Kind)
	if err != nil {
		return CreateRequest{}, err
	}
	return CreateRequest{
		Kind:             kind,
		Name:             c.Name,
		AllowedSenders:   security.FromInts(c.Senders),
		AllowedReceivers: security.FromInts(c.Receivers),
		Options: Options{
			Capacity:     c.Capacity,
			StreamBuffer: c.StreamBuffer,
		},
	}, nil
}

// ParseTopology decodes data according to the extension of name.
func ParseTopology(name string, data []byte) (Topology, error) {
	var topo Topology
	var err error

	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &topo)
	case ".toml":
		err = toml.Unmarshal(data, &topo)
	case ".json":
		err = sonic.Unmarshal(data, &topo)
	default:
		return Topology{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
	}
	if err != nil {
		return Topology{}, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	return topo, nil
}

// SeedResult counts what a seeding run did.
type SeedResult struct {
	Files   int
	Created int
	Failed  int
}

// Seeder creates channels from topology files
type Seeder struct {
	registry *Registry
	fsys     fs.FS
	dir      string
	logger   *logging.Logger
}

// NewSeeder creates a seeder reading from dir.
func NewSeeder(registry *Registry, dir string, logger *logging.Logger) *Seeder {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Seeder{
		registry: registry,
		dir:      dir,
		logger:   logger.Named("seeder"),
	}
	if dir != "" {
		s.fsys = os.DirFS(dir)
	}
	return s
}

// Seed creates every channel declared under the seed directory. Files are
// processed in lexical order. A bad file or declaration is logged and
// counted, and seeding carries on.
func (s *Seeder) Seed(ctx context.Context) (SeedResult, error) {
	var result SeedResult
	if s.fsys == nil {
		return result, nil
	}
	if _, err := fs.Stat(s.fsys, "."); errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("Seed directory not found", zap.String("dir", s.dir))
		return result, nil
	}

	matches, err := doublestar.Glob(s.fsys, TopologyPattern)
	if err != nil {
		return result, fmt.Errorf("failed to scan %s: %w", s.dir, err)
	}
	sort.Strings(matches)

	s.logger.Info("Seeding channels", zap.String("dir", s.dir), zap.Int("files", len(matches)))

	for _, name := range matches {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Files++

		data, err := fs.ReadFile(s.fsys, name)
		if err != nil {
			s.logger.Warn("Failed to read topology", zap.String("file", name), zap.Error(err))
			result.Failed++
			continue
		}
		topo, err := ParseTopology(name, data)
		if err != nil {
			s.logger.Warn("Failed to load topology", zap.String("file", name), zap.Error(err))
			result.Failed++
			continue
		}

		for _, spec := range topo.Channels {
			if err := s.create(ctx, spec); err != nil {
				s.logger.Warn("Skipping channel",
					zap.String("file", name),
					zap.String("name", spec.Name),
					zap.Error(err),
				)
				result.Failed++
				continue
			}
			result.Created++
		}
	}

	s.logger.Info("Seeding complete",
		zap.Int("created", result.Created),
		zap.Int("failed", result.Failed),
	)
	return result, nil
}

func (s *Seeder) create(ctx context.Context, spec ChannelSpec) error {
	req, err := spec.Request()
	if err != nil {
		return err
	}
	_, _, err = s.registry.Create(ctx, req)
	return err
}
