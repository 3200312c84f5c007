package profile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	parsing "github.com/joseph-ayodele/installments-tracker/internal/profile"
	"github.com/joseph-ayodele/installments-tracker/internal/repository"
)

func newService(t *testing.T) *Service {
	t.Helper()
	ctx := context.Background()
	drv, err := repository.OpenSQLite(ctx, "file:"+filepath.Join(t.TempDir(), "p.db"), nil)
	require.NoError(t, err)
	store := repository.NewSQLiteProfileStore(drv, nil)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.Migrate(ctx))
	return NewService(store, nil)
}

const yamlDoc = `
profiles:
  - key: comune_roma
    description: Comune di Roma TARI
    keywords: [Roma Capitale, tari, rateizzazione]
    date_pattern: '(\d{2}/\d{2}/\d{4})'
  - key: ader
    seq_pattern: '^\s*(\d+)\s'
`

func TestService_CreateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("validation", func(t *testing.T) {
		svc := newService(t)
		tests := []struct {
			name string
			req  SaveProfileRequest
		}{
			{"empty key", SaveProfileRequest{}},
			{"bad key", SaveProfileRequest{Key: "Bad Key"}},
			{"bad regex", SaveProfileRequest{Key: "x_vendor", DatePattern: "("}},
			{"no capture group", SaveProfileRequest{Key: "x_vendor", AmountPattern: `\d+`}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				_, err := svc.CreateProfile(ctx, tt.req)
				assert.Equal(t, codes.InvalidArgument, status.Code(err))
			})
		}
	})

	t.Run("duplicate", func(t *testing.T) {
		svc := newService(t)
		req := SaveProfileRequest{Key: "comune_roma", Keywords: []string{" Roma ", ""}}
		p, err := svc.CreateProfile(ctx, req)
		require.NoError(t, err)
		assert.Equal(t, []string{"roma"}, p.Keywords)

		_, err = svc.CreateProfile(ctx, req)
		assert.Equal(t, codes.AlreadyExists, status.Code(err))
	})

	t.Run("no store", func(t *testing.T) {
		_, err := NewService(nil, nil).CreateProfile(ctx, SaveProfileRequest{Key: "comune_roma"})
		assert.Equal(t, codes.Internal, status.Code(err))
	})
}

func TestService_SaveProfile(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)

	_, err := svc.SaveProfile(ctx, SaveProfileRequest{Key: "comune_roma", Description: "v1"})
	require.NoError(t, err)
	p, err := svc.SaveProfile(ctx, SaveProfileRequest{Key: "comune_roma", Description: "v2"})
	require.NoError(t, err)
	assert.Equal(t, "v2", p.Description)

	list, err := svc.ListProfiles(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestService_DeleteProfile(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	_, err := svc.CreateProfile(ctx, SaveProfileRequest{Key: "comune_roma"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteProfile(ctx, "comune_roma"))
	assert.Equal(t, codes.NotFound, status.Code(svc.DeleteProfile(ctx, "comune_roma")))
}

func TestService_Import(t *testing.T) {
	ctx := context.Background()

	t.Run("yaml file", func(t *testing.T) {
		svc := newService(t)
		path := filepath.Join(t.TempDir(), "profiles.yaml")
		require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o600))

		out, err := svc.ImportFile(ctx, path)
		require.NoError(t, err)
		require.Len(t, out, 2)
		assert.Equal(t, "comune_roma", out[0].Key)
		assert.Equal(t, []string{"roma capitale", "tari", "rateizzazione"}, out[0].Keywords)
	})

	t.Run("json", func(t *testing.T) {
		svc := newService(t)
		out, err := svc.Import(ctx, []byte(`{"profiles":[{"key":"inps","anno_pattern":"(20\\d{2})"}]}`), ".json")
		require.NoError(t, err)
		require.Len(t, out, 1)
		assert.Equal(t, `(20\d{2})`, out[0].AnnoPattern)
	})

	t.Run("schema violation", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Import(ctx, []byte(`{"profiles":[{"key":"inps","colour":"red"}]}`), ".json")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		_, err = svc.Import(ctx, []byte(`{"profiles":[]}`), ".json")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})

	t.Run("one bad profile writes nothing", func(t *testing.T) {
		svc := newService(t)
		doc := `{"profiles":[{"key":"good_one"},{"key":"bad","date_pattern":"("}]}`
		_, err := svc.Import(ctx, []byte(doc), "json")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))

		list, err := svc.ListProfiles(ctx)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := newService(t).Import(ctx, []byte(`x`), ".toml")
		assert.Equal(t, codes.InvalidArgument, status.Code(err))
	})
}

func TestService_Seed(t *testing.T) {
	ctx := context.Background()

	t.Run("registers custom and overrides builtin", func(t *testing.T) {
		svc := newService(t)
		_, err := svc.Import(ctx, []byte(yamlDoc), "yaml")
		require.NoError(t, err)

		reg := parsing.NewRegistry()
		n, err := svc.Seed(ctx, reg)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		roma, ok := reg.Get("comune_roma")
		require.True(t, ok)
		assert.NotNil(t, roma.Date)

		ader, ok := reg.Get(parsing.ADER)
		require.True(t, ok)
		assert.Equal(t, `^\s*(\d+)\s`, ader.Seq.String())
		assert.NotEmpty(t, ader.Keywords)
	})

	t.Run("nil store", func(t *testing.T) {
		n, err := NewService(nil, nil).Seed(ctx, parsing.NewRegistry())
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}
