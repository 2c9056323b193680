package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jomei/notionapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tutorlane/lesson-cli/internal/model"
)

func writeResource(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPresets(t *testing.T) {
	t.Parallel()

	path := writeResource(t, "presets.yaml", `
presets:
  classic:
    name: classic
    bold_terms: true
    colors:
      speaker: blue
  minimal:
    name: minimal
`)
	p := NewProvider(&Config{Resources: ResourcesConfig{PresetsPath: path}}, nil)

	presets, err := p.LoadPresets()
	require.NoError(t, err)
	require.Len(t, presets, 2)
	assert.True(t, presets["classic"].BoldTerms)
	assert.Equal(t, "blue", presets["classic"].Colors["speaker"])
}

func TestLoadPresets_Absent(t *testing.T) {
	t.Parallel()

	p := NewProvider(&Config{Resources: ResourcesConfig{
		PresetsPath: filepath.Join(t.TempDir(), "missing.yaml"),
	}}, nil)

	presets, err := p.LoadPresets()
	require.NoError(t, err)
	assert.Empty(t, presets)
}

func TestLoadPresets_Malformed(t *testing.T) {
	t.Parallel()

	path := writeResource(t, "presets.yaml", "presets: [not, a, map]")
	p := NewProvider(&Config{Resources: ResourcesConfig{PresetsPath: path}}, nil)

	_, err := p.LoadPresets()
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}

func TestLoadVoices(t *testing.T) {
	t.Parallel()

	path := writeResource(t, "voices.yaml", `
voices:
  Waiter:
    voice: nova
    accent: castilian
  Ana:
    voice: echo
    speed: 0.9
`)
	p := NewProvider(&Config{Resources: ResourcesConfig{VoicesPath: path}}, nil)

	voices, err := p.LoadVoices()
	require.NoError(t, err)
	require.Len(t, voices, 2)
	assert.Equal(t, "nova", voices["Waiter"].Voice)
	assert.Equal(t, 0.9, voices["Ana"].Speed)
}

func TestResolveVoicesPath_AbsentDefault(t *testing.T) {
	p := NewProvider(&Config{Resources: ResourcesConfig{
		VoicesPath: filepath.Join(t.TempDir(), "voices.yaml"),
	}}, nil)

	path, err := p.ResolveVoicesPath()
	require.NoError(t, err)
	assert.Empty(t, path)

	voices, err := p.LoadVoices()
	require.NoError(t, err)
	assert.Empty(t, voices)
}

func TestResolveVoicesPath_ExplicitMissing(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "voices.yaml")
	t.Setenv("LESSON_RESOURCES_VOICES_PATH", missing)

	p := NewProvider(&Config{Resources: ResourcesConfig{VoicesPath: missing}}, nil)

	_, err := p.ResolveVoicesPath()
	require.Error(t, err)
	assert.True(t, model.IsConfiguration(err))
}

func TestLoadStudentProfiles_YAML(t *testing.T) {
	t.Parallel()

	path := writeResource(t, "profiles.yaml", `
profiles:
  - subject: Spanish
    database_id: db-es
    preset: classic
    voice: nova
  - subject: French
    database_id: db-fr
  - database_id: orphan
`)
	p := NewProvider(&Config{Resources: ResourcesConfig{ProfilesPath: path}}, nil)

	profiles, err := p.LoadStudentProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 2)
	assert.Equal(t, "db-es", profiles["spanish"].DatabaseID)
	assert.Equal(t, "nova", profiles["spanish"].Voice)
	assert.Equal(t, "db-fr", profiles["french"].DatabaseID)
}

func TestLoadStudentProfiles_AbsentYAML(t *testing.T) {
	t.Parallel()

	p := NewProvider(&Config{Resources: ResourcesConfig{
		ProfilesPath: filepath.Join(t.TempDir(), "profiles.yaml"),
	}}, nil)

	profiles, err := p.LoadStudentProfiles(context.Background())
	require.NoError(t, err)
	assert.Empty(t, profiles)
}

// mockNotion implements the subset of notion.Client the provider uses.
type mockNotion struct {
	mock.Mock
}

func (m *mockNotion) CreatePage(ctx context.Context, req *notionapi.PageCreateRequest) (*notionapi.Page, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(*notionapi.Page), args.Error(1)
}

func (m *mockNotion) AppendBlocks(ctx context.Context, blockID string, children []notionapi.Block) (*notionapi.AppendBlockChildrenResponse, error) {
	args := m.Called(ctx, blockID, children)
	return args.Get(0).(*notionapi.AppendBlockChildrenResponse), args.Error(1)
}

func (m *mockNotion) GetBlockChildren(ctx context.Context, blockID string, pagination *notionapi.Pagination) (*notionapi.GetChildrenResponse, error) {
	args := m.Called(ctx, blockID, pagination)
	return args.Get(0).(*notionapi.GetChildrenResponse), args.Error(1)
}

func (m *mockNotion) UpdateBlock(ctx context.Context, blockID string, req *notionapi.BlockUpdateRequest) (notionapi.Block, error) {
	args := m.Called(ctx, blockID, req)
	if b := args.Get(0); b != nil {
		return b.(notionapi.Block), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotion) DeleteBlock(ctx context.Context, blockID string) (notionapi.Block, error) {
	args := m.Called(ctx, blockID)
	if b := args.Get(0); b != nil {
		return b.(notionapi.Block), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockNotion) QueryDatabase(ctx context.Context, dbID string, req *notionapi.DatabaseQueryRequest) (*notionapi.DatabaseQueryResponse, error) {
	args := m.Called(ctx, dbID, req)
	return args.Get(0).(*notionapi.DatabaseQueryResponse), args.Error(1)
}

func TestLoadStudentProfiles_Notion(t *testing.T) {
	t.Parallel()

	page := notionapi.Page{
		ID: "page-1",
		Properties: notionapi.Properties{
			"Subject": &notionapi.TitleProperty{
				Title: []notionapi.RichText{{PlainText: "Spanish"}},
			},
			"Database ID": &notionapi.RichTextProperty{
				RichText: []notionapi.RichText{{PlainText: "db-es"}},
			},
			"Preset": &notionapi.SelectProperty{
				Select: notionapi.Option{Name: "classic"},
			},
			"Voice": &notionapi.SelectProperty{
				Select: notionapi.Option{Name: "nova"},
			},
		},
	}
	malformed := notionapi.Page{ID: "page-2", Properties: notionapi.Properties{}}

	nc := &mockNotion{}
	nc.On("QueryDatabase", mock.Anything, "profile-db", mock.Anything).
		Return(&notionapi.DatabaseQueryResponse{
			Results: []notionapi.Page{page, malformed},
			HasMore: false,
		}, nil)

	p := NewProvider(&Config{Notion: NotionConfig{ProfileDB: "profile-db"}}, nc)

	profiles, err := p.LoadStudentProfiles(context.Background())
	require.NoError(t, err)
	require.Len(t, profiles, 1)
	assert.Equal(t, "db-es", profiles["spanish"].DatabaseID)
	assert.Equal(t, "classic", profiles["spanish"].Preset)
	assert.Equal(t, "nova", profiles["spanish"].Voice)
	nc.AssertExpectations(t)
}
