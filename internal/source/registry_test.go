package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/water-unifier/internal/record"
)

// mockSource implements Source for testing.
type mockSource struct {
	name  string
	kinds []*record.Kind
}

func (m *mockSource) Name() string          { return m.name }
func (m *mockSource) Kinds() []*record.Kind { return m.kinds }

func TestRegistry_RegisterAndGet(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockSource{name: "AMPAPI", kinds: []*record.Kind{record.Site}})

	got, err := reg.Get("AMPAPI")
	require.NoError(t, err)
	assert.Equal(t, "AMPAPI", got.Name())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	reg := NewRegistry()
	_, err := reg.Get("nonexistent")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source")
}

func TestRegistry_All_PreservesOrder(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockSource{name: "WQP"})
	reg.Register(&mockSource{name: "AMPAPI"})
	reg.Register(&mockSource{name: "BOR"})
	reg.Register(&mockSource{name: "WQP"})

	assert.Equal(t, []string{"WQP", "AMPAPI", "BOR"}, reg.AllNames())
	assert.Len(t, reg.All(), 3)
}

func TestRegistry_Select(t *testing.T) {
	reg := NewRegistry()
	reg.Register(&mockSource{name: "AMPAPI", kinds: []*record.Kind{record.Site, record.WaterLevel}})
	reg.Register(&mockSource{name: "BOR", kinds: []*record.Kind{record.Site, record.Analyte}})
	reg.Register(&mockSource{name: "WQP", kinds: []*record.Kind{record.Site, record.Analyte}})

	all, err := reg.Select(nil, record.Site)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	analytes, err := reg.Select(nil, record.Analyte)
	require.NoError(t, err)
	require.Len(t, analytes, 2)
	assert.Equal(t, "BOR", analytes[0].Name())

	// Named selection keeps registration order.
	named, err := reg.Select([]string{"WQP", "AMPAPI"}, record.Site)
	require.NoError(t, err)
	require.Len(t, named, 2)
	assert.Equal(t, "AMPAPI", named[0].Name())
	assert.Equal(t, "WQP", named[1].Name())

	_, err = reg.Select([]string{"AMPAPI"}, record.Analyte)
	assert.Error(t, err)

	_, err = reg.Select([]string{"nope"}, record.Site)
	assert.Error(t, err)
}
