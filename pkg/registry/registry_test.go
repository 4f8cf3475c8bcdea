package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Name string
}

func TestBaseRegistry_Register(t *testing.T) {
	r := NewBaseRegistry[item]()

	tests := []struct {
		name    string
		key     string
		wantErr error
	}{
		{name: "valid", key: "weather"},
		{name: "empty name", key: "", wantErr: nil},
		{name: "duplicate", key: "weather", wantErr: ErrDuplicate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := r.Register(tt.key, item{Name: tt.key})
			switch {
			case tt.key == "":
				assert.Error(t, err)
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
			default:
				assert.NoError(t, err)
			}
		})
	}
	assert.Equal(t, 1, r.Count())
}

func TestBaseRegistry_GetAndList(t *testing.T) {
	r := NewBaseRegistry[item]()
	for _, name := range []string{"news", "weather", "alpha"} {
		require.NoError(t, r.Register(name, item{Name: name}))
	}

	got, ok := r.Get("news")
	assert.True(t, ok)
	assert.Equal(t, "news", got.Name)

	_, ok = r.Get("missing")
	assert.False(t, ok)

	_, err := r.MustGet("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "alpha")

	assert.Equal(t, []string{"alpha", "news", "weather"}, r.Names())
	assert.Equal(t, []item{{"alpha"}, {"news"}, {"weather"}}, r.List())
}

func TestBaseRegistry_Remove(t *testing.T) {
	r := NewBaseRegistry[item]()
	require.NoError(t, r.Register("a", item{"a"}))

	require.NoError(t, r.Remove("a"))
	assert.ErrorIs(t, r.Remove("a"), ErrNotFound)
	assert.Zero(t, r.Count())
}

func TestBaseRegistry_Replace(t *testing.T) {
	r := NewBaseRegistry[item]()
	require.NoError(t, r.Register("old", item{"old"}))

	prev := r.Replace(map[string]item{"new": {"new"}})

	assert.Equal(t, map[string]item{"old": {"old"}}, prev)
	assert.Equal(t, []string{"new"}, r.Names())

	r.Replace(nil)
	assert.Zero(t, r.Count())
}
