package generator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func u32(v uint32) *uint32 { return &v }

func TestResolveOverrides(t *testing.T) {
	t.Run("none selects recommended", func(t *testing.T) {
		profile, err := ResolveOverrides(nil, nil, nil)
		require.NoError(t, err)
		assert.Equal(t, KindRecommended, profile.Kind)

		params, err := profile.Resolve()
		require.NoError(t, err)
		assert.Equal(t, CostProfile{Iterations: 16, MemorySizeKiB: 16384, Parallelism: 2}, params)
	})

	t.Run("all three used verbatim", func(t *testing.T) {
		profile, err := ResolveOverrides(u32(3), u32(4096), u32(1))
		require.NoError(t, err)

		params, err := profile.Resolve()
		require.NoError(t, err)
		assert.Equal(t, CostProfile{Iterations: 3, MemorySizeKiB: 4096, Parallelism: 1}, params)
	})

	partial := []struct {
		name                 string
		iterations, mem, par *uint32
	}{
		{name: "iterations only", iterations: u32(1)},
		{name: "memory only", mem: u32(1024)},
		{name: "parallelism only", par: u32(1)},
		{name: "iterations and memory", iterations: u32(1), mem: u32(1024)},
		{name: "memory and parallelism", mem: u32(1024), par: u32(1)},
		{name: "iterations and parallelism", iterations: u32(1), par: u32(1)},
	}
	for _, tt := range partial {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ResolveOverrides(tt.iterations, tt.mem, tt.par)
			assert.ErrorIs(t, err, ErrIncompleteCustomProfile)
		})
	}
}

func TestZeroProfileIsRecommended2024(t *testing.T) {
	var profile Profile
	params, err := profile.Resolve()
	require.NoError(t, err)
	assert.Equal(t, uint32(16), params.Iterations)
	assert.Equal(t, uint32(16384), params.MemorySizeKiB)
	assert.Equal(t, uint32(2), params.Parallelism)
}

func TestProfileJSON(t *testing.T) {
	data, err := json.Marshal(RecommendedProfile(Recommended2024))
	require.NoError(t, err)
	assert.JSONEq(t, `"recommended2024"`, string(data))

	data, err = json.Marshal(CustomProfile(CostProfile{Iterations: 15, MemorySizeKiB: 2048, Parallelism: 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"iterations":15,"memorySize":2048,"parallelism":2}`, string(data))
}

func TestProfileUnmarshal(t *testing.T) {
	var p Profile
	require.NoError(t, json.Unmarshal([]byte(`"recommended2024"`), &p))
	assert.Equal(t, RecommendedProfile(Recommended2024), p)

	require.NoError(t, json.Unmarshal([]byte(`{"iterations":15,"memorySize":2048,"parallelism":2}`), &p))
	assert.Equal(t, CustomProfile(CostProfile{Iterations: 15, MemorySizeKiB: 2048, Parallelism: 2}), p)

	rejected := map[string]string{
		"unknown tag":     `"recommended2030"`,
		"partial object":  `{"iterations":15,"memorySize":2048}`,
		"wrong case":      `{"Iterations":15,"memorySize":2048,"parallelism":2}`,
		"snake case":      `{"iterations":15,"memory_size":2048,"parallelism":2}`,
		"extra field":     `{"iterations":15,"memorySize":2048,"parallelism":2,"salt":"x"}`,
		"negative value":  `{"iterations":-1,"memorySize":2048,"parallelism":2}`,
		"not an object":   `[15,2048,2]`,
		"number selector": `2024`,
	}
	for name, doc := range rejected {
		t.Run(name, func(t *testing.T) {
			var p Profile
			assert.Error(t, json.Unmarshal([]byte(doc), &p))
		})
	}
}
