package vault

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rehash-cli/rehash/internal/generator"
)

const plainDoc = `{
  "settings": {"defaultGeneratorOptions": "recommended2024", "encrypt": false},
  "entries": {
    "6f1c2a8e-4b3d-4a8e-9d1f-0c2b3a4d5e6f": {
      "url": "www.google.com",
      "username": "jondoe@gmail.com",
      "options": {"generation": 1, "length": 32},
      "generatorOptions": {"iterations": 15, "memorySize": 2048, "parallelism": 2},
      "displayName": "Google"
    }
  }
}`

func TestParse(t *testing.T) {
	v, err := Parse([]byte(plainDoc))
	require.NoError(t, err)

	assert.False(t, v.Settings.Encrypt)
	assert.Equal(t, generator.RecommendedProfile(generator.Recommended2024), v.Settings.DefaultProfile)
	require.Len(t, v.Entries, 1)

	entry, err := v.Get(uuid.MustParse("6f1c2a8e-4b3d-4a8e-9d1f-0c2b3a4d5e6f"))
	require.NoError(t, err)
	assert.Equal(t, "www.google.com", entry.URL)
	assert.Equal(t, FormatOptions{Generation: 1, Length: 32}, entry.Options)
	require.NotNil(t, entry.DisplayName)
	assert.Equal(t, "Google", *entry.DisplayName)
	assert.Nil(t, entry.Notes)
}

func TestParseRejects(t *testing.T) {
	entry := `{"url":"u","username":"n","options":{"generation":1,"length":8},"generatorOptions":"recommended2024"}`
	settings := `{"defaultGeneratorOptions":"recommended2024","encrypt":false}`
	id := "6f1c2a8e-4b3d-4a8e-9d1f-0c2b3a4d5e6f"

	tests := map[string]string{
		"not json":               `settings: {}`,
		"array":                  `[]`,
		"missing entries":        `{"settings":` + settings + `}`,
		"missing settings":       `{"entries":{}}`,
		"capitalized key":        `{"Settings":` + settings + `,"entries":{}}`,
		"snake case setting":     `{"settings":{"default_generator_options":"recommended2024","encrypt":false},"entries":{}}`,
		"missing encrypt":        `{"settings":{"defaultGeneratorOptions":"recommended2024"},"entries":{}}`,
		"null entries":           `{"settings":` + settings + `,"entries":null}`,
		"bad uuid key":           `{"settings":` + settings + `,"entries":{"account-1":` + entry + `}}`,
		"duplicate id forms":     `{"settings":` + settings + `,"entries":{"` + id + `":` + entry + `,"urn:uuid:` + id + `":` + entry + `}}`,
		"entry missing url":      `{"settings":` + settings + `,"entries":{"` + id + `":{"username":"n","options":{"generation":1,"length":8},"generatorOptions":"recommended2024"}}}`,
		"options missing length": `{"settings":` + settings + `,"entries":{"` + id + `":{"url":"u","username":"n","options":{"generation":1},"generatorOptions":"recommended2024"}}}`,
		"envelope shape":         `{"iv":"AAAAAAAAAAAAAAAA","store":"AAAA"}`,
	}

	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			v, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrParse)
			assert.Nil(t, v)
		})
	}
}

func TestMarshalPlainRoundTrip(t *testing.T) {
	original := sampleVault()

	data, err := MarshalPlain(original)
	require.NoError(t, err)

	parsed, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, original, parsed)
}

func TestMarshalPlainFieldNames(t *testing.T) {
	v := New(Settings{})
	v.Entries[uuid.MustParse("6f1c2a8e-4b3d-4a8e-9d1f-0c2b3a4d5e6f")] = Entry{
		URL:      "u",
		Username: "n",
		Options:  FormatOptions{Generation: 2, Length: 10},
	}

	data, err := MarshalPlain(v)
	require.NoError(t, err)

	assert.JSONEq(t, `{
	  "settings": {"defaultGeneratorOptions": "recommended2024", "encrypt": false},
	  "entries": {
	    "6f1c2a8e-4b3d-4a8e-9d1f-0c2b3a4d5e6f": {
	      "url": "u", "username": "n",
	      "options": {"generation": 2, "length": 10},
	      "generatorOptions": "recommended2024"
	    }
	  }
	}`, string(data))
}

func TestMarshalPlainNilEntries(t *testing.T) {
	data, err := json.Marshal(&Vault{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"settings":{"defaultGeneratorOptions":"recommended2024","encrypt":false},"entries":{}}`, string(data))
}

func TestEntryAccount(t *testing.T) {
	entry := Entry{
		URL:         "www.google.com",
		Username:    "jondoe@gmail.com",
		Options:     FormatOptions{Generation: 1, Length: 32},
		Profile:     generator.CustomProfile(generator.CostProfile{Iterations: 15, MemorySizeKiB: 2048, Parallelism: 2}),
		DisplayName: strPtr("Google"),
		Notes:       strPtr("ignored by derivation"),
	}

	password, err := generator.Generate("hunter2", entry.Account())
	require.NoError(t, err)
	assert.Equal(t, "h5cTlQyD0lyC42l2A6im6evdb4PAlTNS", password)
}

func TestVaultCollection(t *testing.T) {
	v := New(Settings{})
	id := v.Add(Entry{URL: "b.example", Username: "bob"})
	other := v.Add(Entry{URL: "a.example", Username: "alice", DisplayName: strPtr("Zed")})
	assert.NotEqual(t, id, other)

	entry, err := v.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "bob", entry.Username)

	entry.Options.Generation = 2
	require.NoError(t, v.Put(id, entry))
	entry, err = v.Get(id)
	require.NoError(t, err)
	assert.Equal(t, uint(2), entry.Options.Generation)

	sorted := v.Sorted()
	require.Len(t, sorted, 2)
	assert.Equal(t, id, sorted[0].ID, "b.example sorts before display name Zed")
	assert.Equal(t, other, sorted[1].ID)

	require.NoError(t, v.Remove(id))
	_, err = v.Get(id)
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assert.ErrorIs(t, v.Remove(id), ErrEntryNotFound)
	assert.ErrorIs(t, v.Put(id, entry), ErrEntryNotFound)
}

func TestAddOnZeroVault(t *testing.T) {
	var v Vault
	id := v.Add(Entry{URL: "x"})
	assert.Contains(t, v.Entries, id)
}
