package vault

import (
	"github.com/google/uuid"

	"github.com/rehash-cli/rehash/internal/generator"
)

func strPtr(s string) *string { return &s }

func sampleVault() *Vault {
	v := New(Settings{DefaultProfile: generator.RecommendedProfile(generator.Recommended2024), Encrypt: true})
	v.Entries[uuid.MustParse("6f1c2a8e-4b3d-4a8e-9d1f-0c2b3a4d5e6f")] = Entry{
		URL:         "www.google.com",
		Username:    "jondoe@gmail.com",
		Options:     FormatOptions{Generation: 1, Length: 32},
		Profile:     generator.CustomProfile(generator.CostProfile{Iterations: 15, MemorySizeKiB: 2048, Parallelism: 2}),
		DisplayName: strPtr("Google"),
		Notes:       strPtr("personal account"),
	}
	v.Entries[uuid.MustParse("0a9b8c7d-6e5f-4a3b-8c2d-1e0f9a8b7c6d")] = Entry{
		URL:      "github.com",
		Username: "jondoe",
		Options:  FormatOptions{Generation: 4, Length: 20},
		Profile:  generator.RecommendedProfile(generator.Recommended2024),
	}
	return v
}
