package generator

import "testing"

func benchmarkGenerate(b *testing.B, profile Profile) {
	account := Account{
		URL:        "www.google.com",
		Username:   "jondoe@gmail.com",
		Generation: 1,
		Length:     32,
		Profile:    profile,
	}
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		if _, err := Generate("benchmark-passphrase", account); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGenerateRecommended2024(b *testing.B) {
	benchmarkGenerate(b, RecommendedProfile(Recommended2024))
}

func BenchmarkGenerateCustom(b *testing.B) {
	benchmarkGenerate(b, CustomProfile(CostProfile{Iterations: 15, MemorySizeKiB: 2048, Parallelism: 2}))
}

func BenchmarkGenerateParallel(b *testing.B) {
	account := Account{URL: "example.org", Username: "me", Generation: 1, Length: 32,
		Profile: CustomProfile(CostProfile{Iterations: 1, MemorySizeKiB: 64, Parallelism: 1})}
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := Generate("benchmark-passphrase", account); err != nil {
				b.Error(err)
				return
			}
		}
	})
}
