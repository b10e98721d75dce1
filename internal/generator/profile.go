package generator

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rehash-cli/rehash/internal/util"
)

var (
	// ErrIncompleteCustomProfile is returned when only some of the custom
	// cost parameters are supplied.
	ErrIncompleteCustomProfile = errors.New("incomplete custom profile: iterations, memory size and parallelism must all be set together")
	// ErrUnknownProfile is returned for a recommendation this build does not know.
	ErrUnknownProfile = errors.New("unknown recommended profile")
)

// CostProfile holds the Argon2id cost parameters.
type CostProfile struct {
	Iterations    uint32 `json:"iterations"`
	MemorySizeKiB uint32 `json:"memorySize"`
	Parallelism   uint32 `json:"parallelism"`
}

// Recommendation names a fixed, published cost profile.
type Recommendation uint8

const (
	// Recommended2024 is 16 iterations over 16 MiB with 2 lanes.
	Recommended2024 Recommendation = iota
)

const recommended2024Tag = "recommended2024"

func (r Recommendation) String() string {
	switch r {
	case Recommended2024:
		return recommended2024Tag
	default:
		return fmt.Sprintf("Recommendation(%d)", uint8(r))
	}
}

// ProfileKind tags which variant a Profile holds.
type ProfileKind uint8

const (
	KindRecommended ProfileKind = iota
	KindCustom
)

// Profile selects the cost parameters for a derivation: either a named
// recommendation or an explicit custom CostProfile. The zero value selects
// Recommended2024.
type Profile struct {
	Kind        ProfileKind
	Recommended Recommendation
	Custom      CostProfile
}

// RecommendedProfile selects the named recommendation r.
func RecommendedProfile(r Recommendation) Profile {
	return Profile{Kind: KindRecommended, Recommended: r}
}

// CustomProfile selects the explicit parameters c, used verbatim.
func CustomProfile(c CostProfile) Profile {
	return Profile{Kind: KindCustom, Custom: c}
}

// Resolve returns the concrete cost parameters the profile stands for.
func (p Profile) Resolve() (CostProfile, error) {
	switch p.Kind {
	case KindRecommended:
		switch p.Recommended {
		case Recommended2024:
			return CostProfile{Iterations: 16, MemorySizeKiB: 16384, Parallelism: 2}, nil
		default:
			return CostProfile{}, fmt.Errorf("%w: %s", ErrUnknownProfile, p.Recommended)
		}
	case KindCustom:
		return p.Custom, nil
	default:
		return CostProfile{}, fmt.Errorf("%w: kind %d", ErrUnknownProfile, p.Kind)
	}
}

func (p Profile) String() string {
	if p.Kind == KindCustom {
		return fmt.Sprintf("custom(t=%d, m=%dKiB, p=%d)", p.Custom.Iterations, p.Custom.MemorySizeKiB, p.Custom.Parallelism)
	}
	return p.Recommended.String()
}

// ResolveOverrides turns optional command line overrides into a Profile.
// None set selects Recommended2024, all three set selects that custom
// profile, anything in between is an error.
func ResolveOverrides(iterations, memorySizeKiB, parallelism *uint32) (Profile, error) {
	switch {
	case iterations == nil && memorySizeKiB == nil && parallelism == nil:
		return RecommendedProfile(Recommended2024), nil
	case iterations != nil && memorySizeKiB != nil && parallelism != nil:
		return CustomProfile(CostProfile{
			Iterations:    *iterations,
			MemorySizeKiB: *memorySizeKiB,
			Parallelism:   *parallelism,
		}), nil
	default:
		return Profile{}, ErrIncompleteCustomProfile
	}
}

// MarshalJSON encodes a recommendation as its tag string and a custom
// profile as an {iterations, memorySize, parallelism} object.
func (p Profile) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindRecommended:
		if p.Recommended != Recommended2024 {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProfile, p.Recommended)
		}
		return json.Marshal(recommended2024Tag)
	case KindCustom:
		return json.Marshal(p.Custom)
	default:
		return nil, fmt.Errorf("%w: kind %d", ErrUnknownProfile, p.Kind)
	}
}

// UnmarshalJSON accepts either form written by MarshalJSON.
func (p *Profile) UnmarshalJSON(data []byte) error {
	var tag string
	if err := json.Unmarshal(data, &tag); err == nil {
		if tag != recommended2024Tag {
			return fmt.Errorf("%w: %q", ErrUnknownProfile, tag)
		}
		*p = RecommendedProfile(Recommended2024)
		return nil
	}

	fields, err := util.StrictObject(data, []string{"iterations", "memorySize", "parallelism"}, nil)
	if err != nil {
		return fmt.Errorf("generator options: %w", err)
	}

	var c CostProfile
	if err := util.DecodeField(fields, "iterations", &c.Iterations); err != nil {
		return err
	}
	if err := util.DecodeField(fields, "memorySize", &c.MemorySizeKiB); err != nil {
		return err
	}
	if err := util.DecodeField(fields, "parallelism", &c.Parallelism); err != nil {
		return err
	}

	*p = CustomProfile(c)
	return nil
}
