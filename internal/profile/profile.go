package profile

import (
	"fmt"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/bridges/eiscp"
	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
)

// UnknownName identifies the synthetic profile for uncataloged selectors.
const UnknownName = "unknown"

// Level bounds accepted in a catalog entry.
const (
	MinSubwooferLevel = -8
	MaxSubwooferLevel = 8
	maxVolumeLimit    = 100
)

// Profile is a named bundle of receiver settings.
type Profile struct {
	Name           string `json:"name"`
	Selector       string `json:"selector"`
	VolumeLevel    int    `json:"volume_level"`
	SubwooferLevel int    `json:"subwoofer_level"`
	MaxVolume      int    `json:"max_volume"`
}

// IsUnknown reports whether p is the synthetic unknown profile.
func (p Profile) IsUnknown() bool {
	return p.Name == UnknownName
}

// Unknown returns the profile reported for a selector with no catalog entry.
func Unknown(selector string) Profile {
	return Profile{Name: UnknownName, Selector: selector}
}

// Validate checks a single catalog entry.
func Validate(p Profile) error {
	switch {
	case p.Name == "":
		return fmt.Errorf("%w: name is required", ErrInvalidProfile)
	case p.Name == UnknownName:
		return fmt.Errorf("%w: name %q is reserved", ErrInvalidProfile, UnknownName)
	case p.Selector == "":
		return fmt.Errorf("%w: %s: selector is required", ErrInvalidProfile, p.Name)
	case p.MaxVolume < 0 || p.MaxVolume > maxVolumeLimit:
		return fmt.Errorf("%w: %s: max volume %d outside 0-%d", ErrInvalidProfile, p.Name, p.MaxVolume, maxVolumeLimit)
	case p.VolumeLevel < 0 || p.VolumeLevel > p.MaxVolume:
		return fmt.Errorf("%w: %s: volume %d outside 0-%d", ErrInvalidProfile, p.Name, p.VolumeLevel, p.MaxVolume)
	case p.SubwooferLevel < MinSubwooferLevel || p.SubwooferLevel > MaxSubwooferLevel:
		return fmt.Errorf("%w: %s: subwoofer level %d outside %d..%d", ErrInvalidProfile, p.Name,
			p.SubwooferLevel, MinSubwooferLevel, MaxSubwooferLevel)
	}
	return nil
}

// Catalog is an immutable set of profiles indexed by name and selector.
//
// Safe for concurrent use; nothing mutates it after New returns.
type Catalog struct {
	profiles   []Profile
	byName     map[string]Profile
	bySelector map[string]Profile
}

// New validates profiles and builds a Catalog. Order is preserved for All.
//
// Selectors are stored in the form the receiver reports them, so an entry
// written as "cbl" or "01" is keyed as "video2,cbl,sat" and matches on
// reverse lookup.
func New(profiles []Profile) (*Catalog, error) {
	c := &Catalog{
		profiles:   make([]Profile, 0, len(profiles)),
		byName:     make(map[string]Profile, len(profiles)),
		bySelector: make(map[string]Profile, len(profiles)),
	}

	for _, p := range profiles {
		if err := Validate(p); err != nil {
			return nil, err
		}
		selector, err := eiscp.CanonicalInputSelector(p.Selector)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidProfile, p.Name, err)
		}
		p.Selector = selector
		if _, exists := c.byName[p.Name]; exists {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateProfile, p.Name)
		}
		if other, exists := c.bySelector[p.Selector]; exists {
			return nil, fmt.Errorf("%w: %q used by %q and %q", ErrDuplicateSelector, p.Selector, other.Name, p.Name)
		}
		c.profiles = append(c.profiles, p)
		c.byName[p.Name] = p
		c.bySelector[p.Selector] = p
	}

	return c, nil
}

// FromConfig builds a Catalog from the configuration's profile list.
func FromConfig(entries []config.ProfileConfig) (*Catalog, error) {
	profiles := make([]Profile, 0, len(entries))
	for _, e := range entries {
		profiles = append(profiles, Profile{
			Name:           e.Name,
			Selector:       e.Selector,
			VolumeLevel:    e.VolumeLevel,
			SubwooferLevel: e.SubwooferLevel,
			MaxVolume:      e.MaxVolume,
		})
	}
	return New(profiles)
}

// Lookup returns the profile with the given name.
func (c *Catalog) Lookup(name string) (Profile, error) {
	p, ok := c.byName[name]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q", ErrProfileNotFound, name)
	}
	return p, nil
}

// LookupBySelector returns the profile whose selector equals selector, or
// Unknown(selector).
func (c *Catalog) LookupBySelector(selector string) Profile {
	if p, ok := c.bySelector[selector]; ok {
		return p
	}
	return Unknown(selector)
}

// All returns the profiles in catalog order.
func (c *Catalog) All() []Profile {
	out := make([]Profile, len(c.profiles))
	copy(out, c.profiles)
	return out
}

// Len returns the number of profiles.
func (c *Catalog) Len() int {
	return len(c.profiles)
}
