package profile

import (
	"errors"
	"testing"

	"github.com/mtyszkiewicz/onkyo-ctl/internal/infrastructure/config"
)

func defaultCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := FromConfig(config.DefaultProfiles())
	if err != nil {
		t.Fatalf("FromConfig(defaults) error = %v", err)
	}
	return c
}

func TestCatalog_LookupBySelector(t *testing.T) {
	c := defaultCatalog(t)

	for _, p := range c.All() {
		t.Run(p.Name, func(t *testing.T) {
			got := c.LookupBySelector(p.Selector)
			if got != p {
				t.Errorf("LookupBySelector(%q) = %+v, want %+v", p.Selector, got, p)
			}
		})
	}
}

func TestCatalog_LookupBySelectorUnknown(t *testing.T) {
	c := defaultCatalog(t)

	tests := []string{"fm", "", "TV", "video2", "cbl,sat", "dvd,bd"}
	for _, sel := range tests {
		got := c.LookupBySelector(sel)
		if !got.IsUnknown() {
			t.Errorf("LookupBySelector(%q) = %+v, want unknown", sel, got)
		}
		if got.Selector != sel {
			t.Errorf("LookupBySelector(%q).Selector = %q", sel, got.Selector)
		}
	}
}

func TestCatalog_Lookup(t *testing.T) {
	c := defaultCatalog(t)

	p, err := c.Lookup("dj")
	if err != nil {
		t.Fatalf("Lookup(dj) error = %v", err)
	}
	want := Profile{Name: "dj", Selector: "dvd,bd,dvd", VolumeLevel: 27, SubwooferLevel: -8, MaxVolume: 35}
	if p != want {
		t.Errorf("Lookup(dj) = %+v, want %+v", p, want)
	}

	for _, name := range []string{"DJ", "movie", "", UnknownName} {
		if _, err := c.Lookup(name); !errors.Is(err, ErrProfileNotFound) {
			t.Errorf("Lookup(%q) error = %v, want ErrProfileNotFound", name, err)
		}
	}
}

func TestCatalog_AllPreservesOrder(t *testing.T) {
	c := defaultCatalog(t)
	all := c.All()

	want := []string{"tv", "dj", "vinyl", "spotify"}
	if len(all) != len(want) || c.Len() != len(want) {
		t.Fatalf("All() returned %d profiles, want %d", len(all), len(want))
	}
	for i, name := range want {
		if all[i].Name != name {
			t.Errorf("All()[%d] = %q, want %q", i, all[i].Name, name)
		}
	}

	// Mutating the copy must not affect the catalog.
	all[0].VolumeLevel = 99
	if p, _ := c.Lookup("tv"); p.VolumeLevel != 20 {
		t.Error("All() exposed internal state")
	}
}

func TestNew_Errors(t *testing.T) {
	valid := Profile{Name: "tv", Selector: "tv", VolumeLevel: 20, MaxVolume: 28}

	tests := []struct {
		name     string
		profiles []Profile
		wantErr  error
	}{
		{"duplicate name", []Profile{valid, {Name: "tv", Selector: "phono", MaxVolume: 30}}, ErrDuplicateProfile},
		{"duplicate selector", []Profile{valid, {Name: "tv2", Selector: "tv", MaxVolume: 30}}, ErrDuplicateSelector},
		{"empty name", []Profile{{Selector: "tv", MaxVolume: 30}}, ErrInvalidProfile},
		{"reserved name", []Profile{{Name: UnknownName, Selector: "tv", MaxVolume: 30}}, ErrInvalidProfile},
		{"empty selector", []Profile{{Name: "tv", MaxVolume: 30}}, ErrInvalidProfile},
		{"volume above max", []Profile{{Name: "tv", Selector: "tv", VolumeLevel: 31, MaxVolume: 30}}, ErrInvalidProfile},
		{"negative volume", []Profile{{Name: "tv", Selector: "tv", VolumeLevel: -1, MaxVolume: 30}}, ErrInvalidProfile},
		{"max volume too high", []Profile{{Name: "tv", Selector: "tv", MaxVolume: 101}}, ErrInvalidProfile},
		{"subwoofer too low", []Profile{{Name: "tv", Selector: "tv", SubwooferLevel: -9, MaxVolume: 30}}, ErrInvalidProfile},
		{"subwoofer too high", []Profile{{Name: "tv", Selector: "tv", SubwooferLevel: 9, MaxVolume: 30}}, ErrInvalidProfile},
		{"unknown selector", []Profile{{Name: "tv", Selector: "television", MaxVolume: 30}}, ErrInvalidProfile},
		{"duplicate selector by alias", []Profile{
			{Name: "cable", Selector: "cbl", MaxVolume: 30},
			{Name: "sat", Selector: "video2,cbl,sat", MaxVolume: 30},
		}, ErrDuplicateSelector},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.profiles)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_BoundaryLevelsAccepted(t *testing.T) {
	_, err := New([]Profile{
		{Name: "low", Selector: "fm", SubwooferLevel: -8, MaxVolume: 30},
		{Name: "high", Selector: "am", SubwooferLevel: 8, MaxVolume: 30},
	})
	if err != nil {
		t.Fatalf("New() error = %v, want boundary levels accepted", err)
	}
}

func TestNew_SelectorsStoredInReportedForm(t *testing.T) {
	tests := []struct {
		selector string
		want     string
	}{
		{"cbl", "video2,cbl,sat"},
		{"video2,cbl,sat", "video2,cbl,sat"},
		{"01", "video2,cbl,sat"},
		{"phono", "phono"},
		{"2F", "2F"},
	}

	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			c, err := New([]Profile{{Name: "p", Selector: tt.selector, MaxVolume: 30}})
			if err != nil {
				t.Fatalf("New() error = %v", err)
			}
			got := c.LookupBySelector(tt.want)
			if got.Name != "p" {
				t.Errorf("LookupBySelector(%q) = %+v, want profile p", tt.want, got)
			}
			if p, _ := c.Lookup("p"); p.Selector != tt.want {
				t.Errorf("Selector = %q, want %q", p.Selector, tt.want)
			}
		})
	}
}
