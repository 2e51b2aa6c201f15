package viewmodel

import (
	"github.com/peterbourgon/diskv/v3"

	"github.com/DemianF-dev/7pet-mvp-sub004/internal/agenda"
)

// DiskPrefs persists display preferences next to the cache snapshot.
type DiskPrefs struct {
	d *diskv.Diskv
}

// NewDiskPrefs opens the preference directory.
func NewDiskPrefs(basePath string) *DiskPrefs {
	return &DiskPrefs{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 64 * 1024,
	})}
}

func viewModeKey(domain agenda.Domain) string {
	return "viewmode-" + string(domain)
}

func (p *DiskPrefs) SaveViewMode(domain agenda.Domain, mode ViewMode) error {
	return p.d.Write(viewModeKey(domain), []byte(mode))
}

func (p *DiskPrefs) LoadViewMode(domain agenda.Domain) (ViewMode, bool) {
	raw, err := p.d.Read(viewModeKey(domain))
	if err != nil {
		return "", false
	}
	mode := ViewMode(raw)
	switch mode {
	case ModeDay, ModeWeek, ModeMonth, ModeList, ModeCompact:
		return mode, true
	}
	return "", false
}
