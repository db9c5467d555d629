package artifact

import (
	"time"
)

// Manifest describes one generation run and the files it produced.
type Manifest struct {
	RunID      string    `json:"run_id"`
	CreatedAt  time.Time `json:"created_at"`
	Method     string    `json:"method"`
	Length     int       `json:"partition_length"`
	Size       int       `json:"session_size"`
	Seed       uint64    `json:"seed"`
	Format     string    `json:"format"`
	Compressed bool      `json:"compressed"`

	Inputs map[string]string `json:"inputs,omitempty"` // role -> sha256
	Files  []FileEntry       `json:"files"`
}

// FileEntry is one written session file.
type FileEntry struct {
	Role     string `json:"role"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Sessions int    `json:"sessions"`
	Items    int    `json:"items"`
	Bytes    int    `json:"bytes"`
	SHA256   string `json:"sha256"`
}

// File returns the entry for role, if present.
func (m *Manifest) File(role string) (FileEntry, bool) {
	for _, f := range m.Files {
		if f.Role == role {
			return f, true
		}
	}
	return FileEntry{}, false
}
