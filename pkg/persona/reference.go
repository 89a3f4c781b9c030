package persona

import (
	"log"
	"os"
	"path/filepath"
)

// Resolver picks the persona reference image to condition generation on.
type Resolver struct {
	paths   []string
	dataDir string
}

// NewResolver takes the configured paths in priority order. Relative paths are looked
// up under dataDir.
func NewResolver(paths []string, dataDir string) *Resolver {
	return &Resolver{
		paths:   append([]string(nil), paths...),
		dataDir: dataDir,
	}
}

// Resolve returns the first configured path that is a regular file, or "" if none is.
func (r *Resolver) Resolve() string {
	if len(r.paths) == 0 {
		log.Println("[Persona] No reference image configured")
		return ""
	}

	for i, p := range r.paths {
		if p == "" {
			continue
		}
		candidate := p
		if !filepath.IsAbs(p) && r.dataDir != "" {
			candidate = filepath.Join(r.dataDir, p)
		}
		info, err := os.Stat(candidate)
		if err != nil {
			log.Printf("[Persona] Reference image %d not found: %s", i, candidate)
			continue
		}
		if !info.Mode().IsRegular() {
			log.Printf("[Persona] Reference image %d is not a regular file: %s", i, candidate)
			continue
		}
		log.Printf("[Persona] Using reference image: %s", candidate)
		return candidate
	}

	log.Println("[Persona] No valid reference image found, generating without one")
	return ""
}
