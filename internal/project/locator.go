package project

import (
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// Locate scans root recursively for project markers and returns the
// discovered projects ordered by descending marker modification time, so the
// most recently created or touched project comes first and wins precedence in
// later merges. Ties keep traversal order.
//
// A missing or unreadable root yields an empty set: a source tree with zero
// projects is a legitimate state, not a failure.
func Locate(root string) []Project {
	var found []Project
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			log.Debug().Str("path", path).Err(walkErr).Msg("skipping unreadable path")
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() || d.Name() != MarkerFile {
			return nil
		}
		markerDir := filepath.Dir(path)
		if filepath.Base(markerDir) != MarkerDir {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("skipping malformed project marker")
			return nil
		}
		projectRoot := filepath.Dir(markerDir)
		found = append(found, Project{
			Name:         filepath.Base(projectRoot),
			Root:         projectRoot,
			DiscoveredAt: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		log.Debug().Str("root", root).Err(err).Msg("project discovery aborted")
		return nil
	}

	sort.SliceStable(found, func(i, j int) bool {
		return found[i].DiscoveredAt.After(found[j].DiscoveredAt)
	})
	return found
}
