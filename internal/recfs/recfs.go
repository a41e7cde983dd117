// Package recfs exposes finished DVR recordings as a read-only FUSE tree,
// organized "<channel>/<title>.<suffix>" to mirror the on-disk layout the
// filename grammar in internal/dvr produces. Adapted from the teacher's
// vodfs, which served the same go-fuse.v2 job for VOD movies/series; this
// version reads real files already sitting on disk instead of
// materializing a stream on demand.
package recfs

import (
	"sort"
	"strconv"
)

// Recording is one finished, playable DVR file.
type Recording struct {
	Channel string
	Title   string
	Suffix  string
	Path    string
}

func uniqueChannelNames(recordings []Recording) []string {
	seen := make(map[string]bool, len(recordings))
	var names []string
	for _, r := range recordings {
		if r.Channel == "" || seen[r.Channel] {
			continue
		}
		seen[r.Channel] = true
		names = append(names, r.Channel)
	}
	sort.Strings(names)
	return names
}

func fileName(r *Recording) string {
	if r.Suffix == "" {
		return r.Title
	}
	return r.Title + "." + r.Suffix
}

// uniqueFileNames disambiguates same-title recordings within one channel
// the way the teacher's buildUniqueMovieDirNames disambiguates same-title
// movies: a unique name stays bare; when a name occurs more than once,
// every occurrence, the first included, becomes "Title [N].suffix" with N
// counting from 1.
func uniqueFileNames(recordings []Recording, indexes []int) map[int]string {
	counts := make(map[string]int, len(indexes))
	for _, idx := range indexes {
		counts[fileName(&recordings[idx])]++
	}
	seenSoFar := make(map[string]int, len(indexes))
	out := make(map[int]string, len(indexes))
	for _, idx := range indexes {
		r := &recordings[idx]
		base := fileName(r)
		if counts[base] <= 1 {
			out[idx] = base
			continue
		}
		seenSoFar[base]++
		n := strconv.Itoa(seenSoFar[base])
		if r.Suffix == "" {
			out[idx] = base + " [" + n + "]"
		} else {
			out[idx] = r.Title + " [" + n + "]." + r.Suffix
		}
	}
	return out
}
