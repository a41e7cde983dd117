package dvr

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/ncruces/go-strftime"
)

// sanitizeComponent converts one path component to a filesystem-safe form:
// fall back non-ASCII runes to '_' when charset requests an ASCII-safe
// target (the engine does not carry a full iconv table; charset == "" is
// UTF-8 passthrough), replace a leading '.' (avoid hidden files), turn '/'
// into '-', optionally collapse whitespace to '-', and optionally (clean)
// replace every non-printable or reserved character with '_'.
func sanitizeComponent(s, charset string, replaceWhitespace, clean bool) string {
	if s == "" {
		return s
	}
	if charset != "" {
		var b strings.Builder
		for _, r := range s {
			if r > unicode.MaxASCII {
				b.WriteByte('_')
			} else {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}
	if strings.HasPrefix(s, ".") {
		s = "_" + s[1:]
	}
	s = strings.ReplaceAll(s, "/", "-")
	if replaceWhitespace {
		var b strings.Builder
		prevSpace := false
		for _, r := range s {
			if unicode.IsSpace(r) {
				if !prevSpace {
					b.WriteByte('-')
				}
				prevSpace = true
				continue
			}
			prevSpace = false
			b.WriteRune(r)
		}
		s = b.String()
	}
	if clean {
		const reserved = `/:\<>|*?'"`
		var b strings.Builder
		for _, r := range s {
			if !unicode.IsPrint(r) || strings.ContainsRune(reserved, r) {
				b.WriteByte('_')
			} else {
				b.WriteRune(r)
			}
		}
		s = b.String()
	}
	return s
}

// Layout controls which optional subdirectories BuildPath inserts under the
// storage root, per spec §4.4's "optionally append per-day/per-channel/
// per-title subdirectories".
type Layout struct {
	StorageRoot string
	PerDay      bool
	PerChannel  bool
	PerTitle    bool
	DirMode     os.FileMode
	Charset     string
}

// BuildPath assembles a filesystem path not yet taken on disk for one
// recording, per spec §4.4 and the grammar in spec §6:
// "<storage>/[YYYY-MM-DD/][<chan>/][<title>/]<title-or-formatted>[.-N].<muxer-suffix>".
// exists is injected so tests do not touch the real filesystem; production
// callers pass a func backed by os.Stat. mkdirAll is injected the same way.
func BuildPath(layout Layout, when time.Time, channel, title, suffix string, exists func(string) bool, mkdirAll func(string, os.FileMode) error) (string, error) {
	root := strings.TrimRight(layout.StorageRoot, "/")
	dir := root
	if layout.PerDay {
		dir = filepath.Join(dir, strftime.Format("%F", when))
	}
	if layout.PerChannel && channel != "" {
		dir = filepath.Join(dir, sanitizeComponent(channel, layout.Charset, true, true))
	}
	if layout.PerTitle && title != "" {
		dir = filepath.Join(dir, sanitizeComponent(title, layout.Charset, true, true))
	}
	mode := layout.DirMode
	if mode == 0 {
		mode = 0o755
	}
	if err := mkdirAll(dir, mode); err != nil {
		return "", fmt.Errorf("dvr: mkdir %s: %w", dir, err)
	}

	base := sanitizeComponent(title, layout.Charset, true, true)
	if base == "" {
		base = "recording"
	}
	path := filepath.Join(dir, base+"."+suffix)
	for n := 1; exists(path); n++ {
		path = filepath.Join(dir, fmt.Sprintf("%s-%d.%s", base, n, suffix))
	}
	return path, nil
}
