// Package pathcodec implements the bijective-modulo-filesystem mapping
// between a working-directory path and the flat directory name Claude-style
// transcript trees use as the parent of a session's JSONL files.
package pathcodec

import (
	"path/filepath"
	"strings"
)

// Encode returns a name that is safe as a single directory component and
// that Decode can invert. Directory separators become a single hyphen;
// a component beginning with a dot (a hidden directory) is preceded by a
// doubled hyphen instead, with its own leading dot stripped, so Decode can
// tell the two cases apart without touching the filesystem.
func Encode(path string) string {
	vol := filepath.VolumeName(path)
	rest := filepath.ToSlash(path[len(vol):])
	if vol == "" && hasDriveLetter(path) {
		vol = path[:2]
		rest = strings.ReplaceAll(path[2:], `\`, "/")
	}

	leadingSlash := strings.HasPrefix(rest, "/")
	rest = strings.TrimPrefix(rest, "/")
	rest = strings.TrimSuffix(rest, "/")

	var comps []string
	if rest != "" && rest != "." {
		comps = strings.Split(rest, "/")
	}

	var b strings.Builder
	b.WriteString(vol)
	if leadingSlash {
		b.WriteString("-")
	}
	for i, c := range comps {
		if i > 0 {
			b.WriteString("-")
		}
		if strings.HasPrefix(c, ".") {
			b.WriteString("-")
			b.WriteString(c[1:])
		} else {
			b.WriteString(c)
		}
	}
	return b.String()
}

// token is one component of a tokenized encoded name: the number of
// hyphens that preceded it (its "separator width") and its literal text.
type token struct {
	sep  int
	text string
}

func tokenize(s string) []token {
	var toks []token
	i, n := 0, len(s)
	for i < n {
		j := i
		for j < n && s[j] == '-' {
			j++
		}
		sep := j - i
		i = j

		k := i
		for k < n && s[k] != '-' {
			k++
		}
		toks = append(toks, token{sep: sep, text: s[i:k]})
		i = k
	}
	return toks
}

// hasDriveLetter reports whether name starts with a Windows-style drive
// letter ("C:", "d:", ...). encode never places a hyphen between the drive
// letter and what follows, so this prefix is unambiguous.
func hasDriveLetter(name string) bool {
	return len(name) >= 2 &&
		((name[0] >= 'A' && name[0] <= 'Z') || (name[0] >= 'a' && name[0] <= 'z')) &&
		name[1] == ':'
}

// Decode inverts Encode. Without a disambiguation callback it applies the
// deterministic rule: every single hyphen is a path separator, every
// doubled hyphen marks a hidden-directory boundary. A path component that
// itself contains a literal hyphen is therefore ambiguous in the default
// decode; pass a non-nil exists callback (see DecodeWithProbe) to resolve
// that case by consulting the filesystem.
func Decode(name string) string {
	return DecodeWithProbe(name, nil)
}

// DecodeWithProbe decodes name like Decode, but when exists is non-nil it
// is used to resolve runs of literal hyphens inside a single path
// component: for each stretch of consecutive single-hyphen boundaries,
// DecodeWithProbe tries the longest merged component first and keeps
// merging while the reconstructed prefix exists on disk, falling back to
// the fully-split (deterministic) reading when exists never returns true.
// exists receives an absolute path and should report whether something is
// there. The codec never calls exists itself when the callback is nil, so
// it otherwise stays pure and total.
func DecodeWithProbe(name string, exists func(path string) bool) string {
	vol := ""
	rest := name
	if hasDriveLetter(rest) {
		vol = rest[:2]
		rest = rest[2:]
	}

	toks := tokenize(rest)
	comps := make([]component, 0, len(toks))
	for i, t := range toks {
		if t.text == "" && !(i == 0 && t.sep > 0) {
			continue
		}
		hidden := false
		extra := 0
		switch {
		case i == 0 && t.sep == 0:
			// relative path, no root separator
		case t.sep >= 2:
			hidden = true
			extra = t.sep - 2
		}
		comps = append(comps, component{hidden: hidden, extraHyphens: extra, text: t.text})
	}

	if exists != nil {
		comps = mergeAmbiguous(vol, comps, exists)
	}

	var b strings.Builder
	b.WriteString(vol)
	absolute := vol != "" || (len(toks) > 0 && toks[0].sep > 0)
	for i, c := range comps {
		if i == 0 {
			if absolute {
				b.WriteString("/")
			}
		} else {
			b.WriteString("/")
		}
		if c.hidden {
			b.WriteString(".")
			b.WriteString(strings.Repeat("-", c.extraHyphens))
		}
		b.WriteString(c.text)
	}
	if len(comps) == 0 && absolute {
		return b.String() + "/"
	}
	return b.String()
}

type component struct {
	hidden       bool
	extraHyphens int
	text         string
}

// mergeAmbiguous greedily merges adjacent non-hidden components (which were
// split on what might really be a literal hyphen) back together whenever
// the merged prefix exists on disk, preferring the longest such merge.
func mergeAmbiguous(vol string, comps []component, exists func(string) bool) []component {
	if len(comps) == 0 {
		return comps
	}
	out := make([]component, 0, len(comps))
	i := 0
	prefix := vol
	for i < len(comps) {
		if comps[i].hidden {
			prefix += "/" + "." + strings.Repeat("-", comps[i].extraHyphens) + comps[i].text
			out = append(out, comps[i])
			i++
			continue
		}
		// find the run of consecutive non-hidden components starting at i
		j := i
		for j < len(comps) && !comps[j].hidden {
			j++
		}
		run := comps[i:j]
		merged := mergeRun(prefix, run, exists)
		out = append(out, merged...)
		for _, c := range merged {
			prefix += "/" + c.text
		}
		i = j
	}
	return out
}

// mergeRun tries progressively shorter total merges of a run of plain
// components, from "all of them joined by hyphens into one component" down
// to a single component, taking the first that the exists callback
// confirms. When none is confirmed, the first component is kept on its own
// and the rest of the run is resolved the same way under it.
func mergeRun(prefix string, run []component, exists func(string) bool) []component {
	for size := len(run); size >= 1; size-- {
		candidateText := run[0].text
		for k := 1; k < size; k++ {
			candidateText += "-" + run[k].text
		}
		if exists(prefix + "/" + candidateText) {
			rest := run[size:]
			if len(rest) == 0 {
				return []component{{text: candidateText}}
			}
			return append([]component{{text: candidateText}}, mergeRun(prefix+"/"+candidateText, rest, exists)...)
		}
	}
	if len(run) <= 1 {
		return run
	}
	return append([]component{run[0]}, mergeRun(prefix+"/"+run[0].text, run[1:], exists)...)
}
