package github

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

// Kind distinguishes issue links from pull request links.
type Kind string

const (
	KindIssue Kind = "issues"
	KindPull  Kind = "pull"
)

// Reference points at one issue or pull request. References are comparable;
// two references are the same when all four fields are equal.
type Reference struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Kind   Kind   `json:"kind"`
	Number int    `json:"number"`
}

// String returns the short owner/repo#number form.
func (r Reference) String() string {
	return fmt.Sprintf("%s/%s#%d", r.Owner, r.Repo, r.Number)
}

// Subtitle is the card subtitle for the reference: "#42 in acme/widgets".
func (r Reference) Subtitle() string {
	return fmt.Sprintf("#%d in %s/%s", r.Number, r.Owner, r.Repo)
}

var (
	patternsMu sync.Mutex
	patterns   = map[string]*regexp.Regexp{}
)

// referencePattern compiles (once per base URL) the case-insensitive pattern
// <base>/<owner>/<repo>/(issues|pull)/<number>.
func referencePattern(baseURL string) *regexp.Regexp {
	patternsMu.Lock()
	defer patternsMu.Unlock()

	if re, ok := patterns[baseURL]; ok {
		return re
	}
	re := regexp.MustCompile(`(?i)` + regexp.QuoteMeta(baseURL) + `/(\S+)/(\S+)/(issues|pull)/(\d+)`)
	patterns[baseURL] = re
	return re
}

// ExtractReferences returns every issue and pull request reference under
// baseURL found in text, first occurrence first, without duplicates.
// It never fails; text without links yields an empty slice.
func ExtractReferences(text, baseURL string) []Reference {
	baseURL = strings.TrimRight(baseURL, "/")
	matches := referencePattern(baseURL).FindAllStringSubmatch(text, -1)

	refs := make([]Reference, 0, len(matches))
	seen := make(map[Reference]struct{}, len(matches))
	for _, m := range matches {
		number, err := strconv.Atoi(m[4])
		if err != nil {
			// Digits only, so this is an overflow; no such issue exists.
			continue
		}
		ref := Reference{
			Owner:  m[1],
			Repo:   m[2],
			Kind:   Kind(strings.ToLower(m[3])),
			Number: number,
		}
		if _, dup := seen[ref]; dup {
			continue
		}
		seen[ref] = struct{}{}
		refs = append(refs, ref)
	}
	return refs
}
