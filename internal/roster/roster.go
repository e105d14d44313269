// Package roster resolves free-text names to known participants and users.
package roster

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"gopkg.in/yaml.v3"

	"clinic-agent/internal/textnorm"
)

type Kind string

const (
	KindParticipant Kind = "participant"
	KindUser        Kind = "user"
)

type Person struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Kind  Kind   `json:"kind"`
}

// Aliases maps a canonical name to its nickname and spelling variants.
type Aliases map[string][]string

type aliasFile struct {
	Aliases Aliases `yaml:"aliases"`
}

// LoadAliases reads an alias table from a yaml file. A missing file yields an
// empty table.
func LoadAliases(path string) (Aliases, error) {
	if path == "" {
		return Aliases{}, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Aliases{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read aliases: %w", err)
	}
	var f aliasFile
	if err := yaml.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("parse aliases %s: %w", path, err)
	}
	if f.Aliases == nil {
		f.Aliases = Aliases{}
	}
	return f.Aliases, nil
}

// Resolver matches names against a roster. It holds no state beyond the
// alias table it was built with.
type Resolver struct {
	groups [][]string
}

func NewResolver(aliases Aliases) *Resolver {
	keys := make([]string, 0, len(aliases))
	for k := range aliases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	r := &Resolver{}
	for _, k := range keys {
		group := []string{textnorm.Fold(k)}
		for _, v := range aliases[k] {
			if f := textnorm.Fold(v); f != "" {
				group = append(group, f)
			}
		}
		r.groups = append(r.groups, group)
	}
	return r
}

// variants returns the folded name followed by every alias in a group that
// contains it.
func (r *Resolver) variants(name string) []string {
	n := textnorm.Fold(name)
	if n == "" {
		return nil
	}
	out := []string{n}
	seen := map[string]bool{n: true}
	for _, g := range r.groups {
		if !contains(g, n) {
			continue
		}
		for _, v := range g {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

// Resolve finds the person a name refers to: exact name or email, then
// substring containment either way, then first name.
func (r *Resolver) Resolve(name string, people []Person) (Person, bool) {
	vs := r.variants(name)
	if len(vs) == 0 || len(people) == 0 {
		return Person{}, false
	}

	for _, v := range vs {
		for _, p := range people {
			email := textnorm.Fold(p.Email)
			if textnorm.Fold(p.Name) == v || (email != "" && (email == v || emailLocal(email) == v)) {
				return p, true
			}
		}
	}

	for _, v := range vs {
		if len([]rune(v)) < 3 {
			continue
		}
		for _, p := range people {
			pn := textnorm.Fold(p.Name)
			if len([]rune(pn)) < 3 {
				continue
			}
			if strings.Contains(pn, v) || strings.Contains(v, pn) {
				return p, true
			}
		}
	}

	for _, v := range vs {
		first := firstWord(v)
		for _, p := range people {
			if pf := firstWord(textnorm.Fold(p.Name)); pf != "" && pf == first {
				return p, true
			}
		}
	}

	return Person{}, false
}

// Suggest ranks people by fuzzy similarity to name, best first. With an empty
// name it returns the first n people.
func (r *Resolver) Suggest(name string, people []Person, n int) []Person {
	if n <= 0 {
		return nil
	}
	pattern := textnorm.Fold(name)
	if pattern == "" {
		if len(people) > n {
			return people[:n]
		}
		return people
	}

	names := make([]string, len(people))
	for i, p := range people {
		names[i] = textnorm.Fold(p.Name)
	}

	var out []Person
	for _, m := range fuzzy.Find(pattern, names) {
		out = append(out, people[m.Index])
		if len(out) == n {
			break
		}
	}
	return out
}

// LooksLikeName reports whether a reply is plausibly a bare person name.
func LooksLikeName(s string) bool {
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), ".!"))
	if n := len([]rune(s)); n < 2 || n > 50 {
		return false
	}
	if len(strings.Fields(s)) > 4 {
		return false
	}
	for _, r := range s {
		if !unicode.IsLetter(r) && !unicode.IsSpace(r) && r != '-' && r != '\'' && r != '.' {
			return false
		}
	}
	return true
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func emailLocal(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}

func firstWord(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
