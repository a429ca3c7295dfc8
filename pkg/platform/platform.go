// Package platform maps logical asset names to physical paths for each
// target the engine ships on.
package platform

import (
	"fmt"
	"path"
	"strings"
)

// Platform identifies a build target.
type Platform uint8

const (
	PC Platform = iota
	Linux
	Android
	IOS
	Bada
)

var names = [...]string{
	PC:      "pc",
	Linux:   "linux",
	Android: "android",
	IOS:     "ios",
	Bada:    "bada",
}

func (p Platform) String() string {
	if int(p) < len(names) {
		return names[p]
	}
	return fmt.Sprintf("platform(%d)", uint8(p))
}

// Parse returns the platform with the given name.
func Parse(s string) (Platform, error) {
	for i, name := range names {
		if strings.EqualFold(s, name) {
			return Platform(i), nil
		}
	}
	return 0, fmt.Errorf("unknown platform %q", s)
}

// PreservesCase reports whether asset names keep their case on p.
func (p Platform) PreservesCase() bool {
	return p == Linux || p == IOS
}

// Flattened reports whether assets are stored without directories on p.
func (p Platform) Flattened() bool {
	return p == Android || p == Bada
}

// Resolver turns logical asset names into filesystem paths. It is immutable
// once created.
type Resolver struct {
	platform Platform
	root     string
}

// NewResolver returns a resolver for p rooted at dataRoot. An empty root
// leaves paths relative to the working directory.
func NewResolver(p Platform, dataRoot string) *Resolver {
	root := strings.ReplaceAll(dataRoot, `\`, "/")
	if root != "" {
		root = path.Clean(root)
	}
	return &Resolver{platform: p, root: root}
}

// Platform returns the resolver's target.
func (r *Resolver) Platform() Platform {
	return r.platform
}

// Root returns the cleaned data root. Its case is never changed.
func (r *Resolver) Root() string {
	return r.root
}

// SystemPath normalizes name into a physical path: backslashes become
// forward slashes, the name's case is folded unless the platform preserves
// it, directories are dropped on flattened platforms, and the data root is
// prepended as given. Applying SystemPath to its own output returns it unchanged.
func (r *Resolver) SystemPath(name string) string {
	p := strings.ReplaceAll(name, `\`, "/")
	if r.hasRoot(p) {
		p = strings.TrimPrefix(p[len(r.root):], "/")
	}
	if !r.platform.PreservesCase() {
		p = strings.ToLower(p)
	}

	if r.platform.Flattened() {
		p = path.Base(p)
	} else {
		p = strings.TrimLeft(p, "/")
	}

	if r.root == "" || r.root == "." {
		return p
	}
	return r.root + "/" + p
}

// hasRoot reports whether p already starts with the data root. The root is
// kept as given, so on case-folding platforms it matches in any case.
func (r *Resolver) hasRoot(p string) bool {
	if r.root == "" || r.root == "." || len(p) < len(r.root) {
		return false
	}
	if len(p) > len(r.root) && p[len(r.root)] != '/' {
		return false
	}
	prefix := p[:len(r.root)]
	if r.platform.PreservesCase() {
		return prefix == r.root
	}
	return strings.EqualFold(prefix, r.root)
}
