// Package mentions extracts @username tokens from message content and
// resolves them to user ids through a user directory.
package mentions

import (
	"context"
	"regexp"
)

var mentionPattern = regexp.MustCompile(`@(\w+)`)

// UserDirectory resolves usernames to user ids. Unknown usernames are
// simply absent from the returned map.
type UserDirectory interface {
	ResolveUsernames(ctx context.Context, usernames []string) (map[string]int64, error)
}

// Resolver turns message content into the set of mentioned user ids.
// Resolution happens once at message creation; edits do not re-resolve.
type Resolver struct {
	users UserDirectory
}

// NewResolver constructs a Resolver.
func NewResolver(users UserDirectory) *Resolver {
	return &Resolver{users: users}
}

// Resolve extracts candidate usernames from content, drops tokens that do
// not resolve to a known user and returns the de-duplicated ids in order of
// first appearance. Usernames are case significant. Resolve is idempotent.
func (r *Resolver) Resolve(ctx context.Context, content string) ([]int64, error) {
	candidates := ExtractUsernames(content)
	if len(candidates) == 0 {
		return []int64{}, nil
	}

	resolved, err := r.users.ResolveUsernames(ctx, candidates)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(candidates))
	seen := make(map[int64]struct{}, len(candidates))
	for _, name := range candidates {
		id, ok := resolved[name]
		if !ok {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, nil
}

// ExtractUsernames returns the distinct @-prefixed word tokens in content,
// in order of first appearance, without the @ prefix.
func ExtractUsernames(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(content, -1)
	names := make([]string, 0, len(matches))
	seen := make(map[string]struct{}, len(matches))
	for _, m := range matches {
		name := m[1]
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}
