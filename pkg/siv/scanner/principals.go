package scanner

import (
	"io/fs"
	"os/user"
	"strconv"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultPrincipalCacheSize bounds the number of cached user and group names.
const DefaultPrincipalCacheSize = 256

// Principals resolves numeric owner and group ids to names. Ids with no
// account in the system database resolve to their decimal form.
type Principals struct {
	users  *lru.Cache[uint32, string]
	groups *lru.Cache[uint32, string]

	lookupUser  func(uid string) (string, error)
	lookupGroup func(gid string) (string, error)
}

// NewPrincipals creates a resolver caching up to size names per kind.
func NewPrincipals(size int) *Principals {
	if size <= 0 {
		size = DefaultPrincipalCacheSize
	}
	// lru.New only fails for a non-positive size.
	users, _ := lru.New[uint32, string](size)
	groups, _ := lru.New[uint32, string](size)

	return &Principals{
		users:  users,
		groups: groups,
		lookupUser: func(uid string) (string, error) {
			u, err := user.LookupId(uid)
			if err != nil {
				return "", err
			}
			return u.Username, nil
		},
		lookupGroup: func(gid string) (string, error) {
			g, err := user.LookupGroupId(gid)
			if err != nil {
				return "", err
			}
			return g.Name, nil
		},
	}
}

// Owner returns the owner and group names of a filesystem object. On
// platforms without numeric ownership both are empty.
func (p *Principals) Owner(info fs.FileInfo) (owner, group string) {
	uid, gid, ok := ownerIDs(info)
	if !ok {
		return "", ""
	}
	return p.User(uid), p.Group(gid)
}

// User resolves a numeric user id.
func (p *Principals) User(uid uint32) string {
	return resolve(p.users, uid, p.lookupUser)
}

// Group resolves a numeric group id.
func (p *Principals) Group(gid uint32) string {
	return resolve(p.groups, gid, p.lookupGroup)
}

func resolve(cache *lru.Cache[uint32, string], id uint32, lookup func(string) (string, error)) string {
	if name, ok := cache.Get(id); ok {
		return name
	}

	key := strconv.FormatUint(uint64(id), 10)
	name, err := lookup(key)
	if err != nil || name == "" {
		name = key
	}
	cache.Add(id, name)
	return name
}
