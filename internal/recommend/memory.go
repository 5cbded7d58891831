package recommend

import (
	"context"
	"sort"
	"sync"
)

// MemoryDirectory is an in-memory UserDirectory and CommunityDirectory for
// tests and local development. Safe for concurrent use.
type MemoryDirectory struct {
	mu          sync.RWMutex
	users       map[string]*UserInfo
	communities map[string]*CommunityInfo

	// members[communityID] is the community's member set.
	members map[string]map[string]struct{}

	// topics[communityID] is the community's topic tags.
	topics map[string][]string
}

// NewMemoryDirectory creates an empty MemoryDirectory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{
		users:       make(map[string]*UserInfo),
		communities: make(map[string]*CommunityInfo),
		members:     make(map[string]map[string]struct{}),
		topics:      make(map[string][]string),
	}
}

// PutUser adds or replaces an account record.
func (d *MemoryDirectory) PutUser(info *UserInfo) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[info.UserID] = info
}

// PutCommunity adds or replaces a community with its topic tags.
func (d *MemoryDirectory) PutCommunity(info *CommunityInfo, topics ...string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.communities[info.CommunityID] = info
	d.topics[info.CommunityID] = topics
}

// Join records a community membership.
func (d *MemoryDirectory) Join(communityID, userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.members[communityID] == nil {
		d.members[communityID] = make(map[string]struct{})
	}
	d.members[communityID][userID] = struct{}{}
	if info, ok := d.communities[communityID]; ok {
		info.MemberCount = len(d.members[communityID])
	}
}

// UserInfo returns the account record, nil when unknown.
func (d *MemoryDirectory) UserInfo(_ context.Context, userID string) (*UserInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.users[userID], nil
}

// CommunityInfo returns the community record, nil when unknown.
func (d *MemoryDirectory) CommunityInfo(_ context.Context, communityID string) (*CommunityInfo, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.communities[communityID], nil
}

// FriendCommunities counts, per community, how many of the given friends
// are members.
func (d *MemoryDirectory) FriendCommunities(_ context.Context, friendIDs []string) (map[string]int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	out := make(map[string]int)
	for community, members := range d.members {
		count := 0
		for _, friend := range friendIDs {
			if _, ok := members[friend]; ok {
				count++
			}
		}
		if count > 0 {
			out[community] = count
		}
	}
	return out, nil
}

// InterestCommunities scores communities by topic overlap with the given
// topics: |overlap| / |community topics|.
func (d *MemoryDirectory) InterestCommunities(_ context.Context, topics []string) (map[string]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if len(topics) == 0 {
		return map[string]float64{}, nil
	}
	want := make(map[string]struct{}, len(topics))
	for _, topic := range topics {
		want[topic] = struct{}{}
	}

	out := make(map[string]float64)
	for community, tags := range d.topics {
		if len(tags) == 0 {
			continue
		}
		overlap := 0
		for _, tag := range tags {
			if _, ok := want[tag]; ok {
				overlap++
			}
		}
		if overlap > 0 {
			out[community] = float64(overlap) / float64(len(tags))
		}
	}
	return out, nil
}

// PopularCommunities returns up to limit communities scored by member
// count relative to the largest community.
func (d *MemoryDirectory) PopularCommunities(_ context.Context, limit int) (map[string]float64, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	type sized struct {
		id      string
		members int
	}
	all := make([]sized, 0, len(d.communities))
	largest := 0
	for id, info := range d.communities {
		all = append(all, sized{id: id, members: info.MemberCount})
		if info.MemberCount > largest {
			largest = info.MemberCount
		}
	}
	if largest == 0 {
		return map[string]float64{}, nil
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].members != all[j].members {
			return all[i].members > all[j].members
		}
		return all[i].id < all[j].id
	})
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}

	out := make(map[string]float64, len(all))
	for _, c := range all {
		out[c.id] = float64(c.members) / float64(largest)
	}
	return out, nil
}
