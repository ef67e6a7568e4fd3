package security

import (
	"sort"
	"strconv"
	"strings"
)

// ActorID identifies a logical process or participant.
type ActorID int

// Role is the capacity in which an actor touches a channel.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// ActorSet is an immutable allow-list. The zero value is empty and
// therefore unrestricted.
type ActorSet struct {
	members map[ActorID]struct{}
}

// NewActorSet copies ids into a new set. Duplicates collapse.
func NewActorSet(ids ...ActorID) ActorSet {
	if len(ids) == 0 {
		return ActorSet{}
	}
	members := make(map[ActorID]struct{}, len(ids))
	for _, a := range ids {
		members[a] = struct{}{}
	}
	return ActorSet{members: members}
}

// FromInts builds a set from plain integers, as decoded from JSON or config.
func FromInts(ids []int) ActorSet {
	actors := make([]ActorID, len(ids))
	for i, v := range ids {
		actors[i] = ActorID(v)
	}
	return NewActorSet(actors...)
}

// Empty reports whether the set is unrestricted.
func (s ActorSet) Empty() bool {
	return len(s.members) == 0
}

// Len returns the number of members.
func (s ActorSet) Len() int {
	return len(s.members)
}

// Contains reports membership.
func (s ActorSet) Contains(a ActorID) bool {
	_, ok := s.members[a]
	return ok
}

// Admits applies the allow-list rule: empty admits everyone.
func (s ActorSet) Admits(a ActorID) bool {
	return s.Empty() || s.Contains(a)
}

// Slice returns the members in ascending order. Never nil.
func (s ActorSet) Slice() []ActorID {
	out := make([]ActorID, 0, len(s.members))
	for a := range s.members {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Ints returns the members as plain integers in ascending order.
func (s ActorSet) Ints() []int {
	actors := s.Slice()
	out := make([]int, len(actors))
	for i, a := range actors {
		out[i] = int(a)
	}
	return out
}

func (s ActorSet) String() string {
	if s.Empty() {
		return "any"
	}
	parts := make([]string, 0, len(s.members))
	for _, a := range s.Slice() {
		parts = append(parts, strconv.Itoa(int(a)))
	}
	return "[" + strings.Join(parts, ",") + "]"
}
