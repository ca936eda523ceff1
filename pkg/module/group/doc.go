// Package group implements a module that tracks the state of multicast
// groups.
//
// Each configuration record names a group, an initial state and a role.
// Listener entries follow 1-bit and percent updates sent to their group
// and poll the group once after loading. Publisher entries own a group:
// they answer state requests for it and announce changes made through Set.
// A listener entry with group 0 follows every group.
package group
