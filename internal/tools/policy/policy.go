// Package policy resolves which tools an agent may invoke on a given turn,
// combining a named profile with explicit allow/deny lists.
package policy

import "sort"

// Profile is a pre-configured tool access level.
type Profile string

const (
	ProfileMinimal   Profile = "minimal"
	ProfileCoding    Profile = "coding"
	ProfileMessaging Profile = "messaging"
	ProfileFull      Profile = "full"
)

// ProfileTools maps each profile to its base tool set. ProfileFull is
// handled specially in Resolve: it starts from every registered tool rather
// than a fixed list, since "full" means "everything not denied."
var ProfileTools = map[Profile][]string{
	ProfileMinimal:   {"get_datetime"},
	ProfileCoding:    {"get_datetime", "calculator", "web_search", "memory_search"},
	ProfileMessaging: {"get_datetime", "memory_search"},
}

// Resolve computes the effective tool set for one turn:
// ((profile(A) ∪ tools_allow) ∖ tools_deny) ∩ A
// where A is the set of registered tool names. Deny strictly dominates
// allow. The result is sorted for deterministic tool-schema rendering.
func Resolve(profile Profile, allow, deny, registered []string) []string {
	registeredSet := toSet(registered)

	var base map[string]struct{}
	if profile == ProfileFull {
		base = cloneSet(registeredSet)
	} else {
		base = toSet(ProfileTools[profile])
	}
	for _, name := range allow {
		base[name] = struct{}{}
	}

	denySet := toSet(deny)
	result := make([]string, 0, len(base))
	for name := range base {
		if _, denied := denySet[name]; denied {
			continue
		}
		if _, ok := registeredSet[name]; !ok {
			continue
		}
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

func toSet(names []string) map[string]struct{} {
	set := make(map[string]struct{}, len(names))
	for _, n := range names {
		set[n] = struct{}{}
	}
	return set
}

func cloneSet(src map[string]struct{}) map[string]struct{} {
	dst := make(map[string]struct{}, len(src))
	for k := range src {
		dst[k] = struct{}{}
	}
	return dst
}
