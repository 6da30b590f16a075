package keys

import "strings"

// Separator joins metadata and payload in a stored record. It never appears
// in a namespaced key: Entry rewrites it to ':'.
const Separator = "\x00"

// Entry returns the storage key of a caller key inside namespace ns.
func Entry(ns, key string) string {
	return ns + ":" + strings.ReplaceAll(key, Separator, ":")
}

// Format builds "<ns>:<key>" or "<ns>:<key>:<suffix>" when suffix is set.
func Format(ns, key, suffix string) string {
	if suffix == "" {
		return ns + ":" + key
	}
	return ns + ":" + key + ":" + suffix
}

// Unique returns ss without duplicates, keeping first-seen order.
func Unique(ss []string) []string {
	if len(ss) < 2 {
		return ss
	}
	seen := make(map[string]struct{}, len(ss))
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
