package source

import "fmt"

// indexPath computes the on-disk path of a package name's index file
// within a registry checkout, following the same sharding scheme as
// Cargo's own registry index: 1/2/3-letter names get a shallow path,
// longer names are sharded by their first four characters.
func indexPath(name string) string {
	switch len(name) {
	case 0:
		return ""
	case 1:
		return fmt.Sprintf("1/%s", name)
	case 2:
		return fmt.Sprintf("2/%s", name)
	case 3:
		return fmt.Sprintf("3/%s/%s", name[:1], name)
	default:
		return fmt.Sprintf("%s/%s/%s", name[0:2], name[2:4], name)
	}
}
