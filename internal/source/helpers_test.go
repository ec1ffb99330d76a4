package source

import "github.com/forgebuild/forge/internal/resolve"

func idFor(name, version string) resolve.PackageID {
	return resolve.PackageID{Name: name, Version: version}
}
