package buildscript

import "strings"

// DependentEnv renders out.Metadata as the DEP_<LINKS>_<KEY>
// environment variables a dependent package sees, where links is the
// link-name the script's own package claims via its manifest's
// [package] links field.
func DependentEnv(links string, out Output) map[string]string {
	if links == "" || len(out.Metadata) == 0 {
		return nil
	}
	env := make(map[string]string, len(out.Metadata))
	upper := strings.ToUpper(envSafe(links))
	for k, v := range out.Metadata {
		env["DEP_"+upper+"_"+strings.ToUpper(envSafe(k))] = v
	}
	return env
}

func envSafe(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}
