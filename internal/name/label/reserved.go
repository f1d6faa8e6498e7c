package label

import "strings"

// reservedSet protects brand terms, infrastructure words, and role words from
// registration in the off-chain namespace regardless of registry state.
var reservedSet = map[string]struct{}{}

func init() {
	for _, w := range reservedWords {
		reservedSet[w] = struct{}{}
	}
}

var reservedWords = []string{
	// brand
	"heaven", "heavens", "heavenly",

	// infrastructure
	"admin", "administrator", "root", "system", "sysadmin",
	"api", "apis", "app", "apps", "www", "web", "mail", "email", "smtp",
	"dns", "ns", "nameserver", "registrar", "registry", "resolver",
	"gateway", "proxy", "node", "rpc", "relay", "status", "health",
	"metrics", "dashboard", "console", "internal", "localhost",

	// roles and official-sounding words
	"support", "help", "helpdesk", "abuse", "security", "official",
	"team", "staff", "moderator", "mod", "owner", "operator",
	"billing", "payments", "legal", "privacy", "terms",
	"verify", "verified", "verification",
}

// Reserved reports whether a normalized label is in the protected set.
// The check normalizes its input so that Reserved(l) == Reserved(Normalize(l)).
func Reserved(l string) bool {
	_, ok := reservedSet[strings.ToLower(strings.TrimSpace(l))]
	return ok
}

// CheckRegistrable combines syntax validation with the reservation check,
// returning ReasonReserved for protected labels. This is the gate the
// registrar and client facade share.
func CheckRegistrable(raw string) Result {
	res := Validate(raw)
	if !res.Valid {
		return res
	}
	if Reserved(res.Normalized) {
		return Result{Normalized: res.Normalized, Reason: ReasonReserved}
	}
	return res
}
