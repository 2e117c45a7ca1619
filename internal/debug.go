package internal

import (
	"log"
	"os"
	"os/user"
	"regexp"
	"slices"
	"strings"

	"github.com/earthboundkid/versioninfo/v2"
)

var sensitiveRegex = regexp.MustCompile(`(?i)(PASSWORD|API_KEY|ACCESS_KEY|SECRET|TOKEN)`)

func Version() string {
	return versioninfo.Short()
}

func ShowVersion() {
	log.Printf("Version: %s", Version())
}

// EnvironmentVars logs the BLUR_* and GIN_* settings the process picked up,
// masking anything that looks like a credential.
func EnvironmentVars() {
	log.Println("Environment variables")
	for _, kv := range RelevantEnv(os.Environ()) {
		log.Printf("  %s", kv)
	}
}

// RelevantEnv filters and sorts KEY=VALUE pairs down to the ones this
// program reads, with sensitive values masked.
func RelevantEnv(environ []string) []string {
	out := make([]string, 0, len(environ))
	for _, entry := range environ {
		key, value, _ := strings.Cut(entry, "=")
		if !strings.HasPrefix(key, "BLUR_") && !strings.HasPrefix(key, "GIN_") {
			continue
		}
		if sensitiveRegex.MatchString(key) {
			value = "********"
		}
		out = append(out, key+": "+value)
	}
	slices.Sort(out)
	return out
}

func UserInfo() {
	log.Printf("PID: %d", os.Getpid())
	currentUser, err := user.Current()
	if err != nil {
		log.Printf("Error getting current user: %v", err)
		return
	}
	log.Printf("User: uid=%s(%s) gid=%s", currentUser.Uid, currentUser.Username, currentUser.Gid)
}
