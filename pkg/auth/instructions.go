package auth

import (
	"fmt"
	"io"
	"strings"
)

// ShowKeysGuide writes step-by-step instructions for creating the four
// OAuth1 keys the bot posts with
func ShowKeysGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	lines := []string{
		rule,
		"TWITTER API KEYS",
		rule,
		"",
		"goesbot posts with OAuth 1.0a user context. You need four values:",
		"",
		"STEP 1: Open https://developer.twitter.com/en/portal/dashboard",
		"   - Sign in with the account the bot should post as",
		"   - Create a Project and an App (the Free tier is enough)",
		"",
		"STEP 2: App settings -> User authentication settings",
		"   - App permissions: Read and write",
		"   - Save before generating tokens, or they stay read-only",
		"",
		"STEP 3: Keys and tokens tab",
		"   - API Key and Secret          -> consumer key / consumer secret",
		"   - Access Token and Secret     -> access token / access secret",
		"",
		"TIPS:",
		"   - Regenerate the access token after changing permissions",
		"   - Values in credentials.cfg or GOESBOT_* variables take precedence",
		"     over stored profiles",
		"",
		"SECURITY WARNING:",
		"   - These keys allow posting as the account; never share them",
		"   - Stored profiles are kept in the system keychain, or encrypted under",
		"     the config directory when GOESBOT_PASSPHRASE is set",
		rule,
		"",
	}
	for _, line := range lines {
		fmt.Fprintln(w, line)
	}
}
