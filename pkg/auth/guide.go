package auth

import (
	"fmt"
	"io"
	"strings"
)

// PrintSetupGuide writes instructions for obtaining the API credentials
func PrintSetupGuide(w io.Writer) {
	rule := strings.Repeat("=", 72)
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w, "CREDENTIAL SETUP")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Reddit (application-only OAuth):")
	fmt.Fprintln(w, "  1. Open https://www.reddit.com/prefs/apps and choose \"create another app\"")
	fmt.Fprintln(w, "  2. Pick the \"script\" type; any redirect URI works, e.g. http://localhost:8080")
	fmt.Fprintln(w, "  3. The client id is the string under the app name")
	fmt.Fprintln(w, "  4. The client secret is labelled \"secret\"")
	fmt.Fprintln(w, "  5. Use a descriptive user agent such as \"redditanalyzer/1.0 by <your reddit name>\"")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Gemini:")
	fmt.Fprintln(w, "  1. Open https://aistudio.google.com/app/apikey")
	fmt.Fprintln(w, "  2. Create an API key and paste it when prompted")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Secrets are kept in the system keychain when available, otherwise in an")
	fmt.Fprintln(w, "encrypted file under the user config directory.")
	fmt.Fprintln(w, rule)
}
